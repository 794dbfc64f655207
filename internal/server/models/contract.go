package models

import "time"

// Contract status values.
const (
	ContractStatusDraft      = "DRAFT"
	ContractStatusIncomplete = "INCOMPLETE"
)

// Contract is the parent record archives are associated with.
type Contract struct {
	ID             int64     `json:"id"`
	TypeCode       string    `json:"contract_type"`
	Number         string    `json:"number"`
	ContractorName string    `json:"contractor_name"`
	ContractorTax  string    `json:"contractor_tax_id"`
	Amount         float64   `json:"amount"`
	SignedOn       time.Time `json:"signed_on"`
	CreatedBy      int64     `json:"created_by"`
	Status         string    `json:"status"`
	// Details is free-form JSON supplied by the caller.
	Details   string    `json:"details,omitempty"`
	CreatedAt time.Time `json:"created_at"`

	Archives []*AssociatedArchive `json:"archives"`
}

// ContractType is a row of the contract type lookup table.
type ContractType struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// ContractPage is one page of contracts, newest first.
type ContractPage struct {
	Items  []*Contract `json:"items"`
	Total  int64       `json:"total"`
	Limit  int         `json:"limit"`
	Offset int         `json:"offset"`
}

// Association links a contract to an archive under an attachment category.
// A (ContractID, ArchiveID) pair exists at most once.
type Association struct {
	ContractID   int64     `json:"contract_id"`
	ArchiveID    int64     `json:"archive_id"`
	Category     string    `json:"category"`
	Obligatory   bool      `json:"obligatory"`
	AssociatedAt time.Time `json:"associated_at"`
}

// AssociatedArchive is an archive as seen through one of its associations.
type AssociatedArchive struct {
	Archive
	AssociationCategory string    `json:"association_category"`
	Obligatory          bool      `json:"obligatory"`
	AssociatedAt        time.Time `json:"associated_at"`
}

// AttachmentType is a row of the attachment category lookup table.
type AttachmentType struct {
	Code      string `json:"code"`
	Name      string `json:"name"`
	Group     string `json:"group"`
	Mandatory bool   `json:"mandatory"`
}

// PromotionFailure records a staged file that did not make it into the
// permanent store during a commit.
type PromotionFailure struct {
	StagedID     string `json:"staged_id"`
	OriginalName string `json:"original_name"`
	Category     string `json:"category"`
	Mandatory    bool   `json:"mandatory"`
	Reason       string `json:"reason"`
}

// CommitResult is returned by contract creation. The contract exists even
// when Incomplete is true.
type CommitResult struct {
	Contract         *Contract          `json:"contract"`
	Failures         []PromotionFailure `json:"failures"`
	MissingMandatory []string           `json:"missing_mandatory"`
	Incomplete       bool               `json:"incomplete"`
	// Warnings describe post-commit steps that failed without undoing the
	// contract, such as reloading it or flagging it incomplete.
	Warnings []string `json:"warnings,omitempty"`
}
