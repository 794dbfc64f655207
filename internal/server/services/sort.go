package services

import (
	"sort"

	"github.com/dmitrijs2005/contractdocs/internal/server/models"
)

func sortedCodes(types map[string]*models.AttachmentType) []string {
	codes := make([]string, 0, len(types))
	for c := range types {
		codes = append(codes, c)
	}
	sort.Strings(codes)
	return codes
}
