package dbx

import (
	"fmt"
	"strings"
)

// Backend identifies the relational store selected at process start.
type Backend string

const (
	Postgres Backend = "postgres"
	SQLite   Backend = "sqlite"
)

// ParseBackend accepts the provider names used in configuration.
func ParseBackend(s string) (Backend, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "postgres", "postgresql", "pgx":
		return Postgres, nil
	case "sqlite", "sqlite3":
		return SQLite, nil
	default:
		return "", fmt.Errorf("unknown database provider %q", s)
	}
}

// DriverName is the database/sql driver registered for the backend.
func (b Backend) DriverName() string {
	if b == Postgres {
		return "pgx"
	}
	return "sqlite"
}

// GooseDialect is the dialect name goose expects.
func (b Backend) GooseDialect() string {
	if b == Postgres {
		return "pgx"
	}
	return "sqlite3"
}

func (b Backend) String() string {
	return string(b)
}
