package repomanager

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"

	"github.com/dmitrijs2005/contractdocs/internal/dbx"
	"github.com/jackc/pgx/v5"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// sqliteParams are appended to every SQLite DSN. Times are written in a
// sortable text form so range predicates on timestamp columns work.
var sqliteParams = []string{
	"_pragma=foreign_keys(1)",
	"_pragma=busy_timeout(5000)",
	"_time_format=sqlite",
}

// Open validates dsn for backend, opens the pool and pings it. A malformed
// descriptor fails before any connection attempt.
func Open(ctx context.Context, backend dbx.Backend, dsn string) (*sql.DB, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, fmt.Errorf("%s: empty connection string", backend)
	}

	switch backend {
	case dbx.Postgres:
		if _, err := pgx.ParseConfig(dsn); err != nil {
			return nil, fmt.Errorf("invalid postgres dsn: %w", err)
		}
	case dbx.SQLite:
		var err error
		if dsn, err = sqliteDSN(dsn); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported backend %q", backend)
	}

	db, err := sql.Open(backend.DriverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", backend, err)
	}
	if backend == dbx.SQLite {
		// One writer at a time; also keeps ":memory:" on a single database.
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", backend, err)
	}
	return db, nil
}

func sqliteDSN(dsn string) (string, error) {
	path, query, _ := strings.Cut(dsn, "?")
	if path == "" {
		return "", fmt.Errorf("invalid sqlite dsn %q: missing path", dsn)
	}
	if _, err := url.ParseQuery(query); err != nil {
		return "", fmt.Errorf("invalid sqlite dsn %q: %w", dsn, err)
	}

	params := sqliteParams
	if query != "" {
		params = append([]string{query}, params...)
	}
	return path + "?" + strings.Join(params, "&"), nil
}
