package database

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"strings"
)

//go:embed schema/*.sql
var schemaFS embed.FS

// Migrate creates the ledger tables if they do not exist.  Statements are
// idempotent, so it is safe to run on every start.
func Migrate(ctx context.Context, db *sql.DB, d Dialect) error {
	name := "schema/mysql.sql"
	if d == SQLite {
		name = "schema/sqlite.sql"
	}
	raw, err := schemaFS.ReadFile(name)
	if err != nil {
		return fmt.Errorf("read %s: %w", name, err)
	}
	for _, stmt := range splitStatements(string(raw)) {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w\n%s", err, stmt)
		}
	}
	return nil
}

// splitStatements cuts a schema file on statement-terminating semicolons
// and drops comment-only chunks.
func splitStatements(src string) []string {
	var out []string
	for _, chunk := range strings.Split(src, ";\n") {
		var b strings.Builder
		for _, line := range strings.Split(chunk, "\n") {
			if strings.HasPrefix(strings.TrimSpace(line), "--") {
				continue
			}
			b.WriteString(line)
			b.WriteByte('\n')
		}
		if stmt := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(b.String()), ";")); stmt != "" {
			out = append(out, stmt)
		}
	}
	return out
}
