package migrate

import (
	_ "embed"
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// sqliteSchema mirrors the goose migrations for local SQLite runs and
// repository tests, including the certificate guard triggers.
//
//go:embed sqlite_schema.sql
var sqliteSchema string

// ApplySQLiteSchema creates every table on a SQLite connection. It is idempotent.
func ApplySQLiteSchema(db *gorm.DB) error {
	if db == nil {
		return fmt.Errorf("db is required")
	}
	for _, stmt := range splitStatements(sqliteSchema) {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("apply sqlite schema: %w", err)
		}
	}
	return nil
}

// splitStatements breaks the schema on ";" while keeping trigger bodies,
// which contain inner semicolons, in one piece.
func splitStatements(schema string) []string {
	var (
		out       []string
		current   strings.Builder
		inTrigger bool
	)
	for _, line := range strings.Split(schema, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" && current.Len() == 0 {
			continue
		}
		if strings.HasPrefix(strings.ToUpper(trimmed), "CREATE TRIGGER") {
			inTrigger = true
		}
		current.WriteString(line)
		current.WriteString("\n")

		end := strings.HasSuffix(trimmed, ";")
		if inTrigger {
			end = strings.EqualFold(trimmed, "END;")
		}
		if end {
			out = append(out, strings.TrimSpace(current.String()))
			current.Reset()
			inTrigger = false
		}
	}
	if rest := strings.TrimSpace(current.String()); rest != "" {
		out = append(out, rest)
	}
	return out
}
