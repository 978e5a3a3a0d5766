package accounts

import (
	"embed"
	"io/fs"
)

//go:embed data/sql/migrations
var migrationsFS embed.FS

//go:embed data/templates
var templatesFS embed.FS

// GetMigrationsFS returns the migration files for this package
func GetMigrationsFS() embed.FS {
	return migrationsFS
}

// MigrationsFor returns the migrations of a dialect, "postgres" or "sqlite"
func MigrationsFor(dialect string) (fs.FS, error) {
	return fs.Sub(migrationsFS, "data/sql/migrations/"+dialect)
}

// GetEmailTemplatesFS returns the notification email templates
func GetEmailTemplatesFS() fs.FS {
	sub, err := fs.Sub(templatesFS, "data/templates/email")
	if err != nil {
		panic(err)
	}
	return sub
}
