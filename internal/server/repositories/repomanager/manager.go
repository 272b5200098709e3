package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/moodkeeper/internal/dbx"
	"github.com/dmitrijs2005/moodkeeper/internal/server/repositories/ciphertexts"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Ciphertexts(db dbx.DBTX) ciphertexts.Repository
}
