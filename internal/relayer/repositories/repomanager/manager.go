package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/invisibledrop/internal/dbx"
	"github.com/dmitrijs2005/invisibledrop/internal/relayer/repositories/audit"
	"github.com/dmitrijs2005/invisibledrop/internal/relayer/repositories/handles"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Handles(db dbx.DBTX) handles.Repository
	Audit(db dbx.DBTX) audit.Repository
}
