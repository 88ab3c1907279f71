package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/fundkeeper/internal/dbx"
	"github.com/dmitrijs2005/fundkeeper/internal/server/repositories/contributions"
	"github.com/dmitrijs2005/fundkeeper/internal/server/repositories/projects"
	"github.com/dmitrijs2005/fundkeeper/internal/server/repositories/settings"
	"github.com/dmitrijs2005/fundkeeper/internal/server/repositories/users"
)

// RepositoryManager vends repositories bound to a DBTX, so the same code
// path works against the pool or inside a transaction.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Projects(db dbx.DBTX) projects.Repository
	Contributions(db dbx.DBTX) contributions.Repository
	Settings(db dbx.DBTX) settings.Repository
}
