package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/classgate/internal/dbx"
	"github.com/dmitrijs2005/classgate/internal/server/repositories/admins"
	"github.com/dmitrijs2005/classgate/internal/server/repositories/batches"
	"github.com/dmitrijs2005/classgate/internal/server/repositories/serverconfig"
	"github.com/dmitrijs2005/classgate/internal/server/repositories/users"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Batches(db dbx.DBTX) batches.Repository
	Admins(db dbx.DBTX) admins.Repository
	ServerConfig(db dbx.DBTX) serverconfig.Repository
}
