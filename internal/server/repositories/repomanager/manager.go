package repomanager

import (
	"context"
	"database/sql"

	"github.com/ostrval/carpooling/internal/dbx"
	"github.com/ostrval/carpooling/internal/server/repositories/routes"
	"github.com/ostrval/carpooling/internal/server/repositories/trips"
	"github.com/ostrval/carpooling/internal/server/repositories/users"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Routes(db dbx.DBTX) routes.Repository
	Trips(db dbx.DBTX) trips.Repository
}
