package config

import (
	"context"
	"fmt"

	dbm "github.com/tendermint/tm-db"

	"github.com/plasmacash/plasma/libs/log"
	"github.com/plasmacash/plasma/libs/service"
)

// ServiceProvider builds the node run by the start command.
type ServiceProvider func(context.Context, *Config, log.Logger) (service.Service, error)

// DBContext names the database to open and the configuration to open it
// with.
type DBContext struct {
	ID     string
	Config *Config
}

// DBProvider opens the database described by a DBContext.
type DBProvider func(*DBContext) (dbm.DB, error)

// DefaultDBProvider opens ctx.ID with the configured backend: a goleveldb
// database under DBDir, or a memdb that lives as long as the process.
func DefaultDBProvider(ctx *DBContext) (dbm.DB, error) {
	switch backend := dbm.BackendType(ctx.Config.DBBackend); backend {
	case dbm.GoLevelDBBackend:
		db, err := dbm.NewGoLevelDB(ctx.ID, ctx.Config.DBDir())
		if err != nil {
			return nil, err
		}
		return db, nil
	case dbm.MemDBBackend:
		return dbm.NewMemDB(), nil
	default:
		return nil, fmt.Errorf("unsupported db-backend %q for %s", backend, ctx.ID)
	}
}
