// Package db provides the session store driver factory.
package db

import (
	"github.com/pkg/errors"

	"github.com/medvani/medvani/internal/profile"
	"github.com/medvani/medvani/store"
	"github.com/medvani/medvani/store/db/postgres"
	"github.com/medvani/medvani/store/db/sqlite"
)

// NewDBDriver creates the session store driver based on the profile.
func NewDBDriver(profile *profile.Profile) (store.Driver, error) {
	switch profile.Driver {
	case "postgres":
		return postgres.NewDB(profile)
	case "sqlite":
		return sqlite.NewDB(profile)
	default:
		return nil, errors.Errorf("unknown db driver: %s", profile.Driver)
	}
}
