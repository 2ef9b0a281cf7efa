package store

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// dialectors opens the token and audit database for each DATABASE_DRIVER
// value. "postgresql" is accepted as an alias.
var dialectors = map[string]func(dsn string) gorm.Dialector{
	"sqlite":     sqlite.Open,
	"postgres":   postgres.Open,
	"postgresql": postgres.Open,
}

// SupportsDriver reports whether driver names a known database backend.
func SupportsDriver(driver string) bool {
	_, ok := dialectors[driver]
	return ok
}

func dialectorFor(driver, dsn string) (gorm.Dialector, error) {
	open, ok := dialectors[driver]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDriver, driver)
	}
	return open(dsn), nil
}
