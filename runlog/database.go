package runlog

import (
	"errors"
	"fmt"

	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Database drivers accepted by Open.
const (
	DriverNone   = "none"
	DriverSQLite = "sqlite"
	DriverMySQL  = "mysql"
)

var (
	// ErrDisabled is returned by Open when no driver is configured.
	ErrDisabled = errors.New("run history disabled")

	// ErrUnknownDriver is returned for a driver Open does not support.
	ErrUnknownDriver = errors.New("unknown run history driver")

	// ErrMissingDSN is returned when a driver is set without a DSN.
	ErrMissingDSN = errors.New("run history dsn is required")
)

// Config selects the database holding the run history.
type Config struct {
	Driver string
	DSN    string
}

// Enabled reports whether a driver is configured.
func (c Config) Enabled() bool {
	return c.Driver != "" && c.Driver != DriverNone
}

func (c Config) validate() error {
	if !c.Enabled() {
		return ErrDisabled
	}
	if c.DSN == "" {
		return ErrMissingDSN
	}
	switch c.Driver {
	case DriverSQLite, DriverMySQL:
		return nil
	default:
		return fmt.Errorf("%w: %s", ErrUnknownDriver, c.Driver)
	}
}

// Open applies pending migrations and connects to the configured database.
func Open(cfg Config) (*gorm.DB, error) {
	if err := Migrate(cfg); err != nil {
		return nil, err
	}

	var dialector gorm.Dialector
	switch cfg.Driver {
	case DriverSQLite:
		dialector = sqlite.Open(cfg.DSN)
	case DriverMySQL:
		dialector = mysql.Open(cfg.DSN)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", cfg.Driver, err)
	}

	return db, nil
}

// Close releases the connection pool behind db.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
