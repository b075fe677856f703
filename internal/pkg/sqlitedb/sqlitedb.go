// Package sqlitedb opens gorm databases on the pure-Go sqlite driver.
package sqlitedb

import (
	"fmt"
	"strings"

	gormsqlite "gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	// registers the "sqlite" database/sql driver
	_ "modernc.org/sqlite"
)

func Open(dsn string, cfg *gorm.Config) (*gorm.DB, error) {
	if cfg == nil {
		cfg = &gorm.Config{}
	}
	return gorm.Open(
		gormsqlite.New(gormsqlite.Config{
			DriverName: "sqlite",
			DSN:        dsn,
		}),
		cfg,
	)
}

// OpenInMemory opens a named shared-cache in-memory database with silent
// logging and migrates the given models. Each test should pass a unique name.
func OpenInMemory(name string, models ...interface{}) (*gorm.DB, error) {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", sanitize(name))
	db, err := Open(dsn, &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, err
	}
	// Shared-cache sqlite fails concurrent writers with SQLITE_LOCKED instead
	// of waiting, so background writers must queue on one connection.
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)
	if len(models) > 0 {
		if err := db.AutoMigrate(models...); err != nil {
			return nil, err
		}
	}
	return db, nil
}

func sanitize(name string) string {
	return strings.NewReplacer("/", "_", " ", "_", "?", "_", "&", "_", "=", "_", "#", "_").Replace(name)
}
