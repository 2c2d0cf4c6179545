package db

import (
	"strings"

	gormsqlite "github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const sqlitePrefix = "sqlite:"

// Open picks the dialect from the DSN: "sqlite:<path>" uses the pure Go
// SQLite driver, anything else is treated as a MySQL DSN.
func Open(dsn string) (*gorm.DB, error) {
	cfg := &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Warn)}
	if strings.HasPrefix(dsn, sqlitePrefix) {
		return gorm.Open(gormsqlite.Open(strings.TrimPrefix(dsn, sqlitePrefix)), cfg)
	}
	return gorm.Open(mysql.Open(dsn), cfg)
}

// Connect is Open for process start-up: a database we cannot reach is fatal.
func Connect(dsn string, log *zap.Logger) *gorm.DB {
	gdb, err := Open(dsn)
	if err != nil {
		log.Fatal("db connect", zap.Error(err))
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		log.Fatal("db handle", zap.Error(err))
	}
	sqlDB.SetMaxOpenConns(20)
	sqlDB.SetMaxIdleConns(5)
	return gdb
}

// Migrate creates the given models' tables. Callers pass every model they own.
func Migrate(gdb *gorm.DB, models ...any) error {
	return gdb.AutoMigrate(models...)
}
