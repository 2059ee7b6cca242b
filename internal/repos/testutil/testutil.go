// Package testutil opens a throwaway Postgres connection for repo and
// service integration tests. Tests that call DB skip unless
// TEST_POSTGRES_DSN points at a reachable database.
package testutil

import (
	"os"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/yungbote/pianocrm-backend/internal/platform/logger"
	"github.com/yungbote/pianocrm-backend/internal/types"
)

var idCounter atomic.Int64

// Logger returns a development logger for tests.
func Logger(tb testing.TB) *logger.Logger {
	tb.Helper()
	log, err := logger.New("development")
	if err != nil {
		tb.Fatalf("logger.New: %v", err)
	}
	tb.Cleanup(func() { log.Sync() })
	return log
}

// DB opens a gorm connection to the database named by TEST_POSTGRES_DSN
// and migrates every model. Skips the test when the variable is unset.
func DB(tb testing.TB) *gorm.DB {
	tb.Helper()

	dsn := strings.TrimSpace(os.Getenv("TEST_POSTGRES_DSN"))
	if dsn == "" {
		tb.Skip("set TEST_POSTGRES_DSN to run Postgres integration tests")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		tb.Fatalf("open postgres: %v", err)
	}

	db.Exec(`CREATE EXTENSION IF NOT EXISTS "uuid-ossp"`)
	if err := db.AutoMigrate(
		&types.CustomerProfile{},
		&types.DialogueMessage{},
		&types.PurchasedProduct{},
		&types.Reminder{},
	); err != nil {
		tb.Fatalf("auto migrate: %v", err)
	}
	return db
}

// NewCustomerID returns a customer id unique across the test run, so
// parallel tests and repeated runs never collide on leftover rows.
func NewCustomerID() int64 {
	return time.Now().UnixNano() + idCounter.Add(1)
}

// CleanupCustomer removes every row the test created for the customer.
func CleanupCustomer(tb testing.TB, db *gorm.DB, customerID int64) {
	tb.Helper()
	tb.Cleanup(func() {
		db.Where("customer_id = ?", customerID).Delete(&types.Reminder{})
		db.Where("customer_id = ?", customerID).Delete(&types.PurchasedProduct{})
		db.Where("customer_id = ?", customerID).Delete(&types.DialogueMessage{})
		db.Where("customer_id = ?", customerID).Delete(&types.CustomerProfile{})
	})
}
