package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"bingo-submit-system/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	// A fresh :memory: database per connection would split the schema.
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&models.Submission{}, &models.Board{}))
	return db
}

func testConfig() *Config {
	return &Config{
		Season:   "test-season",
		Location: time.UTC,
	}
}

func mustCreate(t *testing.T, db *gorm.DB, sub *models.Submission) {
	t.Helper()
	require.NoError(t, db.Create(sub).Error)
}
