package controllers

import (
	"sync"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/pressbrief/pressbrief/app/models"
	"github.com/pressbrief/pressbrief/app/repository"
)

var (
	testDBOnce sync.Once
	testDB     *gorm.DB
	testDBErr  error
)

// controllerTestDB opens the shared in-memory database and installs it as
// the repository factory backing. The factory is process-global, so every
// controller test in the package shares one database.
func controllerTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	testDBOnce.Do(func() {
		db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		})
		if err != nil {
			testDBErr = err
			return
		}

		sqlDB, err := db.DB()
		if err != nil {
			testDBErr = err
			return
		}
		sqlDB.SetMaxOpenConns(1)

		if err := db.AutoMigrate(
			&models.User{},
			&models.SubscriptionRecord{},
			&models.BillingWebhookEvent{},
		); err != nil {
			testDBErr = err
			return
		}

		repository.InitializeFactory(db)
		testDB = db
	})

	require.NoError(t, testDBErr)
	require.NotNil(t, testDB)
	return testDB
}
