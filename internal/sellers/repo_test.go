package sellers

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/partsmatch/partsmatch-backend/pkg/db/models"
	"github.com/partsmatch/partsmatch-backend/pkg/enums"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)
	require.NoError(t, conn.Exec(`
		CREATE TABLE users (
			id TEXT PRIMARY KEY,
			email TEXT NOT NULL UNIQUE,
			role TEXT NOT NULL,
			first_name TEXT NOT NULL,
			last_name TEXT NOT NULL,
			phone TEXT,
			parish TEXT,
			email_verified INTEGER NOT NULL DEFAULT 0,
			is_active INTEGER NOT NULL DEFAULT 1,
			subscription_tier TEXT,
			last_login_at DATETIME,
			created_at DATETIME,
			updated_at DATETIME
		)
	`).Error)
	return conn
}

func seedUser(t *testing.T, db *gorm.DB, role enums.UserRole, verified bool, active bool) models.User {
	t.Helper()
	user := models.User{
		ID:            uuid.New(),
		Email:         uuid.NewString() + "@example.com",
		Role:          role,
		FirstName:     "Test",
		LastName:      "User",
		EmailVerified: verified,
		IsActive:      active,
	}
	require.NoError(t, db.Create(&user).Error)
	return user
}

func TestListEligible_FiltersRoleAndVerification(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepository(db)

	verified := seedUser(t, db, enums.UserRoleSeller, true, true)
	seedUser(t, db, enums.UserRoleSeller, false, true)
	seedUser(t, db, enums.UserRoleBuyer, true, true)

	got, err := repo.ListEligible(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, verified.ID, got[0].ID)
}

func TestListEligible_InactiveSellersStillIncluded(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepository(db)

	seedUser(t, db, enums.UserRoleSeller, true, false)

	got, err := repo.ListEligible(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)
}

func TestListEligible_EmptyIsNotAnError(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepository(db)

	got, err := repo.ListEligible(context.Background())
	require.NoError(t, err)
	require.Empty(t, got)
}
