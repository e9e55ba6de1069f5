package testutil

import (
	"testing"

	"github.com/nightout-app/server/cache"
	"github.com/nightout-app/server/config"
	dbadapter "github.com/nightout-app/server/db"
	"github.com/nightout-app/server/model"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// SetupTestDB creates an in-memory embedded DB and runs AutoMigrate.
// It requires no external services and is safe to use in parallel tests.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := dbadapter.Open(config.DatabaseConfig{
		Mode: dbadapter.ModeMemory,
	})
	require.NoError(t, err, "SetupTestDB: Open")
	require.NoError(t, model.AutoMigrate(db), "SetupTestDB: AutoMigrate")
	return db
}

// SetupTestCache creates LocalCache and LocalPubSub (no Redis required).
func SetupTestCache(t *testing.T) (cache.Cache, cache.PubSub) {
	t.Helper()
	cfg := cache.Config{} // empty RedisAddr → in-process cache
	c, err := cache.New(cfg)
	require.NoError(t, err, "SetupTestCache: New")
	ps, err := cache.NewPubSub(cfg)
	require.NoError(t, err, "SetupTestCache: NewPubSub")
	return c, ps
}

// CreateProfile inserts a profile row with sane defaults for tests.
func CreateProfile(t *testing.T, db *gorm.DB, username string) *model.Profile {
	t.Helper()
	p := &model.Profile{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "x",
		DisplayName:  username,
		Status:       1,
	}
	require.NoError(t, db.Create(p).Error, "CreateProfile")
	return p
}
