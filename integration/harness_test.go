package integration

import (
	"testing"

	"github.com/nightout-app/server/config"
	"github.com/nightout-app/server/feed"
	"github.com/nightout-app/server/media"
	"github.com/nightout-app/server/mirror"
	"github.com/nightout-app/server/moderation"
	"github.com/nightout-app/server/night"
	"github.com/nightout-app/server/profile"
	"github.com/nightout-app/server/realtime"
	"github.com/nightout-app/server/session"
	"github.com/nightout-app/server/social"
	"github.com/nightout-app/server/testutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// harness wires the full service graph over in-memory backends, the same
// way main.go does in production.
type harness struct {
	db         *gorm.DB
	profiles   *profile.Service
	social     *social.Service
	nights     *night.Service
	feed       *feed.Service
	media      *media.Service
	moderation *moderation.Service
	presence   *session.Manager
	remote     *mirror.SchemaRemote
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db := testutil.SetupTestDB(t)
	c, ps := testutil.SetupTestCache(t)
	logger := zap.NewNop()

	presence := session.NewManager(logger)
	pub := realtime.NewPublisher(ps, logger)
	socialSvc := social.NewService(db, presence, logger)
	storage, err := media.NewDiskStorage(t.TempDir(), "http://localhost/media")
	require.NoError(t, err)

	return &harness{
		db:         db,
		profiles:   profile.NewService(db, c, config.SecurityConfig{}, logger),
		social:     socialSvc,
		nights:     night.NewService(db, c, pub, config.NightConfig{MaxHours: 24}, logger),
		feed:       feed.NewService(db, c, pub, socialSvc, logger),
		media:      media.NewService(db, storage, pub, logger),
		moderation: moderation.NewService(db, socialSvc, 2, logger),
		presence:   presence,
		remote:     mirror.NewSchemaRemote(db),
	}
}
