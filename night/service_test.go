package night

import (
	"context"
	"testing"
	"time"

	"github.com/nightout-app/server/apperr"
	"github.com/nightout-app/server/config"
	"github.com/nightout-app/server/model"
	"github.com/nightout-app/server/realtime"
	"github.com/nightout-app/server/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	c, ps := testutil.SetupTestCache(t)
	pub := realtime.NewPublisher(ps, zap.NewNop())
	svc := NewService(db, c, pub, config.NightConfig{MaxHours: 24}, zap.NewNop())
	return svc, db
}

func TestStart_OnlyOneActiveNight(t *testing.T) {
	svc, db := newTestService(t)
	p := testutil.CreateProfile(t, db, "starter")
	ctx := context.Background()

	first, err := svc.Start(ctx, p.ID, StartParams{Title: "friday"})
	require.NoError(t, err)
	assert.True(t, first.IsActive)
	assert.Nil(t, first.EndedAt)

	// Second start conflicts and names the active night.
	_, err = svc.Start(ctx, p.ID, StartParams{Title: "again"})
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindConflict))
	assert.Contains(t, err.Error(), "already active")

	// After ending, a new night can start.
	_, err = svc.End(ctx, p.ID)
	require.NoError(t, err)
	_, err = svc.Start(ctx, p.ID, StartParams{Title: "saturday"})
	require.NoError(t, err)
}

func TestStart_InvalidVisibility(t *testing.T) {
	svc, db := newTestService(t)
	p := testutil.CreateProfile(t, db, "visuser")

	_, err := svc.Start(context.Background(), p.ID, StartParams{Visibility: "everyone"})
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))
}

func TestEnd_FoldsCountersIntoProfile(t *testing.T) {
	svc, db := newTestService(t)
	p := testutil.CreateProfile(t, db, "ender")
	ctx := context.Background()

	n, err := svc.Start(ctx, p.ID, StartParams{})
	require.NoError(t, err)

	_, err = svc.AddDrink(ctx, p.ID, model.DrinkBeer, "", "")
	require.NoError(t, err)
	_, err = svc.AddDrink(ctx, p.ID, model.DrinkWine, "", "")
	require.NoError(t, err)

	ended, err := svc.End(ctx, p.ID)
	require.NoError(t, err)
	require.NotNil(t, ended.EndedAt)
	assert.False(t, ended.IsActive)
	assert.Equal(t, n.ID, ended.ID)

	var prof model.Profile
	require.NoError(t, db.First(&prof, p.ID).Error)
	assert.Equal(t, 1, prof.TotalNights)
	assert.Equal(t, 2, prof.TotalDrinks)
	assert.Equal(t, 1, prof.CurrentStreak)
	assert.Equal(t, 1, prof.LongestStreak)
	require.NotNil(t, prof.LastNightAt)

	// No active night left.
	_, err = svc.End(ctx, p.ID)
	assert.ErrorIs(t, err, ErrNoActiveNight)
}

func TestNextStreak(t *testing.T) {
	now := time.Date(2026, 8, 28, 23, 0, 0, 0, time.UTC)
	sameDay := now.Add(-2 * time.Hour)
	yesterday := now.Add(-24 * time.Hour)
	lastWeek := now.Add(-7 * 24 * time.Hour)

	assert.Equal(t, 1, nextStreak(nil, 0, now), "first night ever")
	assert.Equal(t, 3, nextStreak(&sameDay, 3, now), "same day keeps streak")
	assert.Equal(t, 4, nextStreak(&yesterday, 3, now), "next day extends")
	assert.Equal(t, 1, nextStreak(&lastWeek, 9, now), "gap resets")
}

func TestGet_Visibility(t *testing.T) {
	svc, db := newTestService(t)
	owner := testutil.CreateProfile(t, db, "owner")
	friend := testutil.CreateProfile(t, db, "friend")
	stranger := testutil.CreateProfile(t, db, "stranger")
	ctx := context.Background()

	require.NoError(t, db.Create(&model.Friendship{
		RequesterID: owner.ID, AddresseeID: friend.ID, Status: model.FriendshipAccepted,
	}).Error)

	private := &model.Night{ProfileID: owner.ID, StartedAt: time.Now(), Visibility: model.VisibilityPrivate}
	friendsOnly := &model.Night{ProfileID: owner.ID, StartedAt: time.Now(), Visibility: model.VisibilityFriends}
	public := &model.Night{ProfileID: owner.ID, StartedAt: time.Now(), Visibility: model.VisibilityPublic}
	hidden := &model.Night{ProfileID: owner.ID, StartedAt: time.Now(), Visibility: model.VisibilityPublic, Hidden: true}
	for _, n := range []*model.Night{private, friendsOnly, public, hidden} {
		require.NoError(t, db.Create(n).Error)
	}

	// Owner sees everything, hidden included.
	for _, n := range []*model.Night{private, friendsOnly, public, hidden} {
		_, err := svc.Get(ctx, owner.ID, n.ID)
		assert.NoError(t, err)
	}

	// Friend sees friends-only and public, not private or hidden.
	_, err := svc.Get(ctx, friend.ID, friendsOnly.ID)
	assert.NoError(t, err)
	_, err = svc.Get(ctx, friend.ID, public.ID)
	assert.NoError(t, err)
	_, err = svc.Get(ctx, friend.ID, private.ID)
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
	_, err = svc.Get(ctx, friend.ID, hidden.ID)
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))

	// Stranger sees only public.
	_, err = svc.Get(ctx, stranger.ID, public.ID)
	assert.NoError(t, err)
	_, err = svc.Get(ctx, stranger.ID, friendsOnly.ID)
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
}

func TestDelete_CascadesToChildren(t *testing.T) {
	svc, db := newTestService(t)
	p := testutil.CreateProfile(t, db, "deleter")
	ctx := context.Background()

	n, err := svc.Start(ctx, p.ID, StartParams{})
	require.NoError(t, err)
	_, err = svc.AddDrink(ctx, p.ID, model.DrinkShot, "", "")
	require.NoError(t, err)
	_, err = svc.CheckInVenue(ctx, p.ID, "The Anchor", 51.5, -0.1)
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, p.ID, n.ID))

	var drinks, venues int64
	db.Model(&model.Drink{}).Where("night_id = ?", n.ID).Count(&drinks)
	db.Model(&model.Venue{}).Where("night_id = ?", n.ID).Count(&venues)
	assert.Zero(t, drinks)
	assert.Zero(t, venues)

	// Deleting someone else's night reads as not found.
	other := testutil.CreateProfile(t, db, "otherdel")
	n2, err := svc.Start(ctx, other.ID, StartParams{})
	require.NoError(t, err)
	err = svc.Delete(ctx, p.ID, n2.ID)
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
}

func TestAddDrink_Validation(t *testing.T) {
	svc, db := newTestService(t)
	p := testutil.CreateProfile(t, db, "drinker")
	ctx := context.Background()

	_, err := svc.AddDrink(ctx, p.ID, "mead", "", "")
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))

	_, err = svc.AddDrink(ctx, p.ID, model.DrinkCustom, "", "")
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))

	// No active night.
	_, err = svc.AddDrink(ctx, p.ID, model.DrinkBeer, "", "")
	assert.ErrorIs(t, err, ErrNoActiveNight)

	_, err = svc.Start(ctx, p.ID, StartParams{})
	require.NoError(t, err)
	d, err := svc.AddDrink(ctx, p.ID, model.DrinkCustom, "Negroni Sbagliato", "🍹")
	require.NoError(t, err)
	assert.Equal(t, "Negroni Sbagliato", d.CustomName)
}

func TestCheckInVenue_ClosesPreviousStay(t *testing.T) {
	svc, db := newTestService(t)
	p := testutil.CreateProfile(t, db, "venuer")
	ctx := context.Background()

	_, err := svc.Start(ctx, p.ID, StartParams{})
	require.NoError(t, err)

	first, err := svc.CheckInVenue(ctx, p.ID, "First Bar", 0, 0)
	require.NoError(t, err)
	_, err = svc.CheckInVenue(ctx, p.ID, "Second Bar", 0, 0)
	require.NoError(t, err)

	var reloaded model.Venue
	require.NoError(t, db.First(&reloaded, first.ID).Error)
	assert.NotNil(t, reloaded.DepartedAt, "previous stay should be closed")

	var open int64
	db.Model(&model.Venue{}).Where("departed_at IS NULL").Count(&open)
	assert.Equal(t, int64(1), open, "exactly one open stay")
}

func TestSetMood_ClampsLevel(t *testing.T) {
	svc, db := newTestService(t)
	p := testutil.CreateProfile(t, db, "moody")
	ctx := context.Background()

	_, err := svc.Start(ctx, p.ID, StartParams{})
	require.NoError(t, err)

	low, err := svc.SetMood(ctx, p.ID, -3)
	require.NoError(t, err)
	assert.Equal(t, 1, low.Level)

	high, err := svc.SetMood(ctx, p.ID, 11)
	require.NoError(t, err)
	assert.Equal(t, 5, high.Level)
}

func TestRecordLocation_AccumulatesDistance(t *testing.T) {
	svc, db := newTestService(t)
	p := testutil.CreateProfile(t, db, "walker")
	ctx := context.Background()

	n, err := svc.Start(ctx, p.ID, StartParams{Lat: 51.5074, Lon: -0.1278})
	require.NoError(t, err)

	// Roughly 1.1 km north of the start.
	require.NoError(t, svc.RecordLocation(ctx, p.ID, 51.5174, -0.1278))

	var reloaded model.Night
	require.NoError(t, db.First(&reloaded, n.ID).Error)
	assert.InDelta(t, 1112, reloaded.DistanceM, 30)

	var points int64
	db.Model(&model.LocationPoint{}).Where("night_id = ?", n.ID).Count(&points)
	assert.Equal(t, int64(1), points)

	err = svc.RecordLocation(ctx, p.ID, 91, 0)
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))
}

func TestAutoCloseStale(t *testing.T) {
	svc, db := newTestService(t)
	p := testutil.CreateProfile(t, db, "sleeper")
	ctx := context.Background()

	stale := &model.Night{
		ProfileID: p.ID,
		StartedAt: time.Now().Add(-30 * time.Hour),
		IsActive:  true,
	}
	require.NoError(t, db.Create(stale).Error)

	closed := svc.AutoCloseStale(ctx, 24*time.Hour)
	assert.Equal(t, 1, closed)

	var reloaded model.Night
	require.NoError(t, db.First(&reloaded, stale.ID).Error)
	assert.False(t, reloaded.IsActive)
	require.NotNil(t, reloaded.EndedAt)
}
