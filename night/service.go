package night

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/nightout-app/server/apperr"
	"github.com/nightout-app/server/cache"
	"github.com/nightout-app/server/config"
	"github.com/nightout-app/server/model"
	"github.com/nightout-app/server/realtime"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ErrNoActiveNight is returned when an operation requires an active night
// and the profile has none.
var ErrNoActiveNight = apperr.New(apperr.KindNotFound, "no active night")

// activeKey is the cache guard holding a profile's active night id.
func activeKey(profileID int64) string { return fmt.Sprintf("active_night:%d", profileID) }

// recentKey is the cache list of a profile's recent live updates.
func recentKey(profileID int64) string { return fmt.Sprintf("live_recent:%d", profileID) }

// liveLocationHash holds the latest live location per profile, field = profile id.
const liveLocationHash = "live:locations"

// Service owns the night lifecycle and all child entities of a night.
type Service struct {
	db     *gorm.DB
	cache  cache.Cache
	pub    *realtime.Publisher
	cfg    config.NightConfig
	logger *zap.Logger
}

// NewService creates a night Service.
func NewService(db *gorm.DB, c cache.Cache, pub *realtime.Publisher, cfg config.NightConfig, logger *zap.Logger) *Service {
	if cfg.MaxHours <= 0 {
		cfg.MaxHours = 24
	}
	return &Service{db: db, cache: c, pub: pub, cfg: cfg, logger: logger}
}

// StartParams are the caller-supplied fields for a new night.
type StartParams struct {
	Title          string
	Caption        string
	Visibility     string
	LiveVisibility string
	Lat            float64
	Lon            float64
}

// Start begins a new night for the profile. Exactly one night may be
// active per profile: if one already exists the call fails with a conflict
// carrying the active night's id, and the client decides whether to resume.
func (svc *Service) Start(ctx context.Context, profileID int64, p StartParams) (*model.Night, error) {
	if p.Visibility == "" {
		p.Visibility = model.VisibilityFriends
	}
	if p.LiveVisibility == "" {
		p.LiveVisibility = model.LiveFriends
	}
	if !model.ValidVisibility(p.Visibility) {
		return nil, apperr.Validationf("invalid visibility %q", p.Visibility)
	}
	if !model.ValidLiveVisibility(p.LiveVisibility) {
		return nil, apperr.Validationf("invalid live visibility %q", p.LiveVisibility)
	}

	// Fast-path guard. The DB check below is authoritative; the SetNX just
	// keeps two racing starts from both reaching the insert.
	maxAge := time.Duration(svc.cfg.MaxHours) * time.Hour
	ok, err := svc.cache.SetNX(ctx, activeKey(profileID), "starting", maxAge)
	if err == nil && !ok {
		if existing, aerr := svc.Active(ctx, profileID); aerr == nil {
			return nil, apperr.Conflictf("night %d is already active", existing.ID)
		}
		// Stale guard with no backing row; fall through to the DB check.
		_ = svc.cache.Del(ctx, activeKey(profileID))
	}

	n := &model.Night{
		ProfileID:      profileID,
		Title:          p.Title,
		Caption:        p.Caption,
		StartedAt:      time.Now(),
		IsActive:       true,
		Visibility:     p.Visibility,
		LiveVisibility: p.LiveVisibility,
		Lat:            p.Lat,
		Lon:            p.Lon,
	}
	err = svc.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing model.Night
		if err := tx.Where("profile_id = ? AND is_active = ?", profileID, true).
			First(&existing).Error; err == nil {
			return apperr.Conflictf("night %d is already active", existing.ID)
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		return tx.Create(n).Error
	})
	if err != nil {
		if !apperr.IsKind(err, apperr.KindConflict) {
			_ = svc.cache.Del(ctx, activeKey(profileID))
		}
		return nil, err
	}

	_ = svc.cache.Set(ctx, activeKey(profileID), strconv.FormatInt(n.ID, 10), maxAge)
	svc.logger.Info("night started",
		zap.Int64("profile_id", profileID), zap.Int64("night_id", n.ID))
	return n, nil
}

// Active returns the profile's active night, or ErrNoActiveNight.
func (svc *Service) Active(ctx context.Context, profileID int64) (*model.Night, error) {
	var n model.Night
	err := svc.db.WithContext(ctx).
		Where("profile_id = ? AND is_active = ?", profileID, true).
		First(&n).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNoActiveNight
	}
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// End closes the profile's active night: sets the end time, derives the
// duration, folds the night into the profile's aggregate counters and
// streak, and releases the active guard.
func (svc *Service) End(ctx context.Context, profileID int64) (*model.Night, error) {
	n, err := svc.Active(ctx, profileID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	n.EndedAt = &now
	n.DurationS = int64(now.Sub(n.StartedAt).Seconds())
	n.IsActive = false

	err = svc.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(n).Error; err != nil {
			return err
		}

		var drinks, photos int64
		tx.Model(&model.Drink{}).Where("night_id = ?", n.ID).Count(&drinks)
		tx.Model(&model.Media{}).Where("night_id = ? AND type = ?", n.ID, model.MediaPhoto).Count(&photos)

		var prof model.Profile
		if err := tx.First(&prof, profileID).Error; err != nil {
			return err
		}
		streak := nextStreak(prof.LastNightAt, prof.CurrentStreak, now)
		longest := prof.LongestStreak
		if streak > longest {
			longest = streak
		}
		return tx.Model(&model.Profile{}).Where("id = ?", profileID).
			Updates(map[string]interface{}{
				"total_nights":   gorm.Expr("total_nights + 1"),
				"total_seconds":  gorm.Expr("total_seconds + ?", n.DurationS),
				"total_meters":   gorm.Expr("total_meters + ?", n.DistanceM),
				"total_drinks":   gorm.Expr("total_drinks + ?", drinks),
				"total_photos":   gorm.Expr("total_photos + ?", photos),
				"current_streak": streak,
				"longest_streak": longest,
				"last_night_at":  now,
			}).Error
	})
	if err != nil {
		return nil, err
	}

	_ = svc.cache.Del(ctx, activeKey(profileID))
	_ = svc.cache.HDel(ctx, liveLocationHash, strconv.FormatInt(profileID, 10))
	svc.logger.Info("night ended",
		zap.Int64("profile_id", profileID),
		zap.Int64("night_id", n.ID),
		zap.Int64("duration_s", n.DurationS))
	return n, nil
}

// nextStreak continues the calendar-day streak: an ended night on the same
// day keeps it, the next day extends it, any gap resets it to 1.
func nextStreak(last *time.Time, current int, now time.Time) int {
	if last == nil || current == 0 {
		return 1
	}
	lastDay := last.Truncate(24 * time.Hour)
	nowDay := now.Truncate(24 * time.Hour)
	switch int(nowDay.Sub(lastDay).Hours() / 24) {
	case 0:
		return current
	case 1:
		return current + 1
	default:
		return 1
	}
}

// Get returns a night if the viewer may see it: owners always, friends for
// friends-visibility, everyone for public. Hidden nights are owner-only.
func (svc *Service) Get(ctx context.Context, viewerID, nightID int64) (*model.Night, error) {
	var n model.Night
	err := svc.db.WithContext(ctx).First(&n, nightID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFoundf("night %d not found", nightID)
	}
	if err != nil {
		return nil, err
	}
	if n.ProfileID == viewerID {
		return &n, nil
	}
	if n.Hidden || n.Visibility == model.VisibilityPrivate {
		return nil, apperr.NotFoundf("night %d not found", nightID)
	}
	if n.Visibility == model.VisibilityFriends {
		ok, err := areFriends(svc.db.WithContext(ctx), viewerID, n.ProfileID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, apperr.NotFoundf("night %d not found", nightID)
		}
	}
	return &n, nil
}

// ListMine returns the profile's nights, newest first.
func (svc *Service) ListMine(ctx context.Context, profileID int64, limit, offset int) ([]model.Night, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	var nights []model.Night
	err := svc.db.WithContext(ctx).
		Where("profile_id = ?", profileID).
		Order("started_at DESC").
		Limit(limit).Offset(offset).
		Find(&nights).Error
	return nights, err
}

// Delete removes an owned night and cascades to every child entity.
func (svc *Service) Delete(ctx context.Context, profileID, nightID int64) error {
	var n model.Night
	err := svc.db.WithContext(ctx).First(&n, nightID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFoundf("night %d not found", nightID)
	}
	if err != nil {
		return err
	}
	if n.ProfileID != profileID {
		return apperr.NotFoundf("night %d not found", nightID)
	}

	err = svc.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, child := range model.NightChildren {
			if err := tx.Where("night_id = ?", nightID).Delete(child).Error; err != nil {
				return err
			}
		}
		return tx.Delete(&model.Night{}, nightID).Error
	})
	if err != nil {
		return err
	}
	if n.IsActive {
		_ = svc.cache.Del(ctx, activeKey(profileID))
	}
	return nil
}

// ---- child events of the active night ----

// AddDrink logs a drink on the active night. Drinks are immutable.
func (svc *Service) AddDrink(ctx context.Context, profileID int64, dtype, customName, emoji string) (*model.Drink, error) {
	if !model.ValidDrinkType(dtype) {
		return nil, apperr.Validationf("invalid drink type %q", dtype)
	}
	if dtype == model.DrinkCustom && customName == "" {
		return nil, apperr.Validationf("custom drink requires a name")
	}
	n, err := svc.Active(ctx, profileID)
	if err != nil {
		return nil, err
	}
	d := &model.Drink{
		NightID:    n.ID,
		Type:       dtype,
		CustomName: customName,
		Emoji:      emoji,
		LoggedAt:   time.Now(),
	}
	if err := svc.db.WithContext(ctx).Create(d).Error; err != nil {
		return nil, err
	}
	svc.emitLive(ctx, n, model.LiveKindDrink, d)
	return d, nil
}

// CheckInVenue records arrival at a venue, closing the previous open
// check-in so at most one venue per night has a nil departure time.
func (svc *Service) CheckInVenue(ctx context.Context, profileID int64, name string, lat, lon float64) (*model.Venue, error) {
	if name == "" {
		return nil, apperr.Validationf("venue name required")
	}
	n, err := svc.Active(ctx, profileID)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	v := &model.Venue{NightID: n.ID, Name: name, Lat: lat, Lon: lon, ArrivedAt: now}
	err = svc.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.Venue{}).
			Where("night_id = ? AND departed_at IS NULL", n.ID).
			Update("departed_at", now).Error; err != nil {
			return err
		}
		return tx.Create(v).Error
	})
	if err != nil {
		return nil, err
	}
	svc.emitLive(ctx, n, model.LiveKindVenue, v)
	return v, nil
}

// SetMood logs a mood entry, clamping the level to [1,5].
func (svc *Service) SetMood(ctx context.Context, profileID int64, level int) (*model.MoodEntry, error) {
	if level < 1 {
		level = 1
	}
	if level > 5 {
		level = 5
	}
	n, err := svc.Active(ctx, profileID)
	if err != nil {
		return nil, err
	}
	m := &model.MoodEntry{NightID: n.ID, Level: level, LoggedAt: time.Now()}
	if err := svc.db.WithContext(ctx).Create(m).Error; err != nil {
		return nil, err
	}
	svc.emitLive(ctx, n, model.LiveKindMood, m)
	return m, nil
}

// AddSong logs a track heard during the active night.
func (svc *Service) AddSong(ctx context.Context, profileID int64, title, artist string) (*model.Song, error) {
	if title == "" {
		return nil, apperr.Validationf("song title required")
	}
	n, err := svc.Active(ctx, profileID)
	if err != nil {
		return nil, err
	}
	s := &model.Song{NightID: n.ID, Title: title, Artist: artist, PlayedAt: time.Now()}
	if err := svc.db.WithContext(ctx).Create(s).Error; err != nil {
		return nil, err
	}
	svc.emitLive(ctx, n, model.LiveKindSong, s)
	return s, nil
}

// RecordLocation appends a GPS sample to the active night's route,
// accumulates the travelled distance and refreshes the live location map.
func (svc *Service) RecordLocation(ctx context.Context, profileID int64, lat, lon float64) error {
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return apperr.Validationf("coordinate out of range")
	}
	n, err := svc.Active(ctx, profileID)
	if err != nil {
		return err
	}

	p := &model.LocationPoint{NightID: n.ID, Lat: lat, Lon: lon, RecordedAt: time.Now()}
	delta := 0.0
	if n.Lat != 0 || n.Lon != 0 {
		delta = haversineM(n.Lat, n.Lon, lat, lon)
	}
	err = svc.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(p).Error; err != nil {
			return err
		}
		return tx.Model(&model.Night{}).Where("id = ?", n.ID).
			Updates(map[string]interface{}{
				"lat":        lat,
				"lon":        lon,
				"distance_m": gorm.Expr("distance_m + ?", delta),
			}).Error
	})
	if err != nil {
		return err
	}

	if n.LiveVisibility != model.LiveNobody {
		loc, _ := json.Marshal(map[string]interface{}{
			"night_id": n.ID, "lat": lat, "lon": lon, "at": p.RecordedAt.Unix(),
		})
		_ = svc.cache.HSet(ctx, liveLocationHash, strconv.FormatInt(profileID, 10), string(loc))
		svc.pub.LocationChanged(ctx, profileID, n.ID)
	}
	return nil
}

// Route returns the night's location points in insertion order.
func (svc *Service) Route(ctx context.Context, viewerID, nightID int64) ([]model.LocationPoint, error) {
	if _, err := svc.Get(ctx, viewerID, nightID); err != nil {
		return nil, err
	}
	var points []model.LocationPoint
	err := svc.db.WithContext(ctx).
		Where("night_id = ?", nightID).
		Order("recorded_at ASC").
		Find(&points).Error
	return points, err
}

// Detail is a night with all of its child entities.
type Detail struct {
	Night  model.Night       `json:"night"`
	Drinks []model.Drink     `json:"drinks"`
	Venues []model.Venue     `json:"venues"`
	Media  []model.Media     `json:"media"`
	Moods  []model.MoodEntry `json:"moods"`
	Songs  []model.Song      `json:"songs"`
}

// GetDetail returns a night and its children, subject to visibility.
func (svc *Service) GetDetail(ctx context.Context, viewerID, nightID int64) (*Detail, error) {
	n, err := svc.Get(ctx, viewerID, nightID)
	if err != nil {
		return nil, err
	}
	d := &Detail{Night: *n}
	tx := svc.db.WithContext(ctx)
	if err := tx.Where("night_id = ?", nightID).Order("logged_at ASC").Find(&d.Drinks).Error; err != nil {
		return nil, err
	}
	if err := tx.Where("night_id = ?", nightID).Order("arrived_at ASC").Find(&d.Venues).Error; err != nil {
		return nil, err
	}
	if err := tx.Where("night_id = ?", nightID).Order("captured_at ASC").Find(&d.Media).Error; err != nil {
		return nil, err
	}
	if err := tx.Where("night_id = ?", nightID).Order("logged_at ASC").Find(&d.Moods).Error; err != nil {
		return nil, err
	}
	if err := tx.Where("night_id = ?", nightID).Order("played_at ASC").Find(&d.Songs).Error; err != nil {
		return nil, err
	}
	return d, nil
}

// AutoCloseStale ends nights that have been active longer than maxAge.
// Run from the scheduler; profile counters are folded in the same way as a
// user-initiated end.
func (svc *Service) AutoCloseStale(ctx context.Context, maxAge time.Duration) int {
	cutoff := time.Now().Add(-maxAge)
	var stale []model.Night
	if err := svc.db.WithContext(ctx).
		Where("is_active = ? AND started_at < ?", true, cutoff).
		Find(&stale).Error; err != nil {
		svc.logger.Error("stale night scan failed", zap.Error(err))
		return 0
	}
	closed := 0
	for i := range stale {
		if _, err := svc.End(ctx, stale[i].ProfileID); err != nil {
			svc.logger.Warn("auto-close failed",
				zap.Int64("night_id", stale[i].ID), zap.Error(err))
			continue
		}
		closed++
	}
	if closed > 0 {
		svc.logger.Info("auto-closed stale nights", zap.Int("count", closed))
	}
	return closed
}

// LiveLocations returns the latest live location JSON per profile id,
// filtered to the given friend ids.
func (svc *Service) LiveLocations(ctx context.Context, friendIDs []int64) (map[int64]string, error) {
	all, err := svc.cache.HGetAll(ctx, liveLocationHash)
	if err != nil {
		return nil, err
	}
	out := make(map[int64]string)
	for _, id := range friendIDs {
		if v, ok := all[strconv.FormatInt(id, 10)]; ok {
			out[id] = v
		}
	}
	return out, nil
}

// emitLive records a LiveUpdate and notifies subscribers, honoring the
// night's live visibility. Failures are logged, never propagated: live
// updates are decoration on top of the primary write.
func (svc *Service) emitLive(ctx context.Context, n *model.Night, kind string, payload interface{}) {
	if n.LiveVisibility == model.LiveNobody {
		return
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return
	}
	lu := &model.LiveUpdate{
		NightID:   n.ID,
		ProfileID: n.ProfileID,
		Kind:      kind,
		Payload:   datatypes.JSON(raw),
	}
	if err := svc.db.WithContext(ctx).Create(lu).Error; err != nil {
		svc.logger.Warn("live update write failed", zap.Error(err))
		return
	}
	_ = svc.cache.LPush(ctx, recentKey(n.ProfileID), string(raw))
	_ = svc.cache.LTrim(ctx, recentKey(n.ProfileID), 0, 49)
	svc.pub.LiveUpdated(ctx, n.ProfileID, n.ID)
}

// areFriends reports whether an accepted friendship exists between a and b.
func areFriends(tx *gorm.DB, a, b int64) (bool, error) {
	var count int64
	err := tx.Model(&model.Friendship{}).
		Where("status = ? AND ((requester_id = ? AND addressee_id = ?) OR (requester_id = ? AND addressee_id = ?))",
			model.FriendshipAccepted, a, b, b, a).
		Count(&count).Error
	return count > 0, err
}
