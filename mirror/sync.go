package mirror

import (
	"context"
	"time"

	"github.com/nightout-app/server/model"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Remote is the schema source a mirror syncs from.
type Remote interface {
	Profile(ctx context.Context, profileID int64) (*model.Profile, error)
	Nights(ctx context.Context, profileID int64) ([]model.Night, error)
	NightChildren(ctx context.Context, nightIDs []int64) (*ChildRows, error)
	Friendships(ctx context.Context, profileID int64) ([]model.Friendship, error)
	FriendProfiles(ctx context.Context, profileID int64) ([]model.Profile, error)
	FriendNights(ctx context.Context, profileID int64) ([]model.Night, error)
}

// ChildRows bundles every child table of a set of nights.
type ChildRows struct {
	Drinks    []model.Drink         `json:"drinks"`
	Venues    []model.Venue         `json:"venues"`
	Media     []model.Media         `json:"media"`
	Moods     []model.MoodEntry     `json:"moods"`
	Comments  []model.Comment       `json:"comments"`
	Reactions []model.Reaction      `json:"reactions"`
	Locations []model.LocationPoint `json:"locations"`
	Songs     []model.Song          `json:"songs"`
}

// SyncReport records the outcome of a full sync. Failed tables are listed
// by name; successfully fetched tables are applied even when others fail.
type SyncReport struct {
	Profiles    int               `json:"profiles"`
	Nights      int               `json:"nights"`
	Children    int               `json:"children"`
	Friendships int               `json:"friendships"`
	Failed      map[string]string `json:"failed,omitempty"`
	Took        time.Duration     `json:"took"`
}

func (r *SyncReport) fail(table string, err error) {
	if r.Failed == nil {
		r.Failed = map[string]string{}
	}
	r.Failed[table] = err.Error()
}

// FullSync pulls the profile's own data, their friendships, friends'
// profiles and friends' visible nights into the mirror. Each table fetch
// fails independently; whatever arrived is upserted and the failures are
// reported, so one bad table never loses the rest of the snapshot.
func (s *Store) FullSync(ctx context.Context, remote Remote, profileID int64) (*SyncReport, error) {
	start := time.Now()
	report := &SyncReport{}

	if p, err := remote.Profile(ctx, profileID); err != nil {
		report.fail("profile", err)
	} else if err := s.Upsert(ctx, p); err != nil {
		report.fail("profile", err)
	} else {
		report.Profiles++
	}

	var nightIDs []int64
	if nights, err := remote.Nights(ctx, profileID); err != nil {
		report.fail("nights", err)
	} else if len(nights) > 0 {
		if err := s.Upsert(ctx, &nights); err != nil {
			report.fail("nights", err)
		} else {
			report.Nights += len(nights)
			for _, n := range nights {
				nightIDs = append(nightIDs, n.ID)
			}
		}
	}

	if friends, err := remote.FriendProfiles(ctx, profileID); err != nil {
		report.fail("friend_profiles", err)
	} else if len(friends) > 0 {
		if err := s.Upsert(ctx, &friends); err != nil {
			report.fail("friend_profiles", err)
		} else {
			report.Profiles += len(friends)
		}
	}

	if nights, err := remote.FriendNights(ctx, profileID); err != nil {
		report.fail("friend_nights", err)
	} else if len(nights) > 0 {
		if err := s.Upsert(ctx, &nights); err != nil {
			report.fail("friend_nights", err)
		} else {
			report.Nights += len(nights)
			for _, n := range nights {
				nightIDs = append(nightIDs, n.ID)
			}
		}
	}

	if fs, err := remote.Friendships(ctx, profileID); err != nil {
		report.fail("friendships", err)
	} else if len(fs) > 0 {
		if err := s.Upsert(ctx, &fs); err != nil {
			report.fail("friendships", err)
		} else {
			report.Friendships = len(fs)
		}
	}

	if len(nightIDs) > 0 {
		if children, err := remote.NightChildren(ctx, nightIDs); err != nil {
			report.fail("night_children", err)
		} else {
			report.Children = s.applyChildren(ctx, children, report)
		}
	}

	report.Took = time.Since(start)
	if len(report.Failed) > 0 {
		s.logger.Warn("mirror sync completed with failures",
			zap.Int64("profile_id", profileID),
			zap.Any("failed", report.Failed))
	} else {
		s.logger.Info("mirror sync completed",
			zap.Int64("profile_id", profileID),
			zap.Int("nights", report.Nights),
			zap.Duration("took", report.Took))
	}
	return report, nil
}

func (s *Store) applyChildren(ctx context.Context, c *ChildRows, report *SyncReport) int {
	applied := 0
	upsert := func(table string, count int, values interface{}) {
		if count == 0 {
			return
		}
		if err := s.Upsert(ctx, values); err != nil {
			report.fail(table, err)
			return
		}
		applied += count
	}
	upsert("drinks", len(c.Drinks), &c.Drinks)
	upsert("venues", len(c.Venues), &c.Venues)
	upsert("media", len(c.Media), &c.Media)
	upsert("moods", len(c.Moods), &c.Moods)
	upsert("comments", len(c.Comments), &c.Comments)
	upsert("reactions", len(c.Reactions), &c.Reactions)
	upsert("locations", len(c.Locations), &c.Locations)
	upsert("songs", len(c.Songs), &c.Songs)
	return applied
}

// SchemaRemote implements Remote over the server database. It also backs
// the full-sync API endpoint.
type SchemaRemote struct {
	db *gorm.DB
}

// NewSchemaRemote creates a SchemaRemote.
func NewSchemaRemote(db *gorm.DB) *SchemaRemote {
	return &SchemaRemote{db: db}
}

func (r *SchemaRemote) Profile(ctx context.Context, profileID int64) (*model.Profile, error) {
	var p model.Profile
	if err := r.db.WithContext(ctx).First(&p, profileID).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *SchemaRemote) Nights(ctx context.Context, profileID int64) ([]model.Night, error) {
	var nights []model.Night
	err := r.db.WithContext(ctx).
		Where("profile_id = ?", profileID).
		Find(&nights).Error
	return nights, err
}

func (r *SchemaRemote) NightChildren(ctx context.Context, nightIDs []int64) (*ChildRows, error) {
	c := &ChildRows{}
	byNight := func(out interface{}) error {
		return r.db.WithContext(ctx).Where("night_id IN ?", nightIDs).Find(out).Error
	}
	if err := byNight(&c.Drinks); err != nil {
		return nil, err
	}
	if err := byNight(&c.Venues); err != nil {
		return nil, err
	}
	if err := byNight(&c.Media); err != nil {
		return nil, err
	}
	if err := byNight(&c.Moods); err != nil {
		return nil, err
	}
	if err := byNight(&c.Comments); err != nil {
		return nil, err
	}
	if err := byNight(&c.Reactions); err != nil {
		return nil, err
	}
	if err := byNight(&c.Locations); err != nil {
		return nil, err
	}
	if err := byNight(&c.Songs); err != nil {
		return nil, err
	}
	return c, nil
}

func (r *SchemaRemote) Friendships(ctx context.Context, profileID int64) ([]model.Friendship, error) {
	var rows []model.Friendship
	err := r.db.WithContext(ctx).
		Where("requester_id = ? OR addressee_id = ?", profileID, profileID).
		Find(&rows).Error
	return rows, err
}

func (r *SchemaRemote) FriendProfiles(ctx context.Context, profileID int64) ([]model.Profile, error) {
	ids, err := r.friendIDs(ctx, profileID)
	if err != nil || len(ids) == 0 {
		return nil, err
	}
	var profiles []model.Profile
	err = r.db.WithContext(ctx).Where("id IN ?", ids).Find(&profiles).Error
	return profiles, err
}

func (r *SchemaRemote) FriendNights(ctx context.Context, profileID int64) ([]model.Night, error) {
	ids, err := r.friendIDs(ctx, profileID)
	if err != nil || len(ids) == 0 {
		return nil, err
	}
	var nights []model.Night
	err = r.db.WithContext(ctx).
		Where("profile_id IN ? AND hidden = ? AND visibility IN ?",
			ids, false, []string{model.VisibilityPublic, model.VisibilityFriends}).
		Find(&nights).Error
	return nights, err
}

func (r *SchemaRemote) friendIDs(ctx context.Context, profileID int64) ([]int64, error) {
	var rows []model.Friendship
	err := r.db.WithContext(ctx).
		Where("status = ? AND (requester_id = ? OR addressee_id = ?)",
			model.FriendshipAccepted, profileID, profileID).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(rows))
	for _, f := range rows {
		if f.RequesterID == profileID {
			ids = append(ids, f.AddresseeID)
		} else {
			ids = append(ids, f.RequesterID)
		}
	}
	return ids, nil
}
