package feed

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/nightout-app/server/apperr"
	"github.com/nightout-app/server/cache"
	"github.com/nightout-app/server/model"
	"github.com/nightout-app/server/realtime"
	"github.com/nightout-app/server/social"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const trendingZKey = "trending:nights"
const trendingTop = 100

// likersKey is the cache set of profile ids that liked a night.
func likersKey(nightID int64) string {
	return "night_likers:" + strconv.FormatInt(nightID, 10)
}

// Service serves the social feed: visible nights, comments and reactions.
// The DB is authoritative for like counts; the cache set and trending
// board are provisional accelerators corrected on refresh.
type Service struct {
	db     *gorm.DB
	cache  cache.Cache
	pub    *realtime.Publisher
	social *social.Service
	logger *zap.Logger
}

// NewService creates a feed Service.
func NewService(db *gorm.DB, c cache.Cache, pub *realtime.Publisher, soc *social.Service, logger *zap.Logger) *Service {
	return &Service{db: db, cache: c, pub: pub, social: soc, logger: logger}
}

// Feed returns nights visible to the viewer, newest first: their own, all
// public nights, and friends' friends-visibility nights. Hidden nights are
// excluded for everyone but their owner.
func (svc *Service) Feed(ctx context.Context, viewerID int64, limit, offset int) ([]model.Night, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	friendIDs, err := svc.social.FriendIDs(ctx, viewerID)
	if err != nil {
		return nil, err
	}

	tx := svc.db.WithContext(ctx).
		Where("hidden = ? OR profile_id = ?", false, viewerID)
	if len(friendIDs) > 0 {
		tx = tx.Where("profile_id = ? OR visibility = ? OR (visibility = ? AND profile_id IN ?)",
			viewerID, model.VisibilityPublic, model.VisibilityFriends, friendIDs)
	} else {
		tx = tx.Where("profile_id = ? OR visibility = ?", viewerID, model.VisibilityPublic)
	}

	var nights []model.Night
	err = tx.Order("started_at DESC").Limit(limit).Offset(offset).Find(&nights).Error
	return nights, err
}

// Like records a like. Calling it again for the same night is a no-op, so
// stale clients are safe; the like count is bumped with an atomic SQL
// increment so concurrent likers never lose an update.
func (svc *Service) Like(ctx context.Context, profileID, nightID int64) (int, error) {
	if err := svc.visibleNight(ctx, nightID); err != nil {
		return 0, err
	}

	r := &model.Reaction{NightID: nightID, ProfileID: profileID}
	err := svc.db.WithContext(ctx).Create(r).Error
	switch {
	case err == nil:
		if err := svc.db.WithContext(ctx).Model(&model.Night{}).
			Where("id = ?", nightID).
			Update("like_count", gorm.Expr("like_count + 1")).Error; err != nil {
			return 0, err
		}
		member := strconv.FormatInt(nightID, 10)
		_ = svc.cache.SAdd(ctx, likersKey(nightID), strconv.FormatInt(profileID, 10))
		_, _ = svc.cache.ZIncrBy(ctx, trendingZKey, 1, member)
		svc.pub.ReactionChanged(ctx, nightID)
	case isUniqueViolation(err):
		// Already liked; idempotent.
	default:
		return 0, err
	}
	return svc.LikeCount(ctx, nightID)
}

// Unlike removes a like. Unliking a night that was never liked is a no-op.
func (svc *Service) Unlike(ctx context.Context, profileID, nightID int64) (int, error) {
	res := svc.db.WithContext(ctx).
		Where("night_id = ? AND profile_id = ?", nightID, profileID).
		Delete(&model.Reaction{})
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected > 0 {
		if err := svc.db.WithContext(ctx).Model(&model.Night{}).
			Where("id = ? AND like_count > 0", nightID).
			Update("like_count", gorm.Expr("like_count - 1")).Error; err != nil {
			return 0, err
		}
		member := strconv.FormatInt(nightID, 10)
		_ = svc.cache.SRem(ctx, likersKey(nightID), strconv.FormatInt(profileID, 10))
		_, _ = svc.cache.ZIncrBy(ctx, trendingZKey, -1, member)
		svc.pub.ReactionChanged(ctx, nightID)
	}
	return svc.LikeCount(ctx, nightID)
}

// LikeCount returns the authoritative like count from the DB.
func (svc *Service) LikeCount(ctx context.Context, nightID int64) (int, error) {
	var n model.Night
	if err := svc.db.WithContext(ctx).Select("like_count").First(&n, nightID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, apperr.NotFoundf("night %d not found", nightID)
		}
		return 0, err
	}
	return n.LikeCount, nil
}

// HasLiked reports whether the profile liked the night, preferring the
// cache set and falling back to the DB.
func (svc *Service) HasLiked(ctx context.Context, profileID, nightID int64) (bool, error) {
	if ok, err := svc.cache.SIsMember(ctx, likersKey(nightID), strconv.FormatInt(profileID, 10)); err == nil && ok {
		return true, nil
	}
	var count int64
	err := svc.db.WithContext(ctx).Model(&model.Reaction{}).
		Where("night_id = ? AND profile_id = ?", nightID, profileID).
		Count(&count).Error
	return count > 0, err
}

// AddComment posts a comment on a visible night.
func (svc *Service) AddComment(ctx context.Context, authorID, nightID int64, text string) (*model.Comment, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperr.Validationf("comment text required")
	}
	if len(text) > 1000 {
		return nil, apperr.Validationf("comment too long")
	}
	if err := svc.visibleNight(ctx, nightID); err != nil {
		return nil, err
	}

	var n model.Night
	if err := svc.db.WithContext(ctx).Select("profile_id").First(&n, nightID).Error; err != nil {
		return nil, err
	}
	if blocked, err := svc.social.IsBlocked(ctx, authorID, n.ProfileID); err != nil {
		return nil, err
	} else if blocked {
		return nil, apperr.NotFoundf("night %d not found", nightID)
	}

	c := &model.Comment{NightID: nightID, AuthorID: authorID, Text: text}
	if err := svc.db.WithContext(ctx).Create(c).Error; err != nil {
		return nil, err
	}
	svc.pub.CommentChanged(ctx, nightID)
	return c, nil
}

// EditComment updates a comment's text. Author only; marks the edit time.
func (svc *Service) EditComment(ctx context.Context, authorID, commentID int64, text string) (*model.Comment, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperr.Validationf("comment text required")
	}
	var c model.Comment
	err := svc.db.WithContext(ctx).
		Where("id = ? AND author_id = ?", commentID, authorID).
		First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFoundf("comment %d not found", commentID)
	}
	if err != nil {
		return nil, err
	}
	now := svc.db.NowFunc()
	c.Text = text
	c.EditedAt = &now
	if err := svc.db.WithContext(ctx).Save(&c).Error; err != nil {
		return nil, err
	}
	svc.pub.CommentChanged(ctx, c.NightID)
	return &c, nil
}

// DeleteComment removes a comment. The author or the night's owner may
// delete it.
func (svc *Service) DeleteComment(ctx context.Context, profileID, commentID int64) error {
	var c model.Comment
	err := svc.db.WithContext(ctx).First(&c, commentID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFoundf("comment %d not found", commentID)
	}
	if err != nil {
		return err
	}
	if c.AuthorID != profileID {
		var n model.Night
		if err := svc.db.WithContext(ctx).Select("profile_id").First(&n, c.NightID).Error; err != nil {
			return err
		}
		if n.ProfileID != profileID {
			return apperr.NotFoundf("comment %d not found", commentID)
		}
	}
	if err := svc.db.WithContext(ctx).Delete(&model.Comment{}, commentID).Error; err != nil {
		return err
	}
	svc.pub.CommentChanged(ctx, c.NightID)
	return nil
}

// ListComments returns a night's comments, oldest first.
func (svc *Service) ListComments(ctx context.Context, nightID int64, limit, offset int) ([]model.Comment, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var comments []model.Comment
	err := svc.db.WithContext(ctx).
		Where("night_id = ?", nightID).
		Order("created_at ASC").
		Limit(limit).Offset(offset).
		Find(&comments).Error
	return comments, err
}

// Trending returns the top liked nights from the trending board, falling
// back to the DB when the board is cold.
func (svc *Service) Trending(ctx context.Context, limit int) ([]model.Night, error) {
	if limit <= 0 || limit > trendingTop {
		limit = 20
	}
	members, err := svc.cache.ZRevRange(ctx, trendingZKey, 0, int64(limit-1))
	if err == nil && len(members) > 0 {
		ids := make([]int64, 0, len(members))
		for _, m := range members {
			if id, err := strconv.ParseInt(m, 10, 64); err == nil {
				ids = append(ids, id)
			}
		}
		var nights []model.Night
		if err := svc.db.WithContext(ctx).
			Where("id IN ? AND hidden = ? AND visibility = ?", ids, false, model.VisibilityPublic).
			Find(&nights).Error; err == nil {
			byID := make(map[int64]model.Night, len(nights))
			for _, n := range nights {
				byID[n.ID] = n
			}
			ordered := make([]model.Night, 0, len(ids))
			for _, id := range ids {
				if n, ok := byID[id]; ok {
					ordered = append(ordered, n)
				}
			}
			if len(ordered) > 0 {
				return ordered, nil
			}
		}
	}

	var nights []model.Night
	err = svc.db.WithContext(ctx).
		Where("hidden = ? AND visibility = ?", false, model.VisibilityPublic).
		Order("like_count DESC").
		Limit(limit).
		Find(&nights).Error
	return nights, err
}

// RefreshTrending rebuilds the trending board from DB truth. Run from the
// scheduler; corrects any drift the provisional increments accumulated.
func (svc *Service) RefreshTrending(ctx context.Context) error {
	var nights []model.Night
	if err := svc.db.WithContext(ctx).
		Where("hidden = ? AND visibility = ?", false, model.VisibilityPublic).
		Order("like_count DESC").
		Limit(trendingTop).
		Find(&nights).Error; err != nil {
		return err
	}
	for _, n := range nights {
		if err := svc.cache.ZAdd(ctx, trendingZKey, float64(n.LikeCount), strconv.FormatInt(n.ID, 10)); err != nil {
			return err
		}
	}
	return nil
}

func (svc *Service) visibleNight(ctx context.Context, nightID int64) error {
	var n model.Night
	err := svc.db.WithContext(ctx).Select("id, hidden").First(&n, nightID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFoundf("night %d not found", nightID)
	}
	if err != nil {
		return err
	}
	if n.Hidden {
		return apperr.NotFoundf("night %d not found", nightID)
	}
	return nil
}

// isUniqueViolation detects duplicate-key errors from common database drivers.
func isUniqueViolation(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique") ||
		strings.Contains(msg, "duplicate") ||
		strings.Contains(msg, "already exists")
}
