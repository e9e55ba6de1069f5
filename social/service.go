package social

import (
	"context"
	"errors"
	"time"

	"github.com/nightout-app/server/apperr"
	"github.com/nightout-app/server/model"
	"github.com/nightout-app/server/session"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Service owns the friendship state machine: a row is created pending by
// the requester and only ever moves pending→accepted or pending→rejected,
// by the addressee. At most one non-rejected row exists per unordered pair.
type Service struct {
	db     *gorm.DB
	sm     *session.Manager
	logger *zap.Logger
}

// NewService creates a social Service.
func NewService(db *gorm.DB, sm *session.Manager, logger *zap.Logger) *Service {
	return &Service{db: db, sm: sm, logger: logger}
}

// pairScope filters friendships between a and b in either direction.
func pairScope(tx *gorm.DB, a, b int64) *gorm.DB {
	return tx.Where("(requester_id = ? AND addressee_id = ?) OR (requester_id = ? AND addressee_id = ?)",
		a, b, b, a)
}

// SendRequest creates a pending friendship from requester to addressee.
// Any existing non-rejected relationship in either direction is a conflict;
// a previously rejected request may be retried.
func (svc *Service) SendRequest(ctx context.Context, requesterID, addresseeID int64) (*model.Friendship, error) {
	if requesterID == addresseeID {
		return nil, apperr.Validationf("cannot friend yourself")
	}
	var target model.Profile
	if err := svc.db.WithContext(ctx).First(&target, addresseeID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFoundf("profile %d not found", addresseeID)
		}
		return nil, err
	}

	f := &model.Friendship{
		RequesterID: requesterID,
		AddresseeID: addresseeID,
		Status:      model.FriendshipPending,
	}
	err := svc.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing model.Friendship
		err := pairScope(tx.Model(&model.Friendship{}), requesterID, addresseeID).
			Where("status <> ?", model.FriendshipRejected).
			First(&existing).Error
		if err == nil {
			return apperr.Conflictf("relationship already %s", existing.Status)
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		return tx.Create(f).Error
	})
	if err != nil {
		return nil, err
	}
	svc.logger.Info("friend request sent",
		zap.Int64("requester_id", requesterID), zap.Int64("addressee_id", addresseeID))
	return f, nil
}

// Accept moves a pending request to accepted. Only the addressee may accept.
func (svc *Service) Accept(ctx context.Context, addresseeID, friendshipID int64) (*model.Friendship, error) {
	return svc.respond(ctx, addresseeID, friendshipID, model.FriendshipAccepted)
}

// Reject moves a pending request to rejected. Only the addressee may reject.
func (svc *Service) Reject(ctx context.Context, addresseeID, friendshipID int64) (*model.Friendship, error) {
	return svc.respond(ctx, addresseeID, friendshipID, model.FriendshipRejected)
}

func (svc *Service) respond(ctx context.Context, addresseeID, friendshipID int64, status string) (*model.Friendship, error) {
	var f model.Friendship
	err := svc.db.WithContext(ctx).
		Where("id = ? AND addressee_id = ? AND status = ?",
			friendshipID, addresseeID, model.FriendshipPending).
		First(&f).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFoundf("request %d not found", friendshipID)
	}
	if err != nil {
		return nil, err
	}
	now := time.Now()
	f.Status = status
	f.RespondedAt = &now
	if err := svc.db.WithContext(ctx).Save(&f).Error; err != nil {
		return nil, err
	}
	return &f, nil
}

// Unfriend deletes the accepted relationship between the two profiles.
// Either party may remove it.
func (svc *Service) Unfriend(ctx context.Context, profileID, otherID int64) error {
	res := pairScope(svc.db.WithContext(ctx), profileID, otherID).
		Where("status = ?", model.FriendshipAccepted).
		Delete(&model.Friendship{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperr.NotFoundf("no friendship with profile %d", otherID)
	}
	return nil
}

// Block replaces any relationship with a blocked row owned by the blocker.
func (svc *Service) Block(ctx context.Context, blockerID, targetID int64) error {
	if blockerID == targetID {
		return apperr.Validationf("cannot block yourself")
	}
	return svc.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := pairScope(tx, blockerID, targetID).
			Where("NOT (status = ? AND requester_id = ?)", model.FriendshipBlocked, targetID).
			Delete(&model.Friendship{}).Error; err != nil {
			return err
		}
		var existing model.Friendship
		err := tx.Where("requester_id = ? AND addressee_id = ? AND status = ?",
			blockerID, targetID, model.FriendshipBlocked).First(&existing).Error
		if err == nil {
			return nil // already blocked
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		return tx.Create(&model.Friendship{
			RequesterID: blockerID,
			AddresseeID: targetID,
			Status:      model.FriendshipBlocked,
		}).Error
	})
}

// Unblock removes the blocker's blocked row, if any.
func (svc *Service) Unblock(ctx context.Context, blockerID, targetID int64) error {
	return svc.db.WithContext(ctx).
		Where("requester_id = ? AND addressee_id = ? AND status = ?",
			blockerID, targetID, model.FriendshipBlocked).
		Delete(&model.Friendship{}).Error
}

// IsBlocked reports whether either profile has blocked the other.
func (svc *Service) IsBlocked(ctx context.Context, a, b int64) (bool, error) {
	var count int64
	err := pairScope(svc.db.WithContext(ctx).Model(&model.Friendship{}), a, b).
		Where("status = ?", model.FriendshipBlocked).
		Count(&count).Error
	return count > 0, err
}

// FriendIDs returns the profile ids of all accepted friends.
func (svc *Service) FriendIDs(ctx context.Context, profileID int64) ([]int64, error) {
	var rows []model.Friendship
	err := svc.db.WithContext(ctx).
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

// FriendInfo is a friend's profile with presence.
type FriendInfo struct {
	Profile model.Profile `json:"profile"`
	Online  bool          `json:"online"`
}

// ListFriends returns accepted friends with their online flags.
func (svc *Service) ListFriends(ctx context.Context, profileID int64) ([]FriendInfo, error) {
	ids, err := svc.FriendIDs(ctx, profileID)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []FriendInfo{}, nil
	}
	var profiles []model.Profile
	if err := svc.db.WithContext(ctx).Where("id IN ?", ids).Find(&profiles).Error; err != nil {
		return nil, err
	}
	out := make([]FriendInfo, len(profiles))
	for i, p := range profiles {
		out[i] = FriendInfo{Profile: p, Online: svc.sm.IsOnline(p.ID)}
	}
	return out, nil
}

// ListPending returns requests awaiting the profile's response.
func (svc *Service) ListPending(ctx context.Context, profileID int64) ([]model.Friendship, error) {
	var rows []model.Friendship
	err := svc.db.WithContext(ctx).
		Where("addressee_id = ? AND status = ?", profileID, model.FriendshipPending).
		Order("created_at ASC").
		Find(&rows).Error
	return rows, err
}

// AreFriends reports whether an accepted friendship exists between a and b.
func (svc *Service) AreFriends(ctx context.Context, a, b int64) (bool, error) {
	var count int64
	err := pairScope(svc.db.WithContext(ctx).Model(&model.Friendship{}), a, b).
		Where("status = ?", model.FriendshipAccepted).
		Count(&count).Error
	return count > 0, err
}
