package moderation

import (
	"context"
	"errors"
	"strings"

	"github.com/nightout-app/server/apperr"
	"github.com/nightout-app/server/model"
	"github.com/nightout-app/server/social"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Service handles content reports and user blocks. Reported nights are
// auto-hidden once enough distinct reporters agree; reported comments are
// removed at the same threshold. Profile reports are recorded for operator
// review only.
type Service struct {
	db            *gorm.DB
	social        *social.Service
	hideThreshold int
	logger        *zap.Logger
}

// NewService creates a moderation Service. threshold <= 0 disables
// automatic hiding.
func NewService(db *gorm.DB, soc *social.Service, threshold int, logger *zap.Logger) *Service {
	return &Service{db: db, social: soc, hideThreshold: threshold, logger: logger}
}

// Report files a report against a night, comment or profile. Repeat
// reports from the same reporter on the same entity are ignored.
func (svc *Service) Report(ctx context.Context, reporterID int64, entityKind string, entityID int64, reason string, details datatypes.JSON) (*model.Report, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, apperr.Validationf("report reason required")
	}
	switch entityKind {
	case model.ReportNight, model.ReportComment, model.ReportProfile:
	default:
		return nil, apperr.Validationf("unknown entity kind %q", entityKind)
	}
	if err := svc.entityExists(ctx, entityKind, entityID); err != nil {
		return nil, err
	}

	var existing model.Report
	err := svc.db.WithContext(ctx).
		Where("reporter_id = ? AND entity_kind = ? AND entity_id = ?", reporterID, entityKind, entityID).
		First(&existing).Error
	if err == nil {
		return &existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	r := &model.Report{
		ReporterID: reporterID,
		EntityKind: entityKind,
		EntityID:   entityID,
		Reason:     reason,
		Details:    details,
	}
	if err := svc.db.WithContext(ctx).Create(r).Error; err != nil {
		return nil, err
	}
	svc.logger.Info("content reported",
		zap.Int64("reporter_id", reporterID),
		zap.String("entity_kind", entityKind),
		zap.Int64("entity_id", entityID),
		zap.String("reason", reason))

	if err := svc.enforceThreshold(ctx, entityKind, entityID); err != nil {
		svc.logger.Warn("report threshold enforcement failed", zap.Error(err))
	}
	return r, nil
}

func (svc *Service) entityExists(ctx context.Context, kind string, id int64) error {
	var count int64
	var err error
	switch kind {
	case model.ReportNight:
		err = svc.db.WithContext(ctx).Model(&model.Night{}).Where("id = ?", id).Count(&count).Error
	case model.ReportComment:
		err = svc.db.WithContext(ctx).Model(&model.Comment{}).Where("id = ?", id).Count(&count).Error
	case model.ReportProfile:
		err = svc.db.WithContext(ctx).Model(&model.Profile{}).Where("id = ?", id).Count(&count).Error
	}
	if err != nil {
		return err
	}
	if count == 0 {
		return apperr.NotFoundf("%s %d not found", kind, id)
	}
	return nil
}

func (svc *Service) enforceThreshold(ctx context.Context, kind string, id int64) error {
	if svc.hideThreshold <= 0 {
		return nil
	}
	var reporters int64
	if err := svc.db.WithContext(ctx).Model(&model.Report{}).
		Where("entity_kind = ? AND entity_id = ?", kind, id).
		Distinct("reporter_id").
		Count(&reporters).Error; err != nil {
		return err
	}
	if reporters < int64(svc.hideThreshold) {
		return nil
	}

	switch kind {
	case model.ReportNight:
		res := svc.db.WithContext(ctx).Model(&model.Night{}).
			Where("id = ? AND hidden = ?", id, false).
			Update("hidden", true)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			svc.logger.Info("night auto-hidden by reports", zap.Int64("night_id", id))
		}
	case model.ReportComment:
		res := svc.db.WithContext(ctx).Delete(&model.Comment{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			svc.logger.Info("comment removed by reports", zap.Int64("comment_id", id))
		}
	}
	return nil
}

// ReportCount returns how many distinct reporters flagged the entity.
func (svc *Service) ReportCount(ctx context.Context, kind string, id int64) (int64, error) {
	var n int64
	err := svc.db.WithContext(ctx).Model(&model.Report{}).
		Where("entity_kind = ? AND entity_id = ?", kind, id).
		Distinct("reporter_id").
		Count(&n).Error
	return n, err
}

// BlockUser blocks the target and tears down the relationship; content
// filtering both ways follows from the social block.
func (svc *Service) BlockUser(ctx context.Context, blockerID, targetID int64) error {
	return svc.social.Block(ctx, blockerID, targetID)
}

// UnblockUser lifts a block.
func (svc *Service) UnblockUser(ctx context.Context, blockerID, targetID int64) error {
	return svc.social.Unblock(ctx, blockerID, targetID)
}

// Unhide clears the hidden flag on a night (operator action).
func (svc *Service) Unhide(ctx context.Context, nightID int64) error {
	res := svc.db.WithContext(ctx).Model(&model.Night{}).
		Where("id = ?", nightID).
		Update("hidden", false)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperr.NotFoundf("night %d not found", nightID)
	}
	return nil
}
