package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nightout-app/server/apperr"
	"github.com/nightout-app/server/model"
	"github.com/nightout-app/server/realtime"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var allowedExt = map[string]string{
	".jpg":  model.MediaPhoto,
	".jpeg": model.MediaPhoto,
	".png":  model.MediaPhoto,
	".heic": model.MediaPhoto,
	".mp4":  model.MediaVideo,
	".mov":  model.MediaVideo,
}

// Service attaches photos and videos to nights through the storage
// boundary and keeps the media table in sync with stored objects.
type Service struct {
	db      *gorm.DB
	storage Storage
	pub     *realtime.Publisher
	logger  *zap.Logger
}

// NewService creates a media Service.
func NewService(db *gorm.DB, storage Storage, pub *realtime.Publisher, logger *zap.Logger) *Service {
	return &Service{db: db, storage: storage, pub: pub, logger: logger}
}

// AttachInput describes an upload.
type AttachInput struct {
	Filename    string
	ContentType string
	Caption     string
	Lat         float64
	Lon         float64
	CapturedAt  time.Time
}

// Attach stores the file and records it against the night. Only the
// night's owner may attach media; the media type is derived from the file
// extension.
func (svc *Service) Attach(ctx context.Context, profileID, nightID int64, in AttachInput, r io.Reader) (*model.Media, error) {
	ext := strings.ToLower(path.Ext(in.Filename))
	mediaType, ok := allowedExt[ext]
	if !ok {
		return nil, apperr.Validationf("unsupported media type %q", ext)
	}

	var n model.Night
	err := svc.db.WithContext(ctx).First(&n, nightID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFoundf("night %d not found", nightID)
	}
	if err != nil {
		return nil, err
	}
	if n.ProfileID != profileID {
		return nil, apperr.NotFoundf("night %d not found", nightID)
	}

	key := fmt.Sprintf("nights/%d/%s%s", nightID, uuid.NewString(), ext)
	if err := svc.storage.Put(ctx, key, in.ContentType, r); err != nil {
		return nil, fmt.Errorf("store media: %w", err)
	}

	capturedAt := in.CapturedAt
	if capturedAt.IsZero() {
		capturedAt = time.Now()
	}
	m := &model.Media{
		NightID:     nightID,
		Type:        mediaType,
		StoragePath: key,
		Caption:     in.Caption,
		Lat:         in.Lat,
		Lon:         in.Lon,
		CapturedAt:  capturedAt,
	}
	if err := svc.db.WithContext(ctx).Create(m).Error; err != nil {
		// Roll the object back so storage does not leak orphans.
		if derr := svc.storage.Delete(ctx, key); derr != nil {
			svc.logger.Warn("orphaned media object", zap.String("key", key), zap.Error(derr))
		}
		return nil, err
	}

	if n.IsActive && n.LiveVisibility != model.LiveNobody {
		svc.pub.LiveUpdated(ctx, profileID, nightID)
	}
	return m, nil
}

// List returns a night's media, oldest capture first.
func (svc *Service) List(ctx context.Context, nightID int64) ([]model.Media, error) {
	var items []model.Media
	err := svc.db.WithContext(ctx).
		Where("night_id = ?", nightID).
		Order("captured_at ASC").
		Find(&items).Error
	return items, err
}

// Remove deletes a media item and its stored object. Owner of the night
// only.
func (svc *Service) Remove(ctx context.Context, profileID, mediaID int64) error {
	var m model.Media
	err := svc.db.WithContext(ctx).First(&m, mediaID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFoundf("media %d not found", mediaID)
	}
	if err != nil {
		return err
	}
	var n model.Night
	if err := svc.db.WithContext(ctx).Select("profile_id").First(&n, m.NightID).Error; err != nil {
		return err
	}
	if n.ProfileID != profileID {
		return apperr.NotFoundf("media %d not found", mediaID)
	}
	if err := svc.db.WithContext(ctx).Delete(&model.Media{}, mediaID).Error; err != nil {
		return err
	}
	if err := svc.storage.Delete(ctx, m.StoragePath); err != nil {
		svc.logger.Warn("delete media object failed", zap.String("key", m.StoragePath), zap.Error(err))
	}
	return nil
}

// URL resolves a stored key to a fetchable URL.
func (svc *Service) URL(key string) string {
	return svc.storage.URL(key)
}

// StoreAvatar stores a profile avatar image and returns its storage key.
func (svc *Service) StoreAvatar(ctx context.Context, profileID int64, filename, contentType string, r io.Reader) (string, error) {
	ext := strings.ToLower(path.Ext(filename))
	if t, ok := allowedExt[ext]; !ok || t != model.MediaPhoto {
		return "", apperr.Validationf("avatar must be an image")
	}
	key := fmt.Sprintf("avatars/%d/%s%s", profileID, uuid.NewString(), ext)
	if err := svc.storage.Put(ctx, key, contentType, r); err != nil {
		return "", fmt.Errorf("store avatar: %w", err)
	}
	return key, nil
}
