package profile

import (
	"context"
	"errors"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nightout-app/server/apperr"
	"github.com/nightout-app/server/cache"
	"github.com/nightout-app/server/config"
	"github.com/nightout-app/server/model"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var usernameRe = regexp.MustCompile(`^[a-zA-Z0-9_]{3,32}$`)

func magicKey(token string) string { return "magic:" + token }

// Service manages profile accounts: registration, credentials, magic-link
// sign-in tokens and profile edits.
type Service struct {
	db     *gorm.DB
	cache  cache.Cache
	cfg    config.SecurityConfig
	logger *zap.Logger
}

// NewService creates a profile Service.
func NewService(db *gorm.DB, c cache.Cache, cfg config.SecurityConfig, logger *zap.Logger) *Service {
	return &Service{db: db, cache: c, cfg: cfg, logger: logger}
}

// Register creates a profile with a bcrypt password hash. Username and
// email must be unique.
func (svc *Service) Register(ctx context.Context, username, email, password string) (*model.Profile, error) {
	username = strings.TrimSpace(username)
	email = strings.ToLower(strings.TrimSpace(email))
	if !usernameRe.MatchString(username) {
		return nil, apperr.Validationf("username must be 3-32 letters, digits or underscores")
	}
	if !strings.Contains(email, "@") {
		return nil, apperr.Validationf("invalid email")
	}
	if len(password) < 8 {
		return nil, apperr.Validationf("password must be at least 8 characters")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	p := &model.Profile{
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		DisplayName:  username,
		Status:       1,
	}
	if err := svc.db.WithContext(ctx).Create(p).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, apperr.Conflictf("username or email already taken")
		}
		return nil, err
	}
	svc.logger.Info("profile registered", zap.Int64("profile_id", p.ID), zap.String("username", p.Username))
	return p, nil
}

// Authenticate checks credentials against the stored hash. The login can
// be either the username or the email. Banned profiles cannot sign in.
func (svc *Service) Authenticate(ctx context.Context, login, password string) (*model.Profile, error) {
	login = strings.TrimSpace(login)
	var p model.Profile
	err := svc.db.WithContext(ctx).
		Where("username = ? OR email = ?", login, strings.ToLower(login)).
		First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.Authf("invalid credentials")
	}
	if err != nil {
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(p.PasswordHash), []byte(password)) != nil {
		return nil, apperr.Authf("invalid credentials")
	}
	if p.Status == 0 {
		return nil, apperr.Authf("account disabled")
	}
	return &p, nil
}

// IssueMagicLink creates a one-shot sign-in token for the email's profile
// and returns it. The token expires after the configured TTL. The caller
// is responsible for delivering it; it is never returned to an
// unauthenticated API response.
func (svc *Service) IssueMagicLink(ctx context.Context, email string) (string, error) {
	var p model.Profile
	err := svc.db.WithContext(ctx).Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", apperr.NotFoundf("no account for that email")
	}
	if err != nil {
		return "", err
	}
	token := uuid.NewString()
	ttl := svc.cfg.MagicLinkTTL
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	if err := svc.cache.Set(ctx, magicKey(token), strconv.FormatInt(p.ID, 10), ttl); err != nil {
		return "", err
	}
	return token, nil
}

// RedeemMagicLink exchanges a valid token for its profile and invalidates
// it. Expired or already-used tokens fail with an auth error.
func (svc *Service) RedeemMagicLink(ctx context.Context, token string) (*model.Profile, error) {
	val, err := svc.cache.Get(ctx, magicKey(token))
	if err != nil {
		if cache.IsNotFound(err) {
			return nil, apperr.Authf("link expired or already used")
		}
		return nil, err
	}
	_ = svc.cache.Del(ctx, magicKey(token))
	id, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return nil, apperr.Authf("link expired or already used")
	}
	return svc.Get(ctx, id)
}

// Get returns a profile by id.
func (svc *Service) Get(ctx context.Context, id int64) (*model.Profile, error) {
	var p model.Profile
	err := svc.db.WithContext(ctx).First(&p, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFoundf("profile %d not found", id)
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// GetByUsername returns a profile by username.
func (svc *Service) GetByUsername(ctx context.Context, username string) (*model.Profile, error) {
	var p model.Profile
	err := svc.db.WithContext(ctx).Where("username = ?", username).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFoundf("profile %q not found", username)
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// UpdateInput carries the editable profile fields. Nil means unchanged.
type UpdateInput struct {
	Username    *string `json:"username"`
	DisplayName *string `json:"display_name"`
	Bio         *string `json:"bio"`
}

// Update applies profile edits. A username change enforces uniqueness.
func (svc *Service) Update(ctx context.Context, id int64, in UpdateInput) (*model.Profile, error) {
	p, err := svc.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.Username != nil && *in.Username != p.Username {
		u := strings.TrimSpace(*in.Username)
		if !usernameRe.MatchString(u) {
			return nil, apperr.Validationf("username must be 3-32 letters, digits or underscores")
		}
		p.Username = u
	}
	if in.DisplayName != nil {
		if len(*in.DisplayName) > 64 {
			return nil, apperr.Validationf("display name too long")
		}
		p.DisplayName = strings.TrimSpace(*in.DisplayName)
	}
	if in.Bio != nil {
		if len(*in.Bio) > 512 {
			return nil, apperr.Validationf("bio too long")
		}
		p.Bio = *in.Bio
	}
	if err := svc.db.WithContext(ctx).Save(p).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, apperr.Conflictf("username already taken")
		}
		return nil, err
	}
	return p, nil
}

// SetAvatar records the storage path of an uploaded avatar.
func (svc *Service) SetAvatar(ctx context.Context, id int64, storagePath string) error {
	res := svc.db.WithContext(ctx).Model(&model.Profile{}).
		Where("id = ?", id).
		Update("avatar_path", storagePath)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperr.NotFoundf("profile %d not found", id)
	}
	return nil
}

// ChangePassword verifies the old password and stores a new hash.
func (svc *Service) ChangePassword(ctx context.Context, id int64, oldPassword, newPassword string) error {
	p, err := svc.Get(ctx, id)
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(p.PasswordHash), []byte(oldPassword)) != nil {
		return apperr.Authf("invalid credentials")
	}
	if len(newPassword) < 8 {
		return apperr.Validationf("password must be at least 8 characters")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return svc.db.WithContext(ctx).Model(&model.Profile{}).
		Where("id = ?", id).
		Update("password_hash", string(hash)).Error
}

// Ban disables an account; its sessions die on next auth check.
func (svc *Service) Ban(ctx context.Context, id int64) error {
	return svc.setStatus(ctx, id, 0)
}

// Unban re-enables an account.
func (svc *Service) Unban(ctx context.Context, id int64) error {
	return svc.setStatus(ctx, id, 1)
}

func (svc *Service) setStatus(ctx context.Context, id int64, status int) error {
	res := svc.db.WithContext(ctx).Model(&model.Profile{}).
		Where("id = ?", id).
		Update("status", status)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperr.NotFoundf("profile %d not found", id)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique") ||
		strings.Contains(msg, "duplicate") ||
		strings.Contains(msg, "already exists")
}
