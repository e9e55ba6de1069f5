package profile

import (
	"context"
	"testing"

	"github.com/nightout-app/server/apperr"
	"github.com/nightout-app/server/config"
	"github.com/nightout-app/server/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	c, _ := testutil.SetupTestCache(t)
	return NewService(db, c, config.SecurityConfig{}, zap.NewNop()), db
}

func TestRegister(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	p, err := svc.Register(ctx, "night_owl", "Owl@Example.COM", "s3cretpass")
	require.NoError(t, err)
	assert.Equal(t, "night_owl", p.Username)
	assert.Equal(t, "owl@example.com", p.Email, "email stored lowercased")
	assert.NotEqual(t, "s3cretpass", p.PasswordHash)
	assert.Equal(t, 1, p.Status)

	// Duplicates conflict, either by username or by email.
	_, err = svc.Register(ctx, "night_owl", "other@example.com", "s3cretpass")
	assert.True(t, apperr.IsKind(err, apperr.KindConflict))
	_, err = svc.Register(ctx, "other_owl", "owl@example.com", "s3cretpass")
	assert.True(t, apperr.IsKind(err, apperr.KindConflict))
}

func TestRegister_Validation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	cases := []struct {
		name                string
		username, email, pw string
	}{
		{"short username", "ab", "a@b.com", "password1"},
		{"bad chars", "night owl!", "a@b.com", "password1"},
		{"bad email", "validname", "not-an-email", "password1"},
		{"short password", "validname", "a@b.com", "short"},
	}
	for _, c := range cases {
		_, err := svc.Register(ctx, c.username, c.email, c.pw)
		assert.True(t, apperr.IsKind(err, apperr.KindValidation), c.name)
	}
}

func TestAuthenticate(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	p, err := svc.Register(ctx, "authuser", "auth@example.com", "correcthorse")
	require.NoError(t, err)

	// Username or email both work as the login.
	got, err := svc.Authenticate(ctx, "authuser", "correcthorse")
	require.NoError(t, err)
	assert.Equal(t, p.ID, got.ID)
	got, err = svc.Authenticate(ctx, "Auth@Example.com", "correcthorse")
	require.NoError(t, err)
	assert.Equal(t, p.ID, got.ID)

	// Wrong password and unknown login read the same to a caller.
	_, err = svc.Authenticate(ctx, "authuser", "wrongpass")
	assert.True(t, apperr.IsKind(err, apperr.KindAuth))
	_, err = svc.Authenticate(ctx, "nobody", "correcthorse")
	assert.True(t, apperr.IsKind(err, apperr.KindAuth))

	require.NoError(t, svc.Ban(ctx, p.ID))
	_, err = svc.Authenticate(ctx, "authuser", "correcthorse")
	assert.True(t, apperr.IsKind(err, apperr.KindAuth))

	require.NoError(t, svc.Unban(ctx, p.ID))
	_, err = svc.Authenticate(ctx, "authuser", "correcthorse")
	assert.NoError(t, err)
}

func TestMagicLink_RedeemOnce(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	p, err := svc.Register(ctx, "magicuser", "magic@example.com", "correcthorse")
	require.NoError(t, err)

	token, err := svc.IssueMagicLink(ctx, "Magic@Example.com")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	got, err := svc.RedeemMagicLink(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, p.ID, got.ID)

	// One shot: a second redeem fails.
	_, err = svc.RedeemMagicLink(ctx, token)
	assert.True(t, apperr.IsKind(err, apperr.KindAuth))

	_, err = svc.RedeemMagicLink(ctx, "never-issued")
	assert.True(t, apperr.IsKind(err, apperr.KindAuth))

	_, err = svc.IssueMagicLink(ctx, "unknown@example.com")
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
}

func TestUpdate(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	p, err := svc.Register(ctx, "upduser", "upd@example.com", "correcthorse")
	require.NoError(t, err)
	_, err = svc.Register(ctx, "taken", "taken@example.com", "correcthorse")
	require.NoError(t, err)

	name := "Up D. User"
	bio := "out most fridays"
	updated, err := svc.Update(ctx, p.ID, UpdateInput{DisplayName: &name, Bio: &bio})
	require.NoError(t, err)
	assert.Equal(t, "Up D. User", updated.DisplayName)
	assert.Equal(t, "out most fridays", updated.Bio)
	assert.Equal(t, "upduser", updated.Username, "username untouched when nil")

	taken := "taken"
	_, err = svc.Update(ctx, p.ID, UpdateInput{Username: &taken})
	assert.True(t, apperr.IsKind(err, apperr.KindConflict))

	bad := "no spaces here!"
	_, err = svc.Update(ctx, p.ID, UpdateInput{Username: &bad})
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))
}

func TestChangePassword(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	p, err := svc.Register(ctx, "pwuser", "pw@example.com", "oldpassword")
	require.NoError(t, err)

	err = svc.ChangePassword(ctx, p.ID, "wrongold", "newpassword")
	assert.True(t, apperr.IsKind(err, apperr.KindAuth))

	err = svc.ChangePassword(ctx, p.ID, "oldpassword", "tiny")
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))

	require.NoError(t, svc.ChangePassword(ctx, p.ID, "oldpassword", "newpassword"))
	_, err = svc.Authenticate(ctx, "pwuser", "oldpassword")
	assert.True(t, apperr.IsKind(err, apperr.KindAuth))
	_, err = svc.Authenticate(ctx, "pwuser", "newpassword")
	assert.NoError(t, err)
}

func TestGetByUsername(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "findme", "findme@example.com", "correcthorse")
	require.NoError(t, err)

	p, err := svc.GetByUsername(ctx, "findme")
	require.NoError(t, err)
	assert.Equal(t, "findme", p.Username)

	_, err = svc.GetByUsername(ctx, "ghost")
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
}
