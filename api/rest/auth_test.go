package rest_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignupSignin(t *testing.T) {
	s := newAPISetup(t)

	token := s.signup(t, "resty")
	require.NotEmpty(t, token)

	// Duplicate signup conflicts.
	w := s.postJSON(t, "/api/auth/signup", map[string]string{
		"username": "resty",
		"email":    "other@example.com",
		"password": "s3cretpass",
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	// Signin by username and by email.
	for _, login := range []string{"resty", "resty@example.com"} {
		w = s.postJSON(t, "/api/auth/signin", map[string]string{
			"login":    login,
			"password": "s3cretpass",
		})
		assert.Equal(t, http.StatusOK, w.Code, login)
	}

	w = s.postJSON(t, "/api/auth/signin", map[string]string{
		"login":    "resty",
		"password": "wrongpass",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSignup_BindingRejectsBadInput(t *testing.T) {
	s := newAPISetup(t)

	w := s.postJSON(t, "/api/auth/signup", map[string]string{
		"username": "ab",
		"email":    "not-an-email",
		"password": "short",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSignout_RevokesSession(t *testing.T) {
	s := newAPISetup(t)
	token := s.signup(t, "byebye")

	w := s.getJSON(t, "/api/profile/me", bearer(token)...)
	require.Equal(t, http.StatusOK, w.Code)

	w = s.postJSON(t, "/api/auth/signout", nil, bearer(token)...)
	require.Equal(t, http.StatusOK, w.Code)

	w = s.getJSON(t, "/api/profile/me", bearer(token)...)
	assert.Equal(t, http.StatusUnauthorized, w.Code, "revoked session stops working")
}

func TestRefresh_RotatesToken(t *testing.T) {
	s := newAPISetup(t)
	token := s.signup(t, "rotator")

	w := s.postJSON(t, "/api/auth/refresh", nil, bearer(token)...)
	require.Equal(t, http.StatusOK, w.Code)
	newToken, _ := decodeBody(t, w)["token"].(string)
	require.NotEmpty(t, newToken)
	assert.NotEqual(t, token, newToken)

	// Old token is dead, new one works.
	assert.Equal(t, http.StatusUnauthorized, s.getJSON(t, "/api/profile/me", bearer(token)...).Code)
	assert.Equal(t, http.StatusOK, s.getJSON(t, "/api/profile/me", bearer(newToken)...).Code)
}

func TestGuest_BrowsesButCannotWrite(t *testing.T) {
	s := newAPISetup(t)
	owner := s.signup(t, "guestowner")

	w := s.postJSON(t, "/api/nights", map[string]interface{}{
		"title": "open night", "visibility": "public",
	}, bearer(owner)...)
	require.Equal(t, http.StatusCreated, w.Code)

	w = s.postJSON(t, "/api/auth/guest", nil)
	require.Equal(t, http.StatusOK, w.Code)
	guest, _ := decodeBody(t, w)["token"].(string)
	require.NotEmpty(t, guest)

	assert.Equal(t, http.StatusOK, s.getJSON(t, "/api/feed/trending", bearer(guest)...).Code)

	w = s.postJSON(t, "/api/nights", map[string]interface{}{"title": "nope"}, bearer(guest)...)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "requires sign-in")
}

func TestMagicLink_NeverLeaksAccountPresence(t *testing.T) {
	s := newAPISetup(t)
	s.signup(t, "magician")

	for _, email := range []string{"magician@example.com", "unknown@example.com"} {
		w := s.postJSON(t, "/api/auth/magic-link", map[string]string{"email": email})
		assert.Equal(t, http.StatusOK, w.Code, email)
		assert.Contains(t, w.Body.String(), "if that email exists")
	}
}
