package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindValidation, KindOf(Validationf("bad input")))
	assert.Equal(t, KindAuth, KindOf(Authf("nope")))
	assert.Equal(t, KindNotFound, KindOf(NotFoundf("night %d", 7)))
	assert.Equal(t, KindConflict, KindOf(Conflictf("taken")))
	assert.Equal(t, KindServer, KindOf(errors.New("plain")), "unclassified errors default to server")
}

func TestIsKind(t *testing.T) {
	assert.True(t, IsKind(NotFoundf("gone"), KindNotFound))
	assert.False(t, IsKind(NotFoundf("gone"), KindConflict))
	assert.False(t, IsKind(nil, KindServer), "nil is never any kind")
}

func TestWrap_PreservesKindThroughWrapping(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(KindNetwork, "sync failed", cause)

	assert.Equal(t, "sync failed: connection refused", err.Error())
	assert.ErrorIs(t, err, cause)

	// Standard wrapping on top keeps the classification visible.
	outer := fmt.Errorf("full sync: %w", err)
	assert.Equal(t, KindNetwork, KindOf(outer))
}

func TestHTTPStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{Validationf("x"), http.StatusBadRequest},
		{Authf("x"), http.StatusUnauthorized},
		{NotFoundf("x"), http.StatusNotFound},
		{Conflictf("x"), http.StatusConflict},
		{New(KindNetwork, "x"), http.StatusBadGateway},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, HTTPStatus(c.err), c.err.Error())
	}
}
