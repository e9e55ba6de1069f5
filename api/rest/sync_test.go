package rest_test

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFullSyncOverAPI(t *testing.T) {
	s := newAPISetup(t)
	me := s.signup(t, "syncme")
	pal := s.signup(t, "syncpal")
	palID := s.profileID(t, "syncpal")

	// Build a friendship and some data on both sides.
	w := s.postJSON(t, "/api/friends/requests", map[string]int64{"profile_id": palID}, bearer(me)...)
	require.Equal(t, http.StatusCreated, w.Code)
	reqID := int64(decodeBody(t, w)["friendship"].(map[string]interface{})["id"].(float64))
	require.Equal(t, http.StatusOK, s.postJSON(t, acceptPath(reqID), nil, bearer(pal)...).Code)

	s.startPublicNight(t, me, "mine")
	require.Equal(t, http.StatusCreated,
		s.postJSON(t, "/api/nights/drinks", map[string]interface{}{"type": "beer"}, bearer(me)...).Code)
	s.startPublicNight(t, pal, "theirs")

	w = s.getJSON(t, "/api/sync/full", bearer(me)...)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Profile     *struct{ Username string } `json:"profile"`
		Friends     []struct{ Username string }
		Nights      []struct{ Title string }
		Friendships []struct{ Status string }
		Children    *struct {
			Drinks []struct{ Type string } `json:"drinks"`
		} `json:"children"`
		Failed map[string]string `json:"failed"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	assert.Empty(t, resp.Failed)
	require.NotNil(t, resp.Profile)
	assert.Equal(t, "syncme", resp.Profile.Username)
	require.Len(t, resp.Friends, 1)
	assert.Equal(t, "syncpal", resp.Friends[0].Username)
	assert.Len(t, resp.Nights, 2, "own night plus friend's visible night")
	require.Len(t, resp.Friendships, 1)
	assert.Equal(t, "accepted", resp.Friendships[0].Status)
	require.NotNil(t, resp.Children)
	require.Len(t, resp.Children.Drinks, 1)
	assert.Equal(t, "beer", resp.Children.Drinks[0].Type)
}

func TestFullSync_RequiresUser(t *testing.T) {
	s := newAPISetup(t)

	w := s.postJSON(t, "/api/auth/guest", nil)
	require.Equal(t, http.StatusOK, w.Code)
	guest, _ := decodeBody(t, w)["token"].(string)

	assert.Equal(t, http.StatusUnauthorized, s.getJSON(t, "/api/sync/full", bearer(guest)...).Code)
}
