package controller

import (
	"encoding/json"
	"io"
	"log"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"teamfinder/config"
	"teamfinder/models"
	"teamfinder/utils"
)

func parseSaveRequest(t *testing.T, body string) *SaveProfileRequest {
	t.Helper()
	var req SaveProfileRequest
	require.NoError(t, json.Unmarshal([]byte(body), &req))
	return &req
}

func TestMergeProfile(t *testing.T) {
	base := func() models.Profile {
		return models.Profile{
			Name:         "Anna",
			Location:     "Warszawa",
			FavoriteGame: "Gloomhaven",
			Avatar:       utils.DefaultAvatarPath,
			Socials:      models.Socials{Discord: "anna#1", Twitter: "@anna"},
		}
	}

	t.Run("unsent fields survive", func(t *testing.T) {
		profile := base()
		mergeProfile(&profile, parseSaveRequest(t, `{"name":"Anna K"}`))

		assert.Equal(t, "Anna K", profile.Name)
		assert.Equal(t, "Warszawa", profile.Location)
		assert.Equal(t, "Gloomhaven", profile.FavoriteGame)
		assert.Equal(t, "anna#1", profile.Socials.Discord)
	})

	t.Run("socials merge one handle at a time", func(t *testing.T) {
		profile := base()
		mergeProfile(&profile, parseSaveRequest(t, `{"socials":{"discord":"anna#2"}}`))

		assert.Equal(t, "anna#2", profile.Socials.Discord)
		assert.Equal(t, "@anna", profile.Socials.Twitter, "unsent handle must survive")
		assert.Equal(t, "Anna", profile.Name)
	})

	t.Run("explicit empty string clears a field", func(t *testing.T) {
		profile := base()
		mergeProfile(&profile, parseSaveRequest(t, `{"location":"","socials":{"twitter":""}}`))

		assert.Empty(t, profile.Location)
		assert.Empty(t, profile.Socials.Twitter)
		assert.Equal(t, "anna#1", profile.Socials.Discord)
	})

	t.Run("unknown avatar falls back to default", func(t *testing.T) {
		profile := base()
		mergeProfile(&profile, parseSaveRequest(t, `{"avatar":"avatar-99"}`))

		assert.Equal(t, utils.DefaultAvatarPath, profile.Avatar)
	})
}

func newProfileTestApp(t *testing.T) (*fiber.App, *models.User) {
	t.Helper()
	db := newHubTestDB(t)
	config.DB = db

	user := &models.User{Email: "anna@example.com", PasswordHash: "x", IsActive: true}
	require.NoError(t, db.Create(user).Error)

	pc := NewProfileController(db, log.New(io.Discard, "", 0))
	app := fiber.New()
	app.Put("/profiles/me", func(c *fiber.Ctx) error {
		c.Locals("user", user)
		return pc.SaveProfile(c)
	})
	return app, user
}

func saveProfile(t *testing.T, app *fiber.App, body string) ProfileResponse {
	t.Helper()
	req := httptest.NewRequest("PUT", "/profiles/me", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var out ProfileResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestSaveProfileCreateThenMerge(t *testing.T) {
	app, user := newProfileTestApp(t)

	first := saveProfile(t, app, `{"name":"Anna","location":"Warszawa","favoriteGame":"Gloomhaven","socials":{"discord":"anna#1","twitter":"@anna"}}`)
	require.NotNil(t, first.Profile)
	assert.True(t, first.Exists)
	assert.True(t, first.Complete)
	assert.Equal(t, user.ID, first.Profile.ID)
	assert.Equal(t, user.Email, first.Profile.Email)
	assert.Equal(t, utils.DefaultAvatarPath, first.Profile.Avatar)

	// A partial second save merges instead of replacing
	second := saveProfile(t, app, `{"name":"Anna K","socials":{"discord":"anna#2"}}`)
	require.NotNil(t, second.Profile)
	assert.Equal(t, "Anna K", second.Profile.Name)
	assert.Equal(t, "Warszawa", second.Profile.Location)
	assert.Equal(t, "Gloomhaven", second.Profile.FavoriteGame)
	assert.Equal(t, "anna#2", second.Profile.Socials.Discord)
	assert.Equal(t, "@anna", second.Profile.Socials.Twitter)
}

func TestSaveProfileIncompleteUntilRequiredFields(t *testing.T) {
	app, _ := newProfileTestApp(t)

	partial := saveProfile(t, app, `{"name":"Anna"}`)
	assert.True(t, partial.Exists)
	assert.False(t, partial.Complete)

	finished := saveProfile(t, app, `{"location":"Kraków","favoriteGame":"Pathfinder"}`)
	assert.True(t, finished.Complete)
}
