package controller

import (
	"errors"
	"log"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
	"teamfinder/config"
	"teamfinder/models"
	"teamfinder/utils"
)

type ProfileController struct {
	DB     *gorm.DB
	Logger *log.Logger
}

func NewProfileController(db *gorm.DB, logger *log.Logger) *ProfileController {
	return &ProfileController{
		DB:     db,
		Logger: logger,
	}
}

// Pointer fields distinguish "not sent" from "sent empty": saves merge only
// what the client actually provided.
type SaveProfileRequest struct {
	Name         *string `json:"name" validate:"omitempty,max=100"`
	Location     *string `json:"location" validate:"omitempty,max=100"`
	FavoriteGame *string `json:"favoriteGame" validate:"omitempty,max=100"`
	Avatar       *string `json:"avatar"`
	Socials      *struct {
		Discord *string `json:"discord"`
		Twitter *string `json:"twitter"`
		Steam   *string `json:"steam"`
	} `json:"socials"`
}

type ProfileResponse struct {
	Profile  *models.Profile `json:"profile"`
	Exists   bool            `json:"exists"`
	Complete bool            `json:"complete"`
}

// loadProfileTeams resolves the membership rows into the profile's team id
// set for the wire shape.
func loadProfileTeams(profile *models.Profile) {
	profile.TeamIDs = []string{}
	var memberships []models.TeamMember
	if err := config.DB.Where("user_id = ?", profile.ID).Find(&memberships).Error; err != nil {
		log.Printf("Failed to load teams for profile %s: %v", profile.ID, err)
		return
	}
	for _, m := range memberships {
		profile.TeamIDs = append(profile.TeamIDs, m.TeamID)
	}
}

// GetProfile returns the caller's profile. Absence is not an error.
func (pc *ProfileController) GetProfile(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	return pc.respondWithProfile(c, user.ID)
}

// GetProfileByID returns any user's profile by id (for member cards).
func (pc *ProfileController) GetProfileByID(c *fiber.Ctx) error {
	return pc.respondWithProfile(c, c.Params("id"))
}

func (pc *ProfileController) respondWithProfile(c *fiber.Ctx, userID string) error {
	var profile models.Profile
	if err := pc.DB.First(&profile, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.JSON(ProfileResponse{Profile: nil, Exists: false, Complete: false})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load profile",
		})
	}

	loadProfileTeams(&profile)
	return c.JSON(ProfileResponse{
		Profile:  &profile,
		Exists:   true,
		Complete: profile.Complete(),
	})
}

// ProfileExists is a presence check only.
func (pc *ProfileController) ProfileExists(c *fiber.Ctx) error {
	var count int64
	if err := pc.DB.Model(&models.Profile{}).Where("id = ?", c.Params("id")).Count(&count).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to check profile",
		})
	}
	return c.JSON(fiber.Map{"exists": count > 0})
}

// SaveProfile creates the caller's profile on first save and merges into it
// afterwards. The dispatch is an existence check against the database, so
// concurrent first saves resolve to create-then-update; last write wins.
func (pc *ProfileController) SaveProfile(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var req SaveProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if err := utils.ValidateStruct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	// A remote avatar that doesn't resolve falls back to the default
	if req.Avatar != nil && strings.HasPrefix(*req.Avatar, "http") {
		if err := utils.ProbeAvatarURL(*req.Avatar); err != nil {
			pc.Logger.Printf("Avatar probe for user %s failed, using default: %v", user.ID, err)
			fallback := utils.GetDefaultAvatar()
			req.Avatar = &fallback
		}
	}

	var profile models.Profile
	err := pc.DB.First(&profile, "id = ?", user.ID).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		profile = pc.buildProfile(user, &req)
		if err := pc.DB.Create(&profile).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Failed to create profile",
			})
		}
	case err != nil:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load profile",
		})
	default:
		mergeProfile(&profile, &req)
		profile.UpdatedAt = time.Now()
		// Persist the full merged record, not a partial patch
		if err := pc.DB.Save(&profile).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Failed to update profile",
			})
		}
	}

	loadProfileTeams(&profile)
	return c.JSON(ProfileResponse{
		Profile:  &profile,
		Exists:   true,
		Complete: profile.Complete(),
	})
}

// buildProfile fills a fresh profile, unset fields defaulting to empty.
func (pc *ProfileController) buildProfile(user *models.User, req *SaveProfileRequest) models.Profile {
	now := time.Now()
	profile := models.Profile{
		ID:        user.ID,
		Email:     user.Email,
		Avatar:    utils.GetDefaultAvatar(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	mergeProfile(&profile, req)
	return profile
}

// mergeProfile shallow-merges top-level fields and deep-merges socials.
func mergeProfile(profile *models.Profile, req *SaveProfileRequest) {
	if req.Name != nil {
		profile.Name = *req.Name
	}
	if req.Location != nil {
		profile.Location = *req.Location
	}
	if req.FavoriteGame != nil {
		profile.FavoriteGame = *req.FavoriteGame
	}
	if req.Avatar != nil {
		profile.Avatar = utils.ResolveAvatar(*req.Avatar)
	}
	if req.Socials != nil {
		if req.Socials.Discord != nil {
			profile.Socials.Discord = *req.Socials.Discord
		}
		if req.Socials.Twitter != nil {
			profile.Socials.Twitter = *req.Socials.Twitter
		}
		if req.Socials.Steam != nil {
			profile.Socials.Steam = *req.Socials.Steam
		}
	}
}
