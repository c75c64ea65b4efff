package controller

import (
	"fmt"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
	"teamfinder/models"
	"teamfinder/utils"
)

type JoinRequestController struct {
	DB         *gorm.DB
	Logger     *log.Logger
	Membership *utils.MembershipManager
	Hub        *Hub
}

func NewJoinRequestController(db *gorm.DB, hub *Hub, logger *log.Logger) *JoinRequestController {
	return &JoinRequestController{
		DB:         db,
		Logger:     logger,
		Membership: utils.NewMembershipManager(db, logger),
		Hub:        hub,
	}
}

type ResolveRequestBody struct {
	TeamID string `json:"teamId" validate:"required"`
	UserID string `json:"userId"`
}

// ListPending returns the pending requests for a team, each enriched with
// the requester's profile. A missing profile doesn't drop the request; the
// entry falls back to placeholder fields so the owner can still act on it.
func (jc *JoinRequestController) ListPending(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	teamID := c.Params("id")

	team, err := jc.Membership.GetTeam(teamID)
	if err != nil {
		return membershipError(c, err)
	}
	if team.OwnerID != user.ID {
		return membershipError(c, utils.ErrNotOwner)
	}

	var requests []models.JoinRequest
	if err := jc.DB.Where("team_id = ? AND status = ?", teamID, models.JoinRequestPending).
		Order("created_at ASC").
		Find(&requests).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load requests",
		})
	}

	enriched := make([]models.PendingRequest, 0, len(requests))
	for _, req := range requests {
		entry := models.PendingRequest{
			JoinRequest: req,
			UserName:    "Unknown",
			UserAvatar:  utils.GetDefaultAvatar(),
		}
		var profile models.Profile
		if err := jc.DB.First(&profile, "id = ?", req.UserID).Error; err != nil {
			jc.Logger.Printf("No profile for requester %s on team %s: %v", req.UserID, teamID, err)
		} else {
			if profile.Name != "" {
				entry.UserName = profile.Name
			}
			if profile.Avatar != "" {
				entry.UserAvatar = profile.Avatar
			}
			entry.UserLocation = profile.Location
			entry.UserGame = profile.FavoriteGame
		}
		enriched = append(enriched, entry)
	}

	return c.JSON(fiber.Map{"requests": enriched})
}

// CountPending returns the pending-request count for the owner's badge.
// Errors degrade to zero rather than breaking the caller.
func (jc *JoinRequestController) CountPending(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	teamID := c.Params("id")

	var team models.Team
	if err := jc.DB.First(&team, "id = ?", teamID).Error; err != nil {
		return c.JSON(fiber.Map{"count": 0})
	}
	if team.OwnerID != user.ID {
		return c.JSON(fiber.Map{"count": 0})
	}

	var count int64
	if err := jc.DB.Model(&models.JoinRequest{}).
		Where("team_id = ? AND status = ?", teamID, models.JoinRequestPending).
		Count(&count).Error; err != nil {
		jc.Logger.Printf("Failed to count pending requests for team %s: %v", teamID, err)
		return c.JSON(fiber.Map{"count": 0})
	}
	return c.JSON(fiber.Map{"count": count})
}

// Approve admits the requester into the team. The membership writes commit
// atomically; the welcome message, email and feed updates happen after the
// commit and are best-effort.
func (jc *JoinRequestController) Approve(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	requestID := c.Params("id")

	var body ResolveRequestBody
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if err := utils.ValidateStruct(body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	if body.UserID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "userId is required",
		})
	}

	team, err := jc.Membership.ApproveRequest(requestID, body.TeamID, body.UserID, user.ID)
	if err != nil {
		utils.LogError("approve_request", err, map[string]interface{}{
			"request_id": requestID,
			"team_id":    body.TeamID,
			"user_id":    body.UserID,
		})
		return membershipError(c, err)
	}

	jc.Logger.Printf("Request %s approved, user %s joined team %s", requestID, body.UserID, team.ID)
	jc.announceJoin(team, body.UserID)
	jc.Hub.NotifyChat(team.ID)
	jc.Hub.NotifyTeams()

	return c.JSON(team)
}

// announceJoin drops the join notice into the team chat and emails the new
// member. Neither failure unwinds the approval.
func (jc *JoinRequestController) announceJoin(team *models.Team, userID string) {
	name := "A new member"
	var profile models.Profile
	if err := jc.DB.First(&profile, "id = ?", userID).Error; err == nil && profile.Name != "" {
		name = profile.Name
	}

	notice := models.ChatMessage{
		TeamID:    team.ID,
		UserID:    models.SystemSenderID,
		UserName:  models.SystemSenderName,
		Message:   fmt.Sprintf("%s has joined the team. Say hello!", name),
		Timestamp: time.Now(),
		Type:      models.MessageTypeSystem,
	}
	if err := jc.DB.Create(&notice).Error; err != nil {
		jc.Logger.Printf("Failed to write join notice for team %s: %v", team.ID, err)
	}

	var member models.User
	if err := jc.DB.First(&member, "id = ?", userID).Error; err != nil {
		jc.Logger.Printf("Failed to load user %s for approval email: %v", userID, err)
		return
	}
	go func(email, teamName string) {
		if err := utils.SendRequestApprovedEmail(email, teamName); err != nil {
			log.Printf("Failed to send approval email to %s: %v", email, err)
		}
	}(member.Email, team.Name)
}

// Reject resolves a pending request without side effects on the team.
func (jc *JoinRequestController) Reject(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	requestID := c.Params("id")

	var body ResolveRequestBody
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if err := utils.ValidateStruct(body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	if err := jc.Membership.RejectRequest(requestID, body.TeamID, user.ID); err != nil {
		return membershipError(c, err)
	}

	jc.Logger.Printf("Request %s rejected by user %s", requestID, user.ID)
	return c.JSON(fiber.Map{"message": "Request rejected"})
}
