package controller

import (
	"log"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
	"teamfinder/models"
	"teamfinder/utils"
)

type ChatController struct {
	DB     *gorm.DB
	Logger *log.Logger
	Hub    *Hub
}

func NewChatController(db *gorm.DB, hub *Hub, logger *log.Logger) *ChatController {
	return &ChatController{
		DB:     db,
		Logger: logger,
		Hub:    hub,
	}
}

type SendMessageRequest struct {
	Message string `json:"message" validate:"max=2000"`
}

// requireMembership loads the team and checks the caller belongs to it.
func (cc *ChatController) requireMembership(teamID, userID string) (*models.Team, error) {
	var team models.Team
	if err := cc.DB.First(&team, "id = ?", teamID).Error; err != nil {
		return nil, utils.ErrTeamNotFound
	}
	var membership models.TeamMember
	if err := cc.DB.Where("team_id = ? AND user_id = ?", teamID, userID).First(&membership).Error; err != nil {
		return nil, utils.ErrNotMember
	}
	return &team, nil
}

// GetMessages returns the most recent 100 messages in ascending timestamp
// order. Members only.
func (cc *ChatController) GetMessages(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	teamID := c.Params("id")

	if _, err := cc.requireMembership(teamID, user.ID); err != nil {
		return membershipError(c, err)
	}

	messages, err := loadChatSnapshot(cc.DB, teamID)
	if err != nil {
		cc.Logger.Printf("Failed to load chat for team %s: %v", teamID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load messages",
		})
	}
	return c.JSON(fiber.Map{"messages": messages})
}

// SendMessage appends a chat message and stamps the team's last activity.
// An unusable send (no profile name or a blank message) is dropped quietly
// with 204: logged server-side, invisible to the room.
func (cc *ChatController) SendMessage(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	teamID := c.Params("id")

	team, err := cc.requireMembership(teamID, user.ID)
	if err != nil {
		return membershipError(c, err)
	}

	var req SendMessageRequest
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

	text := strings.TrimSpace(req.Message)
	if text == "" {
		cc.Logger.Printf("Dropping empty message from user %s in team %s", user.ID, teamID)
		return c.SendStatus(fiber.StatusNoContent)
	}

	var profile models.Profile
	if err := cc.DB.First(&profile, "id = ?", user.ID).Error; err != nil || strings.TrimSpace(profile.Name) == "" {
		cc.Logger.Printf("Dropping message from user %s without a named profile in team %s", user.ID, teamID)
		return c.SendStatus(fiber.StatusNoContent)
	}

	now := time.Now()
	message := models.ChatMessage{
		TeamID:     teamID,
		UserID:     user.ID,
		UserName:   profile.Name,
		UserAvatar: profile.Avatar,
		Message:    text,
		Timestamp:  now,
		Type:       models.MessageTypeText,
	}
	if err := cc.DB.Create(&message).Error; err != nil {
		cc.Logger.Printf("Failed to store message for team %s: %v", teamID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to send message",
		})
	}

	if err := cc.DB.Model(team).Update("last_activity", now).Error; err != nil {
		cc.Logger.Printf("Failed to stamp activity for team %s: %v", teamID, err)
	}

	cc.Hub.NotifyChat(teamID)
	return c.Status(fiber.StatusCreated).JSON(message)
}
