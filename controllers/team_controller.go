package controller

import (
	"errors"
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
	"teamfinder/models"
	"teamfinder/utils"
)

type TeamController struct {
	DB         *gorm.DB
	Logger     *log.Logger
	Membership *utils.MembershipManager
	Hub        *Hub
}

func NewTeamController(db *gorm.DB, hub *Hub, logger *log.Logger) *TeamController {
	return &TeamController{
		DB:         db,
		Logger:     logger,
		Membership: utils.NewMembershipManager(db, logger),
		Hub:        hub,
	}
}

type CreateTeamRequest struct {
	Name         string   `json:"name" validate:"required,min=3,max=100"`
	Location     string   `json:"location" validate:"required,max=100"`
	Game         string   `json:"game" validate:"required,max=100"`
	MaxMembers   int      `json:"maxMembers" validate:"required,gte=2,lte=20"`
	MeetingTimes []string `json:"meetingTimes"`
	Description  string   `json:"description" validate:"max=1000"`
}

// membershipError maps the workflow's precondition failures onto HTTP
// statuses. Anything unrecognized is a 500.
func membershipError(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	switch {
	case errors.Is(err, utils.ErrTeamNotFound),
		errors.Is(err, utils.ErrRequestNotFound),
		errors.Is(err, utils.ErrProfileNotFound):
		status = fiber.StatusNotFound
	case errors.Is(err, utils.ErrNotOwner),
		errors.Is(err, utils.ErrNotMember):
		status = fiber.StatusForbidden
	case errors.Is(err, utils.ErrTeamFull),
		errors.Is(err, utils.ErrAlreadyMember),
		errors.Is(err, utils.ErrAlreadyRequested),
		errors.Is(err, utils.ErrAlreadyResolved):
		status = fiber.StatusConflict
	}
	if status == fiber.StatusInternalServerError {
		return c.Status(status).JSON(fiber.Map{"error": "Something went wrong"})
	}
	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}

// filterTeams narrows a team listing by game, location and open seats. An
// empty criterion matches everything; matching is exact, not fuzzy.
func filterTeams(teams []models.Team, game, location string, availableOnly bool) []models.Team {
	filtered := make([]models.Team, 0, len(teams))
	for _, t := range teams {
		if game != "" && t.Game != game {
			continue
		}
		if location != "" && t.Location != location {
			continue
		}
		if availableOnly && t.AtCapacity() {
			continue
		}
		filtered = append(filtered, t)
	}
	return filtered
}

// ListTeams returns all teams, optionally filtered by ?game=, ?location=
// and ?available=true.
func (tc *TeamController) ListTeams(c *fiber.Ctx) error {
	teams, err := loadTeamSnapshot(tc.DB)
	if err != nil {
		tc.Logger.Printf("Failed to list teams: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load teams",
		})
	}

	teams = filterTeams(teams,
		c.Query("game"),
		c.Query("location"),
		c.Query("available") == "true",
	)
	return c.JSON(fiber.Map{"teams": teams})
}

func (tc *TeamController) GetTeam(c *fiber.Ctx) error {
	team, err := tc.Membership.GetTeam(c.Params("id"))
	if err != nil {
		return membershipError(c, err)
	}
	return c.JSON(team)
}

// CreateTeam registers a new team with the caller as owner and announces it
// on both live feeds.
func (tc *TeamController) CreateTeam(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var req CreateTeamRequest
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

	team, err := tc.Membership.CreateTeam(user.ID, utils.TeamInput{
		Name:         strings.TrimSpace(req.Name),
		Location:     req.Location,
		Game:         req.Game,
		MaxMembers:   req.MaxMembers,
		MeetingTimes: req.MeetingTimes,
		Description:  strings.TrimSpace(req.Description),
	})
	if err != nil {
		tc.Logger.Printf("Failed to create team for user %s: %v", user.ID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create team",
		})
	}

	tc.Logger.Printf("Team %s created by user %s", team.ID, user.ID)
	tc.Hub.NotifyTeams()
	tc.Hub.NotifyChat(team.ID)
	return c.Status(fiber.StatusCreated).JSON(team)
}

// DeleteTeam tears a team down along with its memberships, requests and
// chat log. Owner only.
func (tc *TeamController) DeleteTeam(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	teamID := c.Params("id")

	if err := tc.Membership.DeleteTeam(teamID, user.ID); err != nil {
		if errors.Is(err, utils.ErrTeamNotFound) || errors.Is(err, utils.ErrNotOwner) {
			return membershipError(c, err)
		}
		tc.Logger.Printf("Failed to delete team %s: %v", teamID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to delete team",
		})
	}

	tc.Logger.Printf("Team %s deleted by user %s", teamID, user.ID)
	tc.Hub.NotifyTeams()
	return c.JSON(fiber.Map{"message": "Team deleted"})
}

// GetMyTeams returns every team the caller belongs to.
func (tc *TeamController) GetMyTeams(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	teams, err := tc.Membership.UserTeams(user.ID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load teams",
		})
	}
	return c.JSON(fiber.Map{"teams": teams})
}

// RequestJoin files a join request for the caller.
func (tc *TeamController) RequestJoin(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	teamID := c.Params("id")

	request, err := tc.Membership.RequestJoin(teamID, user.ID)
	if err != nil {
		return membershipError(c, err)
	}

	tc.Logger.Printf("User %s requested to join team %s", user.ID, teamID)
	return c.Status(fiber.StatusCreated).JSON(request)
}

// CheckPendingRequest reports whether the caller already has a pending
// request for the team.
func (tc *TeamController) CheckPendingRequest(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	pending, err := tc.Membership.PendingExists(c.Params("id"), user.ID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to check request",
		})
	}
	return c.JSON(fiber.Map{"pending": pending})
}

// GetCatalog exposes the pick lists the client builds its forms from.
func (tc *TeamController) GetCatalog(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"gameSystems":  models.GameSystems,
		"locations":    models.Locations,
		"meetingTimes": models.MeetingTimeOptions,
	})
}
