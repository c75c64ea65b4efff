package utils

import (
	"errors"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"
	"teamfinder/models"
)

// Precondition failures surfaced by the membership workflows. The HTTP
// layer maps each to its own status code.
var (
	ErrTeamNotFound     = errors.New("team not found")
	ErrRequestNotFound  = errors.New("join request not found")
	ErrProfileNotFound  = errors.New("user profile not found")
	ErrNotOwner         = errors.New("only the team owner can do this")
	ErrNotMember        = errors.New("not a member of this team")
	ErrTeamFull         = errors.New("team is full")
	ErrAlreadyMember    = errors.New("already a member of this team")
	ErrAlreadyRequested = errors.New("a pending request for this team already exists")
	ErrAlreadyResolved  = errors.New("request has already been resolved")
)

// MembershipManager owns every mutation that touches more than one record:
// team creation, join approval, team deletion. Each of those commits as a
// single transaction so a team's member count, its member rows and the
// members' team sets are never observable out of sync.
type MembershipManager struct {
	DB     *gorm.DB
	Logger *log.Logger
}

func NewMembershipManager(db *gorm.DB, logger *log.Logger) *MembershipManager {
	return &MembershipManager{
		DB:     db,
		Logger: logger,
	}
}

type TeamInput struct {
	Name         string
	Location     string
	Game         string
	MaxMembers   int
	MeetingTimes []string
	Description  string
}

// CreateTeam persists a new team with the creator as its only member and
// owner, and drops the creation announcement into the team chat. All three
// writes commit together.
func (mm *MembershipManager) CreateTeam(ownerID string, input TeamInput) (*models.Team, error) {
	team := models.Team{
		Name:           input.Name,
		Location:       input.Location,
		Game:           input.Game,
		MaxMembers:     input.MaxMembers,
		CurrentMembers: 1,
		OwnerID:        ownerID,
		MeetingTimes:   input.MeetingTimes,
		Description:    input.Description,
	}

	tx := mm.DB.Begin()
	if tx.Error != nil {
		return nil, tx.Error
	}

	if err := tx.Create(&team).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to create team: %w", err)
	}

	ownerRow := models.TeamMember{
		TeamID: team.ID,
		UserID: ownerID,
		Role:   models.RoleOwner,
	}
	if err := tx.Create(&ownerRow).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to add owner membership: %w", err)
	}

	announcement := models.ChatMessage{
		TeamID:    team.ID,
		UserID:    models.SystemSenderID,
		UserName:  models.SystemSenderName,
		Message:   fmt.Sprintf("Team %q has been created. Welcome to the chat!", team.Name),
		Timestamp: time.Now(),
		Type:      models.MessageTypeSystem,
	}
	if err := tx.Create(&announcement).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to write creation announcement: %w", err)
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	team.Members = []models.TeamMember{ownerRow}
	team.Materialize()
	return &team, nil
}

// GetTeam loads a team with its membership rows materialized.
func (mm *MembershipManager) GetTeam(teamID string) (*models.Team, error) {
	var team models.Team
	if err := mm.DB.Preload("Members").First(&team, "id = ?", teamID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTeamNotFound
		}
		return nil, err
	}
	team.Materialize()
	return &team, nil
}

// RequestJoin files a pending join request. Members, full teams and users
// with a request already on file are turned away.
func (mm *MembershipManager) RequestJoin(teamID, userID string) (*models.JoinRequest, error) {
	team, err := mm.GetTeam(teamID)
	if err != nil {
		return nil, err
	}
	if team.HasMember(userID) {
		return nil, ErrAlreadyMember
	}
	if team.AtCapacity() {
		return nil, ErrTeamFull
	}

	pending, err := mm.PendingExists(teamID, userID)
	if err != nil {
		return nil, err
	}
	if pending {
		return nil, ErrAlreadyRequested
	}

	request := models.JoinRequest{
		TeamID: teamID,
		UserID: userID,
		Status: models.JoinRequestPending,
	}
	if err := mm.DB.Create(&request).Error; err != nil {
		return nil, fmt.Errorf("failed to create join request: %w", err)
	}
	return &request, nil
}

// PendingExists reports whether userID has a pending request for teamID.
func (mm *MembershipManager) PendingExists(teamID, userID string) (bool, error) {
	var count int64
	err := mm.DB.Model(&models.JoinRequest{}).
		Where("team_id = ? AND user_id = ? AND status = ?", teamID, userID, models.JoinRequestPending).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// ApproveRequest turns a pending request into a membership. Preconditions
// are checked in order, each with its own failure: team exists, caller owns
// it, team below capacity, request still pending, requester has a profile.
// The four writes (request status, member row, member count, profile stamp)
// commit in one transaction; a crash or concurrent edit can never leave the
// counter disagreeing with the member rows. The counter increment is guarded
// by a capacity condition in the UPDATE itself, so two approvals racing for
// the last seat cannot both succeed.
func (mm *MembershipManager) ApproveRequest(requestID, teamID, userID, callerID string) (*models.Team, error) {
	tx := mm.DB.Begin()
	if tx.Error != nil {
		return nil, tx.Error
	}

	var team models.Team
	if err := tx.Preload("Members").First(&team, "id = ?", teamID).Error; err != nil {
		tx.Rollback()
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTeamNotFound
		}
		return nil, err
	}
	if team.OwnerID != callerID {
		tx.Rollback()
		return nil, ErrNotOwner
	}
	if team.AtCapacity() {
		tx.Rollback()
		return nil, ErrTeamFull
	}

	var request models.JoinRequest
	if err := tx.First(&request, "id = ? AND team_id = ? AND user_id = ?", requestID, teamID, userID).Error; err != nil {
		tx.Rollback()
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRequestNotFound
		}
		return nil, err
	}
	if request.Status != models.JoinRequestPending {
		tx.Rollback()
		return nil, ErrAlreadyResolved
	}

	var profile models.Profile
	if err := tx.First(&profile, "id = ?", userID).Error; err != nil {
		tx.Rollback()
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, err
	}

	now := time.Now()
	if err := tx.Model(&request).Updates(map[string]interface{}{
		"status":     models.JoinRequestApproved,
		"updated_at": now,
	}).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to update join request: %w", err)
	}

	member := models.TeamMember{
		TeamID: teamID,
		UserID: userID,
		Role:   models.RoleMember,
	}
	if err := tx.Create(&member).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to add member: %w", err)
	}

	// The WHERE re-checks capacity at write time; a concurrent approval
	// that took the last seat first leaves zero rows to update.
	res := tx.Model(&models.Team{}).
		Where("id = ? AND current_members < max_members", teamID).
		Updates(map[string]interface{}{
			"current_members": gorm.Expr("current_members + 1"),
			"updated_at":      now,
		})
	if res.Error != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to update team: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		tx.Rollback()
		return nil, ErrTeamFull
	}

	if err := tx.Model(&profile).Update("updated_at", now).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to stamp profile: %w", err)
	}

	// Return exactly what the transaction committed
	var updated models.Team
	if err := tx.Preload("Members").First(&updated, "id = ?", teamID).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to reload team: %w", err)
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	updated.Materialize()
	return &updated, nil
}

// RejectRequest resolves a pending request without touching the team or the
// requester. Deliberately a single-record update.
func (mm *MembershipManager) RejectRequest(requestID, teamID, callerID string) error {
	team, err := mm.GetTeam(teamID)
	if err != nil {
		return err
	}
	if team.OwnerID != callerID {
		return ErrNotOwner
	}

	var request models.JoinRequest
	if err := mm.DB.First(&request, "id = ? AND team_id = ?", requestID, teamID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrRequestNotFound
		}
		return err
	}
	if request.Status != models.JoinRequestPending {
		return ErrAlreadyResolved
	}

	return mm.DB.Model(&request).Updates(map[string]interface{}{
		"status":     models.JoinRequestRejected,
		"updated_at": time.Now(),
	}).Error
}

// DeleteTeam removes a team and everything that hangs off it: membership
// rows (every member's back-reference), every join request for the team and
// the chat log. Owner only; all-or-nothing.
func (mm *MembershipManager) DeleteTeam(teamID, callerID string) error {
	tx := mm.DB.Begin()
	if tx.Error != nil {
		return tx.Error
	}

	var team models.Team
	if err := tx.First(&team, "id = ?", teamID).Error; err != nil {
		tx.Rollback()
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrTeamNotFound
		}
		return err
	}
	if team.OwnerID != callerID {
		tx.Rollback()
		return ErrNotOwner
	}

	if err := tx.Where("team_id = ?", teamID).Delete(&models.TeamMember{}).Error; err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to remove memberships: %w", err)
	}
	if err := tx.Where("team_id = ?", teamID).Delete(&models.JoinRequest{}).Error; err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to remove join requests: %w", err)
	}
	if err := tx.Where("team_id = ?", teamID).Delete(&models.ChatMessage{}).Error; err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to remove chat log: %w", err)
	}
	if err := tx.Delete(&team).Error; err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to delete team: %w", err)
	}

	return tx.Commit().Error
}

// UserTeams resolves a user's memberships into full team records. A team
// that no longer resolves is logged and skipped, never fails the listing.
func (mm *MembershipManager) UserTeams(userID string) ([]models.Team, error) {
	var memberships []models.TeamMember
	if err := mm.DB.Where("user_id = ?", userID).Find(&memberships).Error; err != nil {
		return nil, err
	}

	teams := make([]models.Team, 0, len(memberships))
	for _, m := range memberships {
		team, err := mm.GetTeam(m.TeamID)
		if err != nil {
			mm.Logger.Printf("Skipping unresolvable team %s for user %s: %v", m.TeamID, userID, err)
			continue
		}
		teams = append(teams, *team)
	}
	return teams, nil
}

// ReconcileTeam resets a drifted member counter from the membership rows.
// Returns the corrected count and whether a repair was needed.
func (mm *MembershipManager) ReconcileTeam(teamID string) (int, bool, error) {
	var repaired bool
	var count int64

	err := mm.DB.Transaction(func(tx *gorm.DB) error {
		var team models.Team
		if err := tx.First(&team, "id = ?", teamID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrTeamNotFound
			}
			return err
		}
		if err := tx.Model(&models.TeamMember{}).Where("team_id = ?", teamID).Count(&count).Error; err != nil {
			return err
		}
		if int(count) != team.CurrentMembers {
			repaired = true
			return tx.Model(&team).Update("current_members", count).Error
		}
		return nil
	})
	return int(count), repaired, err
}
