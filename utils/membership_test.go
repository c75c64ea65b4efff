package utils

import (
	"io"
	"log"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"teamfinder/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Profile{},
		&models.Team{},
		&models.TeamMember{},
		&models.JoinRequest{},
		&models.ChatMessage{},
	))
	return db
}

func newTestManager(t *testing.T) (*MembershipManager, *gorm.DB) {
	t.Helper()
	db := newTestDB(t)
	return NewMembershipManager(db, log.New(io.Discard, "", 0)), db
}

func seedUser(t *testing.T, db *gorm.DB, email, name string) *models.User {
	t.Helper()
	user := models.User{Email: email, PasswordHash: "x", IsActive: true}
	require.NoError(t, db.Create(&user).Error)
	if name != "" {
		profile := models.Profile{
			ID:    user.ID,
			Email: email,
			Name:  name,
		}
		require.NoError(t, db.Create(&profile).Error)
	}
	return &user
}

func seedTeam(t *testing.T, mm *MembershipManager, ownerID string, maxMembers int) *models.Team {
	t.Helper()
	team, err := mm.CreateTeam(ownerID, TeamInput{
		Name:         "The Dragons",
		Location:     "Warszawa",
		Game:         "Dungeons & Dragons",
		MaxMembers:   maxMembers,
		MeetingTimes: []string{"Weekday evenings"},
		Description:  "Weekly campaign, beginners welcome",
	})
	require.NoError(t, err)
	return team
}

func TestCreateTeam(t *testing.T) {
	mm, db := newTestManager(t)
	owner := seedUser(t, db, "owner@example.com", "Anna")

	team := seedTeam(t, mm, owner.ID, 5)

	assert.NotEmpty(t, team.ID)
	assert.Equal(t, 1, team.CurrentMembers)
	assert.Equal(t, owner.ID, team.OwnerID)
	assert.Equal(t, models.RoleOwner, team.MemberRoles[owner.ID])

	var members []models.TeamMember
	require.NoError(t, db.Where("team_id = ?", team.ID).Find(&members).Error)
	require.Len(t, members, 1)
	assert.Equal(t, models.RoleOwner, members[0].Role)

	// Creation drops a system announcement into the chat
	var messages []models.ChatMessage
	require.NoError(t, db.Where("team_id = ?", team.ID).Find(&messages).Error)
	require.Len(t, messages, 1)
	assert.Equal(t, models.MessageTypeSystem, messages[0].Type)
	assert.Equal(t, models.SystemSenderID, messages[0].UserID)
	assert.Contains(t, messages[0].Message, "The Dragons")
}

func TestRequestJoinGuards(t *testing.T) {
	mm, db := newTestManager(t)
	owner := seedUser(t, db, "owner@example.com", "Anna")
	team := seedTeam(t, mm, owner.ID, 2)

	t.Run("unknown team", func(t *testing.T) {
		_, err := mm.RequestJoin("no-such-team", owner.ID)
		assert.ErrorIs(t, err, ErrTeamNotFound)
	})

	t.Run("owner is already a member", func(t *testing.T) {
		_, err := mm.RequestJoin(team.ID, owner.ID)
		assert.ErrorIs(t, err, ErrAlreadyMember)
	})

	t.Run("duplicate pending request", func(t *testing.T) {
		applicant := seedUser(t, db, "a@example.com", "Piotr")
		_, err := mm.RequestJoin(team.ID, applicant.ID)
		require.NoError(t, err)
		_, err = mm.RequestJoin(team.ID, applicant.ID)
		assert.ErrorIs(t, err, ErrAlreadyRequested)
	})

	t.Run("full team", func(t *testing.T) {
		require.NoError(t, db.Model(team).Update("current_members", 2).Error)
		late := seedUser(t, db, "late@example.com", "Kasia")
		_, err := mm.RequestJoin(team.ID, late.ID)
		assert.ErrorIs(t, err, ErrTeamFull)
	})
}

func TestApproveRequest(t *testing.T) {
	mm, db := newTestManager(t)
	owner := seedUser(t, db, "owner@example.com", "Anna")
	applicant := seedUser(t, db, "piotr@example.com", "Piotr")
	team := seedTeam(t, mm, owner.ID, 5)

	request, err := mm.RequestJoin(team.ID, applicant.ID)
	require.NoError(t, err)

	t.Run("only the owner can approve", func(t *testing.T) {
		_, err := mm.ApproveRequest(request.ID, team.ID, applicant.ID, applicant.ID)
		assert.ErrorIs(t, err, ErrNotOwner)

		// Nothing moved
		var stored models.JoinRequest
		require.NoError(t, db.First(&stored, "id = ?", request.ID).Error)
		assert.Equal(t, models.JoinRequestPending, stored.Status)
	})

	t.Run("approval admits the requester", func(t *testing.T) {
		updated, err := mm.ApproveRequest(request.ID, team.ID, applicant.ID, owner.ID)
		require.NoError(t, err)

		assert.Equal(t, 2, updated.CurrentMembers)
		assert.Equal(t, models.RoleOwner, updated.MemberRoles[owner.ID])
		assert.Equal(t, models.RoleMember, updated.MemberRoles[applicant.ID])

		// The returned record must agree with itself and with storage
		assert.Len(t, updated.MemberRoles, updated.CurrentMembers)
		var storedTeam models.Team
		require.NoError(t, db.First(&storedTeam, "id = ?", team.ID).Error)
		assert.Equal(t, storedTeam.CurrentMembers, updated.CurrentMembers)

		var stored models.JoinRequest
		require.NoError(t, db.First(&stored, "id = ?", request.ID).Error)
		assert.Equal(t, models.JoinRequestApproved, stored.Status)

		var memberCount int64
		require.NoError(t, db.Model(&models.TeamMember{}).Where("team_id = ?", team.ID).Count(&memberCount).Error)
		assert.EqualValues(t, 2, memberCount)
	})

	t.Run("second approval conflicts", func(t *testing.T) {
		_, err := mm.ApproveRequest(request.ID, team.ID, applicant.ID, owner.ID)
		assert.ErrorIs(t, err, ErrAlreadyResolved)
	})
}

func TestApproveRequestAtomicity(t *testing.T) {
	mm, db := newTestManager(t)
	owner := seedUser(t, db, "owner@example.com", "Anna")
	team := seedTeam(t, mm, owner.ID, 5)

	// A user without a profile can file a request, but approval must fail
	// without leaving any of its writes behind
	ghost := seedUser(t, db, "ghost@example.com", "")
	request, err := mm.RequestJoin(team.ID, ghost.ID)
	require.NoError(t, err)

	_, err = mm.ApproveRequest(request.ID, team.ID, ghost.ID, owner.ID)
	assert.ErrorIs(t, err, ErrProfileNotFound)

	var stored models.JoinRequest
	require.NoError(t, db.First(&stored, "id = ?", request.ID).Error)
	assert.Equal(t, models.JoinRequestPending, stored.Status)

	var fresh models.Team
	require.NoError(t, db.First(&fresh, "id = ?", team.ID).Error)
	assert.Equal(t, 1, fresh.CurrentMembers)

	var memberCount int64
	require.NoError(t, db.Model(&models.TeamMember{}).Where("team_id = ?", team.ID).Count(&memberCount).Error)
	assert.EqualValues(t, 1, memberCount)
}

func TestApproveRequestFullTeam(t *testing.T) {
	mm, db := newTestManager(t)
	owner := seedUser(t, db, "owner@example.com", "Anna")
	applicant := seedUser(t, db, "piotr@example.com", "Piotr")
	team := seedTeam(t, mm, owner.ID, 2)

	request, err := mm.RequestJoin(team.ID, applicant.ID)
	require.NoError(t, err)

	// Team fills up while the request sits in the queue
	other := seedUser(t, db, "other@example.com", "Kasia")
	require.NoError(t, db.Create(&models.TeamMember{TeamID: team.ID, UserID: other.ID, Role: models.RoleMember}).Error)
	require.NoError(t, db.Model(team).Update("current_members", 2).Error)

	_, err = mm.ApproveRequest(request.ID, team.ID, applicant.ID, owner.ID)
	assert.ErrorIs(t, err, ErrTeamFull)

	var stored models.JoinRequest
	require.NoError(t, db.First(&stored, "id = ?", request.ID).Error)
	assert.Equal(t, models.JoinRequestPending, stored.Status)
}

func TestRejectRequest(t *testing.T) {
	mm, db := newTestManager(t)
	owner := seedUser(t, db, "owner@example.com", "Anna")
	applicant := seedUser(t, db, "piotr@example.com", "Piotr")
	team := seedTeam(t, mm, owner.ID, 5)

	request, err := mm.RequestJoin(team.ID, applicant.ID)
	require.NoError(t, err)

	t.Run("only the owner can reject", func(t *testing.T) {
		err := mm.RejectRequest(request.ID, team.ID, applicant.ID)
		assert.ErrorIs(t, err, ErrNotOwner)
	})

	t.Run("rejection touches only the request", func(t *testing.T) {
		require.NoError(t, mm.RejectRequest(request.ID, team.ID, owner.ID))

		var stored models.JoinRequest
		require.NoError(t, db.First(&stored, "id = ?", request.ID).Error)
		assert.Equal(t, models.JoinRequestRejected, stored.Status)

		var fresh models.Team
		require.NoError(t, db.First(&fresh, "id = ?", team.ID).Error)
		assert.Equal(t, 1, fresh.CurrentMembers)

		var memberCount int64
		require.NoError(t, db.Model(&models.TeamMember{}).Where("team_id = ?", team.ID).Count(&memberCount).Error)
		assert.EqualValues(t, 1, memberCount)
	})

	t.Run("second rejection conflicts", func(t *testing.T) {
		err := mm.RejectRequest(request.ID, team.ID, owner.ID)
		assert.ErrorIs(t, err, ErrAlreadyResolved)
	})

	t.Run("rejected user can request again", func(t *testing.T) {
		_, err := mm.RequestJoin(team.ID, applicant.ID)
		assert.NoError(t, err)
	})
}

func TestDeleteTeam(t *testing.T) {
	mm, db := newTestManager(t)
	owner := seedUser(t, db, "owner@example.com", "Anna")
	applicant := seedUser(t, db, "piotr@example.com", "Piotr")
	team := seedTeam(t, mm, owner.ID, 5)

	request, err := mm.RequestJoin(team.ID, applicant.ID)
	require.NoError(t, err)
	_, err = mm.ApproveRequest(request.ID, team.ID, applicant.ID, owner.ID)
	require.NoError(t, err)

	t.Run("only the owner can delete", func(t *testing.T) {
		err := mm.DeleteTeam(team.ID, applicant.ID)
		assert.ErrorIs(t, err, ErrNotOwner)
	})

	t.Run("deletion cascades", func(t *testing.T) {
		require.NoError(t, mm.DeleteTeam(team.ID, owner.ID))

		for name, count := range map[string]int64{
			"teams":         tableCount(t, db, &models.Team{}, team.ID),
			"members":       tableCount(t, db, &models.TeamMember{}, team.ID),
			"join_requests": tableCount(t, db, &models.JoinRequest{}, team.ID),
			"chat_messages": tableCount(t, db, &models.ChatMessage{}, team.ID),
		} {
			assert.Zerof(t, count, "%s should be empty", name)
		}

		// Former members no longer list the team
		teams, err := mm.UserTeams(applicant.ID)
		require.NoError(t, err)
		assert.Empty(t, teams)
	})
}

func tableCount(t *testing.T, db *gorm.DB, model interface{}, teamID string) int64 {
	t.Helper()
	var count int64
	query := db.Model(model)
	if _, ok := model.(*models.Team); ok {
		query = query.Where("id = ?", teamID)
	} else {
		query = query.Where("team_id = ?", teamID)
	}
	require.NoError(t, query.Count(&count).Error)
	return count
}

func TestUserTeams(t *testing.T) {
	mm, db := newTestManager(t)
	owner := seedUser(t, db, "owner@example.com", "Anna")
	team := seedTeam(t, mm, owner.ID, 5)

	teams, err := mm.UserTeams(owner.ID)
	require.NoError(t, err)
	require.Len(t, teams, 1)
	assert.Equal(t, team.ID, teams[0].ID)

	// A membership row pointing at a vanished team is skipped, not fatal
	require.NoError(t, db.Create(&models.TeamMember{TeamID: "gone", UserID: owner.ID, Role: models.RoleMember}).Error)
	teams, err = mm.UserTeams(owner.ID)
	require.NoError(t, err)
	assert.Len(t, teams, 1)
}

func TestReconcileTeam(t *testing.T) {
	mm, db := newTestManager(t)
	owner := seedUser(t, db, "owner@example.com", "Anna")
	team := seedTeam(t, mm, owner.ID, 5)

	t.Run("no drift", func(t *testing.T) {
		count, repaired, err := mm.ReconcileTeam(team.ID)
		require.NoError(t, err)
		assert.False(t, repaired)
		assert.Equal(t, 1, count)
	})

	t.Run("drifted counter is repaired", func(t *testing.T) {
		require.NoError(t, db.Model(team).Update("current_members", 7).Error)

		count, repaired, err := mm.ReconcileTeam(team.ID)
		require.NoError(t, err)
		assert.True(t, repaired)
		assert.Equal(t, 1, count)

		var fresh models.Team
		require.NoError(t, db.First(&fresh, "id = ?", team.ID).Error)
		assert.Equal(t, 1, fresh.CurrentMembers)
	})

	t.Run("unknown team", func(t *testing.T) {
		_, _, err := mm.ReconcileTeam("no-such-team")
		assert.ErrorIs(t, err, ErrTeamNotFound)
	})
}
