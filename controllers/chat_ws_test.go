package controller

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"teamfinder/models"
)

func newHubTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Profile{},
		&models.Team{},
		&models.TeamMember{},
		&models.ChatMessage{},
	))
	return db
}

func newTestHub(t *testing.T) (*Hub, *gorm.DB) {
	t.Helper()
	db := newHubTestDB(t)
	return NewHub(db, nil, log.New(io.Discard, "", 0)), db
}

func seedMessages(t *testing.T, db *gorm.DB, teamID string, n int) {
	t.Helper()
	base := time.Now().Add(-time.Hour)
	for i := 0; i < n; i++ {
		msg := models.ChatMessage{
			TeamID:    teamID,
			UserID:    "u1",
			UserName:  "Anna",
			Message:   fmt.Sprintf("message %d", i),
			Timestamp: base.Add(time.Duration(i) * time.Second),
			Type:      models.MessageTypeText,
		}
		require.NoError(t, db.Create(&msg).Error)
	}
}

func TestLoadChatSnapshot(t *testing.T) {
	db := newHubTestDB(t)

	t.Run("ascending order", func(t *testing.T) {
		seedMessages(t, db, "t1", 5)
		messages, err := loadChatSnapshot(db, "t1")
		require.NoError(t, err)
		require.Len(t, messages, 5)
		for i := 1; i < len(messages); i++ {
			assert.True(t, messages[i-1].Timestamp.Before(messages[i].Timestamp))
		}
		assert.Equal(t, "message 0", messages[0].Message)
		assert.Equal(t, "message 4", messages[4].Message)
	})

	t.Run("caps at the most recent 100", func(t *testing.T) {
		seedMessages(t, db, "t2", 120)
		messages, err := loadChatSnapshot(db, "t2")
		require.NoError(t, err)
		require.Len(t, messages, 100)
		// The oldest 20 fell off the window
		assert.Equal(t, "message 20", messages[0].Message)
		assert.Equal(t, "message 119", messages[99].Message)
	})

	t.Run("empty room", func(t *testing.T) {
		messages, err := loadChatSnapshot(db, "empty")
		require.NoError(t, err)
		assert.Empty(t, messages)
	})
}

func TestHubRooms(t *testing.T) {
	hub, _ := newTestHub(t)

	a := &wsClient{send: make(chan []byte, 1)}
	b := &wsClient{send: make(chan []byte, 1)}

	hub.joinRoom("t1", a)
	hub.joinRoom("t1", b)
	assert.Equal(t, 2, hub.RoomSize("t1"))
	assert.Equal(t, 0, hub.RoomSize("t2"))

	hub.leaveRoom("t1", a)
	assert.Equal(t, 1, hub.RoomSize("t1"))

	// Leaving twice is harmless
	hub.leaveRoom("t1", a)
	hub.leaveRoom("t1", b)
	assert.Equal(t, 0, hub.RoomSize("t1"))
}

func TestHubBroadcastChat(t *testing.T) {
	hub, db := newTestHub(t)
	seedMessages(t, db, "t1", 3)

	subscriber := &wsClient{send: make(chan []byte, 4)}
	outsider := &wsClient{send: make(chan []byte, 4)}
	hub.joinRoom("t1", subscriber)
	hub.joinRoom("t2", outsider)

	hub.NotifyChat("t1")

	select {
	case payload := <-subscriber.send:
		var envelope chatEnvelope
		require.NoError(t, json.Unmarshal(payload, &envelope))
		assert.Equal(t, "messages", envelope.Type)
		require.Len(t, envelope.Messages, 3)
		assert.Equal(t, "message 0", envelope.Messages[0].Message)
	default:
		t.Fatal("subscriber received no snapshot")
	}

	assert.Empty(t, outsider.send, "other rooms must not receive the snapshot")
}

func TestHubBroadcastTeams(t *testing.T) {
	hub, db := newTestHub(t)
	team := models.Team{Name: "The Dragons", MaxMembers: 5, CurrentMembers: 1, OwnerID: "u1"}
	require.NoError(t, db.Create(&team).Error)
	require.NoError(t, db.Create(&models.TeamMember{TeamID: team.ID, UserID: "u1", Role: models.RoleOwner}).Error)

	watcher := &wsClient{send: make(chan []byte, 4)}
	hub.watchTeams(watcher)

	hub.NotifyTeams()

	select {
	case payload := <-watcher.send:
		var envelope teamListEnvelope
		require.NoError(t, json.Unmarshal(payload, &envelope))
		assert.Equal(t, "teams", envelope.Type)
		require.Len(t, envelope.Teams, 1)
		assert.Equal(t, models.RoleOwner, envelope.Teams[0].MemberRoles["u1"])
	default:
		t.Fatal("watcher received no snapshot")
	}
}

func TestHubSendChatSnapshotTargetsOneClient(t *testing.T) {
	hub, db := newTestHub(t)
	seedMessages(t, db, "t1", 2)

	veteran := &wsClient{send: make(chan []byte, 4)}
	newcomer := &wsClient{send: make(chan []byte, 4)}
	hub.joinRoom("t1", veteran)
	hub.joinRoom("t1", newcomer)

	hub.sendChatSnapshot(newcomer, "t1")

	select {
	case payload := <-newcomer.send:
		var envelope chatEnvelope
		require.NoError(t, json.Unmarshal(payload, &envelope))
		assert.Len(t, envelope.Messages, 2)
	default:
		t.Fatal("newcomer received no snapshot")
	}

	// Joining must not re-push the room to everyone already in it
	assert.Empty(t, veteran.send)
}

func TestHubSendTeamsSnapshotTargetsOneClient(t *testing.T) {
	hub, db := newTestHub(t)
	team := models.Team{Name: "The Dragons", MaxMembers: 5, CurrentMembers: 1, OwnerID: "u1"}
	require.NoError(t, db.Create(&team).Error)

	veteran := &wsClient{send: make(chan []byte, 4)}
	newcomer := &wsClient{send: make(chan []byte, 4)}
	hub.watchTeams(veteran)
	hub.watchTeams(newcomer)

	hub.sendTeamsSnapshot(newcomer)

	select {
	case payload := <-newcomer.send:
		var envelope teamListEnvelope
		require.NoError(t, json.Unmarshal(payload, &envelope))
		assert.Len(t, envelope.Teams, 1)
	default:
		t.Fatal("newcomer received no snapshot")
	}
	assert.Empty(t, veteran.send)
}

func TestHubSlowConsumerDropsSnapshot(t *testing.T) {
	hub, db := newTestHub(t)
	seedMessages(t, db, "t1", 1)

	// Buffer of one that is already full: the broadcast must not block
	stuck := &wsClient{send: make(chan []byte, 1)}
	stuck.send <- []byte("old")
	hub.joinRoom("t1", stuck)

	done := make(chan struct{})
	go func() {
		hub.broadcastChat("t1")
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("broadcast blocked on a slow consumer")
	}
	assert.Len(t, stuck.send, 1)
}
