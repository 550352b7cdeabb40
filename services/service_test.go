package services

import (
	"context"
	"testing"
	"time"

	"phunction/models"
	"phunction/store"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestServices wires both services onto a shared in-memory store, the way
// main wires them in production.
func newTestServices(t *testing.T) (*store.Store, *UserService, *EventService) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	st, err := store.New(db)
	if err != nil {
		t.Fatalf("Failed to initialize store: %v", err)
	}
	return st, NewUserService(st), NewEventService(st)
}

func createTestUser(t *testing.T, users *UserService, id, username string) *models.User {
	t.Helper()
	user, err := users.CreateUser(context.Background(), id, username, username+"@example.com")
	if err != nil {
		t.Fatalf("Failed to create user %s: %v", id, err)
	}
	return user
}

func createTestEvent(t *testing.T, events *EventService, creatorID string, mode models.GameMode) *models.Event {
	t.Helper()
	event, err := events.CreateEvent(context.Background(), creatorID, CreateEventParams{
		EventName:   "Test Event",
		Description: "a test",
		Date:        time.Now().Add(24 * time.Hour),
		Time:        "18:00",
		Location:    "The Park",
		GameMode:    mode,
	})
	if err != nil {
		t.Fatalf("Failed to create event: %v", err)
	}
	return event
}

func joinEvent(t *testing.T, users *UserService, events *EventService, eventID, userID string) {
	t.Helper()
	user, err := users.GetUser(context.Background(), userID)
	if err != nil {
		t.Fatalf("Failed to load user %s: %v", userID, err)
	}
	err = events.AddAttendee(context.Background(), eventID, models.Attendee{
		UID:            user.ID,
		Username:       user.Username,
		XP:             user.XP,
		ProfilePicture: user.ProfilePicture,
	})
	if err != nil {
		t.Fatalf("Failed to join event: %v", err)
	}
}
