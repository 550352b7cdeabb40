package services

import (
	"context"
	"testing"
	"time"

	"phunction/models"
)

const subscribeTimeout = 5 * time.Second

func TestSubscribeToEventAttendeesOverlaysLiveXP(t *testing.T) {
	st, users, events := newTestServices(t)
	ctx := context.Background()

	createTestUser(t, users, "host", "hana")
	event := createTestEvent(t, events, "host", models.GameModeNone)

	ch, cancel := events.SubscribeToEventAttendees(ctx, event.ID)
	defer cancel()

	var snapshot []models.Attendee
	select {
	case snapshot = <-ch:
	case <-time.After(subscribeTimeout):
		t.Fatal("Timed out waiting for initial snapshot")
	}
	if len(snapshot) != 1 || snapshot[0].UID != "host" {
		t.Fatalf("Unexpected initial snapshot: %v", snapshot)
	}
	// The overlay reads the live user document, so the snapshot shows the
	// post-join total even though the cached record may lag.
	if snapshot[0].XP != JoinXPBonus {
		t.Errorf("Expected live XP %d, got %d", JoinXPBonus, snapshot[0].XP)
	}

	// Bump XP on the user document only; the subscription must still pick
	// it up without any attendee-record write.
	if err := st.Update(ctx, "users", "host", map[string]interface{}{"xp": 999}); err != nil {
		t.Fatalf("Failed to bump user XP: %v", err)
	}

	deadline := time.After(subscribeTimeout)
	for {
		select {
		case snapshot = <-ch:
			if len(snapshot) == 1 && snapshot[0].XP == 999 {
				return
			}
		case <-deadline:
			t.Fatalf("Never observed live XP overlay, last snapshot: %v", snapshot)
		}
	}
}

func TestSubscribeToCounterGameData(t *testing.T) {
	_, users, events := newTestServices(t)
	ctx := context.Background()

	createTestUser(t, users, "host", "hana")
	event := createTestEvent(t, events, "host", models.GameModeCounter)

	ch, cancel := events.SubscribeToCounterGameData(ctx, event.ID)
	defer cancel()

	var participants map[string]models.CounterGameData
	select {
	case participants = <-ch:
	case <-time.After(subscribeTimeout):
		t.Fatal("Timed out waiting for initial snapshot")
	}
	if _, ok := participants["host"]; !ok {
		t.Fatalf("Expected host entry in initial snapshot, got %v", participants)
	}

	if err := events.UpdateCounterGameData(ctx, event.ID, "host", 7, 10); err != nil {
		t.Fatalf("UpdateCounterGameData failed: %v", err)
	}

	deadline := time.After(subscribeTimeout)
	for {
		select {
		case participants = <-ch:
			if entry := participants["host"]; entry.Count == 7 && entry.Goal == 10 {
				return
			}
		case <-deadline:
			t.Fatalf("Never observed counter update, last snapshot: %v", participants)
		}
	}
}

func TestSubscribeToCounterGameDataNonCounterDeliversNil(t *testing.T) {
	_, users, events := newTestServices(t)
	ctx := context.Background()

	createTestUser(t, users, "host", "hana")
	event := createTestEvent(t, events, "host", models.GameModeNone)

	ch, cancel := events.SubscribeToCounterGameData(ctx, event.ID)
	defer cancel()

	select {
	case participants := <-ch:
		if participants != nil {
			t.Errorf("Expected nil for non-counter event, got %v", participants)
		}
	case <-time.After(subscribeTimeout):
		t.Fatal("Timed out waiting for snapshot")
	}
}
