package services

import (
	"testing"

	"phunction/models"
)

func entry(userID string, count, goal int) models.CounterGameData {
	return models.CounterGameData{UserID: userID, Count: count, Goal: goal}
}

func TestComputeLeaderboardOrdering(t *testing.T) {
	// A completed B despite a lower count than B would have needed; completed
	// entries always rank above incomplete ones.
	participants := map[string]models.CounterGameData{
		"a": entry("a", 10, 10),
		"b": entry("b", 9, 5),
		"c": entry("c", 3, 10),
	}
	attendees := []models.Attendee{
		{UID: "a", Username: "alice"},
		{UID: "b", Username: "bob"},
		{UID: "c", Username: "carol"},
	}

	board := ComputeLeaderboard(participants, attendees, "a")
	if len(board) != 3 {
		t.Fatalf("Expected 3 entries, got %d", len(board))
	}

	// a (10/10, completed) and b (9/5, completed) both completed; a wins on
	// count. c (3/10) trails.
	wantOrder := []string{"a", "b", "c"}
	for i, want := range wantOrder {
		if board[i].UserID != want {
			t.Errorf("Place %d: expected %s, got %s", i+1, want, board[i].UserID)
		}
		if board[i].Place != i+1 {
			t.Errorf("Expected place %d, got %d", i+1, board[i].Place)
		}
	}
	if !board[0].IsHost {
		t.Error("Expected a to be flagged as host")
	}
	if board[1].IsHost || board[2].IsHost {
		t.Error("Expected only the creator to be flagged as host")
	}
}

func TestComputeLeaderboardFiltersNonAttendees(t *testing.T) {
	// A stale participant entry for someone who already left is dropped.
	participants := map[string]models.CounterGameData{
		"a":    entry("a", 5, 10),
		"gone": entry("gone", 900, 1),
	}
	attendees := []models.Attendee{{UID: "a", Username: "alice"}}

	board := ComputeLeaderboard(participants, attendees, "a")
	if len(board) != 1 {
		t.Fatalf("Expected 1 entry, got %d", len(board))
	}
	if board[0].UserID != "a" || board[0].Place != 1 {
		t.Errorf("Unexpected entry: %+v", board[0])
	}
}

func TestComputeLeaderboardTiesAreStable(t *testing.T) {
	// Identical counts and goals keep attendee-list order, so repeated calls
	// give identical places.
	participants := map[string]models.CounterGameData{
		"x": entry("x", 4, 10),
		"y": entry("y", 4, 10),
		"z": entry("z", 4, 10),
	}
	attendees := []models.Attendee{
		{UID: "y", Username: "yana"},
		{UID: "x", Username: "xeno"},
		{UID: "z", Username: "zoe"},
	}

	first := ComputeLeaderboard(participants, attendees, "x")
	for i := 0; i < 10; i++ {
		again := ComputeLeaderboard(participants, attendees, "x")
		for j := range first {
			if first[j] != again[j] {
				t.Fatalf("Leaderboard not deterministic: %+v vs %+v", first[j], again[j])
			}
		}
	}
	wantOrder := []string{"y", "x", "z"}
	for i, want := range wantOrder {
		if first[i].UserID != want {
			t.Errorf("Place %d: expected %s, got %s", i+1, want, first[i].UserID)
		}
	}
}

func TestComputeLeaderboardEmpty(t *testing.T) {
	board := ComputeLeaderboard(nil, nil, "host")
	if len(board) != 0 {
		t.Errorf("Expected empty leaderboard, got %d entries", len(board))
	}
}
