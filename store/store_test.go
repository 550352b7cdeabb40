package store

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestStore creates a store backed by an in-memory SQLite database.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	st, err := New(db)
	if err != nil {
		t.Fatalf("Failed to initialize store: %v", err)
	}
	return st
}

func TestSetAndGet(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	err := st.Set(ctx, "users", "u1", map[string]interface{}{
		"username": "alice",
		"xp":       150,
	}, false)
	if err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	doc, err := st.Get(ctx, "users", "u1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if doc["username"] != "alice" {
		t.Errorf("Expected username alice, got %v", doc["username"])
	}
	// JSON numbers decode as float64.
	if doc["xp"] != float64(150) {
		t.Errorf("Expected xp 150, got %v", doc["xp"])
	}
}

func TestGetMissingDoc(t *testing.T) {
	st := newTestStore(t)

	_, err := st.Get(context.Background(), "users", "nope")
	if err != ErrDocNotFound {
		t.Errorf("Expected ErrDocNotFound, got %v", err)
	}
}

func TestSetOverwrite(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	if err := st.Set(ctx, "users", "u1", map[string]interface{}{"a": 1, "b": 2}, false); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := st.Set(ctx, "users", "u1", map[string]interface{}{"a": 9}, false); err != nil {
		t.Fatalf("Overwrite failed: %v", err)
	}

	doc, err := st.Get(ctx, "users", "u1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if doc["a"] != float64(9) {
		t.Errorf("Expected a=9, got %v", doc["a"])
	}
	if _, ok := doc["b"]; ok {
		t.Errorf("Expected b to be gone after overwrite, got %v", doc["b"])
	}
}

func TestSetMerge(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	err := st.Set(ctx, "events", "e1", map[string]interface{}{
		"eventName": "Game Night",
		"gameData": map[string]interface{}{
			"counter": map[string]interface{}{
				"participants": map[string]interface{}{
					"u1": map[string]interface{}{"count": 3},
				},
			},
		},
		"tags": []interface{}{"board", "casual"},
	}, false)
	if err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	// Merge adds a sibling participant without clobbering the existing one,
	// while the array is replaced wholesale.
	err = st.Set(ctx, "events", "e1", map[string]interface{}{
		"gameData": map[string]interface{}{
			"counter": map[string]interface{}{
				"participants": map[string]interface{}{
					"u2": map[string]interface{}{"count": 7},
				},
			},
		},
		"tags": []interface{}{"party"},
	}, true)
	if err != nil {
		t.Fatalf("Merge set failed: %v", err)
	}

	doc, err := st.Get(ctx, "events", "e1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if doc["eventName"] != "Game Night" {
		t.Errorf("Merge dropped untouched field: %v", doc["eventName"])
	}
	participants := doc["gameData"].(map[string]interface{})["counter"].(map[string]interface{})["participants"].(map[string]interface{})
	if len(participants) != 2 {
		t.Fatalf("Expected 2 participants after merge, got %d", len(participants))
	}
	tags := doc["tags"].([]interface{})
	if len(tags) != 1 || tags[0] != "party" {
		t.Errorf("Expected array replacement, got %v", tags)
	}
}

func TestUpdateDottedPath(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	if err := st.Set(ctx, "events", "e1", map[string]interface{}{"eventName": "BBQ"}, false); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	// Intermediate maps are created on demand.
	err := st.Update(ctx, "events", "e1", map[string]interface{}{
		"gameData.counter.participants.u1": map[string]interface{}{"count": 5, "goal": 10},
	})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	doc, err := st.Get(ctx, "events", "e1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	entry := doc["gameData"].(map[string]interface{})["counter"].(map[string]interface{})["participants"].(map[string]interface{})["u1"].(map[string]interface{})
	if entry["count"] != float64(5) || entry["goal"] != float64(10) {
		t.Errorf("Unexpected counter entry: %v", entry)
	}
}

func TestUpdateDeleteField(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	err := st.Set(ctx, "events", "e1", map[string]interface{}{
		"gameData": map[string]interface{}{
			"counter": map[string]interface{}{
				"participants": map[string]interface{}{
					"u1": map[string]interface{}{"count": 1},
					"u2": map[string]interface{}{"count": 2},
				},
			},
		},
	}, false)
	if err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	err = st.Update(ctx, "events", "e1", map[string]interface{}{
		"gameData.counter.participants.u1": DeleteField,
	})
	if err != nil {
		t.Fatalf("Delete field failed: %v", err)
	}

	doc, err := st.Get(ctx, "events", "e1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	participants := doc["gameData"].(map[string]interface{})["counter"].(map[string]interface{})["participants"].(map[string]interface{})
	if _, ok := participants["u1"]; ok {
		t.Error("Expected u1 entry to be removed")
	}
	if _, ok := participants["u2"]; !ok {
		t.Error("Expected u2 entry to survive")
	}

	// Deleting under a missing branch is a no-op, not an error.
	err = st.Update(ctx, "events", "e1", map[string]interface{}{
		"gameData.matchmaking.pairs.u9": DeleteField,
	})
	if err != nil {
		t.Fatalf("Delete under missing branch failed: %v", err)
	}
}

func TestConcurrentUpdatesKeepDisjointFields(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	// One connection keeps the in-memory database shared across goroutines
	// and queues writers the way the row lock does on Postgres.
	sqlDB, err := st.DB.DB()
	if err != nil {
		t.Fatalf("Failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	err = st.Set(ctx, "users", "u1", map[string]interface{}{
		"xp":             0,
		"eventsAttended": []interface{}{},
	}, false)
	if err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	const rounds = 25
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 1; i <= rounds; i++ {
			if err := st.Update(ctx, "users", "u1", map[string]interface{}{"xp": i * 50}); err != nil {
				t.Errorf("xp update failed: %v", err)
				return
			}
		}
	}()
	go func() {
		defer wg.Done()
		events := make([]interface{}, 0, rounds)
		for i := 1; i <= rounds; i++ {
			events = append(events, fmt.Sprintf("e%d", i))
			if err := st.Update(ctx, "users", "u1", map[string]interface{}{"eventsAttended": events}); err != nil {
				t.Errorf("membership update failed: %v", err)
				return
			}
		}
	}()
	wg.Wait()

	// A lost update would leave one field at a stale intermediate value.
	doc, err := st.Get(ctx, "users", "u1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if doc["xp"] != float64(rounds*50) {
		t.Errorf("Expected final xp %d, got %v", rounds*50, doc["xp"])
	}
	attended, _ := doc["eventsAttended"].([]interface{})
	if len(attended) != rounds {
		t.Errorf("Expected %d membership entries, got %d", rounds, len(attended))
	}
}

func TestUpdateMissingDoc(t *testing.T) {
	st := newTestStore(t)

	err := st.Update(context.Background(), "users", "ghost", map[string]interface{}{"xp": 1})
	if err != ErrDocNotFound {
		t.Errorf("Expected ErrDocNotFound, got %v", err)
	}
}

func TestQueryEqual(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	for id, creator := range map[string]string{"e1": "u1", "e2": "u2", "e3": "u1"} {
		if err := st.Set(ctx, "events", id, map[string]interface{}{"createdBy": creator}, false); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
	}

	docs, err := st.QueryEqual(ctx, "events", "createdBy", "u1")
	if err != nil {
		t.Fatalf("QueryEqual failed: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("Expected 2 docs, got %d", len(docs))
	}
	if docs[0].ID != "e1" || docs[1].ID != "e3" {
		t.Errorf("Expected e1,e3 in order, got %s,%s", docs[0].ID, docs[1].ID)
	}
}

func TestDeleteAndExists(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	if err := st.Set(ctx, "users", "u1", map[string]interface{}{"a": 1}, false); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	exists, err := st.Exists(ctx, "users", "u1")
	if err != nil || !exists {
		t.Fatalf("Expected document to exist: exists=%v err=%v", exists, err)
	}

	if err := st.Delete(ctx, "users", "u1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	exists, err = st.Exists(ctx, "users", "u1")
	if err != nil || exists {
		t.Fatalf("Expected document to be gone: exists=%v err=%v", exists, err)
	}

	// Deleting again is fine.
	if err := st.Delete(ctx, "users", "u1"); err != nil {
		t.Errorf("Repeated delete failed: %v", err)
	}
}

func TestDeleteCollection(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		if err := st.Set(ctx, "events/e1/attendees", id, map[string]interface{}{"username": id}, false); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
	}
	if err := st.Set(ctx, "events/e2/attendees", "z", map[string]interface{}{"username": "z"}, false); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	if err := st.DeleteCollection(ctx, "events/e1/attendees"); err != nil {
		t.Fatalf("DeleteCollection failed: %v", err)
	}

	count, err := st.Count(ctx, "events/e1/attendees")
	if err != nil || count != 0 {
		t.Errorf("Expected empty collection: count=%d err=%v", count, err)
	}
	count, err = st.Count(ctx, "events/e2/attendees")
	if err != nil || count != 1 {
		t.Errorf("Expected sibling collection untouched: count=%d err=%v", count, err)
	}
}

func TestUpdatedSince(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	if err := st.Set(ctx, "users", "old", map[string]interface{}{"xp": 1}, false); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	cursor := time.Now()
	time.Sleep(5 * time.Millisecond)
	if err := st.Set(ctx, "users", "new", map[string]interface{}{"xp": 2}, false); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	docs, err := st.UpdatedSince(ctx, "users", cursor)
	if err != nil {
		t.Fatalf("UpdatedSince failed: %v", err)
	}
	if len(docs) != 1 || docs[0].ID != "new" {
		t.Fatalf("Expected only the newer doc, got %v", docs)
	}

	// The zero cursor means full sweep.
	docs, err = st.UpdatedSince(ctx, "users", time.Time{})
	if err != nil {
		t.Fatalf("UpdatedSince failed: %v", err)
	}
	if len(docs) != 2 {
		t.Errorf("Expected full sweep of 2 docs, got %d", len(docs))
	}
}

func TestLastUpdatedAt(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	last, err := st.LastUpdatedAt(ctx, "users")
	if err != nil {
		t.Fatalf("LastUpdatedAt failed: %v", err)
	}
	if !last.IsZero() {
		t.Errorf("Expected zero time for empty collection, got %v", last)
	}

	if err := st.Set(ctx, "users", "u1", map[string]interface{}{"xp": 1}, false); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	last, err = st.LastUpdatedAt(ctx, "users")
	if err != nil {
		t.Fatalf("LastUpdatedAt failed: %v", err)
	}
	if last.IsZero() {
		t.Error("Expected non-zero time after a write")
	}
}
