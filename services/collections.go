package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"phunction/models"
	"phunction/store"
)

const (
	usersCollection  = "users"
	eventsCollection = "events"
)

// attendeesCollection names an event's attendee sub-collection.
func attendeesCollection(eventID string) string {
	return fmt.Sprintf("events/%s/attendees", eventID)
}

// Shared store-level helpers. Both services mutate the same documents (a
// join touches the event, the attendee record and the user aggregate), so the
// cross-cutting writes live here instead of one service holding a reference
// to the other.

// addEventMembership appends eventID to the user's created/attended list.
// Idempotent: when the id is already present no write happens at all.
func addEventMembership(ctx context.Context, st *store.Store, userID, eventID string, kind models.MembershipKind) error {
	doc, err := st.Get(ctx, usersCollection, userID)
	if err != nil {
		if errors.Is(err, store.ErrDocNotFound) {
			return fmt.Errorf("%w: %s", ErrUserNotFound, userID)
		}
		return err
	}

	user := models.UserFromDoc(userID, doc)
	list := user.EventsAttended
	if kind == models.MembershipCreated {
		list = user.EventsCreated
	}
	for _, id := range list {
		if id == eventID {
			return nil
		}
	}

	return st.Update(ctx, usersCollection, userID, map[string]interface{}{
		kind.Field():  append(list, eventID),
		"lastUpdated": time.Now().Format(time.RFC3339Nano),
	})
}

// removeEventMembership drops eventID from the user's created/attended list.
// Removing an absent id still touches lastUpdated, matching the original
// behavior of an unconditional filter-and-write.
func removeEventMembership(ctx context.Context, st *store.Store, userID, eventID string, kind models.MembershipKind) error {
	doc, err := st.Get(ctx, usersCollection, userID)
	if err != nil {
		if errors.Is(err, store.ErrDocNotFound) {
			return fmt.Errorf("%w: %s", ErrUserNotFound, userID)
		}
		return err
	}

	user := models.UserFromDoc(userID, doc)
	list := user.EventsAttended
	if kind == models.MembershipCreated {
		list = user.EventsCreated
	}
	kept := make([]string, 0, len(list))
	for _, id := range list {
		if id != eventID {
			kept = append(kept, id)
		}
	}

	return st.Update(ctx, usersCollection, userID, map[string]interface{}{
		kind.Field():  kept,
		"lastUpdated": time.Now().Format(time.RFC3339Nano),
	})
}

// bumpUserXP adds delta to the user document's xp. No fan-out happens here:
// event-side caches catch up on the next UpdateUserXP or resync. A missing
// user is a silent no-op, mirroring the original award path.
func bumpUserXP(ctx context.Context, st *store.Store, userID string, delta int) error {
	doc, err := st.Get(ctx, usersCollection, userID)
	if errors.Is(err, store.ErrDocNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	user := models.UserFromDoc(userID, doc)
	return st.Update(ctx, usersCollection, userID, map[string]interface{}{
		"xp":          user.XP + delta,
		"lastUpdated": time.Now().Format(time.RFC3339Nano),
	})
}

// writeAttendeeXP overwrites the cached xp on one event's attendee record.
// Not being an attendee is a no-op, not an error.
func writeAttendeeXP(ctx context.Context, st *store.Store, eventID, userID string, newXP int) error {
	collection := attendeesCollection(eventID)
	exists, err := st.Exists(ctx, collection, userID)
	if err != nil {
		return err
	}
	if !exists {
		return nil
	}
	return st.Update(ctx, collection, userID, map[string]interface{}{"xp": newXP})
}
