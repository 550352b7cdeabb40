package services

import (
	"context"
	"errors"

	"phunction/models"
	"phunction/store"
)

// Realtime subscriptions. Each returns a snapshot channel and a cancel func;
// the channel closes once the subscription is cancelled or ctx ends. Callers
// must cancel every subscription they open (teardown rule: releasing the
// watch is what stops the store-side polling).

// SubscribeToEventAttendees delivers the attendee list whenever it or any
// attendee's user document changes. Each snapshot overlays the attendee's
// cached XP with the live value from the user document, falling back to the
// cache when the user document is gone.
func (s *EventService) SubscribeToEventAttendees(ctx context.Context, eventID string) (<-chan []models.Attendee, store.CancelFunc) {
	docs, cancel := s.Store.WatchFunc(ctx, func(ctx context.Context) ([]store.Doc, error) {
		rows, err := s.Store.List(ctx, attendeesCollection(eventID))
		if err != nil {
			return nil, err
		}
		for i, row := range rows {
			userDoc, err := s.Store.Get(ctx, usersCollection, row.ID)
			if errors.Is(err, store.ErrDocNotFound) {
				continue
			}
			if err != nil {
				return nil, err
			}
			user := models.UserFromDoc(row.ID, userDoc)
			rows[i].Data["xp"] = user.XP
			rows[i].Data["profilePicture"] = user.ProfilePicture
		}
		return rows, nil
	})

	out := make(chan []models.Attendee, 1)
	go func() {
		defer close(out)
		for snapshot := range docs {
			attendees := make([]models.Attendee, 0, len(snapshot))
			for _, doc := range snapshot {
				attendees = append(attendees, *models.AttendeeFromDoc(doc.ID, doc.Data))
			}
			deliverSnapshot(out, attendees)
		}
	}()
	return out, cancel
}

// SubscribeToUserEvents delivers the events created by a user.
func (s *EventService) SubscribeToUserEvents(ctx context.Context, userID string) (<-chan []*models.Event, store.CancelFunc) {
	docs, cancel := s.Store.WatchQuery(ctx, eventsCollection, "createdBy", userID)
	return eventsChannel(docs), cancel
}

// SubscribeToAttendedEvents tracks the user's eventsAttended list and
// delivers the resolved events, skipping ids of deleted events.
func (s *EventService) SubscribeToAttendedEvents(ctx context.Context, userID string) (<-chan []*models.Event, store.CancelFunc) {
	docs, cancel := s.Store.WatchFunc(ctx, func(ctx context.Context) ([]store.Doc, error) {
		userDoc, err := s.Store.Get(ctx, usersCollection, userID)
		if errors.Is(err, store.ErrDocNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		user := models.UserFromDoc(userID, userDoc)

		rows := make([]store.Doc, 0, len(user.EventsAttended))
		for _, eventID := range user.EventsAttended {
			data, err := s.Store.Get(ctx, eventsCollection, eventID)
			if errors.Is(err, store.ErrDocNotFound) {
				continue
			}
			if err != nil {
				return nil, err
			}
			rows = append(rows, store.Doc{ID: eventID, Data: data})
		}
		return rows, nil
	})
	return eventsChannel(docs), cancel
}

// SubscribeToCounterGameData delivers the counter participant map whenever
// the event document changes. A deleted event or a non-counter game mode is
// delivered as nil.
func (s *EventService) SubscribeToCounterGameData(ctx context.Context, eventID string) (<-chan map[string]models.CounterGameData, store.CancelFunc) {
	docs, cancel := s.Store.WatchDoc(ctx, eventsCollection, eventID)

	out := make(chan map[string]models.CounterGameData, 1)
	go func() {
		defer close(out)
		for doc := range docs {
			var participants map[string]models.CounterGameData
			if doc != nil {
				event := models.EventFromDoc(doc.ID, doc.Data)
				if event.GameMode == models.GameModeCounter {
					participants = event.CounterParticipants
					if participants == nil {
						participants = map[string]models.CounterGameData{}
					}
				}
			}
			deliverSnapshot(out, participants)
		}
	}()
	return out, cancel
}

func eventsChannel(docs <-chan []store.Doc) <-chan []*models.Event {
	out := make(chan []*models.Event, 1)
	go func() {
		defer close(out)
		for snapshot := range docs {
			events := make([]*models.Event, 0, len(snapshot))
			for _, doc := range snapshot {
				events = append(events, models.EventFromDoc(doc.ID, doc.Data))
			}
			deliverSnapshot(out, events)
		}
	}()
	return out
}

// deliverSnapshot drops an unread snapshot rather than blocking the watcher;
// consumers always see the latest state.
func deliverSnapshot[T any](ch chan T, snapshot T) {
	for {
		select {
		case ch <- snapshot:
			return
		default:
			select {
			case <-ch:
			default:
			}
		}
	}
}
