package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"phunction/models"
	"phunction/store"
	"phunction/utils"

	"github.com/google/uuid"
)

// Counter values are clamped to this range on every write; callers are never
// told a clamp occurred.
const (
	CounterMin = 0
	CounterMax = 1000
)

// EventService manages events, their attendee sub-collections and the
// counter-game participant entries. It shares the document store with
// UserService; cross-aggregate writes (membership lists, XP bonuses) go
// through the store-level helpers in collections.go.
type EventService struct {
	Store *store.Store
}

func NewEventService(st *store.Store) *EventService {
	return &EventService{Store: st}
}

// CreateEventParams carries the user-editable event fields. Creator identity
// and the denormalized creator snapshot are filled in by CreateEvent.
type CreateEventParams struct {
	EventName   string
	Description string
	Date        time.Time
	Time        string
	Location    string
	MaxSpots    int
	GameMode    models.GameMode
	ImageURL    string
}

// CreateEvent writes the event document, snapshotting the creator's username
// and profile picture as they are right now (edits to the profile later do
// not refresh them), records the event in the creator's eventsCreated list
// and self-joins the creator as the first attendee, which also awards the
// join bonus.
func (s *EventService) CreateEvent(ctx context.Context, creatorID string, params CreateEventParams) (*models.Event, error) {
	userDoc, err := s.Store.Get(ctx, usersCollection, creatorID)
	if err != nil {
		if errors.Is(err, store.ErrDocNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrUserNotFound, creatorID)
		}
		return nil, err
	}
	creator := models.UserFromDoc(creatorID, userDoc)
	if creator.Username == "" {
		return nil, fmt.Errorf("%w: creator %s has no username", ErrUserNotFound, creatorID)
	}

	event := &models.Event{
		ID:                    uuid.NewString(),
		EventName:             params.EventName,
		Description:           params.Description,
		Date:                  params.Date,
		Time:                  params.Time,
		Location:              params.Location,
		MaxSpots:              params.MaxSpots,
		GameMode:              params.GameMode,
		ImageURL:              params.ImageURL,
		CreatedAt:             time.Now(),
		CreatedBy:             creatorID,
		CreatorUsername:       creator.Username,
		CreatorProfilePicture: creator.ProfilePicture,
	}
	if event.GameMode == "" {
		event.GameMode = models.GameModeNone
	}

	if err := s.Store.Set(ctx, eventsCollection, event.ID, event.Doc(), false); err != nil {
		return nil, err
	}

	if err := addEventMembership(ctx, s.Store, creatorID, event.ID, models.MembershipCreated); err != nil {
		return nil, err
	}

	// Creator is always the first attendee.
	err = s.AddAttendee(ctx, event.ID, models.Attendee{
		UID:            creatorID,
		Username:       creator.Username,
		XP:             creator.XP,
		ProfilePicture: creator.ProfilePicture,
	})
	if err != nil {
		return nil, err
	}

	return event, nil
}

func (s *EventService) GetEvent(ctx context.Context, eventID string) (*models.Event, error) {
	doc, err := s.Store.Get(ctx, eventsCollection, eventID)
	if err != nil {
		if errors.Is(err, store.ErrDocNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrEventNotFound, eventID)
		}
		return nil, err
	}
	return models.EventFromDoc(eventID, doc), nil
}

// GetUserEvents returns the events created by a user.
func (s *EventService) GetUserEvents(ctx context.Context, userID string) ([]*models.Event, error) {
	docs, err := s.Store.QueryEqual(ctx, eventsCollection, "createdBy", userID)
	if err != nil {
		return nil, err
	}
	events := make([]*models.Event, 0, len(docs))
	for _, doc := range docs {
		events = append(events, models.EventFromDoc(doc.ID, doc.Data))
	}
	return events, nil
}

// GetAttendedEvents resolves the user's eventsAttended list; ids of deleted
// events are skipped, not errors.
func (s *EventService) GetAttendedEvents(ctx context.Context, userID string) ([]*models.Event, error) {
	userDoc, err := s.Store.Get(ctx, usersCollection, userID)
	if err != nil {
		if errors.Is(err, store.ErrDocNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrUserNotFound, userID)
		}
		return nil, err
	}
	user := models.UserFromDoc(userID, userDoc)

	events := make([]*models.Event, 0, len(user.EventsAttended))
	for _, eventID := range user.EventsAttended {
		doc, err := s.Store.Get(ctx, eventsCollection, eventID)
		if errors.Is(err, store.ErrDocNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		events = append(events, models.EventFromDoc(eventID, doc))
	}
	return events, nil
}

// EventUpdate carries the creator-editable fields; nil means leave alone.
// createdBy/createdAt and the creator snapshot are not editable.
type EventUpdate struct {
	EventName   *string
	Description *string
	Date        *time.Time
	Time        *string
	Location    *string
	MaxSpots    *int
	GameMode    *models.GameMode
	ImageURL    *string
}

// UpdateEvent applies field edits. Only the creator may edit.
func (s *EventService) UpdateEvent(ctx context.Context, userID, eventID string, update EventUpdate) error {
	event, err := s.GetEvent(ctx, eventID)
	if err != nil {
		return err
	}
	if event.CreatedBy != userID {
		return fmt.Errorf("%w: only the creator can edit this event", ErrUnauthorized)
	}

	fields := map[string]interface{}{}
	if update.EventName != nil {
		fields["eventName"] = *update.EventName
	}
	if update.Description != nil {
		fields["description"] = *update.Description
	}
	if update.Date != nil {
		fields["date"] = update.Date.Format(time.RFC3339Nano)
	}
	if update.Time != nil {
		fields["time"] = *update.Time
	}
	if update.Location != nil {
		fields["location"] = *update.Location
	}
	if update.MaxSpots != nil {
		fields["maxSpots"] = *update.MaxSpots
	}
	if update.GameMode != nil {
		fields["gameMode"] = string(*update.GameMode)
	}
	if update.ImageURL != nil {
		fields["imageUrl"] = *update.ImageURL
	}
	if len(fields) == 0 {
		return nil
	}
	return s.Store.Update(ctx, eventsCollection, eventID, fields)
}

// DeleteEvent removes the event, its attendee sub-collection and, best
// effort, its uploaded image. Only the creator may delete. Deleting an
// already-deleted event is a no-op.
func (s *EventService) DeleteEvent(ctx context.Context, userID, eventID string) error {
	doc, err := s.Store.Get(ctx, eventsCollection, eventID)
	if errors.Is(err, store.ErrDocNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	event := models.EventFromDoc(eventID, doc)
	if event.CreatedBy != userID {
		return fmt.Errorf("%w: only the creator can delete this event", ErrUnauthorized)
	}

	if event.ImageURL != "" {
		// Best effort: a failed image delete must not block the deletion.
		if err := utils.DeleteFile(event.ImageURL); err != nil {
			log.Printf("⚠️ Failed to delete image for event %s: %v", eventID, err)
		}
	}

	if err := s.Store.DeleteCollection(ctx, attendeesCollection(eventID)); err != nil {
		return err
	}
	return s.Store.Delete(ctx, eventsCollection, eventID)
}

func (s *EventService) GetEventAttendees(ctx context.Context, eventID string) ([]models.Attendee, error) {
	docs, err := s.Store.List(ctx, attendeesCollection(eventID))
	if err != nil {
		return nil, err
	}
	attendees := make([]models.Attendee, 0, len(docs))
	for _, doc := range docs {
		attendees = append(attendees, *models.AttendeeFromDoc(doc.ID, doc.Data))
	}
	return attendees, nil
}

// AddAttendee joins a user to an event. Overwrite semantics: re-joining
// rewrites the attendee record with the caller-supplied cached XP. Side
// effects, in order: the event lands in the joiner's eventsAttended list, the
// joiner gets the join bonus, the creator gets the milestone bonus when the
// post-insert attendee count is exactly five (a count-then-act sequence —
// near-simultaneous joins can double- or zero-award it), and counter-mode
// events get a zeroed participant entry for the joiner.
func (s *EventService) AddAttendee(ctx context.Context, eventID string, attendee models.Attendee) error {
	eventDoc, err := s.Store.Get(ctx, eventsCollection, eventID)
	if err != nil {
		if errors.Is(err, store.ErrDocNotFound) {
			return fmt.Errorf("%w: %s", ErrEventNotFound, eventID)
		}
		return err
	}
	event := models.EventFromDoc(eventID, eventDoc)

	if err := s.Store.Set(ctx, attendeesCollection(eventID), attendee.UID, attendee.Doc(), false); err != nil {
		return err
	}

	if err := addEventMembership(ctx, s.Store, attendee.UID, eventID, models.MembershipAttended); err != nil {
		return err
	}

	if err := bumpUserXP(ctx, s.Store, attendee.UID, JoinXPBonus); err != nil {
		return err
	}

	count, err := s.Store.Count(ctx, attendeesCollection(eventID))
	if err != nil {
		return err
	}
	if count == MilestoneSize {
		if err := bumpUserXP(ctx, s.Store, event.CreatedBy, MilestoneXPBonus); err != nil {
			return err
		}
		log.Printf("🎉 Event %s reached %d attendees — creator %s awarded %d XP",
			eventID, MilestoneSize, event.CreatedBy, MilestoneXPBonus)
	}

	if event.GameMode == models.GameModeCounter {
		entry := models.CounterGameData{UserID: attendee.UID, Count: 0, Goal: 0}
		err := s.Store.Update(ctx, eventsCollection, eventID, map[string]interface{}{
			models.CounterFieldPath(attendee.UID): counterEntryDoc(entry),
		})
		if err != nil {
			return err
		}
	}

	return nil
}

// RemoveAttendee deletes the attendee record (no-op when absent) and prunes
// the user's counter entry on counter-mode events.
func (s *EventService) RemoveAttendee(ctx context.Context, eventID, userID string) error {
	if err := s.Store.Delete(ctx, attendeesCollection(eventID), userID); err != nil {
		return err
	}

	eventDoc, err := s.Store.Get(ctx, eventsCollection, eventID)
	if errors.Is(err, store.ErrDocNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	event := models.EventFromDoc(eventID, eventDoc)
	if event.GameMode != models.GameModeCounter {
		return nil
	}
	if _, ok := event.CounterParticipants[userID]; !ok {
		return nil
	}
	return s.Store.Update(ctx, eventsCollection, eventID, map[string]interface{}{
		models.CounterFieldPath(userID): store.DeleteField,
	})
}

// IsUserAttending is an existence check on the attendee record, nothing more.
func (s *EventService) IsUserAttending(ctx context.Context, eventID, userID string) (bool, error) {
	return s.Store.Exists(ctx, attendeesCollection(eventID), userID)
}

// UpdateAttendeeXP overwrites the cached XP on one attendee record. A user
// who is not attending is a silent no-op.
func (s *EventService) UpdateAttendeeXP(ctx context.Context, eventID, userID string, newXP int) error {
	return writeAttendeeXP(ctx, s.Store, eventID, userID, newXP)
}

// InitializeCounterGame lazily creates a participant entry. First write wins:
// an existing entry is never reset back to the initial arguments.
func (s *EventService) InitializeCounterGame(ctx context.Context, eventID, userID string, initialCount, goal int) error {
	event, err := s.counterEvent(ctx, eventID)
	if err != nil {
		return err
	}
	if _, ok := event.CounterParticipants[userID]; ok {
		return nil
	}
	entry := models.CounterGameData{UserID: userID, Count: initialCount, Goal: goal}
	return s.Store.Update(ctx, eventsCollection, eventID, map[string]interface{}{
		models.CounterFieldPath(userID): counterEntryDoc(entry),
	})
}

// UpdateCounterGameData persists a participant's count/goal pair, silently
// clamping both to [CounterMin, CounterMax].
func (s *EventService) UpdateCounterGameData(ctx context.Context, eventID, userID string, count, goal int) error {
	if _, err := s.counterEvent(ctx, eventID); err != nil {
		return err
	}
	entry := models.CounterGameData{
		UserID: userID,
		Count:  clampCounter(count),
		Goal:   clampCounter(goal),
	}
	return s.Store.Update(ctx, eventsCollection, eventID, map[string]interface{}{
		models.CounterFieldPath(userID): counterEntryDoc(entry),
	})
}

// GetCounterParticipants returns the raw participant map for a counter-mode
// event. The map may contain stale entries for users who already left;
// ComputeLeaderboard filters those against the live attendee list.
func (s *EventService) GetCounterParticipants(ctx context.Context, eventID string) (map[string]models.CounterGameData, error) {
	event, err := s.counterEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	return event.CounterParticipants, nil
}

func (s *EventService) counterEvent(ctx context.Context, eventID string) (*models.Event, error) {
	event, err := s.GetEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if event.GameMode != models.GameModeCounter {
		return nil, fmt.Errorf("%w: %s", ErrWrongGameMode, eventID)
	}
	return event, nil
}

func counterEntryDoc(entry models.CounterGameData) map[string]interface{} {
	return map[string]interface{}{
		"userId": entry.UserID,
		"count":  entry.Count,
		"goal":   entry.Goal,
	}
}

func clampCounter(v int) int {
	if v < CounterMin {
		return CounterMin
	}
	if v > CounterMax {
		return CounterMax
	}
	return v
}
