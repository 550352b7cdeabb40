package models

import (
	"fmt"
	"time"
)

type GameMode string

const (
	GameModeCounter     GameMode = "counter"
	GameModeMatchmaking GameMode = "matchmaking"
	GameModeNone        GameMode = "none"
)

// Event is a planned event. Attendees live in the
// "events/{id}/attendees" sub-collection, not on the document itself.
// creatorUsername and creatorProfilePicture are snapshots taken at creation
// time and are never refreshed afterwards.
type Event struct {
	ID          string    `json:"id"`
	EventName   string    `json:"eventName"`
	Description string    `json:"description"`
	Date        time.Time `json:"date"`
	Time        string    `json:"time"` // "HH:mm"
	Location    string    `json:"location"`
	MaxSpots    int       `json:"maxSpots,omitempty"`
	GameMode    GameMode  `json:"gameMode"`
	ImageURL    string    `json:"imageUrl,omitempty"`

	CreatedAt             time.Time `json:"createdAt"`
	CreatedBy             string    `json:"createdBy"`
	CreatorUsername       string    `json:"creatorUsername"`
	CreatorProfilePicture string    `json:"creatorProfilePicture,omitempty"`

	// Counter game entries keyed by user id, present only for counter-mode
	// events and populated lazily as attendees join.
	CounterParticipants map[string]CounterGameData `json:"-"`
}

// CounterGameData is one attendee's personal count/goal pair for a
// counter-mode event. Both values are clamped to [0, 1000] on write.
type CounterGameData struct {
	UserID string `json:"userId"`
	Count  int    `json:"count"`
	Goal   int    `json:"goal"`
}

// CounterFieldPath is the dotted document path of one participant's counter
// entry, used for field-level updates and deletes.
func CounterFieldPath(userID string) string {
	return fmt.Sprintf("gameData.counter.participants.%s", userID)
}

func (e *Event) Doc() map[string]interface{} {
	doc := map[string]interface{}{
		"eventName":       e.EventName,
		"description":     e.Description,
		"date":            e.Date.Format(time.RFC3339Nano),
		"time":            e.Time,
		"location":        e.Location,
		"gameMode":        string(e.GameMode),
		"createdAt":       e.CreatedAt.Format(time.RFC3339Nano),
		"createdBy":       e.CreatedBy,
		"creatorUsername": e.CreatorUsername,
	}
	if e.MaxSpots > 0 {
		doc["maxSpots"] = e.MaxSpots
	}
	if e.ImageURL != "" {
		doc["imageUrl"] = e.ImageURL
	}
	if e.CreatorProfilePicture != "" {
		doc["creatorProfilePicture"] = e.CreatorProfilePicture
	}
	return doc
}

func EventFromDoc(id string, doc map[string]interface{}) *Event {
	e := &Event{
		ID:                    id,
		EventName:             docString(doc, "eventName"),
		Description:           docString(doc, "description"),
		Date:                  docTime(doc, "date"),
		Time:                  docString(doc, "time"),
		Location:              docString(doc, "location"),
		MaxSpots:              docInt(doc, "maxSpots"),
		GameMode:              GameMode(docString(doc, "gameMode")),
		ImageURL:              docString(doc, "imageUrl"),
		CreatedAt:             docTime(doc, "createdAt"),
		CreatedBy:             docString(doc, "createdBy"),
		CreatorUsername:       docString(doc, "creatorUsername"),
		CreatorProfilePicture: docString(doc, "creatorProfilePicture"),
	}
	e.CounterParticipants = CounterParticipantsFromDoc(doc)
	return e
}

// CounterParticipantsFromDoc digs gameData.counter.participants out of an
// event document. Returns nil when the event has no counter data.
func CounterParticipantsFromDoc(doc map[string]interface{}) map[string]CounterGameData {
	gameData := docMap(doc, "gameData")
	if gameData == nil {
		return nil
	}
	counter := docMap(gameData, "counter")
	if counter == nil {
		return nil
	}
	raw := docMap(counter, "participants")
	if raw == nil {
		return nil
	}
	participants := make(map[string]CounterGameData, len(raw))
	for userID, entry := range raw {
		m, ok := entry.(map[string]interface{})
		if !ok {
			continue
		}
		participants[userID] = CounterGameData{
			UserID: docString(m, "userId"),
			Count:  docInt(m, "count"),
			Goal:   docInt(m, "goal"),
		}
	}
	return participants
}
