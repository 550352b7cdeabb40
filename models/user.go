package models

import "time"

// User is the aggregate owning a user's XP total and event membership lists.
// Stored in the "users" collection, keyed by the auth service's user id.
type User struct {
	ID             string    `json:"id"`
	Username       string    `json:"username"`
	Email          string    `json:"email"`
	XP             int       `json:"xp"`
	EventsAttended []string  `json:"eventsAttended"`
	EventsCreated  []string  `json:"eventsCreated"`
	CreatedAt      time.Time `json:"createdAt"`
	LastUpdated    time.Time `json:"lastUpdated"`

	ProfilePicture string    `json:"profilePicture,omitempty"`
	Bio            string    `json:"bio,omitempty"`
	Location       *Location `json:"location,omitempty"`
}

type Location struct {
	City    string `json:"city"`
	Country string `json:"country"`
}

// MembershipKind selects which of the two membership lists an operation
// touches.
type MembershipKind string

const (
	MembershipCreated  MembershipKind = "created"
	MembershipAttended MembershipKind = "attended"
)

func (k MembershipKind) Field() string {
	if k == MembershipCreated {
		return "eventsCreated"
	}
	return "eventsAttended"
}

// Doc flattens the user into its persisted document shape.
func (u *User) Doc() map[string]interface{} {
	doc := map[string]interface{}{
		"username":       u.Username,
		"email":          u.Email,
		"xp":             u.XP,
		"eventsAttended": u.EventsAttended,
		"eventsCreated":  u.EventsCreated,
		"createdAt":      u.CreatedAt.Format(time.RFC3339Nano),
		"lastUpdated":    u.LastUpdated.Format(time.RFC3339Nano),
	}
	if u.ProfilePicture != "" {
		doc["profilePicture"] = u.ProfilePicture
	}
	if u.Bio != "" {
		doc["bio"] = u.Bio
	}
	if u.Location != nil {
		doc["location"] = map[string]interface{}{
			"city":    u.Location.City,
			"country": u.Location.Country,
		}
	}
	return doc
}

func UserFromDoc(id string, doc map[string]interface{}) *User {
	u := &User{
		ID:             id,
		Username:       docString(doc, "username"),
		Email:          docString(doc, "email"),
		XP:             docInt(doc, "xp"),
		EventsAttended: docStringSlice(doc, "eventsAttended"),
		EventsCreated:  docStringSlice(doc, "eventsCreated"),
		CreatedAt:      docTime(doc, "createdAt"),
		LastUpdated:    docTime(doc, "lastUpdated"),
		ProfilePicture: docString(doc, "profilePicture"),
		Bio:            docString(doc, "bio"),
	}
	if loc := docMap(doc, "location"); loc != nil {
		u.Location = &Location{
			City:    docString(loc, "city"),
			Country: docString(loc, "country"),
		}
	}
	return u
}
