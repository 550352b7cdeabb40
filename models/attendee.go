package models

// Attendee proves a user is participating in a specific event. The document's
// existence under events/{id}/attendees is the sole source of truth for
// attendance; xp is a cached copy of the user's total at last sync.
type Attendee struct {
	UID            string `json:"uid"`
	Username       string `json:"username"`
	XP             int    `json:"xp"`
	ProfilePicture string `json:"profilePicture,omitempty"`
}

func (a *Attendee) Doc() map[string]interface{} {
	return map[string]interface{}{
		"username":       a.Username,
		"xp":             a.XP,
		"profilePicture": a.ProfilePicture,
	}
}

func AttendeeFromDoc(uid string, doc map[string]interface{}) *Attendee {
	return &Attendee{
		UID:            uid,
		Username:       docString(doc, "username"),
		XP:             docInt(doc, "xp"),
		ProfilePicture: docString(doc, "profilePicture"),
	}
}
