package models

// LeaderboardEntry is one ranked row of a counter-game leaderboard. It is
// derived on demand from the counter participants and the current attendee
// list, never persisted.
type LeaderboardEntry struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	Count    int    `json:"count"`
	Goal     int    `json:"goal"`
	Place    int    `json:"place"`
	IsHost   bool   `json:"isHost"`
}

// Completed reports whether the entry has reached its goal. Completed entries
// rank strictly above incomplete ones.
func (e LeaderboardEntry) Completed() bool {
	return e.Count >= e.Goal
}
