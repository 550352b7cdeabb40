package services

import (
	"sort"

	"phunction/models"
)

// ComputeLeaderboard builds the counter-game leaderboard from a participant
// map and the event's current attendee list. Pure: same inputs always yield
// the same ordering and places.
//
// Participants without a matching attendee are dropped — the participant map
// can lag behind leaves, and the attendee list is the source of truth for who
// is actually in the event. Entries are seeded in attendee-list order so ties
// resolve deterministically, then sorted: completed (count ≥ goal) above
// incomplete, higher count first within the same completion tier. Places are
// 1-based post-sort positions.
func ComputeLeaderboard(participants map[string]models.CounterGameData, attendees []models.Attendee, creatorID string) []models.LeaderboardEntry {
	entries := make([]models.LeaderboardEntry, 0, len(participants))
	for _, attendee := range attendees {
		data, ok := participants[attendee.UID]
		if !ok {
			continue
		}
		entries = append(entries, models.LeaderboardEntry{
			UserID:   attendee.UID,
			Username: attendee.Username,
			Count:    data.Count,
			Goal:     data.Goal,
			IsHost:   attendee.UID == creatorID,
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Completed() != entries[j].Completed() {
			return entries[i].Completed()
		}
		return entries[i].Count > entries[j].Count
	})

	for i := range entries {
		entries[i].Place = i + 1
	}
	return entries
}
