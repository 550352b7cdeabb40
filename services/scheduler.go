// phunction/services/scheduler.go
package services

import (
	"context"
	"log"
	"time"

	"phunction/models"
	"phunction/store"

	"github.com/go-co-op/gocron/v2"
)

// StartCounterPruneScheduler runs a periodic sweep removing counter-game
// entries whose user is no longer an attendee. Leaves normally prune their
// own entry, but a crash between the attendee delete and the counter delete
// leaves a stale participant behind; the leaderboard filters those out on
// read, and this job eventually cleans them up for real.
func (s *EventService) StartCounterPruneScheduler() {
	sched, _ := gocron.NewScheduler()
	sched.Start()

	_, _ = sched.NewJob(
		gocron.DurationJob(5*time.Minute),
		gocron.NewTask(func() {
			ctx := context.Background()
			docs, err := s.Store.List(ctx, eventsCollection)
			if err != nil {
				log.Printf("[Pruner] store error: %v", err)
				return
			}

			for _, doc := range docs {
				event := models.EventFromDoc(doc.ID, doc.Data)
				if event.GameMode != models.GameModeCounter || len(event.CounterParticipants) == 0 {
					continue
				}

				attendees, err := s.GetEventAttendees(ctx, event.ID)
				if err != nil {
					log.Printf("[Pruner] failed to list attendees for %s: %v", event.ID, err)
					continue
				}
				attending := make(map[string]bool, len(attendees))
				for _, a := range attendees {
					attending[a.UID] = true
				}

				for userID := range event.CounterParticipants {
					if attending[userID] {
						continue
					}
					err := s.Store.Update(ctx, eventsCollection, event.ID, map[string]interface{}{
						models.CounterFieldPath(userID): store.DeleteField,
					})
					if err != nil {
						log.Printf("[Pruner] failed to prune %s from event %s: %v", userID, event.ID, err)
					} else {
						log.Printf("🧹 Pruned stale counter entry %s from event %s", userID, event.ID)
					}
				}
			}
		}),
	)
}
