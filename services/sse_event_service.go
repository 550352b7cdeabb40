package services

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log"

	"phunction/models"

	"github.com/gofiber/fiber/v2"
)

// StreamEventAttendeesSSE streams live attendee snapshots for one event.
// Every change to the attendee set or to an attendee's user document emits a
// fresh "attendees" event with the full list.
func (s *EventService) StreamEventAttendeesSSE(c *fiber.Ctx) error {
	eventID := c.Params("id")

	sseHeaders(c)

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		snapshots, cancel := s.SubscribeToEventAttendees(c.Context(), eventID)
		defer cancel()

		// Initial keepalive (comment event)
		w.WriteString(":\n\n")
		w.Flush()

		for {
			select {
			case attendees, ok := <-snapshots:
				if !ok {
					return
				}
				payload, err := json.Marshal(attendees)
				if err != nil {
					log.Printf("SSE marshal error for event %s: %v", eventID, err)
					continue
				}
				fmt.Fprintf(w, "event: attendees\ndata: %s\n\n", payload)
				if err := w.Flush(); err != nil {
					// Client disconnected
					return
				}

			case <-c.Context().Done():
				return
			}
		}
	})

	return nil
}

// StreamCounterGameSSE streams the counter participant map for one event.
// A deleted event or a game-mode change away from counter emits null, which
// consumers treat as "no leaderboard".
func (s *EventService) StreamCounterGameSSE(c *fiber.Ctx) error {
	eventID := c.Params("id")

	sseHeaders(c)

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		snapshots, cancel := s.SubscribeToCounterGameData(c.Context(), eventID)
		defer cancel()

		w.WriteString(":\n\n")
		w.Flush()

		for {
			select {
			case participants, ok := <-snapshots:
				if !ok {
					return
				}
				payload, err := json.Marshal(counterPayload(participants))
				if err != nil {
					log.Printf("SSE marshal error for event %s: %v", eventID, err)
					continue
				}
				fmt.Fprintf(w, "event: counter\ndata: %s\n\n", payload)
				if err := w.Flush(); err != nil {
					return
				}

			case <-c.Context().Done():
				return
			}
		}
	})

	return nil
}

func counterPayload(participants map[string]models.CounterGameData) interface{} {
	if participants == nil {
		return nil
	}
	return map[string]interface{}{"participants": participants}
}

func sseHeaders(c *fiber.Ctx) {
	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	c.Set("X-Accel-Buffering", "no") // nginx
}
