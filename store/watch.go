package store

import (
	"context"
	"encoding/json"
	"hash/fnv"
	"time"
)

// DefaultWatchInterval is the poll cadence for watch subscriptions. The store
// has no push channel of its own, so watches re-run their query on a ticker
// and deliver a snapshot whenever the result set changed.
const DefaultWatchInterval = 500 * time.Millisecond

// CancelFunc releases a watch. Safe to call more than once. Callers must
// cancel every watch they open, or the polling goroutine leaks.
type CancelFunc func()

// Watch delivers a snapshot of the whole collection whenever it changes,
// starting with the current state. The channel is closed when the watch is
// cancelled or ctx ends. Snapshots coalesce: a slow consumer sees the latest
// state, not every intermediate one.
func (s *Store) Watch(ctx context.Context, collection string) (<-chan []Doc, CancelFunc) {
	return s.watch(ctx, func(ctx context.Context) ([]Doc, error) {
		return s.List(ctx, collection)
	})
}

// WatchFunc polls an arbitrary fetch on the watch ticker and delivers its
// result whenever it changes. Used by derived subscriptions that join several
// collections (e.g. attendees overlaid with live user XP).
func (s *Store) WatchFunc(ctx context.Context, fetch func(context.Context) ([]Doc, error)) (<-chan []Doc, CancelFunc) {
	return s.watch(ctx, fetch)
}

// WatchQuery is Watch restricted to an equality predicate.
func (s *Store) WatchQuery(ctx context.Context, collection, field string, value interface{}) (<-chan []Doc, CancelFunc) {
	return s.watch(ctx, func(ctx context.Context) ([]Doc, error) {
		return s.QueryEqual(ctx, collection, field, value)
	})
}

// WatchDoc delivers snapshots of a single document. A deleted or missing
// document is delivered as a nil entry so consumers can observe removal.
func (s *Store) WatchDoc(ctx context.Context, collection, docID string) (<-chan *Doc, CancelFunc) {
	out := make(chan *Doc, 1)
	docs, cancel := s.watch(ctx, func(ctx context.Context) ([]Doc, error) {
		data, err := s.Get(ctx, collection, docID)
		if err == ErrDocNotFound {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		return []Doc{{ID: docID, Data: data}}, nil
	})
	go func() {
		defer close(out)
		for snapshot := range docs {
			var doc *Doc
			if len(snapshot) > 0 {
				d := snapshot[0]
				doc = &d
			}
			deliverDoc(out, doc)
		}
	}()
	return out, cancel
}

func (s *Store) watch(ctx context.Context, fetch func(context.Context) ([]Doc, error)) (<-chan []Doc, CancelFunc) {
	ctx, cancel := context.WithCancel(ctx)
	out := make(chan []Doc, 1)

	go func() {
		defer close(out)

		var last uint64
		seeded := false

		poll := func() {
			docs, err := fetch(ctx)
			if err != nil {
				return // transient store error; next tick retries
			}
			sum := fingerprint(docs)
			if seeded && sum == last {
				return
			}
			last = sum
			seeded = true
			deliver(out, docs)
		}

		poll()

		ticker := time.NewTicker(DefaultWatchInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				poll()
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, CancelFunc(cancel)
}

// deliver replaces a pending unread snapshot instead of blocking the poller.
func deliver(ch chan []Doc, docs []Doc) {
	for {
		select {
		case ch <- docs:
			return
		default:
			select {
			case <-ch:
			default:
			}
		}
	}
}

func deliverDoc(ch chan *Doc, doc *Doc) {
	for {
		select {
		case ch <- doc:
			return
		default:
			select {
			case <-ch:
			default:
			}
		}
	}
}

// fingerprint hashes doc ids and contents so a poll can cheaply tell whether
// anything changed, including deletions. json.Marshal emits map keys in
// sorted order, which keeps the hash stable across polls.
func fingerprint(docs []Doc) uint64 {
	h := fnv.New64a()
	for _, doc := range docs {
		h.Write([]byte(doc.ID))
		h.Write([]byte{0})
		if raw, err := json.Marshal(doc.Data); err == nil {
			h.Write(raw)
		}
		h.Write([]byte{0xff})
	}
	return h.Sum64()
}
