// Package chat maintains the client-facing view of a link's conversation.
//
// A conversation is fed from two sources racing each other: a one-shot pull
// of history and a realtime push feed that is subscribed before the pull
// completes. The [Timeline] merges both and drops the duplicates the overlap
// produces. History batches weave into the sequence by creation time, so a
// pushed message that wins the race still renders after the older history
// behind it; feed arrivals after that only ever append.
package chat

import (
	"sort"
	"sync"

	"github.com/recoveryhub/companion/pkg/models"
)

// Timeline is the merged, de-duplicated message sequence for one link.
// Safe for concurrent use; the push relay and the pull path feed it from
// different goroutines.
type Timeline struct {
	mu   sync.RWMutex
	seen map[models.MessageID]struct{}
	msgs []models.ChatMessage
}

// NewTimeline returns an empty timeline.
func NewTimeline() *Timeline {
	return &Timeline{
		seen: make(map[models.MessageID]struct{}),
	}
}

// AddHistory merges a pulled history batch. The batch is sorted by creation
// time, and each missing message is inserted ahead of any already-placed
// message with a later timestamp: when a pushed message beats the pull, the
// older history still renders before it. Messages already present keep
// their position relative to each other.
func (t *Timeline) AddHistory(history []*models.ChatMessage) {
	sorted := make([]*models.ChatMessage, len(history))
	copy(sorted, history)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.Before(sorted[j].CreatedAt)
	})

	t.mu.Lock()
	defer t.mu.Unlock()
	for _, msg := range sorted {
		t.insertLocked(*msg)
	}
}

// insertLocked places msg before the first message created after it.
func (t *Timeline) insertLocked(msg models.ChatMessage) {
	if _, dup := t.seen[msg.ID]; dup {
		return
	}
	t.seen[msg.ID] = struct{}{}

	at := len(t.msgs)
	for i, m := range t.msgs {
		if m.CreatedAt.After(msg.CreatedAt) {
			at = i
			break
		}
	}
	t.msgs = append(t.msgs, models.ChatMessage{})
	copy(t.msgs[at+1:], t.msgs[at:])
	t.msgs[at] = msg
}

// Append adds one pushed message. A message already present, whether from
// history or an earlier push, is ignored.
func (t *Timeline) Append(msg models.ChatMessage) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.appendLocked(msg)
}

func (t *Timeline) appendLocked(msg models.ChatMessage) bool {
	if _, dup := t.seen[msg.ID]; dup {
		return false
	}
	t.seen[msg.ID] = struct{}{}
	t.msgs = append(t.msgs, msg)
	return true
}

// Messages returns a copy of the current sequence.
func (t *Timeline) Messages() []models.ChatMessage {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]models.ChatMessage, len(t.msgs))
	copy(out, t.msgs)
	return out
}

// Len returns the number of distinct messages.
func (t *Timeline) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.msgs)
}
