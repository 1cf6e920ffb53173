package chat

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recoveryhub/companion/pkg/models"
)

func makeMessage(body string, at time.Time) models.ChatMessage {
	return models.ChatMessage{
		ID:        models.NewMessageID(),
		Body:      body,
		CreatedAt: at,
	}
}

func bodies(msgs []models.ChatMessage) []string {
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = m.Body
	}
	return out
}

func TestHistoryThenPush(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	m1 := makeMessage("one", base)
	m2 := makeMessage("two", base.Add(time.Second))
	m3 := makeMessage("three", base.Add(2*time.Second))

	tl := NewTimeline()
	tl.AddHistory([]*models.ChatMessage{&m1, &m2})
	require.True(t, tl.Append(m3))

	assert.Equal(t, []string{"one", "two", "three"}, bodies(tl.Messages()))
}

func TestPushBeforeHistory(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	m1 := makeMessage("one", base)
	m2 := makeMessage("two", base.Add(time.Second))
	m3 := makeMessage("three", base.Add(2*time.Second))

	// the push feed wins the race: m3 lands before history arrives
	tl := NewTimeline()
	require.True(t, tl.Append(m3))
	tl.AddHistory([]*models.ChatMessage{&m1, &m2, &m3})

	// the merge slots the older history in front of the pushed message
	assert.Equal(t, []string{"one", "two", "three"}, bodies(tl.Messages()))
	assert.Equal(t, 3, tl.Len())
}

func TestPushBeforePartialHistory(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	m1 := makeMessage("one", base)
	m2 := makeMessage("two", base.Add(time.Second))
	m3 := makeMessage("three", base.Add(2*time.Second))
	m4 := makeMessage("four", base.Add(3*time.Second))

	// the pushed message is missing from the history snapshot entirely
	tl := NewTimeline()
	require.True(t, tl.Append(m3))
	tl.AddHistory([]*models.ChatMessage{&m2, &m1})

	assert.Equal(t, []string{"one", "two", "three"}, bodies(tl.Messages()))

	// feed arrivals after the merge append as usual
	require.True(t, tl.Append(m4))
	assert.Equal(t, []string{"one", "two", "three", "four"}, bodies(tl.Messages()))
}

func TestOverlapDeduplicates(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	m1 := makeMessage("one", base)
	m2 := makeMessage("two", base.Add(time.Second))

	tl := NewTimeline()
	tl.AddHistory([]*models.ChatMessage{&m1, &m2})

	// the same message arriving on the push feed is dropped
	assert.False(t, tl.Append(m2))
	assert.Equal(t, 2, tl.Len())

	// history re-fetch does not duplicate either
	tl.AddHistory([]*models.ChatMessage{&m1, &m2})
	assert.Equal(t, 2, tl.Len())
}

func TestHistorySortedRegardlessOfBatchOrder(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	m1 := makeMessage("one", base)
	m2 := makeMessage("two", base.Add(time.Second))
	m3 := makeMessage("three", base.Add(2*time.Second))

	tl := NewTimeline()
	tl.AddHistory([]*models.ChatMessage{&m3, &m1, &m2})

	assert.Equal(t, []string{"one", "two", "three"}, bodies(tl.Messages()))
}

func TestAppendOnlyUnderInterleaving(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	m1 := makeMessage("one", base)
	m2 := makeMessage("two", base.Add(time.Second))
	m3 := makeMessage("three", base.Add(2*time.Second))

	tl := NewTimeline()
	tl.AddHistory([]*models.ChatMessage{&m1})
	require.True(t, tl.Append(m2))
	require.True(t, tl.Append(m3))
	assert.False(t, tl.Append(m2))

	got := bodies(tl.Messages())
	assert.Equal(t, []string{"one", "two", "three"}, got)
}
