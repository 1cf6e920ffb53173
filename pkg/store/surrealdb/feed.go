package surrealdb

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/surrealdb/surrealdb.go"
	"github.com/surrealdb/surrealdb.go/pkg/connection"
	surrealdb_models "github.com/surrealdb/surrealdb.go/pkg/models"

	"github.com/recoveryhub/companion/pkg/models"
	"github.com/recoveryhub/companion/pkg/store"
)

// messageFeed is the SurrealDB-backed implementation of [store.MessageFeed].
//
// A live query covers the whole message table; the relay goroutine filters
// notifications down to the watched link before forwarding them. Close kills
// the live query, which closes the notification channel and lets the relay
// exit.
type messageFeed struct {
	db     *surrealdb.DB
	liveID string
	events chan store.MessageEvent

	closeOnce sync.Once
	closeErr  error
}

// WatchMessages starts a live query over the message collection and relays
// events for the given link on the returned feed.
func (s *Store) WatchMessages(ctx context.Context, linkID models.LinkID) (store.MessageFeed, error) {
	live, err := surrealdb.Live(ctx, s.db, messagesTable, false)
	if err != nil {
		return nil, fmt.Errorf("failed to start live query: %w", err)
	}

	notifications, err := s.db.LiveNotifications(live.String())
	if err != nil {
		// Kill the orphaned live query before reporting failure.
		_ = surrealdb.Kill(ctx, s.db, live.String())
		return nil, fmt.Errorf("failed to get live notifications channel: %w", err)
	}

	feed := &messageFeed{
		db:     s.db,
		liveID: live.String(),
		events: make(chan store.MessageEvent, 16),
	}

	go feed.relay(ctx, linkID, notifications)

	return feed, nil
}

func (f *messageFeed) Events() <-chan store.MessageEvent {
	return f.events
}

// Close kills the live query. The notification channel closes as a result,
// the relay goroutine exits, and the events channel is closed. Safe to call
// more than once.
func (f *messageFeed) Close(ctx context.Context) error {
	f.closeOnce.Do(func() {
		f.closeErr = surrealdb.Kill(ctx, f.db, f.liveID)
	})
	return f.closeErr
}

// relay forwards notifications for the watched link until the notification
// channel closes or ctx is canceled.
func (f *messageFeed) relay(ctx context.Context, linkID models.LinkID, notifications chan connection.Notification) {
	defer close(f.events)

	for {
		select {
		case <-ctx.Done():
			// Kill with a fresh context; the watch context is already gone.
			killCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			_ = f.Close(killCtx)
			cancel()
			return
		case notification, ok := <-notifications:
			if !ok {
				return
			}

			msg, err := decodeMessageNotification(notification)
			if err != nil {
				// Diff payloads and malformed records are skipped; the
				// consumer reconciles through the pull path.
				continue
			}
			if msg.LinkID != linkID {
				continue
			}

			event := store.MessageEvent{
				Action:  actionFor(notification.Action),
				Message: *msg,
			}

			select {
			case f.events <- event:
			case <-ctx.Done():
			}
		}
	}
}

func actionFor(action connection.Action) store.MessageEventAction {
	switch action {
	case connection.CreateAction:
		return store.MessageCreated
	case connection.UpdateAction:
		return store.MessageUpdated
	case connection.DeleteAction:
		return store.MessageDeleted
	}
	return store.MessageEventAction(string(action))
}

// decodeMessageNotification converts a live-query notification into a
// ChatMessage. Live queries without diff deliver the full record as
// map[string]any, with RecordID values for the id and reference fields.
func decodeMessageNotification(notification connection.Notification) (*models.ChatMessage, error) {
	record, ok := notification.Result.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("expected record map, got %T", notification.Result)
	}

	var msg models.ChatMessage

	id, err := recordUUID(record["id"], messagesTable)
	if err != nil {
		return nil, fmt.Errorf("message id: %w", err)
	}
	msgID, err := models.ParseMessageID(id)
	if err != nil {
		return nil, err
	}
	msg.ID = msgID

	link, err := recordUUID(record["link_id"], linksTable)
	if err != nil {
		return nil, fmt.Errorf("link_id: %w", err)
	}
	linkID, err := models.ParseLinkID(link)
	if err != nil {
		return nil, err
	}
	msg.LinkID = linkID

	sender, err := recordUUID(record["sender_id"], profilesTable)
	if err != nil {
		return nil, fmt.Errorf("sender_id: %w", err)
	}
	senderID, err := models.ParseUserID(sender)
	if err != nil {
		return nil, err
	}
	msg.SenderID = senderID

	if body, ok := record["body"].(string); ok {
		msg.Body = body
	}
	msg.CreatedAt = recordTime(record["created_at"])

	return &msg, nil
}

// recordUUID extracts the UUID string from a RecordID field and checks it
// belongs to the expected table.
func recordUUID(value any, table string) (string, error) {
	rid, ok := value.(surrealdb_models.RecordID)
	if !ok {
		return "", fmt.Errorf("expected RecordID, got %T", value)
	}
	if rid.Table != table {
		return "", fmt.Errorf("expected table %s, got %s", table, rid.Table)
	}
	id, ok := rid.ID.(string)
	if !ok {
		return "", fmt.Errorf("expected string record ID, got %T", rid.ID)
	}
	return id, nil
}

// recordTime extracts a timestamp field, which arrives either as a native
// time.Time or as the client's CustomDateTime wrapper depending on codec
// version.
func recordTime(value any) time.Time {
	switch v := value.(type) {
	case time.Time:
		return v
	case surrealdb_models.CustomDateTime:
		return v.Time
	case *surrealdb_models.CustomDateTime:
		if v != nil {
			return v.Time
		}
	}
	return time.Time{}
}
