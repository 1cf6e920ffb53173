package surrealdb

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/surrealdb/surrealdb.go/pkg/connection"
	surrealdb_models "github.com/surrealdb/surrealdb.go/pkg/models"

	"github.com/recoveryhub/companion/pkg/models"
)

func TestDecodeMessageNotification(t *testing.T) {
	msgID := models.NewMessageID()
	senderID := models.NewUserID()
	linkID := models.NewLinkIDForPair(models.NewUserID(), models.NewUserID())
	createdAt := time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)

	notification := connection.Notification{
		Action: connection.CreateAction,
		Result: map[string]any{
			"id":         surrealdb_models.RecordID{Table: "messages", ID: msgID.String()},
			"link_id":    surrealdb_models.RecordID{Table: "links", ID: linkID.String()},
			"sender_id":  surrealdb_models.RecordID{Table: "profiles", ID: senderID.String()},
			"body":       "took the morning meds",
			"created_at": createdAt,
		},
	}

	msg, err := decodeMessageNotification(notification)
	require.NoError(t, err)
	assert.Equal(t, msgID, msg.ID)
	assert.Equal(t, linkID, msg.LinkID)
	assert.Equal(t, senderID, msg.SenderID)
	assert.Equal(t, "took the morning meds", msg.Body)
	assert.Equal(t, createdAt, msg.CreatedAt)
}

func TestDecodeMessageNotificationCustomDateTime(t *testing.T) {
	createdAt := time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)

	notification := connection.Notification{
		Action: connection.CreateAction,
		Result: map[string]any{
			"id":         surrealdb_models.RecordID{Table: "messages", ID: models.NewMessageID().String()},
			"link_id":    surrealdb_models.RecordID{Table: "links", ID: models.NewLinkIDForPair(models.NewUserID(), models.NewUserID()).String()},
			"sender_id":  surrealdb_models.RecordID{Table: "profiles", ID: models.NewUserID().String()},
			"body":       "hello",
			"created_at": surrealdb_models.CustomDateTime{Time: createdAt},
		},
	}

	msg, err := decodeMessageNotification(notification)
	require.NoError(t, err)
	assert.Equal(t, createdAt, msg.CreatedAt)
}

func TestDecodeMessageNotificationRejectsDiffPayload(t *testing.T) {
	notification := connection.Notification{
		Action: connection.UpdateAction,
		Result: []any{map[string]any{"op": "replace", "path": "/body"}},
	}

	_, err := decodeMessageNotification(notification)
	assert.Error(t, err)
}

func TestDecodeMessageNotificationRejectsForeignTable(t *testing.T) {
	notification := connection.Notification{
		Action: connection.CreateAction,
		Result: map[string]any{
			"id": surrealdb_models.RecordID{Table: "reminders", ID: models.NewReminderID().String()},
		},
	}

	_, err := decodeMessageNotification(notification)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected table messages")
}
