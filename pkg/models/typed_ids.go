package models

import (
	"encoding/json"
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
	surrealdb_models "github.com/surrealdb/surrealdb.go/pkg/models"
)

// recordIDTag is the CBOR tag SurrealDB uses to identify RecordID values.
// RecordIDs are encoded as [table_name, id_string] within the tag.
const recordIDTag = 8

// UserID is a typed ID for user profiles
type UserID struct {
	uuid uuid.UUID
}

func NewUserID() UserID {
	return UserID{uuid: uuid.New()}
}

func NewUserIDFromUUID(id uuid.UUID) UserID {
	return UserID{uuid: id}
}

func ParseUserID(s string) (UserID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return UserID{}, fmt.Errorf("invalid user ID: %w", err)
	}
	return UserID{uuid: id}, nil
}

func (u UserID) UUID() uuid.UUID { return u.uuid }
func (u UserID) String() string  { return u.uuid.String() }
func (u UserID) IsZero() bool    { return u.uuid == uuid.Nil }

func (u UserID) RecordID() surrealdb_models.RecordID {
	return surrealdb_models.RecordID{
		Table: "profiles",
		ID:    u.uuid.String(),
	}
}

func (u UserID) MarshalJSON() ([]byte, error) {
	return json.Marshal(u.uuid.String())
}

func (u *UserID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return err
	}
	u.uuid = id
	return nil
}

func (u UserID) MarshalCBOR() ([]byte, error) {
	return cbor.Marshal(cbor.Tag{
		Number:  recordIDTag,
		Content: []any{"profiles", u.uuid.String()},
	})
}

func (u *UserID) UnmarshalCBOR(data []byte) error {
	return unmarshalCBORID(data, "profiles", &u.uuid)
}

// linkNamespace seeds the deterministic link IDs. A caregiver/patient pair
// always derives the same LinkID, so the store's primary-key uniqueness makes
// duplicate links impossible even under concurrent create attempts.
var linkNamespace = uuid.MustParse("5b6ac1b6-0a3e-4a37-9f64-2f5ad10f8d21")

// LinkID is a typed ID for caregiver-patient relationship links
type LinkID struct {
	uuid uuid.UUID
}

// NewLinkIDForPair derives the composite link ID for an ordered
// (caregiver, patient) pair.
func NewLinkIDForPair(caregiverID, patientID UserID) LinkID {
	name := caregiverID.String() + "/" + patientID.String()
	return LinkID{uuid: uuid.NewSHA1(linkNamespace, []byte(name))}
}

func NewLinkIDFromUUID(id uuid.UUID) LinkID {
	return LinkID{uuid: id}
}

func ParseLinkID(s string) (LinkID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return LinkID{}, fmt.Errorf("invalid link ID: %w", err)
	}
	return LinkID{uuid: id}, nil
}

func (l LinkID) UUID() uuid.UUID { return l.uuid }
func (l LinkID) String() string  { return l.uuid.String() }
func (l LinkID) IsZero() bool    { return l.uuid == uuid.Nil }

func (l LinkID) RecordID() surrealdb_models.RecordID {
	return surrealdb_models.RecordID{
		Table: "links",
		ID:    l.uuid.String(),
	}
}

func (l LinkID) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.uuid.String())
}

func (l *LinkID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return err
	}
	l.uuid = id
	return nil
}

func (l LinkID) MarshalCBOR() ([]byte, error) {
	return cbor.Marshal(cbor.Tag{
		Number:  recordIDTag,
		Content: []any{"links", l.uuid.String()},
	})
}

func (l *LinkID) UnmarshalCBOR(data []byte) error {
	return unmarshalCBORID(data, "links", &l.uuid)
}

// ReminderID is a typed ID for reminders
type ReminderID struct {
	uuid uuid.UUID
}

func NewReminderID() ReminderID {
	return ReminderID{uuid: uuid.New()}
}

func ParseReminderID(s string) (ReminderID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return ReminderID{}, fmt.Errorf("invalid reminder ID: %w", err)
	}
	return ReminderID{uuid: id}, nil
}

func (r ReminderID) UUID() uuid.UUID { return r.uuid }
func (r ReminderID) String() string  { return r.uuid.String() }
func (r ReminderID) IsZero() bool    { return r.uuid == uuid.Nil }

func (r ReminderID) RecordID() surrealdb_models.RecordID {
	return surrealdb_models.RecordID{
		Table: "reminders",
		ID:    r.uuid.String(),
	}
}

func (r ReminderID) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.uuid.String())
}

func (r *ReminderID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return err
	}
	r.uuid = id
	return nil
}

func (r ReminderID) MarshalCBOR() ([]byte, error) {
	return cbor.Marshal(cbor.Tag{
		Number:  recordIDTag,
		Content: []any{"reminders", r.uuid.String()},
	})
}

func (r *ReminderID) UnmarshalCBOR(data []byte) error {
	return unmarshalCBORID(data, "reminders", &r.uuid)
}

// EntryID is a typed ID for journal entries
type EntryID struct {
	uuid uuid.UUID
}

func NewEntryID() EntryID {
	return EntryID{uuid: uuid.New()}
}

func ParseEntryID(s string) (EntryID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return EntryID{}, fmt.Errorf("invalid journal entry ID: %w", err)
	}
	return EntryID{uuid: id}, nil
}

func (e EntryID) UUID() uuid.UUID { return e.uuid }
func (e EntryID) String() string  { return e.uuid.String() }
func (e EntryID) IsZero() bool    { return e.uuid == uuid.Nil }

func (e EntryID) RecordID() surrealdb_models.RecordID {
	return surrealdb_models.RecordID{
		Table: "journal_entries",
		ID:    e.uuid.String(),
	}
}

func (e EntryID) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.uuid.String())
}

func (e *EntryID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return err
	}
	e.uuid = id
	return nil
}

func (e EntryID) MarshalCBOR() ([]byte, error) {
	return cbor.Marshal(cbor.Tag{
		Number:  recordIDTag,
		Content: []any{"journal_entries", e.uuid.String()},
	})
}

func (e *EntryID) UnmarshalCBOR(data []byte) error {
	return unmarshalCBORID(data, "journal_entries", &e.uuid)
}

// MessageID is a typed ID for chat messages
type MessageID struct {
	uuid uuid.UUID
}

func NewMessageID() MessageID {
	return MessageID{uuid: uuid.New()}
}

func ParseMessageID(s string) (MessageID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return MessageID{}, fmt.Errorf("invalid message ID: %w", err)
	}
	return MessageID{uuid: id}, nil
}

func (m MessageID) UUID() uuid.UUID { return m.uuid }
func (m MessageID) String() string  { return m.uuid.String() }
func (m MessageID) IsZero() bool    { return m.uuid == uuid.Nil }

func (m MessageID) RecordID() surrealdb_models.RecordID {
	return surrealdb_models.RecordID{
		Table: "messages",
		ID:    m.uuid.String(),
	}
}

func (m MessageID) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.uuid.String())
}

func (m *MessageID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return err
	}
	m.uuid = id
	return nil
}

func (m MessageID) MarshalCBOR() ([]byte, error) {
	return cbor.Marshal(cbor.Tag{
		Number:  recordIDTag,
		Content: []any{"messages", m.uuid.String()},
	})
}

func (m *MessageID) UnmarshalCBOR(data []byte) error {
	return unmarshalCBORID(data, "messages", &m.uuid)
}

// unmarshalCBORID is a helper for unmarshaling a SurrealDB RecordID from CBOR.
// SurrealDB encodes RecordIDs as CBOR tag 8 wrapping a [table, id] array.
func unmarshalCBORID(data []byte, expectedTable string, target *uuid.UUID) error {
	if len(data) == 0 {
		return fmt.Errorf("empty CBOR data")
	}

	// Check if this is a CBOR tag (major type 6)
	majorType := data[0] >> 5
	if majorType != 6 {
		return fmt.Errorf("expected CBOR tag for RecordID, got major type %d", majorType)
	}

	var tag cbor.Tag
	if err := cbor.Unmarshal(data, &tag); err != nil {
		return fmt.Errorf("failed to unmarshal CBOR tag: %w", err)
	}

	if tag.Number != recordIDTag {
		return fmt.Errorf("expected RecordID tag (%d), got %d", recordIDTag, tag.Number)
	}

	arr, ok := tag.Content.([]any)
	if !ok || len(arr) != 2 {
		return fmt.Errorf("invalid RecordID format: expected [table, id] array")
	}

	table, ok := arr[0].(string)
	if !ok {
		return fmt.Errorf("invalid RecordID format: table name must be string")
	}

	if table != expectedTable {
		return fmt.Errorf("expected table %s, got %s", expectedTable, table)
	}

	idStr, ok := arr[1].(string)
	if !ok {
		return fmt.Errorf("invalid RecordID format: ID must be string")
	}

	parsedUUID, err := uuid.Parse(idStr)
	if err != nil {
		return fmt.Errorf("invalid UUID in RecordID: %w", err)
	}

	*target = parsedUUID
	return nil
}
