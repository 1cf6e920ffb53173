// Package store provides the persistence boundary for the companion
// application.
//
// This package defines the [Store] interface, which captures everything the
// application asks of its backing document store: profile lookup, link and
// care-data CRUD with equality filters, and a realtime feed over the message
// collection. The production implementation lives in
// [github.com/recoveryhub/companion/pkg/store/surrealdb] and talks to
// SurrealDB over WebSocket RPC with a CBOR codec; an in-memory implementation
// for tests lives in [github.com/recoveryhub/companion/pkg/store/storetest].
//
// # Conventions
//
// All methods take a context.Context and respect cancellation. Get methods
// return nil without error for missing records; callers detect absence from
// the nil value, never from a sentinel error. List methods return empty
// slices for no results. Create methods fill in zero IDs and timestamps.
// Update methods replace the full document.
//
// # Realtime feed
//
// [Store.WatchMessages] opens a live subscription over the message collection
// filtered to one relationship link. The returned [MessageFeed] is the sole
// handle on that subscription: events arrive on its channel, and Close is the
// single teardown path. A consumer that wants to watch a different link must
// close its current feed first; the chat stream endpoint enforces this by
// holding at most one feed per connection.
package store

import (
	"context"

	"github.com/recoveryhub/companion/pkg/models"
)

// MessageEventAction describes what happened to a message document.
type MessageEventAction string

const (
	MessageCreated MessageEventAction = "create"
	MessageUpdated MessageEventAction = "update"
	MessageDeleted MessageEventAction = "delete"
)

// MessageEvent is one realtime notification from the message collection.
type MessageEvent struct {
	Action  MessageEventAction
	Message models.ChatMessage
}

// MessageFeed is a live subscription over a link's messages.
//
// Events delivers notifications until the feed is closed or the watch
// context is canceled, at which point the channel is closed. Close tears
// down the underlying store subscription and is safe to call more than once.
type MessageFeed interface {
	Events() <-chan MessageEvent
	Close(ctx context.Context) error
}

// Store is the document-store boundary for the companion application.
//
// Implementations persist five collections: profiles, links, reminders,
// journal entries, and messages. The interface deliberately exposes only
// equality-filtered lookups; the access rules built on top of it never
// require range scans or joins.
type Store interface {
	// Profile operations.
	//
	// Profiles carry the account identity: email (unique), display name,
	// the explicit role, and the shareable invite code (unique).

	// CreateProfile persists a new profile. A zero ID is replaced with a
	// fresh one; timestamps are filled in when unset.
	CreateProfile(ctx context.Context, profile *models.UserProfile) error

	// GetProfile returns the profile with the given ID, or nil when no such
	// profile exists.
	GetProfile(ctx context.Context, id models.UserID) (*models.UserProfile, error)

	// GetProfileByEmail returns the profile registered under email, or nil.
	// Used by signin and by signup's duplicate check.
	GetProfileByEmail(ctx context.Context, email string) (*models.UserProfile, error)

	// GetProfileByShareableCode returns the profile whose invite code equals
	// code exactly, or nil. Callers normalize the code before lookup.
	GetProfileByShareableCode(ctx context.Context, code string) (*models.UserProfile, error)

	// UpdateProfile replaces an existing profile document.
	UpdateProfile(ctx context.Context, profile *models.UserProfile) error

	// Link operations.
	//
	// Links are immutable once created. The link ID is derived from the
	// (caregiver, patient) pair, so creating the same link twice collides
	// at the store.

	// CreateLink persists a new relationship link. Returns an error when a
	// link with the same ID already exists.
	CreateLink(ctx context.Context, link *models.RelationshipLink) error

	// GetLink returns the link with the given ID, or nil.
	GetLink(ctx context.Context, id models.LinkID) (*models.RelationshipLink, error)

	// ListLinksByCaregiver returns all links where the given user is the
	// caregiver.
	ListLinksByCaregiver(ctx context.Context, caregiverID models.UserID) ([]*models.RelationshipLink, error)

	// GetLinkByPatient returns the link where the given user is the patient,
	// or nil when the patient has no caregiver. At most one such link exists.
	GetLinkByPatient(ctx context.Context, patientID models.UserID) (*models.RelationshipLink, error)

	// DeleteLink removes a link. Deleting a link that does not exist is not
	// an error.
	DeleteLink(ctx context.Context, id models.LinkID) error

	// Reminder operations.

	CreateReminder(ctx context.Context, reminder *models.Reminder) error
	GetReminder(ctx context.Context, id models.ReminderID) (*models.Reminder, error)
	UpdateReminder(ctx context.Context, reminder *models.Reminder) error

	// ListReminders returns all reminders owned by the given patient,
	// ordered by creation time.
	ListReminders(ctx context.Context, patientID models.UserID) ([]*models.Reminder, error)

	// Journal operations.

	CreateJournalEntry(ctx context.Context, entry *models.JournalEntry) error
	GetJournalEntry(ctx context.Context, id models.EntryID) (*models.JournalEntry, error)
	UpdateJournalEntry(ctx context.Context, entry *models.JournalEntry) error

	// ListJournalEntries returns all entries owned by the given patient,
	// ordered by creation time. Sharing is not filtered here; visibility is
	// an access-scoping concern layered above the store.
	ListJournalEntries(ctx context.Context, patientID models.UserID) ([]*models.JournalEntry, error)

	// Message operations. Messages are immutable; there is no update.

	CreateMessage(ctx context.Context, message *models.ChatMessage) error

	// ListMessages returns the conversation history for a link in ascending
	// creation order.
	ListMessages(ctx context.Context, linkID models.LinkID) ([]*models.ChatMessage, error)

	// WatchMessages opens a realtime subscription delivering events for
	// messages belonging to the given link. The feed must be closed by the
	// caller; see [MessageFeed].
	WatchMessages(ctx context.Context, linkID models.LinkID) (MessageFeed, error)

	// Close releases the store's connection. Safe to call more than once.
	Close() error
}
