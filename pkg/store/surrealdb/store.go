// Package surrealdb implements the
// [github.com/recoveryhub/companion/pkg/store.Store] interface against
// SurrealDB over WebSocket RPC.
//
// The implementation uses the surrealcbor codec for marshaling. SurrealDB
// speaks CBOR internally, and the default Go marshaling does not produce the
// formats it expects for time.Time or RecordID values; the custom codec gives
// full control over both. Typed IDs from
// [github.com/recoveryhub/companion/pkg/models] carry their own MarshalCBOR
// implementations, so entity structs pass straight into Create/Update calls
// and reference fields land in the store as proper RecordIDs.
//
// All filtered lookups use parameterized SurrealQL. User-provided values are
// never interpolated into query strings.
package surrealdb

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/surrealdb/surrealdb.go"
	"github.com/surrealdb/surrealdb.go/pkg/connection"
	"github.com/surrealdb/surrealdb.go/pkg/connection/gorillaws"
	"github.com/surrealdb/surrealdb.go/surrealcbor"

	"github.com/recoveryhub/companion/pkg/models"
	"github.com/recoveryhub/companion/pkg/store"
)

// Collection names in the backing store.
const (
	profilesTable  = "profiles"
	linksTable     = "links"
	remindersTable = "reminders"
	journalTable   = "journal_entries"
	messagesTable  = "messages"
)

// Store talks to a single SurrealDB namespace/database pair.
type Store struct {
	db       *surrealdb.DB
	ns       string
	database string
}

var _ store.Store = (*Store)(nil)

// New connects to SurrealDB at wsURL, authenticates when credentials are
// given, and selects the namespace/database pair.
func New(ctx context.Context, wsURL, namespace, database, username, password string) (*Store, error) {
	u, err := url.Parse(wsURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}

	conf := connection.NewConfig(u)

	// The surrealcbor codec is required for correct time.Time and RecordID
	// handling; the default marshaler produces values SurrealDB rejects.
	codec := surrealcbor.New()
	conf.Marshaler = codec
	conf.Unmarshaler = codec

	conn := gorillaws.New(conf)

	db, err := surrealdb.FromConnection(ctx, conn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to SurrealDB: %w", err)
	}

	if username != "" && password != "" {
		if _, err := db.SignIn(ctx, map[string]any{
			"user": username,
			"pass": password,
		}); err != nil {
			return nil, fmt.Errorf("failed to authenticate: %w", err)
		}
	}

	if err := db.Use(ctx, namespace, database); err != nil {
		return nil, fmt.Errorf("failed to use namespace/database: %w", err)
	}

	return &Store{db: db, ns: namespace, database: database}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close(context.Background())
}

// handleNotFound maps the errors the client surfaces for zero-result
// selects to plain absence.
func handleNotFound(err error) error {
	if err != nil {
		errStr := err.Error()
		if strings.Contains(errStr, "Expected a single or multiple results but got 0") ||
			strings.Contains(errStr, "cannot unmarshal array into Go value") {
			return nil
		}
	}
	return err
}

// Profile operations

func (s *Store) CreateProfile(ctx context.Context, profile *models.UserProfile) error {
	if profile.ID.IsZero() {
		profile.ID = models.NewUserID()
	}
	if profile.CreatedAt.IsZero() {
		profile.CreatedAt = time.Now()
	}
	if profile.UpdatedAt.IsZero() {
		profile.UpdatedAt = time.Now()
	}

	_, err := surrealdb.Create[models.UserProfile](ctx, s.db, profilesTable, profile)
	if err != nil {
		return fmt.Errorf("failed to create profile: %w", err)
	}
	return nil
}

func (s *Store) GetProfile(ctx context.Context, id models.UserID) (*models.UserProfile, error) {
	profile, err := surrealdb.Select[models.UserProfile](ctx, s.db, id.RecordID())
	if err != nil {
		if handleNotFound(err) == nil {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return profile, nil
}

func (s *Store) GetProfileByEmail(ctx context.Context, email string) (*models.UserProfile, error) {
	query := "SELECT * FROM profiles WHERE email = $email"
	params := map[string]any{
		"email": email,
	}
	result, err := surrealdb.Query[[]models.UserProfile](ctx, s.db, query, params)
	if err != nil {
		return nil, fmt.Errorf("failed to get profile by email: %w", err)
	}

	if result != nil && len(*result) > 0 && len((*result)[0].Result) > 0 {
		return &(*result)[0].Result[0], nil
	}
	return nil, nil
}

func (s *Store) GetProfileByShareableCode(ctx context.Context, code string) (*models.UserProfile, error) {
	query := "SELECT * FROM profiles WHERE shareable_code = $code"
	params := map[string]any{
		"code": code,
	}
	result, err := surrealdb.Query[[]models.UserProfile](ctx, s.db, query, params)
	if err != nil {
		return nil, fmt.Errorf("failed to get profile by shareable code: %w", err)
	}

	if result != nil && len(*result) > 0 && len((*result)[0].Result) > 0 {
		return &(*result)[0].Result[0], nil
	}
	return nil, nil
}

func (s *Store) UpdateProfile(ctx context.Context, profile *models.UserProfile) error {
	profile.UpdatedAt = time.Now()

	_, err := surrealdb.Update[models.UserProfile](ctx, s.db, profile.ID.RecordID(), profile)
	if err != nil {
		return fmt.Errorf("failed to update profile: %w", err)
	}
	return nil
}

// Link operations

func (s *Store) CreateLink(ctx context.Context, link *models.RelationshipLink) error {
	if link.CreatedAt.IsZero() {
		link.CreatedAt = time.Now()
	}

	// The link ID is the composite pair key; creating it by RecordID makes
	// a second create for the same pair fail at the store.
	_, err := surrealdb.Create[models.RelationshipLink](ctx, s.db, link.ID.RecordID(), link)
	if err != nil {
		return fmt.Errorf("failed to create link: %w", err)
	}
	return nil
}

func (s *Store) GetLink(ctx context.Context, id models.LinkID) (*models.RelationshipLink, error) {
	link, err := surrealdb.Select[models.RelationshipLink](ctx, s.db, id.RecordID())
	if err != nil {
		if handleNotFound(err) == nil {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get link: %w", err)
	}
	return link, nil
}

func (s *Store) ListLinksByCaregiver(ctx context.Context, caregiverID models.UserID) ([]*models.RelationshipLink, error) {
	query := "SELECT * FROM links WHERE caregiver_id = $caregiver"
	params := map[string]any{
		"caregiver": caregiverID,
	}
	result, err := surrealdb.Query[[]models.RelationshipLink](ctx, s.db, query, params)
	if err != nil {
		return nil, fmt.Errorf("failed to list links by caregiver: %w", err)
	}

	links := []*models.RelationshipLink{}
	if result != nil && len(*result) > 0 {
		for i := range (*result)[0].Result {
			links = append(links, &(*result)[0].Result[i])
		}
	}
	return links, nil
}

func (s *Store) GetLinkByPatient(ctx context.Context, patientID models.UserID) (*models.RelationshipLink, error) {
	query := "SELECT * FROM links WHERE patient_id = $patient"
	params := map[string]any{
		"patient": patientID,
	}
	result, err := surrealdb.Query[[]models.RelationshipLink](ctx, s.db, query, params)
	if err != nil {
		return nil, fmt.Errorf("failed to get link by patient: %w", err)
	}

	if result != nil && len(*result) > 0 && len((*result)[0].Result) > 0 {
		return &(*result)[0].Result[0], nil
	}
	return nil, nil
}

func (s *Store) DeleteLink(ctx context.Context, id models.LinkID) error {
	_, err := surrealdb.Delete[models.RelationshipLink](ctx, s.db, id.RecordID())
	if handleNotFound(err) == nil {
		return nil
	}
	return fmt.Errorf("failed to delete link: %w", err)
}

// Reminder operations

func (s *Store) CreateReminder(ctx context.Context, reminder *models.Reminder) error {
	if reminder.ID.IsZero() {
		reminder.ID = models.NewReminderID()
	}
	if reminder.CreatedAt.IsZero() {
		reminder.CreatedAt = time.Now()
	}
	if reminder.UpdatedAt.IsZero() {
		reminder.UpdatedAt = time.Now()
	}

	_, err := surrealdb.Create[models.Reminder](ctx, s.db, remindersTable, reminder)
	if err != nil {
		return fmt.Errorf("failed to create reminder: %w", err)
	}
	return nil
}

func (s *Store) GetReminder(ctx context.Context, id models.ReminderID) (*models.Reminder, error) {
	reminder, err := surrealdb.Select[models.Reminder](ctx, s.db, id.RecordID())
	if err != nil {
		if handleNotFound(err) == nil {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get reminder: %w", err)
	}
	return reminder, nil
}

func (s *Store) UpdateReminder(ctx context.Context, reminder *models.Reminder) error {
	reminder.UpdatedAt = time.Now()

	_, err := surrealdb.Update[models.Reminder](ctx, s.db, reminder.ID.RecordID(), reminder)
	if err != nil {
		return fmt.Errorf("failed to update reminder: %w", err)
	}
	return nil
}

func (s *Store) ListReminders(ctx context.Context, patientID models.UserID) ([]*models.Reminder, error) {
	query := "SELECT * FROM reminders WHERE patient_id = $patient ORDER BY created_at"
	params := map[string]any{
		"patient": patientID,
	}
	result, err := surrealdb.Query[[]models.Reminder](ctx, s.db, query, params)
	if err != nil {
		return nil, fmt.Errorf("failed to list reminders: %w", err)
	}

	reminders := []*models.Reminder{}
	if result != nil && len(*result) > 0 {
		for i := range (*result)[0].Result {
			reminders = append(reminders, &(*result)[0].Result[i])
		}
	}
	return reminders, nil
}

// Journal operations

func (s *Store) CreateJournalEntry(ctx context.Context, entry *models.JournalEntry) error {
	if entry.ID.IsZero() {
		entry.ID = models.NewEntryID()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	if entry.UpdatedAt.IsZero() {
		entry.UpdatedAt = time.Now()
	}

	_, err := surrealdb.Create[models.JournalEntry](ctx, s.db, journalTable, entry)
	if err != nil {
		return fmt.Errorf("failed to create journal entry: %w", err)
	}
	return nil
}

func (s *Store) GetJournalEntry(ctx context.Context, id models.EntryID) (*models.JournalEntry, error) {
	entry, err := surrealdb.Select[models.JournalEntry](ctx, s.db, id.RecordID())
	if err != nil {
		if handleNotFound(err) == nil {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get journal entry: %w", err)
	}
	return entry, nil
}

func (s *Store) UpdateJournalEntry(ctx context.Context, entry *models.JournalEntry) error {
	entry.UpdatedAt = time.Now()

	_, err := surrealdb.Update[models.JournalEntry](ctx, s.db, entry.ID.RecordID(), entry)
	if err != nil {
		return fmt.Errorf("failed to update journal entry: %w", err)
	}
	return nil
}

func (s *Store) ListJournalEntries(ctx context.Context, patientID models.UserID) ([]*models.JournalEntry, error) {
	query := "SELECT * FROM journal_entries WHERE patient_id = $patient ORDER BY created_at"
	params := map[string]any{
		"patient": patientID,
	}
	result, err := surrealdb.Query[[]models.JournalEntry](ctx, s.db, query, params)
	if err != nil {
		return nil, fmt.Errorf("failed to list journal entries: %w", err)
	}

	entries := []*models.JournalEntry{}
	if result != nil && len(*result) > 0 {
		for i := range (*result)[0].Result {
			entries = append(entries, &(*result)[0].Result[i])
		}
	}
	return entries, nil
}

// Message operations

func (s *Store) CreateMessage(ctx context.Context, message *models.ChatMessage) error {
	if message.ID.IsZero() {
		message.ID = models.NewMessageID()
	}
	if message.CreatedAt.IsZero() {
		message.CreatedAt = time.Now()
	}

	_, err := surrealdb.Create[models.ChatMessage](ctx, s.db, messagesTable, message)
	if err != nil {
		return fmt.Errorf("failed to create message: %w", err)
	}
	return nil
}

func (s *Store) ListMessages(ctx context.Context, linkID models.LinkID) ([]*models.ChatMessage, error) {
	query := "SELECT * FROM messages WHERE link_id = $link ORDER BY created_at"
	params := map[string]any{
		"link": linkID,
	}
	result, err := surrealdb.Query[[]models.ChatMessage](ctx, s.db, query, params)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}

	messages := []*models.ChatMessage{}
	if result != nil && len(*result) > 0 {
		for i := range (*result)[0].Result {
			messages = append(messages, &(*result)[0].Result[i])
		}
	}
	return messages, nil
}
