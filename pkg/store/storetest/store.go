// Package storetest provides an in-memory implementation of
// [github.com/recoveryhub/companion/pkg/store.Store] for tests.
//
// The fake keeps every collection in maps guarded by a single mutex and
// implements WatchMessages with an in-process pub/sub, so handler and
// end-to-end tests can exercise the realtime push path without a running
// database.
package storetest

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/recoveryhub/companion/pkg/models"
	"github.com/recoveryhub/companion/pkg/store"
)

// Store is the in-memory store. The zero value is not usable; call [New].
type Store struct {
	mu sync.RWMutex

	profiles  map[models.UserID]models.UserProfile
	links     map[models.LinkID]models.RelationshipLink
	reminders map[models.ReminderID]models.Reminder
	entries   map[models.EntryID]models.JournalEntry
	messages  map[models.MessageID]models.ChatMessage

	watchers map[*feed]struct{}

	// now lets tests pin time for deterministic ordering.
	now func() time.Time
}

var _ store.Store = (*Store)(nil)

// New returns an empty in-memory store.
func New() *Store {
	return &Store{
		profiles:  make(map[models.UserID]models.UserProfile),
		links:     make(map[models.LinkID]models.RelationshipLink),
		reminders: make(map[models.ReminderID]models.Reminder),
		entries:   make(map[models.EntryID]models.JournalEntry),
		messages:  make(map[models.MessageID]models.ChatMessage),
		watchers:  make(map[*feed]struct{}),
		now:       time.Now,
	}
}

// SetClock replaces the store's time source.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// Close closes every open feed.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for f := range s.watchers {
		f.closeLocked()
		delete(s.watchers, f)
	}
	return nil
}

// Profile operations

func (s *Store) CreateProfile(ctx context.Context, profile *models.UserProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if profile.ID.IsZero() {
		profile.ID = models.NewUserID()
	}
	if profile.CreatedAt.IsZero() {
		profile.CreatedAt = s.now()
	}
	if profile.UpdatedAt.IsZero() {
		profile.UpdatedAt = profile.CreatedAt
	}
	if _, exists := s.profiles[profile.ID]; exists {
		return fmt.Errorf("profile %s already exists", profile.ID)
	}
	s.profiles[profile.ID] = *profile
	return nil
}

func (s *Store) GetProfile(ctx context.Context, id models.UserID) (*models.UserProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if p, ok := s.profiles[id]; ok {
		return &p, nil
	}
	return nil, nil
}

func (s *Store) GetProfileByEmail(ctx context.Context, email string) (*models.UserProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, p := range s.profiles {
		if p.Email == email {
			found := p
			return &found, nil
		}
	}
	return nil, nil
}

func (s *Store) GetProfileByShareableCode(ctx context.Context, code string) (*models.UserProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, p := range s.profiles {
		if p.ShareableCode == code {
			found := p
			return &found, nil
		}
	}
	return nil, nil
}

func (s *Store) UpdateProfile(ctx context.Context, profile *models.UserProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.profiles[profile.ID]; !ok {
		return fmt.Errorf("profile %s not found", profile.ID)
	}
	profile.UpdatedAt = s.now()
	s.profiles[profile.ID] = *profile
	return nil
}

// Link operations

func (s *Store) CreateLink(ctx context.Context, link *models.RelationshipLink) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.links[link.ID]; exists {
		return fmt.Errorf("link %s already exists", link.ID)
	}
	if link.CreatedAt.IsZero() {
		link.CreatedAt = s.now()
	}
	s.links[link.ID] = *link
	return nil
}

func (s *Store) GetLink(ctx context.Context, id models.LinkID) (*models.RelationshipLink, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if l, ok := s.links[id]; ok {
		return &l, nil
	}
	return nil, nil
}

func (s *Store) ListLinksByCaregiver(ctx context.Context, caregiverID models.UserID) ([]*models.RelationshipLink, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	links := []*models.RelationshipLink{}
	for _, l := range s.links {
		if l.CaregiverID == caregiverID {
			found := l
			links = append(links, &found)
		}
	}
	sort.Slice(links, func(i, j int) bool {
		return links[i].CreatedAt.Before(links[j].CreatedAt)
	})
	return links, nil
}

func (s *Store) GetLinkByPatient(ctx context.Context, patientID models.UserID) (*models.RelationshipLink, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, l := range s.links {
		if l.PatientID == patientID {
			found := l
			return &found, nil
		}
	}
	return nil, nil
}

func (s *Store) DeleteLink(ctx context.Context, id models.LinkID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.links, id)
	return nil
}

// Reminder operations

func (s *Store) CreateReminder(ctx context.Context, reminder *models.Reminder) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if reminder.ID.IsZero() {
		reminder.ID = models.NewReminderID()
	}
	if reminder.CreatedAt.IsZero() {
		reminder.CreatedAt = s.now()
	}
	if reminder.UpdatedAt.IsZero() {
		reminder.UpdatedAt = reminder.CreatedAt
	}
	s.reminders[reminder.ID] = *reminder
	return nil
}

func (s *Store) GetReminder(ctx context.Context, id models.ReminderID) (*models.Reminder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if r, ok := s.reminders[id]; ok {
		return &r, nil
	}
	return nil, nil
}

func (s *Store) UpdateReminder(ctx context.Context, reminder *models.Reminder) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.reminders[reminder.ID]; !ok {
		return fmt.Errorf("reminder %s not found", reminder.ID)
	}
	reminder.UpdatedAt = s.now()
	s.reminders[reminder.ID] = *reminder
	return nil
}

func (s *Store) ListReminders(ctx context.Context, patientID models.UserID) ([]*models.Reminder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	reminders := []*models.Reminder{}
	for _, r := range s.reminders {
		if r.PatientID == patientID {
			found := r
			reminders = append(reminders, &found)
		}
	}
	sort.Slice(reminders, func(i, j int) bool {
		return reminders[i].CreatedAt.Before(reminders[j].CreatedAt)
	})
	return reminders, nil
}

// Journal operations

func (s *Store) CreateJournalEntry(ctx context.Context, entry *models.JournalEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry.ID.IsZero() {
		entry.ID = models.NewEntryID()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = s.now()
	}
	if entry.UpdatedAt.IsZero() {
		entry.UpdatedAt = entry.CreatedAt
	}
	s.entries[entry.ID] = *entry
	return nil
}

func (s *Store) GetJournalEntry(ctx context.Context, id models.EntryID) (*models.JournalEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if e, ok := s.entries[id]; ok {
		return &e, nil
	}
	return nil, nil
}

func (s *Store) UpdateJournalEntry(ctx context.Context, entry *models.JournalEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[entry.ID]; !ok {
		return fmt.Errorf("journal entry %s not found", entry.ID)
	}
	entry.UpdatedAt = s.now()
	s.entries[entry.ID] = *entry
	return nil
}

func (s *Store) ListJournalEntries(ctx context.Context, patientID models.UserID) ([]*models.JournalEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := []*models.JournalEntry{}
	for _, e := range s.entries {
		if e.PatientID == patientID {
			found := e
			entries = append(entries, &found)
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].CreatedAt.Before(entries[j].CreatedAt)
	})
	return entries, nil
}

// Message operations

func (s *Store) CreateMessage(ctx context.Context, message *models.ChatMessage) error {
	s.mu.Lock()

	if message.ID.IsZero() {
		message.ID = models.NewMessageID()
	}
	if message.CreatedAt.IsZero() {
		message.CreatedAt = s.now()
	}
	s.messages[message.ID] = *message

	event := store.MessageEvent{
		Action:  store.MessageCreated,
		Message: *message,
	}
	targets := make([]*feed, 0, len(s.watchers))
	for f := range s.watchers {
		if f.linkID == message.LinkID {
			targets = append(targets, f)
		}
	}
	s.mu.Unlock()

	for _, f := range targets {
		f.publish(event)
	}
	return nil
}

func (s *Store) ListMessages(ctx context.Context, linkID models.LinkID) ([]*models.ChatMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	messages := []*models.ChatMessage{}
	for _, m := range s.messages {
		if m.LinkID == linkID {
			found := m
			messages = append(messages, &found)
		}
	}
	sort.Slice(messages, func(i, j int) bool {
		return messages[i].CreatedAt.Before(messages[j].CreatedAt)
	})
	return messages, nil
}

// WatchMessages registers an in-process subscriber for the link.
func (s *Store) WatchMessages(ctx context.Context, linkID models.LinkID) (store.MessageFeed, error) {
	f := &feed{
		store:  s,
		linkID: linkID,
		events: make(chan store.MessageEvent, 16),
	}

	s.mu.Lock()
	s.watchers[f] = struct{}{}
	s.mu.Unlock()

	return f, nil
}

// OpenFeeds reports how many subscriptions are currently registered. Tests
// use it to assert teardown.
func (s *Store) OpenFeeds() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.watchers)
}

type feed struct {
	store  *Store
	linkID models.LinkID

	mu     sync.Mutex
	closed bool
	events chan store.MessageEvent
}

var _ store.MessageFeed = (*feed)(nil)

func (f *feed) Events() <-chan store.MessageEvent {
	return f.events
}

func (f *feed) Close(ctx context.Context) error {
	f.store.mu.Lock()
	delete(f.store.watchers, f)
	f.store.mu.Unlock()

	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.closed {
		f.closed = true
		close(f.events)
	}
	return nil
}

// closeLocked is called by Store.Close with the store mutex held.
func (f *feed) closeLocked() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.closed {
		f.closed = true
		close(f.events)
	}
}

func (f *feed) publish(event store.MessageEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	select {
	case f.events <- event:
	default:
		// Slow consumers drop events; the pull path reconciles.
	}
}
