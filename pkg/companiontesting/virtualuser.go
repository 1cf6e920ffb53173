// Package companiontesting provides end-to-end testing utilities for the
// companion application.
//
// [VirtualUser] is a stateful simulated user driving the API through
// [github.com/recoveryhub/companion/pkg/client]: it signs up, selects a
// role, and performs role-appropriate operations while tracking what it
// created. [CarePair] bundles a virtual caregiver and patient, establishes
// their link, and runs a full care scenario — reminders, journal sharing,
// and chat — verifying at each step that both sides observe what the
// relationship allows and nothing more.
//
// Virtual users work against any server exposing the API, so the same
// scenario validates the in-memory store in unit tests and a real SurrealDB
// deployment in integration runs:
//
//	pair := companiontesting.NewCarePair(serverURL)
//	if err := pair.Establish(ctx); err != nil {
//		t.Fatal(err)
//	}
//	if err := pair.RunScenario(ctx); err != nil {
//		t.Fatal(err)
//	}
//
// Randomized values (names, reminder titles, message bodies) come from a
// seeded generator so failed runs replay exactly.
package companiontesting

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/recoveryhub/companion/pkg/chat"
	"github.com/recoveryhub/companion/pkg/client"
	"github.com/recoveryhub/companion/pkg/models"
)

// VirtualUser is a simulated account holder driving the API through its own
// client.
type VirtualUser struct {
	Index    int
	Name     string
	Email    string
	Password string
	BaseURL  string
	Client   *client.Client
	RNG      *rand.Rand

	// Profile is set after SignUp.
	Profile *models.UserProfile

	// Tracking data created by this user.
	Reminders []*models.Reminder
	Entries   []*models.JournalEntry
	Sent      []*models.ChatMessage
}

// NewVirtualUser creates a virtual user with a deterministic generator
// seeded by index. Emails embed a timestamp so repeated runs against a
// persistent store never collide.
func NewVirtualUser(index int, baseURL string) *VirtualUser {
	return &VirtualUser{
		Index:    index,
		Name:     fmt.Sprintf("Virtual User %d", index),
		Email:    fmt.Sprintf("user%d-%d@test.com", index, time.Now().UnixNano()),
		Password: fmt.Sprintf("password-%d", index),
		BaseURL:  baseURL,
		Client:   client.NewClient(baseURL),
		RNG:      rand.New(rand.NewSource(int64(index))),
	}
}

// SignUp registers the account and stores the profile.
func (v *VirtualUser) SignUp(ctx context.Context) error {
	auth, err := v.Client.SignUp(ctx, client.SignUpRequest{
		Email:    v.Email,
		Password: v.Password,
		Name:     v.Name,
	})
	if err != nil {
		return fmt.Errorf("user %d: sign up: %w", v.Index, err)
	}
	v.Profile = auth.Profile
	return nil
}

// SelectRole performs role selection and refreshes the profile.
func (v *VirtualUser) SelectRole(ctx context.Context, role models.Role) error {
	profile, err := v.Client.SetRole(ctx, v.Profile.ID, role)
	if err != nil {
		return fmt.Errorf("user %d: set role %s: %w", v.Index, role, err)
	}
	v.Profile = profile
	return nil
}

// CarePair is a linked virtual caregiver and patient.
type CarePair struct {
	Caregiver *VirtualUser
	Patient   *VirtualUser
	Link      *models.RelationshipLink
}

// NewCarePair creates an unestablished pair against the given server.
func NewCarePair(baseURL string) *CarePair {
	return &CarePair{
		Caregiver: NewVirtualUser(0, baseURL),
		Patient:   NewVirtualUser(1, baseURL),
	}
}

// Establish signs up both users, selects their roles, and links them via
// the patient's shareable code.
func (p *CarePair) Establish(ctx context.Context) error {
	if err := p.Caregiver.SignUp(ctx); err != nil {
		return err
	}
	if err := p.Caregiver.SelectRole(ctx, models.RoleCaregiver); err != nil {
		return err
	}
	if err := p.Patient.SignUp(ctx); err != nil {
		return err
	}
	if err := p.Patient.SelectRole(ctx, models.RolePatient); err != nil {
		return err
	}

	link, err := p.Caregiver.Client.CreateLink(ctx, p.Patient.Profile.ShareableCode)
	if err != nil {
		return fmt.Errorf("link by code: %w", err)
	}
	p.Link = link

	// Both sides should resolve an active session carrying the link.
	for _, v := range []*VirtualUser{p.Caregiver, p.Patient} {
		session, err := v.Client.GetCurrentSession(ctx)
		if err != nil {
			return fmt.Errorf("user %d: resolve session: %w", v.Index, err)
		}
		if session.State != "active" {
			return fmt.Errorf("user %d: session state %q, want active", v.Index, session.State)
		}
		if len(session.Links) != 1 || session.Links[0].ID != link.ID {
			return fmt.Errorf("user %d: session does not carry the link", v.Index)
		}
	}
	return nil
}

// RunScenario exercises the full care surface over the established link:
// reminders from both sides, journal entries with and without sharing, and
// a chat exchange. Each step verifies what the other side can observe.
func (p *CarePair) RunScenario(ctx context.Context) error {
	if p.Link == nil {
		return fmt.Errorf("scenario requires an established pair")
	}
	if err := p.runReminders(ctx); err != nil {
		return fmt.Errorf("reminders: %w", err)
	}
	if err := p.runJournal(ctx); err != nil {
		return fmt.Errorf("journal: %w", err)
	}
	if err := p.runChat(ctx); err != nil {
		return fmt.Errorf("chat: %w", err)
	}
	return nil
}

var reminderTitles = []string{
	"Take morning medication",
	"Physio exercises",
	"Speech practice",
	"Walk to the corner",
	"Drink water",
}

func (p *CarePair) runReminders(ctx context.Context) error {
	patientID := p.Patient.Profile.ID

	// The caregiver creates a few, the patient adds one of their own.
	count := 2 + p.Caregiver.RNG.Intn(3)
	for i := 0; i < count; i++ {
		title := reminderTitles[p.Caregiver.RNG.Intn(len(reminderTitles))]
		due := time.Now().Add(time.Duration(1+i) * time.Hour).UTC()
		reminder, err := p.Caregiver.Client.CreateReminder(ctx, client.CreateReminderRequest{
			PatientID: patientID,
			Title:     title,
			DueAt:     &due,
		})
		if err != nil {
			return fmt.Errorf("caregiver create: %w", err)
		}
		p.Caregiver.Reminders = append(p.Caregiver.Reminders, reminder)
	}

	own, err := p.Patient.Client.CreateReminder(ctx, client.CreateReminderRequest{
		PatientID: patientID,
		Title:     "Call the clinic",
	})
	if err != nil {
		return fmt.Errorf("patient create: %w", err)
	}
	p.Patient.Reminders = append(p.Patient.Reminders, own)

	listed, err := p.Patient.Client.ListReminders(ctx, patientID)
	if err != nil {
		return fmt.Errorf("patient list: %w", err)
	}
	if want := count + 1; len(listed) != want {
		return fmt.Errorf("patient sees %d reminders, want %d", len(listed), want)
	}

	// The patient completes one, the caregiver should see it completed.
	target := p.Caregiver.Reminders[0]
	if _, err := p.Patient.Client.SetReminderCompletion(ctx, target.ID, true); err != nil {
		return fmt.Errorf("patient complete: %w", err)
	}

	listed, err = p.Caregiver.Client.ListReminders(ctx, patientID)
	if err != nil {
		return fmt.Errorf("caregiver list: %w", err)
	}
	completed := 0
	for _, r := range listed {
		if r.Completed {
			completed++
		}
	}
	if completed != 1 {
		return fmt.Errorf("caregiver sees %d completed reminders, want 1", completed)
	}
	return nil
}

func (p *CarePair) runJournal(ctx context.Context) error {
	patientID := p.Patient.Profile.ID

	private, err := p.Patient.Client.CreateJournalEntry(ctx, client.CreateJournalEntryRequest{
		Content: "Private reflection, not for sharing",
	})
	if err != nil {
		return fmt.Errorf("create private: %w", err)
	}
	shared, err := p.Patient.Client.CreateJournalEntry(ctx, client.CreateJournalEntryRequest{
		Content:             "Managed the stairs twice today",
		SharedWithCaregiver: true,
	})
	if err != nil {
		return fmt.Errorf("create shared: %w", err)
	}
	p.Patient.Entries = append(p.Patient.Entries, private, shared)

	mine, err := p.Patient.Client.ListJournalEntries(ctx, patientID)
	if err != nil {
		return fmt.Errorf("patient list: %w", err)
	}
	if len(mine) != 2 {
		return fmt.Errorf("patient sees %d entries, want 2", len(mine))
	}

	visible, err := p.Caregiver.Client.ListJournalEntries(ctx, patientID)
	if err != nil {
		return fmt.Errorf("caregiver list: %w", err)
	}
	if len(visible) != 1 || visible[0].ID != shared.ID {
		return fmt.Errorf("caregiver visibility does not match sharing flags")
	}

	// Revoking the share removes it from the caregiver's view.
	off := false
	if _, err := p.Patient.Client.UpdateJournalEntry(ctx, shared.ID, client.UpdateJournalEntryRequest{
		SharedWithCaregiver: &off,
	}); err != nil {
		return fmt.Errorf("revoke share: %w", err)
	}
	visible, err = p.Caregiver.Client.ListJournalEntries(ctx, patientID)
	if err != nil {
		return fmt.Errorf("caregiver relist: %w", err)
	}
	if len(visible) != 0 {
		return fmt.Errorf("caregiver still sees %d entries after revoke", len(visible))
	}
	return nil
}

var chatLines = []string{
	"How are you feeling today?",
	"Better than yesterday",
	"Remember the appointment at three",
	"I will be ready",
}

func (p *CarePair) runChat(ctx context.Context) error {
	turns := []*VirtualUser{p.Caregiver, p.Patient, p.Caregiver, p.Patient}
	for i, v := range turns {
		msg, err := v.Client.SendMessage(ctx, p.Link.ID, chatLines[i])
		if err != nil {
			return fmt.Errorf("user %d send: %w", v.Index, err)
		}
		v.Sent = append(v.Sent, msg)
	}

	for _, v := range []*VirtualUser{p.Caregiver, p.Patient} {
		history, err := v.Client.ListMessages(ctx, p.Link.ID)
		if err != nil {
			return fmt.Errorf("user %d history: %w", v.Index, err)
		}
		if len(history) != len(chatLines) {
			return fmt.Errorf("user %d sees %d messages, want %d", v.Index, len(history), len(chatLines))
		}
		for i, m := range history {
			if m.Body != chatLines[i] {
				return fmt.Errorf("user %d message %d out of order: %q", v.Index, i, m.Body)
			}
		}
	}
	return nil
}

// streamEvent mirrors the wire format of the message stream endpoint.
type streamEvent struct {
	Action  string             `json:"action"`
	Message models.ChatMessage `json:"message"`
}

// openStream dials the WebSocket message stream for the link as this user.
func (v *VirtualUser) openStream(linkID models.LinkID) (*websocket.Conn, error) {
	wsURL := "ws" + strings.TrimPrefix(v.BaseURL, "http") +
		"/api/links/" + linkID.String() + "/messages/stream?token=" + v.Client.AuthToken()

	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("user %d: dial stream: %w", v.Index, err)
	}
	return conn, nil
}

// RunLiveChat exercises the realtime path: the patient subscribes to the
// stream before pulling history, so pushed messages and the history batch
// overlap. A [chat.Timeline] merges the two; the run fails if the overlap
// duplicates messages or breaks the append-only order.
func (p *CarePair) RunLiveChat(ctx context.Context) error {
	if p.Link == nil {
		return fmt.Errorf("live chat requires an established pair")
	}

	conn, err := p.Patient.openStream(p.Link.ID)
	if err != nil {
		return err
	}
	defer conn.Close()

	lines := []string{"Checking in", "All quiet here", "See you at dinner"}

	// Two messages land while the subscription is already open but before
	// the history pull, creating the overlap the timeline must absorb.
	for _, line := range lines[:2] {
		if _, err := p.Caregiver.Client.SendMessage(ctx, p.Link.ID, line); err != nil {
			return fmt.Errorf("send %q: %w", line, err)
		}
	}

	history, err := p.Patient.Client.ListMessages(ctx, p.Link.ID)
	if err != nil {
		return fmt.Errorf("pull history: %w", err)
	}

	timeline := chat.NewTimeline()
	timeline.AddHistory(history)

	if _, err := p.Caregiver.Client.SendMessage(ctx, p.Link.ID, lines[2]); err != nil {
		return fmt.Errorf("send %q: %w", lines[2], err)
	}

	// All three sends produce stream events; the first two are duplicates
	// of the history batch and must not re-enter the timeline.
	appended := 0
	for i := 0; i < len(lines); i++ {
		if err := conn.SetReadDeadline(time.Now().Add(5 * time.Second)); err != nil {
			return err
		}
		var event streamEvent
		if err := conn.ReadJSON(&event); err != nil {
			return fmt.Errorf("read stream event: %w", err)
		}
		if event.Action != "create" {
			return fmt.Errorf("unexpected stream action %q", event.Action)
		}
		if timeline.Append(event.Message) {
			appended++
		}
	}

	if appended != 1 {
		return fmt.Errorf("%d stream events appended, want 1 (overlap must deduplicate)", appended)
	}

	merged := timeline.Messages()
	if len(merged) < len(lines) {
		return fmt.Errorf("timeline holds %d messages, want at least %d", len(merged), len(lines))
	}
	tail := merged[len(merged)-len(lines):]
	for i, m := range tail {
		if m.Body != lines[i] {
			return fmt.Errorf("timeline position %d is %q, want %q", i, m.Body, lines[i])
		}
	}
	return nil
}

// Unlink removes the relationship and verifies the patient reads back as
// unconnected.
func (p *CarePair) Unlink(ctx context.Context) error {
	if err := p.Caregiver.Client.RemoveLink(ctx, p.Link.ID); err != nil {
		return fmt.Errorf("remove link: %w", err)
	}

	session, err := p.Patient.Client.GetCurrentSession(ctx)
	if err != nil {
		return fmt.Errorf("patient session: %w", err)
	}
	if session.State != "active" || len(session.Links) != 0 {
		return fmt.Errorf("patient session should be active and unlinked")
	}
	p.Link = nil
	return nil
}
