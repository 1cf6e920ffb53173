package companion_test

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recoveryhub/companion/pkg/client"
	"github.com/recoveryhub/companion/pkg/companion"
	"github.com/recoveryhub/companion/pkg/models"
	"github.com/recoveryhub/companion/pkg/store/storetest"
)

type testEnv struct {
	app    *companion.App
	store  *storetest.Store
	server *httptest.Server
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	s := storetest.New()
	app := companion.NewWithStore(&companion.Config{ServerPort: "0"}, s)
	server := httptest.NewServer(app.Router())
	t.Cleanup(server.Close)
	t.Cleanup(func() { app.Close() })

	return &testEnv{app: app, store: s, server: server}
}

// signUp registers an account and optionally selects a role, returning an
// authenticated client and the profile.
func (e *testEnv) signUp(t *testing.T, name string, role models.Role) (*client.Client, *models.UserProfile) {
	t.Helper()
	ctx := context.Background()

	c := client.NewClient(e.server.URL)
	auth, err := c.SignUp(ctx, client.SignUpRequest{
		Email:    strings.ToLower(name) + "@example.com",
		Password: "correct-horse",
		Name:     name,
	})
	require.NoError(t, err)

	profile := auth.Profile
	if role != "" {
		profile, err = c.SetRole(ctx, profile.ID, role)
		require.NoError(t, err)
	}
	return c, profile
}

// linkPair signs up a caregiver and a patient and links them.
func (e *testEnv) linkPair(t *testing.T) (caregiver, patient *client.Client, caregiverProfile, patientProfile *models.UserProfile, link *models.RelationshipLink) {
	t.Helper()

	caregiver, caregiverProfile = e.signUp(t, "Grace", models.RoleCaregiver)
	patient, patientProfile = e.signUp(t, "Patrick", models.RolePatient)

	link, err := caregiver.CreateLink(context.Background(), patientProfile.ShareableCode)
	require.NoError(t, err)
	return caregiver, patient, caregiverProfile, patientProfile, link
}

func requireAPIError(t *testing.T, err error, status int) {
	t.Helper()
	var apiErr *client.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, status, apiErr.Status)
}

func TestHealth(t *testing.T) {
	e := newTestEnv(t)

	result, err := client.NewClient(e.server.URL).Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ok", result["status"])
}

func TestSignUpAndRoleSelection(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	c, profile := e.signUp(t, "Nia", "")
	assert.Empty(t, profile.Role)
	assert.Len(t, profile.ShareableCode, 6)

	session, err := c.GetCurrentSession(ctx)
	require.NoError(t, err)
	assert.Equal(t, "incomplete", session.State)
	assert.Empty(t, session.Links)

	updated, err := c.SetRole(ctx, profile.ID, models.RolePatient)
	require.NoError(t, err)
	assert.Equal(t, models.RolePatient, updated.Role)

	session, err = c.GetCurrentSession(ctx)
	require.NoError(t, err)
	assert.Equal(t, "active", session.State)
	assert.Empty(t, session.Links)
}

func TestSignUpDuplicateEmail(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	e.signUp(t, "Nia", "")

	c := client.NewClient(e.server.URL)
	_, err := c.SignUp(ctx, client.SignUpRequest{
		Email:    "nia@example.com",
		Password: "correct-horse",
		Name:     "Other Nia",
	})
	requireAPIError(t, err, 409)
}

func TestSignUpValidation(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	c := client.NewClient(e.server.URL)

	_, err := c.SignUp(ctx, client.SignUpRequest{Email: "not-an-email", Password: "correct-horse", Name: "X"})
	requireAPIError(t, err, 400)

	_, err = c.SignUp(ctx, client.SignUpRequest{Email: "x@example.com", Password: "short", Name: "X"})
	requireAPIError(t, err, 400)

	_, err = c.SignUp(ctx, client.SignUpRequest{Email: "x@example.com", Password: "correct-horse"})
	requireAPIError(t, err, 400)
}

func TestPayloadValidation(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	caregiver, patient, _, patientProfile, link := e.linkPair(t)

	// empty shareable code
	_, err := caregiver.CreateLink(ctx, "")
	requireAPIError(t, err, 400)

	// reminder without title / without patient
	_, err = caregiver.CreateReminder(ctx, client.CreateReminderRequest{PatientID: patientProfile.ID})
	requireAPIError(t, err, 400)
	_, err = caregiver.CreateReminder(ctx, client.CreateReminderRequest{Title: "No owner"})
	requireAPIError(t, err, 400)

	// journal entry without content
	_, err = patient.CreateJournalEntry(ctx, client.CreateJournalEntryRequest{})
	requireAPIError(t, err, 400)

	// journal update blanking the content
	entry, err := patient.CreateJournalEntry(ctx, client.CreateJournalEntryRequest{Content: "Keep me"})
	require.NoError(t, err)
	empty := ""
	_, err = patient.UpdateJournalEntry(ctx, entry.ID, client.UpdateJournalEntryRequest{Content: &empty})
	requireAPIError(t, err, 400)

	// message without a body
	_, err = patient.SendMessage(ctx, link.ID, "")
	requireAPIError(t, err, 400)
}

func TestSignInUnknownEmail(t *testing.T) {
	e := newTestEnv(t)

	c := client.NewClient(e.server.URL)
	_, err := c.SignIn(context.Background(), client.SignInRequest{
		Email:    "nobody@example.com",
		Password: "whatever-pass",
	})
	requireAPIError(t, err, 401)
}

func TestSignOutInvalidatesToken(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	c, _ := e.signUp(t, "Nia", models.RolePatient)
	require.NoError(t, c.SignOut(ctx))

	c.SetAuthToken("stale")
	_, err := c.GetCurrentSession(ctx)
	requireAPIError(t, err, 401)
}

func TestRefreshTokenRotates(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	c, _ := e.signUp(t, "Nia", models.RolePatient)
	old := c.AuthToken()

	auth, err := c.RefreshToken(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, old, auth.Token)

	_, err = c.GetCurrentSession(ctx)
	require.NoError(t, err)

	c.SetAuthToken(old)
	_, err = c.GetCurrentSession(ctx)
	requireAPIError(t, err, 401)
}

func TestSetRoleGuards(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	c, profile := e.signUp(t, "Nia", models.RolePatient)

	// switching an already-selected role
	_, err := c.SetRole(ctx, profile.ID, models.RoleCaregiver)
	requireAPIError(t, err, 409)

	// unknown role value
	_, err = c.SetRole(ctx, profile.ID, models.Role("administrator"))
	requireAPIError(t, err, 422)

	// someone else's profile
	_, otherProfile := e.signUp(t, "Sam", "")
	_, err = c.SetRole(ctx, otherProfile.ID, models.RolePatient)
	requireAPIError(t, err, 403)
}

func TestLinkingFlow(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	caregiver, patient, caregiverProfile, patientProfile, link := e.linkPair(t)

	// both sides see the relationship
	patients, err := caregiver.ListPatients(ctx, caregiverProfile.ID)
	require.NoError(t, err)
	require.Len(t, patients, 1)
	assert.Equal(t, patientProfile.ID, patients[0].ID)

	got, err := patient.GetCaregiver(ctx, patientProfile.ID)
	require.NoError(t, err)
	assert.Equal(t, caregiverProfile.ID, got.ID)

	// linking the same pair again conflicts
	_, err = caregiver.CreateLink(ctx, patientProfile.ShareableCode)
	requireAPIError(t, err, 409)

	// a second caregiver cannot claim a linked patient
	rival, _ := e.signUp(t, "Rita", models.RoleCaregiver)
	_, err = rival.CreateLink(ctx, patientProfile.ShareableCode)
	requireAPIError(t, err, 409)

	// unlink is idempotent
	require.NoError(t, caregiver.RemoveLink(ctx, link.ID))
	require.NoError(t, caregiver.RemoveLink(ctx, link.ID))

	_, err = patient.GetCaregiver(ctx, patientProfile.ID)
	requireAPIError(t, err, 404)

	// unlinked patient can be claimed again
	_, err = rival.CreateLink(ctx, patientProfile.ShareableCode)
	require.NoError(t, err)
}

func TestCreateLinkRejections(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	caregiver, _ := e.signUp(t, "Grace", models.RoleCaregiver)

	// unknown code
	_, err := caregiver.CreateLink(ctx, "ZZZZZZ")
	requireAPIError(t, err, 404)

	// a patient cannot act as the linking caregiver
	patientA, _ := e.signUp(t, "Patrick", models.RolePatient)
	_, patientB := e.signUp(t, "Paula", models.RolePatient)
	_, err = patientA.CreateLink(ctx, patientB.ShareableCode)
	requireAPIError(t, err, 422)

	// the code must belong to a patient
	_, rivalProfile := e.signUp(t, "Rita", models.RoleCaregiver)
	_, err = caregiver.CreateLink(ctx, rivalProfile.ShareableCode)
	requireAPIError(t, err, 422)
}

func TestRemoveLinkRequiresParty(t *testing.T) {
	e := newTestEnv(t)

	_, _, _, _, link := e.linkPair(t)

	outsider, _ := e.signUp(t, "Olive", models.RoleCaregiver)
	err := outsider.RemoveLink(context.Background(), link.ID)
	requireAPIError(t, err, 403)
}

func TestReminders(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	caregiver, patient, _, patientProfile, _ := e.linkPair(t)

	due := time.Now().Add(2 * time.Hour).UTC().Truncate(time.Second)
	created, err := caregiver.CreateReminder(ctx, client.CreateReminderRequest{
		PatientID: patientProfile.ID,
		Title:     "Take blood thinner",
		DueAt:     &due,
	})
	require.NoError(t, err)
	assert.False(t, created.Completed)

	// the patient can also create their own
	_, err = patient.CreateReminder(ctx, client.CreateReminderRequest{
		PatientID: patientProfile.ID,
		Title:     "Stretch left arm",
	})
	require.NoError(t, err)

	reminders, err := patient.ListReminders(ctx, patientProfile.ID)
	require.NoError(t, err)
	require.Len(t, reminders, 2)

	// either side toggles completion
	done, err := patient.SetReminderCompletion(ctx, created.ID, true)
	require.NoError(t, err)
	assert.True(t, done.Completed)

	undone, err := caregiver.SetReminderCompletion(ctx, created.ID, false)
	require.NoError(t, err)
	assert.False(t, undone.Completed)
}

func TestRemindersAccessControl(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	_, _, _, patientProfile, _ := e.linkPair(t)
	outsider, _ := e.signUp(t, "Olive", models.RoleCaregiver)

	_, err := outsider.CreateReminder(ctx, client.CreateReminderRequest{
		PatientID: patientProfile.ID,
		Title:     "Not yours",
	})
	requireAPIError(t, err, 403)

	_, err = outsider.ListReminders(ctx, patientProfile.ID)
	requireAPIError(t, err, 403)

	// reminders target patients, not caregivers
	_, outsiderProfile := e.signUp(t, "Oscar", models.RoleCaregiver)
	_, err = outsider.CreateReminder(ctx, client.CreateReminderRequest{
		PatientID: outsiderProfile.ID,
		Title:     "Wrong target",
	})
	requireAPIError(t, err, 422)
}

func TestJournalSharing(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	caregiver, patient, _, patientProfile, _ := e.linkPair(t)

	private, err := patient.CreateJournalEntry(ctx, client.CreateJournalEntryRequest{
		Content: "Rough day, keeping this to myself",
	})
	require.NoError(t, err)

	shared, err := patient.CreateJournalEntry(ctx, client.CreateJournalEntryRequest{
		Content:             "Walked to the mailbox without the cane",
		SharedWithCaregiver: true,
	})
	require.NoError(t, err)

	// the owner sees everything
	mine, err := patient.ListJournalEntries(ctx, patientProfile.ID)
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	// the caregiver sees only shared entries
	visible, err := caregiver.ListJournalEntries(ctx, patientProfile.ID)
	require.NoError(t, err)
	require.Len(t, visible, 1)
	assert.Equal(t, shared.ID, visible[0].ID)

	// sharing is reversible per entry
	off := false
	_, err = patient.UpdateJournalEntry(ctx, shared.ID, client.UpdateJournalEntryRequest{SharedWithCaregiver: &off})
	require.NoError(t, err)

	on := true
	_, err = patient.UpdateJournalEntry(ctx, private.ID, client.UpdateJournalEntryRequest{SharedWithCaregiver: &on})
	require.NoError(t, err)

	visible, err = caregiver.ListJournalEntries(ctx, patientProfile.ID)
	require.NoError(t, err)
	require.Len(t, visible, 1)
	assert.Equal(t, private.ID, visible[0].ID)
}

func TestJournalWritesAreOwnerOnly(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	caregiver, patient, _, _, _ := e.linkPair(t)

	entry, err := patient.CreateJournalEntry(ctx, client.CreateJournalEntryRequest{
		Content:             "Shared but not editable",
		SharedWithCaregiver: true,
	})
	require.NoError(t, err)

	edit := "Rewritten by someone else"
	_, err = caregiver.UpdateJournalEntry(ctx, entry.ID, client.UpdateJournalEntryRequest{Content: &edit})
	requireAPIError(t, err, 403)

	// caregivers do not keep journals
	_, err = caregiver.CreateJournalEntry(ctx, client.CreateJournalEntryRequest{Content: "Mine too?"})
	requireAPIError(t, err, 422)
}

func TestJournalUnauthenticatedPersistsNothing(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	_, _, _, patientProfile, _ := e.linkPair(t)

	c := client.NewClient(e.server.URL)
	_, err := c.CreateJournalEntry(ctx, client.CreateJournalEntryRequest{Content: "Anonymous note"})
	requireAPIError(t, err, 401)

	entries, err := e.store.ListJournalEntries(ctx, patientProfile.ID)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestChatHistory(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	caregiver, patient, caregiverProfile, patientProfile, link := e.linkPair(t)

	first, err := caregiver.SendMessage(ctx, link.ID, "How was the session?")
	require.NoError(t, err)
	assert.Equal(t, caregiverProfile.ID, first.SenderID)

	_, err = patient.SendMessage(ctx, link.ID, "Tiring but good")
	require.NoError(t, err)

	history, err := patient.ListMessages(ctx, link.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "How was the session?", history[0].Body)
	assert.Equal(t, "Tiring but good", history[1].Body)
	assert.Equal(t, patientProfile.ID, history[1].SenderID)

	outsider, _ := e.signUp(t, "Olive", models.RoleCaregiver)
	_, err = outsider.SendMessage(ctx, link.ID, "Let me in")
	requireAPIError(t, err, 403)
	_, err = outsider.ListMessages(ctx, link.ID)
	requireAPIError(t, err, 403)
}

func TestMessageStream(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	caregiver, patient, _, _, link := e.linkPair(t)

	wsURL := "ws" + strings.TrimPrefix(e.server.URL, "http") +
		"/api/links/" + link.ID.String() + "/messages/stream?token=" + patient.AuthToken()

	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}

	sent, err := caregiver.SendMessage(ctx, link.ID, "Dinner is in the fridge")
	require.NoError(t, err)

	var event struct {
		Action  string             `json:"action"`
		Message models.ChatMessage `json:"message"`
	}
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, conn.ReadJSON(&event))
	assert.Equal(t, "create", event.Action)
	assert.Equal(t, sent.ID, event.Message.ID)
	assert.Equal(t, "Dinner is in the fridge", event.Message.Body)

	require.NoError(t, conn.Close())

	// the server tears the feed down when the client goes away
	require.Eventually(t, func() bool {
		return e.store.OpenFeeds() == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestMessageStreamRequiresAuth(t *testing.T) {
	e := newTestEnv(t)

	_, _, _, _, link := e.linkPair(t)

	wsURL := "ws" + strings.TrimPrefix(e.server.URL, "http") +
		"/api/links/" + link.ID.String() + "/messages/stream"

	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	defer resp.Body.Close()
	assert.Equal(t, 401, resp.StatusCode)
}

func TestProfileRequiresAuth(t *testing.T) {
	e := newTestEnv(t)

	_, profile := e.signUp(t, "Nia", models.RolePatient)

	c := client.NewClient(e.server.URL)
	_, err := c.GetProfile(context.Background(), profile.ID)
	requireAPIError(t, err, 401)
}
