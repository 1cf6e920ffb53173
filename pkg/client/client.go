// Package client provides a Go HTTP client for the companion REST API.
//
// [Client] mirrors the server's endpoint structure with strongly-typed
// methods: authentication and session management, role selection, the
// caregiver-patient linking flow, and the reminder/journal/message
// operations. Request and response bodies reuse the
// [github.com/recoveryhub/companion/pkg/models] entities, so the types on
// both sides of the API boundary are identical.
//
// Authentication is token based. SignUp and SignIn store the returned token
// on the client, and every subsequent request carries it as a Bearer
// Authorization header until SignOut clears it.
//
// Server-side failures surface as [*APIError], which preserves the HTTP
// status code and response body so callers can distinguish a missing
// shareable code (404) from an already-linked conflict (409) or a role
// violation (422).
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/recoveryhub/companion/pkg/models"
)

// APIError is a non-2xx response from the server.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error: status=%d, body=%s", e.Status, e.Body)
}

// Client provides strongly-typed access to the companion REST API. Safe for
// concurrent use once authenticated; SetAuthToken itself is not synchronized.
type Client struct {
	baseURL    string
	httpClient *http.Client
	authToken  string
}

// NewClient creates a client for the API at baseURL (protocol and host, no
// trailing slash).
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// SetAuthToken sets the authentication token for the client.
func (c *Client) SetAuthToken(token string) {
	c.authToken = token
}

// AuthToken returns the current session token.
func (c *Client) AuthToken() string {
	return c.authToken
}

// doRequest performs an HTTP request with proper headers.
func (c *Client) doRequest(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if c.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.authToken)
	}

	return c.httpClient.Do(req)
}

// decodeResponse decodes the JSON response into the target struct.
func decodeResponse(resp *http.Response, target any) error {
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		return &APIError{Status: resp.StatusCode, Body: string(body)}
	}

	if target != nil && resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

// Health checks the health status of the server.
func (c *Client) Health(ctx context.Context) (map[string]any, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/health", nil)
	if err != nil {
		return nil, err
	}

	var result map[string]any
	if err := decodeResponse(resp, &result); err != nil {
		return nil, err
	}

	return result, nil
}

// Profiles

// SetRoleRequest selects the account role.
type SetRoleRequest struct {
	Role models.Role `json:"role" validate:"required"`
}

// GetProfile retrieves a profile by ID.
func (c *Client) GetProfile(ctx context.Context, id models.UserID) (*models.UserProfile, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, fmt.Sprintf("/api/profiles/%s", id), nil)
	if err != nil {
		return nil, err
	}

	var result models.UserProfile
	if err := decodeResponse(resp, &result); err != nil {
		return nil, err
	}

	return &result, nil
}

// SetRole performs one-shot role selection for the given profile.
func (c *Client) SetRole(ctx context.Context, id models.UserID, role models.Role) (*models.UserProfile, error) {
	resp, err := c.doRequest(ctx, http.MethodPut, fmt.Sprintf("/api/profiles/%s/role", id), SetRoleRequest{Role: role})
	if err != nil {
		return nil, err
	}

	var result models.UserProfile
	if err := decodeResponse(resp, &result); err != nil {
		return nil, err
	}

	return &result, nil
}

// Relationships

// CreateLinkRequest submits a patient's shareable code.
type CreateLinkRequest struct {
	Code string `json:"code" validate:"required"`
}

// CreateLink links the authenticated caregiver to the patient holding the
// given shareable code.
func (c *Client) CreateLink(ctx context.Context, code string) (*models.RelationshipLink, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, "/api/links", CreateLinkRequest{Code: code})
	if err != nil {
		return nil, err
	}

	var result models.RelationshipLink
	if err := decodeResponse(resp, &result); err != nil {
		return nil, err
	}

	return &result, nil
}

// RemoveLink unlinks a relationship. Idempotent.
func (c *Client) RemoveLink(ctx context.Context, id models.LinkID) error {
	resp, err := c.doRequest(ctx, http.MethodDelete, fmt.Sprintf("/api/links/%s", id), nil)
	if err != nil {
		return err
	}

	return decodeResponse(resp, nil)
}

// ListPatients retrieves the resolved patient profiles of a caregiver.
func (c *Client) ListPatients(ctx context.Context, caregiverID models.UserID) ([]*models.UserProfile, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, fmt.Sprintf("/api/caregivers/%s/patients", caregiverID), nil)
	if err != nil {
		return nil, err
	}

	var result []*models.UserProfile
	if err := decodeResponse(resp, &result); err != nil {
		return nil, err
	}

	return result, nil
}

// GetCaregiver retrieves a patient's caregiver profile. A patient with no
// caregiver yet gets an [*APIError] with status 404.
func (c *Client) GetCaregiver(ctx context.Context, patientID models.UserID) (*models.UserProfile, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, fmt.Sprintf("/api/patients/%s/caregiver", patientID), nil)
	if err != nil {
		return nil, err
	}

	var result models.UserProfile
	if err := decodeResponse(resp, &result); err != nil {
		return nil, err
	}

	return &result, nil
}

// Reminders

// CreateReminderRequest creates a reminder for a patient.
type CreateReminderRequest struct {
	PatientID models.UserID `json:"patient_id" validate:"required"`
	Title     string        `json:"title" validate:"required"`
	DueAt     *time.Time    `json:"due_at,omitempty"`
}

// SetCompletionRequest toggles a reminder's completion flag.
type SetCompletionRequest struct {
	Completed bool `json:"completed"`
}

// CreateReminder creates a reminder owned by the given patient.
func (c *Client) CreateReminder(ctx context.Context, req CreateReminderRequest) (*models.Reminder, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, "/api/reminders", req)
	if err != nil {
		return nil, err
	}

	var result models.Reminder
	if err := decodeResponse(resp, &result); err != nil {
		return nil, err
	}

	return &result, nil
}

// ListReminders retrieves a patient's reminders.
func (c *Client) ListReminders(ctx context.Context, patientID models.UserID) ([]*models.Reminder, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, fmt.Sprintf("/api/patients/%s/reminders", patientID), nil)
	if err != nil {
		return nil, err
	}

	var result []*models.Reminder
	if err := decodeResponse(resp, &result); err != nil {
		return nil, err
	}

	return result, nil
}

// SetReminderCompletion sets a reminder's completion flag.
func (c *Client) SetReminderCompletion(ctx context.Context, id models.ReminderID, completed bool) (*models.Reminder, error) {
	resp, err := c.doRequest(ctx, http.MethodPut, fmt.Sprintf("/api/reminders/%s/completion", id), SetCompletionRequest{Completed: completed})
	if err != nil {
		return nil, err
	}

	var result models.Reminder
	if err := decodeResponse(resp, &result); err != nil {
		return nil, err
	}

	return &result, nil
}

// Journal

// CreateJournalEntryRequest creates a journal entry for the authenticated
// patient.
type CreateJournalEntryRequest struct {
	Content             string `json:"content" validate:"required"`
	SharedWithCaregiver bool   `json:"shared_with_caregiver"`
}

// UpdateJournalEntryRequest updates a journal entry. Nil fields keep their
// current values.
type UpdateJournalEntryRequest struct {
	Content             *string `json:"content,omitempty" validate:"omitempty,min=1"`
	SharedWithCaregiver *bool   `json:"shared_with_caregiver,omitempty"`
}

// CreateJournalEntry creates a journal entry owned by the authenticated
// patient.
func (c *Client) CreateJournalEntry(ctx context.Context, req CreateJournalEntryRequest) (*models.JournalEntry, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, "/api/journal", req)
	if err != nil {
		return nil, err
	}

	var result models.JournalEntry
	if err := decodeResponse(resp, &result); err != nil {
		return nil, err
	}

	return &result, nil
}

// ListJournalEntries retrieves a patient's journal. Caregivers receive only
// the entries shared with them.
func (c *Client) ListJournalEntries(ctx context.Context, patientID models.UserID) ([]*models.JournalEntry, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, fmt.Sprintf("/api/patients/%s/journal", patientID), nil)
	if err != nil {
		return nil, err
	}

	var result []*models.JournalEntry
	if err := decodeResponse(resp, &result); err != nil {
		return nil, err
	}

	return result, nil
}

// UpdateJournalEntry updates an entry's content or sharing flag.
func (c *Client) UpdateJournalEntry(ctx context.Context, id models.EntryID, req UpdateJournalEntryRequest) (*models.JournalEntry, error) {
	resp, err := c.doRequest(ctx, http.MethodPut, fmt.Sprintf("/api/journal/%s", id), req)
	if err != nil {
		return nil, err
	}

	var result models.JournalEntry
	if err := decodeResponse(resp, &result); err != nil {
		return nil, err
	}

	return &result, nil
}

// Chat

// SendMessageRequest sends one chat message on a link.
type SendMessageRequest struct {
	Body string `json:"body" validate:"required"`
}

// SendMessage sends a message on the link's conversation.
func (c *Client) SendMessage(ctx context.Context, linkID models.LinkID, body string) (*models.ChatMessage, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, fmt.Sprintf("/api/links/%s/messages", linkID), SendMessageRequest{Body: body})
	if err != nil {
		return nil, err
	}

	var result models.ChatMessage
	if err := decodeResponse(resp, &result); err != nil {
		return nil, err
	}

	return &result, nil
}

// ListMessages retrieves the link's message history in ascending creation
// order.
func (c *Client) ListMessages(ctx context.Context, linkID models.LinkID) ([]*models.ChatMessage, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, fmt.Sprintf("/api/links/%s/messages", linkID), nil)
	if err != nil {
		return nil, err
	}

	var result []*models.ChatMessage
	if err := decodeResponse(resp, &result); err != nil {
		return nil, err
	}

	return result, nil
}
