package companion

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
)

// Run starts the HTTP server and blocks until the context is canceled or a
// fatal server error occurs. On cancellation it shuts down gracefully,
// allowing up to 5 seconds for in-flight requests.
//
// # API Endpoints
//
// Health check:
//
//	GET  /health, GET /api/health
//
// Authentication:
//
//	POST /api/auth/signup                       - Register account + profile
//	POST /api/auth/signin                       - Authenticate existing user
//	POST /api/auth/signout                      - End session
//	GET  /api/auth/me                           - Resolved session state
//	POST /api/auth/refresh                      - Rotate session token
//
// Profiles:
//
//	GET  /api/profiles/{id}                     - Profile by ID
//	PUT  /api/profiles/{id}/role                - One-shot role selection
//
// Relationships:
//
//	POST   /api/links                           - Link caregiver by shareable code
//	DELETE /api/links/{id}                      - Unlink (idempotent)
//	GET    /api/caregivers/{id}/patients        - Caregiver's patient profiles
//	GET    /api/patients/{id}/caregiver         - Patient's caregiver, 404 when none
//
// Care data:
//
//	POST /api/reminders                         - Create reminder
//	GET  /api/patients/{id}/reminders           - List patient's reminders
//	PUT  /api/reminders/{id}/completion         - Toggle completion
//	POST /api/journal                           - Create journal entry
//	GET  /api/patients/{id}/journal             - List entries (caregiver sees shared only)
//	PUT  /api/journal/{id}                      - Update entry
//
// Chat:
//
//	POST /api/links/{id}/messages               - Send message
//	GET  /api/links/{id}/messages               - History, ascending
//	GET  /api/links/{id}/messages/stream        - WebSocket live feed
func (a *App) Run(ctx context.Context, cmd *RunCommand) error {
	server := &http.Server{
		Addr:    fmt.Sprintf(":%s", a.config.ServerPort),
		Handler: a.Router(),
	}

	a.log.Info().Str("addr", server.Addr).Msg("starting companion server")

	serverErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		a.log.Info().Msg("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	case err := <-serverErr:
		return err
	}
}

// Router builds the full route table. Exposed separately so tests can mount
// it on httptest servers.
func (a *App) Router() *mux.Router {
	router := mux.NewRouter()

	api := router.PathPrefix("/api").Subrouter()

	api.HandleFunc("/health", a.handleHealth).Methods("GET")

	// Auth routes
	api.HandleFunc("/auth/signup", a.handleSignUp).Methods("POST")
	api.HandleFunc("/auth/signin", a.handleSignIn).Methods("POST")
	api.HandleFunc("/auth/signout", a.handleSignOut).Methods("POST")
	api.HandleFunc("/auth/me", a.handleGetCurrentSession).Methods("GET")
	api.HandleFunc("/auth/refresh", a.handleRefreshToken).Methods("POST")

	// Profile routes
	api.HandleFunc("/profiles/{id}", a.handleGetProfile).Methods("GET")
	api.HandleFunc("/profiles/{id}/role", a.handleSetRole).Methods("PUT")

	// Relationship routes
	api.HandleFunc("/links", a.handleCreateLink).Methods("POST")
	api.HandleFunc("/links/{id}", a.handleRemoveLink).Methods("DELETE")
	api.HandleFunc("/caregivers/{id}/patients", a.handleListPatients).Methods("GET")
	api.HandleFunc("/patients/{id}/caregiver", a.handleGetCaregiver).Methods("GET")

	// Reminder routes
	api.HandleFunc("/reminders", a.handleCreateReminder).Methods("POST")
	api.HandleFunc("/patients/{id}/reminders", a.handleListReminders).Methods("GET")
	api.HandleFunc("/reminders/{id}/completion", a.handleSetReminderCompletion).Methods("PUT")

	// Journal routes
	api.HandleFunc("/journal", a.handleCreateJournalEntry).Methods("POST")
	api.HandleFunc("/patients/{id}/journal", a.handleListJournalEntries).Methods("GET")
	api.HandleFunc("/journal/{id}", a.handleUpdateJournalEntry).Methods("PUT")

	// Chat routes
	api.HandleFunc("/links/{id}/messages", a.handleSendMessage).Methods("POST")
	api.HandleFunc("/links/{id}/messages", a.handleListMessages).Methods("GET")
	api.HandleFunc("/links/{id}/messages/stream", a.handleMessageStream).Methods("GET")

	// Health check route (outside of /api prefix)
	router.HandleFunc("/health", a.handleHealth).Methods("GET")

	return router
}
