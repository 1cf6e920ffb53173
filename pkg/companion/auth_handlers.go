package companion

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/recoveryhub/companion/pkg/client"
	"github.com/recoveryhub/companion/pkg/models"
)

// generateToken creates a random session token.
func generateToken() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return hex.EncodeToString(b)
}

// getTokenFromHeader extracts the Bearer token from the Authorization header.
func getTokenFromHeader(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return ""
}

// currentUserID resolves the request's session token to a user ID.
func (a *App) currentUserID(r *http.Request) (models.UserID, bool) {
	token := getTokenFromHeader(r)
	if token == "" {
		return models.UserID{}, false
	}

	a.sessionMu.RLock()
	defer a.sessionMu.RUnlock()
	userID, ok := a.sessions[token]
	return userID, ok
}

// requireUser authenticates the request or writes a 401. Handlers bail out
// before touching the store when the second return is false.
func (a *App) requireUser(w http.ResponseWriter, r *http.Request) (models.UserID, bool) {
	userID, ok := a.currentUserID(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "Authentication required")
		return models.UserID{}, false
	}
	return userID, true
}

func (a *App) handleSignUp(w http.ResponseWriter, r *http.Request) {
	var req client.SignUpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := a.validate.Struct(req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	// The profile starts without a role. The client walks the user through
	// role selection next; nothing here guesses for them.
	profile, err := a.directory.Register(r.Context(), req.Email, req.Name)
	if err != nil {
		a.respondCareError(w, err)
		return
	}

	token := generateToken()
	a.sessionMu.Lock()
	a.sessions[token] = profile.ID
	a.sessionMu.Unlock()

	a.log.Info().Str("user", profile.ID.String()).Msg("account created")

	respondJSON(w, http.StatusCreated, client.AuthResponse{
		Token:   token,
		Profile: profile,
	})
}

func (a *App) handleSignIn(w http.ResponseWriter, r *http.Request) {
	var req client.SignInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := a.validate.Struct(req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	profile, err := a.store.GetProfileByEmail(r.Context(), req.Email)
	if err != nil {
		a.log.Error().Err(err).Msg("failed to look up profile")
		respondError(w, http.StatusInternalServerError, "Failed to sign in")
		return
	}
	if profile == nil {
		respondError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	// Demo authentication: passwords are accepted for any known email.
	// TODO: store an argon2 hash on the profile and verify it here.

	token := generateToken()
	a.sessionMu.Lock()
	a.sessions[token] = profile.ID
	a.sessionMu.Unlock()

	respondJSON(w, http.StatusOK, client.AuthResponse{
		Token:   token,
		Profile: profile,
	})
}

func (a *App) handleSignOut(w http.ResponseWriter, r *http.Request) {
	token := getTokenFromHeader(r)
	if token == "" {
		respondError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	a.sessionMu.Lock()
	delete(a.sessions, token)
	a.sessionMu.Unlock()

	respondJSON(w, http.StatusOK, map[string]string{"status": "signed out"})
}

func (a *App) handleGetCurrentSession(w http.ResponseWriter, r *http.Request) {
	userID, ok := a.requireUser(w, r)
	if !ok {
		return
	}

	session, err := a.resolver.Resolve(r.Context(), userID)
	if err != nil {
		a.respondCareError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, session)
}

func (a *App) handleRefreshToken(w http.ResponseWriter, r *http.Request) {
	old := getTokenFromHeader(r)
	userID, ok := a.currentUserID(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	profile, err := a.directory.ResolveProfile(r.Context(), userID)
	if err != nil {
		a.respondCareError(w, err)
		return
	}

	// Rotate: the old token stops working the moment the new one exists.
	token := generateToken()
	a.sessionMu.Lock()
	delete(a.sessions, old)
	a.sessions[token] = userID
	a.sessionMu.Unlock()

	respondJSON(w, http.StatusOK, client.AuthResponse{
		Token:   token,
		Profile: profile,
	})
}
