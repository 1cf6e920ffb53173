package companion

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/recoveryhub/companion/pkg/care"
	"github.com/recoveryhub/companion/pkg/client"
	"github.com/recoveryhub/companion/pkg/models"
)

// respondJSON writes a JSON response with the given status code.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// respondError writes a JSON error response.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// decodeRequest decodes the JSON body into req and checks its validate
// tags. Handlers treat any failure as a 400.
func (a *App) decodeRequest(r *http.Request, req any) error {
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		return errors.New("invalid request body")
	}
	return a.validate.Struct(req)
}

// careStatus maps care package sentinels to HTTP status codes.
func careStatus(err error) int {
	switch {
	case errors.Is(err, care.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, care.ErrAlreadyLinked),
		errors.Is(err, care.ErrPatientHasCaregiver),
		errors.Is(err, care.ErrEmailInUse),
		errors.Is(err, care.ErrRoleAlreadySet):
		return http.StatusConflict
	case errors.Is(err, care.ErrWrongRole),
		errors.Is(err, care.ErrRoleUnresolved):
		return http.StatusUnprocessableEntity
	case errors.Is(err, care.ErrUnauthorized):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// respondCareError renders an error from the care layer. Expected domain
// outcomes keep their message; anything unrecognized is logged and hidden
// behind a generic 500.
func (a *App) respondCareError(w http.ResponseWriter, err error) {
	status := careStatus(err)
	if status == http.StatusInternalServerError {
		a.log.Error().Err(err).Msg("request failed")
		respondError(w, status, "Internal server error")
		return
	}
	respondError(w, status, err.Error())
}

func (a *App) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Profiles

func (a *App) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	if _, ok := a.requireUser(w, r); !ok {
		return
	}

	id, err := models.ParseUserID(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid profile ID")
		return
	}

	profile, err := a.directory.ResolveProfile(r.Context(), id)
	if err != nil {
		a.respondCareError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, profile)
}

func (a *App) handleSetRole(w http.ResponseWriter, r *http.Request) {
	userID, ok := a.requireUser(w, r)
	if !ok {
		return
	}

	id, err := models.ParseUserID(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid profile ID")
		return
	}
	if id != userID {
		respondError(w, http.StatusForbidden, "Cannot set another user's role")
		return
	}

	var req client.SetRoleRequest
	if err := a.decodeRequest(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	profile, err := a.directory.SetRole(r.Context(), id, req.Role)
	if err != nil {
		a.respondCareError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, profile)
}

// Relationships

func (a *App) handleCreateLink(w http.ResponseWriter, r *http.Request) {
	userID, ok := a.requireUser(w, r)
	if !ok {
		return
	}

	var req client.CreateLinkRequest
	if err := a.decodeRequest(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	link, err := a.registry.LinkByCode(r.Context(), userID, req.Code)
	if err != nil {
		a.respondCareError(w, err)
		return
	}

	a.log.Info().
		Str("caregiver", link.CaregiverID.String()).
		Str("patient", link.PatientID.String()).
		Msg("relationship linked")

	respondJSON(w, http.StatusCreated, link)
}

func (a *App) handleRemoveLink(w http.ResponseWriter, r *http.Request) {
	userID, ok := a.requireUser(w, r)
	if !ok {
		return
	}

	id, err := models.ParseLinkID(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid link ID")
		return
	}

	link, err := a.registry.Link(r.Context(), id)
	if err != nil {
		if errors.Is(err, care.ErrNotFound) {
			// Already gone: unlinking is idempotent.
			respondJSON(w, http.StatusNoContent, nil)
			return
		}
		a.respondCareError(w, err)
		return
	}

	if link.CaregiverID != userID && link.PatientID != userID {
		respondError(w, http.StatusForbidden, "Not a party to this link")
		return
	}

	if err := a.registry.RemoveLink(r.Context(), id); err != nil {
		a.respondCareError(w, err)
		return
	}

	respondJSON(w, http.StatusNoContent, nil)
}

func (a *App) handleListPatients(w http.ResponseWriter, r *http.Request) {
	userID, ok := a.requireUser(w, r)
	if !ok {
		return
	}

	id, err := models.ParseUserID(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid caregiver ID")
		return
	}
	if id != userID {
		respondError(w, http.StatusForbidden, "Cannot list another caregiver's patients")
		return
	}

	links, err := a.registry.LinksForCaregiver(r.Context(), id)
	if err != nil {
		a.respondCareError(w, err)
		return
	}

	patients := []*models.UserProfile{}
	for _, link := range links {
		patient, err := a.directory.ResolveProfile(r.Context(), link.PatientID)
		if err != nil {
			a.respondCareError(w, err)
			return
		}
		patients = append(patients, patient)
	}

	respondJSON(w, http.StatusOK, patients)
}

func (a *App) handleGetCaregiver(w http.ResponseWriter, r *http.Request) {
	userID, ok := a.requireUser(w, r)
	if !ok {
		return
	}

	id, err := models.ParseUserID(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid patient ID")
		return
	}
	if id != userID {
		respondError(w, http.StatusForbidden, "Cannot view another patient's caregiver")
		return
	}

	link, err := a.registry.LinkForPatient(r.Context(), id)
	if err != nil {
		a.respondCareError(w, err)
		return
	}

	caregiver, err := a.directory.ResolveProfile(r.Context(), link.CaregiverID)
	if err != nil {
		a.respondCareError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, caregiver)
}

// linkForPatient returns the patient's current link, or nil when the patient
// is unlinked. Scope derivation treats the two cases differently from a
// lookup failure, hence the unwrapping here.
func (a *App) linkForPatient(ctx context.Context, patientID models.UserID) (*models.RelationshipLink, error) {
	link, err := a.registry.LinkForPatient(ctx, patientID)
	if err != nil {
		if errors.Is(err, care.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return link, nil
}

// Reminders

func (a *App) handleCreateReminder(w http.ResponseWriter, r *http.Request) {
	userID, ok := a.requireUser(w, r)
	if !ok {
		return
	}

	var req client.CreateReminderRequest
	if err := a.decodeRequest(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	patient, err := a.directory.ResolveProfile(r.Context(), req.PatientID)
	if err != nil {
		a.respondCareError(w, err)
		return
	}
	if patient.Role != models.RolePatient {
		respondError(w, http.StatusUnprocessableEntity, "Reminders belong to patients")
		return
	}

	link, err := a.linkForPatient(r.Context(), req.PatientID)
	if err != nil {
		a.respondCareError(w, err)
		return
	}

	scope := care.ScopeFor(care.KindReminder, req.PatientID, link, false)
	if !scope.CanWrite(userID) {
		respondError(w, http.StatusForbidden, "No access to this patient's reminders")
		return
	}

	reminder := &models.Reminder{
		PatientID: req.PatientID,
		Title:     req.Title,
		DueAt:     req.DueAt,
		CreatedBy: userID,
	}
	if err := a.store.CreateReminder(r.Context(), reminder); err != nil {
		a.log.Error().Err(err).Msg("failed to create reminder")
		respondError(w, http.StatusInternalServerError, "Failed to create reminder")
		return
	}

	respondJSON(w, http.StatusCreated, reminder)
}

func (a *App) handleListReminders(w http.ResponseWriter, r *http.Request) {
	userID, ok := a.requireUser(w, r)
	if !ok {
		return
	}

	patientID, err := models.ParseUserID(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid patient ID")
		return
	}

	link, err := a.linkForPatient(r.Context(), patientID)
	if err != nil {
		a.respondCareError(w, err)
		return
	}

	scope := care.ScopeFor(care.KindReminder, patientID, link, false)
	if !scope.CanRead(userID) {
		respondError(w, http.StatusForbidden, "No access to this patient's reminders")
		return
	}

	reminders, err := a.store.ListReminders(r.Context(), patientID)
	if err != nil {
		a.log.Error().Err(err).Msg("failed to list reminders")
		respondError(w, http.StatusInternalServerError, "Failed to list reminders")
		return
	}

	respondJSON(w, http.StatusOK, reminders)
}

func (a *App) handleSetReminderCompletion(w http.ResponseWriter, r *http.Request) {
	userID, ok := a.requireUser(w, r)
	if !ok {
		return
	}

	id, err := models.ParseReminderID(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid reminder ID")
		return
	}

	reminder, err := a.store.GetReminder(r.Context(), id)
	if err != nil {
		a.log.Error().Err(err).Msg("failed to get reminder")
		respondError(w, http.StatusInternalServerError, "Failed to get reminder")
		return
	}
	if reminder == nil {
		respondError(w, http.StatusNotFound, "Reminder not found")
		return
	}

	link, err := a.linkForPatient(r.Context(), reminder.PatientID)
	if err != nil {
		a.respondCareError(w, err)
		return
	}

	scope := care.ScopeFor(care.KindReminder, reminder.PatientID, link, false)
	if !scope.CanWrite(userID) {
		respondError(w, http.StatusForbidden, "No access to this reminder")
		return
	}

	var req client.SetCompletionRequest
	if err := a.decodeRequest(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	reminder.Completed = req.Completed
	if err := a.store.UpdateReminder(r.Context(), reminder); err != nil {
		a.log.Error().Err(err).Msg("failed to update reminder")
		respondError(w, http.StatusInternalServerError, "Failed to update reminder")
		return
	}

	respondJSON(w, http.StatusOK, reminder)
}

// Journal

func (a *App) handleCreateJournalEntry(w http.ResponseWriter, r *http.Request) {
	userID, ok := a.requireUser(w, r)
	if !ok {
		return
	}

	var req client.CreateJournalEntryRequest
	if err := a.decodeRequest(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	profile, err := a.directory.ResolveProfile(r.Context(), userID)
	if err != nil {
		a.respondCareError(w, err)
		return
	}
	if profile.Role != models.RolePatient {
		respondError(w, http.StatusUnprocessableEntity, "Only patients keep a journal")
		return
	}

	entry := &models.JournalEntry{
		PatientID:           userID,
		Content:             req.Content,
		SharedWithCaregiver: req.SharedWithCaregiver,
	}
	if err := a.store.CreateJournalEntry(r.Context(), entry); err != nil {
		a.log.Error().Err(err).Msg("failed to create journal entry")
		respondError(w, http.StatusInternalServerError, "Failed to create journal entry")
		return
	}

	respondJSON(w, http.StatusCreated, entry)
}

func (a *App) handleListJournalEntries(w http.ResponseWriter, r *http.Request) {
	userID, ok := a.requireUser(w, r)
	if !ok {
		return
	}

	patientID, err := models.ParseUserID(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid patient ID")
		return
	}

	link, err := a.linkForPatient(r.Context(), patientID)
	if err != nil {
		a.respondCareError(w, err)
		return
	}

	if userID != patientID && (link == nil || link.CaregiverID != userID) {
		respondError(w, http.StatusForbidden, "No access to this patient's journal")
		return
	}

	entries, err := a.store.ListJournalEntries(r.Context(), patientID)
	if err != nil {
		a.log.Error().Err(err).Msg("failed to list journal entries")
		respondError(w, http.StatusInternalServerError, "Failed to list journal entries")
		return
	}

	// Sharing is per entry, so the filter is too. The owner falls through
	// every check; the caregiver keeps only entries shared at read time.
	visible := []*models.JournalEntry{}
	for _, entry := range entries {
		scope := care.ScopeFor(care.KindJournalEntry, patientID, link, entry.SharedWithCaregiver)
		if scope.CanRead(userID) {
			visible = append(visible, entry)
		}
	}

	respondJSON(w, http.StatusOK, visible)
}

func (a *App) handleUpdateJournalEntry(w http.ResponseWriter, r *http.Request) {
	userID, ok := a.requireUser(w, r)
	if !ok {
		return
	}

	id, err := models.ParseEntryID(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid journal entry ID")
		return
	}

	entry, err := a.store.GetJournalEntry(r.Context(), id)
	if err != nil {
		a.log.Error().Err(err).Msg("failed to get journal entry")
		respondError(w, http.StatusInternalServerError, "Failed to get journal entry")
		return
	}
	if entry == nil {
		respondError(w, http.StatusNotFound, "Journal entry not found")
		return
	}

	link, err := a.linkForPatient(r.Context(), entry.PatientID)
	if err != nil {
		a.respondCareError(w, err)
		return
	}

	scope := care.ScopeFor(care.KindJournalEntry, entry.PatientID, link, entry.SharedWithCaregiver)
	if !scope.CanWrite(userID) {
		respondError(w, http.StatusForbidden, "Only the owner can edit a journal entry")
		return
	}

	var req client.UpdateJournalEntryRequest
	if err := a.decodeRequest(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if req.Content != nil {
		entry.Content = *req.Content
	}
	if req.SharedWithCaregiver != nil {
		entry.SharedWithCaregiver = *req.SharedWithCaregiver
	}

	if err := a.store.UpdateJournalEntry(r.Context(), entry); err != nil {
		a.log.Error().Err(err).Msg("failed to update journal entry")
		respondError(w, http.StatusInternalServerError, "Failed to update journal entry")
		return
	}

	respondJSON(w, http.StatusOK, entry)
}

// Chat

// linkParty loads a link and verifies the user is one of its two sides.
func (a *App) linkParty(w http.ResponseWriter, r *http.Request, userID models.UserID) (*models.RelationshipLink, bool) {
	id, err := models.ParseLinkID(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid link ID")
		return nil, false
	}

	link, err := a.registry.Link(r.Context(), id)
	if err != nil {
		a.respondCareError(w, err)
		return nil, false
	}

	if link.CaregiverID != userID && link.PatientID != userID {
		respondError(w, http.StatusForbidden, "Not a party to this link")
		return nil, false
	}

	return link, true
}

func (a *App) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	userID, ok := a.requireUser(w, r)
	if !ok {
		return
	}

	link, ok := a.linkParty(w, r, userID)
	if !ok {
		return
	}

	var req client.SendMessageRequest
	if err := a.decodeRequest(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	message := &models.ChatMessage{
		LinkID:   link.ID,
		SenderID: userID,
		Body:     req.Body,
	}
	if err := a.store.CreateMessage(r.Context(), message); err != nil {
		a.log.Error().Err(err).Msg("failed to send message")
		respondError(w, http.StatusInternalServerError, "Failed to send message")
		return
	}

	respondJSON(w, http.StatusCreated, message)
}

func (a *App) handleListMessages(w http.ResponseWriter, r *http.Request) {
	userID, ok := a.requireUser(w, r)
	if !ok {
		return
	}

	link, ok := a.linkParty(w, r, userID)
	if !ok {
		return
	}

	messages, err := a.store.ListMessages(r.Context(), link.ID)
	if err != nil {
		a.log.Error().Err(err).Msg("failed to list messages")
		respondError(w, http.StatusInternalServerError, "Failed to list messages")
		return
	}

	respondJSON(w, http.StatusOK, messages)
}
