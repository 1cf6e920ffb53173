package care

import (
	"context"
	"fmt"

	"github.com/recoveryhub/companion/pkg/models"
	"github.com/recoveryhub/companion/pkg/store"
)

// Registry maintains caregiver-patient relationship links.
type Registry struct {
	store     store.Store
	directory *Directory
}

// NewRegistry returns a Registry backed by s.
func NewRegistry(s store.Store, directory *Directory) *Registry {
	return &Registry{store: s, directory: directory}
}

// CreateLink connects a caregiver to a patient.
//
// Both profiles must exist and carry the expected roles; violations are
// [ErrWrongRole]. An existing link for the same pair is [ErrAlreadyLinked],
// and a patient already connected to a different caregiver is
// [ErrPatientHasCaregiver]. The pre-checks give precise errors; the derived
// link ID makes the create itself collide at the store if two requests race
// past them.
func (r *Registry) CreateLink(ctx context.Context, caregiverID, patientID models.UserID) (*models.RelationshipLink, error) {
	caregiver, err := r.directory.ResolveProfile(ctx, caregiverID)
	if err != nil {
		return nil, err
	}
	if caregiver.Role != models.RoleCaregiver {
		return nil, fmt.Errorf("profile %s is not a caregiver: %w", caregiverID, ErrWrongRole)
	}

	patient, err := r.directory.ResolveProfile(ctx, patientID)
	if err != nil {
		return nil, err
	}
	if patient.Role != models.RolePatient {
		return nil, fmt.Errorf("profile %s is not a patient: %w", patientID, ErrWrongRole)
	}

	linkID := models.NewLinkIDForPair(caregiverID, patientID)
	existing, err := r.store.GetLink(ctx, linkID)
	if err != nil {
		return nil, fmt.Errorf("check existing link: %w", err)
	}
	if existing != nil {
		return nil, fmt.Errorf("caregiver %s and patient %s: %w", caregiverID, patientID, ErrAlreadyLinked)
	}

	current, err := r.store.GetLinkByPatient(ctx, patientID)
	if err != nil {
		return nil, fmt.Errorf("check patient link: %w", err)
	}
	if current != nil {
		return nil, fmt.Errorf("patient %s: %w", patientID, ErrPatientHasCaregiver)
	}

	link := &models.RelationshipLink{
		ID:          linkID,
		CaregiverID: caregiverID,
		PatientID:   patientID,
	}
	if err := r.store.CreateLink(ctx, link); err != nil {
		return nil, fmt.Errorf("create link: %w", err)
	}
	return link, nil
}

// LinkByCode connects a caregiver to the patient holding the given
// shareable code. This is the linking flow the caregiver UI drives: the
// patient reads their code aloud, the caregiver types it in.
func (r *Registry) LinkByCode(ctx context.Context, caregiverID models.UserID, code string) (*models.RelationshipLink, error) {
	patient, err := r.directory.FindByShareableCode(ctx, code)
	if err != nil {
		return nil, err
	}
	return r.CreateLink(ctx, caregiverID, patient.ID)
}

// Link returns the link with the given ID. Missing is [ErrNotFound].
func (r *Registry) Link(ctx context.Context, id models.LinkID) (*models.RelationshipLink, error) {
	link, err := r.store.GetLink(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get link: %w", err)
	}
	if link == nil {
		return nil, fmt.Errorf("link %s: %w", id, ErrNotFound)
	}
	return link, nil
}

// LinksForCaregiver returns every link where the given user is the
// caregiver. No links is an empty slice, not an error.
func (r *Registry) LinksForCaregiver(ctx context.Context, caregiverID models.UserID) ([]*models.RelationshipLink, error) {
	links, err := r.store.ListLinksByCaregiver(ctx, caregiverID)
	if err != nil {
		return nil, fmt.Errorf("list links for caregiver: %w", err)
	}
	return links, nil
}

// LinkForPatient returns the patient's single link, or [ErrNotFound] when
// the patient has no caregiver yet. Clients render that case as "no
// connection yet" rather than a failure.
func (r *Registry) LinkForPatient(ctx context.Context, patientID models.UserID) (*models.RelationshipLink, error) {
	link, err := r.store.GetLinkByPatient(ctx, patientID)
	if err != nil {
		return nil, fmt.Errorf("get link for patient: %w", err)
	}
	if link == nil {
		return nil, fmt.Errorf("patient %s has no caregiver: %w", patientID, ErrNotFound)
	}
	return link, nil
}

// RemoveLink deletes a link. Removing a link that does not exist succeeds;
// the operation is idempotent by contract.
func (r *Registry) RemoveLink(ctx context.Context, id models.LinkID) error {
	if err := r.store.DeleteLink(ctx, id); err != nil {
		return fmt.Errorf("remove link: %w", err)
	}
	return nil
}
