package care

import (
	"context"
	"errors"
	"fmt"

	"github.com/recoveryhub/companion/pkg/models"
)

// SessionState is where an authenticated user stands in the resolution
// pipeline.
type SessionState string

const (
	// StateActive means the profile has a role and the relationship summary
	// is loaded; the user can use role-appropriate features.
	StateActive SessionState = "active"

	// StateIncomplete means the account exists but role selection has not
	// happened. The only permitted next step is choosing a role.
	StateIncomplete SessionState = "incomplete"
)

// Session is the resolved state for an authenticated user: the profile, the
// explicit role, and the links the role implies. Handlers consult it instead
// of re-deriving role logic inline.
type Session struct {
	State   SessionState        `json:"state"`
	Profile *models.UserProfile `json:"profile"`

	// Links holds the caregiver's links, or the patient's single link.
	// Empty for an unlinked user and always empty while State is
	// StateIncomplete.
	Links []*models.RelationshipLink `json:"links"`
}

// Role is a convenience accessor; empty while the session is incomplete.
func (s *Session) Role() models.Role {
	if s.Profile == nil {
		return ""
	}
	return s.Profile.Role
}

// Resolver folds a profile and its links into a Session.
type Resolver struct {
	directory *Directory
	registry  *Registry
}

// NewResolver returns a Resolver over the given directory and registry.
func NewResolver(directory *Directory, registry *Registry) *Resolver {
	return &Resolver{directory: directory, registry: registry}
}

// Resolve builds the session for userID.
//
// A missing profile is [ErrNotFound]. A profile without a role resolves to
// an incomplete session, not an error and never a defaulted role. A profile
// with an unknown role value is [ErrRoleUnresolved]: resolution failure is
// explicit, nothing falls back to patient.
func (r *Resolver) Resolve(ctx context.Context, userID models.UserID) (*Session, error) {
	profile, err := r.directory.ResolveProfile(ctx, userID)
	if err != nil {
		return nil, err
	}

	if profile.Role == "" {
		return &Session{
			State:   StateIncomplete,
			Profile: profile,
		}, nil
	}
	if !profile.Role.Valid() {
		return nil, fmt.Errorf("profile %s has role %q: %w", userID, profile.Role, ErrRoleUnresolved)
	}

	session := &Session{
		State:   StateActive,
		Profile: profile,
	}

	switch profile.Role {
	case models.RoleCaregiver:
		links, err := r.registry.LinksForCaregiver(ctx, userID)
		if err != nil {
			return nil, err
		}
		session.Links = links

	case models.RolePatient:
		link, err := r.registry.LinkForPatient(ctx, userID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				// Unlinked patient: active session, no relationship yet.
				return session, nil
			}
			return nil, err
		}
		session.Links = []*models.RelationshipLink{link}
	}

	return session, nil
}
