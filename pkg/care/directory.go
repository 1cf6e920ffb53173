// Package care implements the relationship and access model of the
// companion service: profile lookup, caregiver-patient links, permission
// scoping over care data, and session role resolution.
//
// The four components form a pipeline. The [Directory] resolves identities,
// the [Registry] maintains links between them, [ScopeFor] derives the
// permission set a link implies for each document kind, and the [Resolver]
// folds profile and links into the session state handlers act on. All
// components sit above the [store.Store] boundary and add no storage of
// their own, so every permission decision is re-derivable at read time.
package care

import (
	"context"
	"fmt"
	"strings"

	"github.com/recoveryhub/companion/pkg/models"
	"github.com/recoveryhub/companion/pkg/store"
)

// Directory resolves user identities by ID and by shareable invite code.
type Directory struct {
	store store.Store
}

// NewDirectory returns a Directory backed by s.
func NewDirectory(s store.Store) *Directory {
	return &Directory{store: s}
}

// NormalizeShareableCode canonicalizes a user-entered invite code: trimmed
// and uppercased. Lookup is exact match on the normalized form.
func NormalizeShareableCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// ResolveProfile returns the profile for id. A missing profile is
// [ErrNotFound].
func (d *Directory) ResolveProfile(ctx context.Context, id models.UserID) (*models.UserProfile, error) {
	profile, err := d.store.GetProfile(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("resolve profile %s: %w", id, err)
	}
	if profile == nil {
		return nil, fmt.Errorf("profile %s: %w", id, ErrNotFound)
	}
	return profile, nil
}

// Register creates a profile for a new account. The email must be unused
// ([ErrEmailInUse] otherwise), the profile starts without a role, and a
// fresh shareable code is assigned.
func (d *Directory) Register(ctx context.Context, email, name string) (*models.UserProfile, error) {
	existing, err := d.store.GetProfileByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("check email: %w", err)
	}
	if existing != nil {
		return nil, fmt.Errorf("email %s: %w", email, ErrEmailInUse)
	}

	profile := &models.UserProfile{
		Email:         email,
		Name:          name,
		ShareableCode: models.NewShareableCode(),
	}
	if err := d.store.CreateProfile(ctx, profile); err != nil {
		return nil, fmt.Errorf("create profile: %w", err)
	}
	return profile, nil
}

// SetRole performs one-shot role selection for the profile. Setting the
// role a profile already holds is idempotent and returns the profile
// unchanged; switching an already-selected role is [ErrRoleAlreadySet]. An
// unknown role value is [ErrWrongRole].
func (d *Directory) SetRole(ctx context.Context, id models.UserID, role models.Role) (*models.UserProfile, error) {
	if !role.Valid() {
		return nil, fmt.Errorf("role %q: %w", role, ErrWrongRole)
	}

	profile, err := d.ResolveProfile(ctx, id)
	if err != nil {
		return nil, err
	}

	if profile.Role == role {
		return profile, nil
	}
	if profile.Role != "" {
		return nil, fmt.Errorf("profile %s already has role %q: %w", id, profile.Role, ErrRoleAlreadySet)
	}

	profile.Role = role
	if err := d.store.UpdateProfile(ctx, profile); err != nil {
		return nil, fmt.Errorf("set role: %w", err)
	}
	return profile, nil
}

// FindByShareableCode returns the profile holding the given invite code.
// The code is normalized before lookup. Zero matches is [ErrNotFound], not
// a store error: an unknown code is an expected outcome of the linking flow.
func (d *Directory) FindByShareableCode(ctx context.Context, code string) (*models.UserProfile, error) {
	normalized := NormalizeShareableCode(code)
	if normalized == "" {
		return nil, fmt.Errorf("empty shareable code: %w", ErrNotFound)
	}

	profile, err := d.store.GetProfileByShareableCode(ctx, normalized)
	if err != nil {
		return nil, fmt.Errorf("find by shareable code: %w", err)
	}
	if profile == nil {
		return nil, fmt.Errorf("shareable code %q: %w", normalized, ErrNotFound)
	}
	return profile, nil
}
