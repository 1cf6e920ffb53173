package care

import "errors"

// Sentinel errors for the relationship and access model. Callers classify
// failures with errors.Is and map them to transport-level responses; any
// error not matching a sentinel is treated as transient infrastructure
// failure.
var (
	// ErrNotFound reports that a referenced profile, link, or care document
	// does not exist. A shareable code matching nothing resolves to this,
	// never to an empty success.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyLinked reports an attempt to create a link that already
	// exists between the same caregiver and patient.
	ErrAlreadyLinked = errors.New("already linked")

	// ErrPatientHasCaregiver reports an attempt to link a patient who is
	// already connected to a different caregiver.
	ErrPatientHasCaregiver = errors.New("patient already has a caregiver")

	// ErrWrongRole reports an operation attempted by or against a profile
	// whose role does not permit it.
	ErrWrongRole = errors.New("wrong role for operation")

	// ErrUnauthorized reports an access attempt outside the caller's
	// derived permission scope.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrRoleUnresolved reports a profile whose stored role is not a
	// recognized value. Resolution fails explicitly; nothing falls back to
	// a default role.
	ErrRoleUnresolved = errors.New("role not resolved")

	// ErrEmailInUse reports a signup attempt with an email that already has
	// an account.
	ErrEmailInUse = errors.New("email already in use")

	// ErrRoleAlreadySet reports an attempt to change a role after the
	// one-shot selection.
	ErrRoleAlreadySet = errors.New("role already set")
)
