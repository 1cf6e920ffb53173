package care

import "github.com/recoveryhub/companion/pkg/models"

// ResourceKind names a category of care document for permission scoping.
type ResourceKind string

const (
	KindReminder     ResourceKind = "reminder"
	KindJournalEntry ResourceKind = "journal_entry"
	KindChatMessage  ResourceKind = "chat_message"
)

// Grant gives one user read and/or write access to a document.
type Grant struct {
	User  models.UserID
	Read  bool
	Write bool
}

// Scope is the complete permission set for one document. It is derived, not
// stored: handlers recompute it from the owning patient, the current link,
// and the document's sharing state on every access.
type Scope []Grant

// CanRead reports whether user holds a read grant.
func (s Scope) CanRead(user models.UserID) bool {
	for _, g := range s {
		if g.User == user && g.Read {
			return true
		}
	}
	return false
}

// CanWrite reports whether user holds a write grant.
func (s Scope) CanWrite(user models.UserID) bool {
	for _, g := range s {
		if g.User == user && g.Write {
			return true
		}
	}
	return false
}

// ScopeFor derives the permission set for a document of the given kind owned
// by ownerPatientID. link is the patient's current relationship link, nil
// when the patient is unlinked. shared is the document's own sharing flag
// and only affects journal entries.
//
// The rules per kind:
//
//   - Reminders: patient and linked caregiver both read and write. Either
//     side creates reminders and toggles completion.
//   - Journal entries: patient reads and writes; the linked caregiver reads
//     only while the entry is shared. Nobody else writes.
//   - Chat messages: both sides of the link read; nobody writes after
//     creation, messages are immutable.
func ScopeFor(kind ResourceKind, ownerPatientID models.UserID, link *models.RelationshipLink, shared bool) Scope {
	var caregiver *models.UserID
	if link != nil && link.PatientID == ownerPatientID {
		c := link.CaregiverID
		caregiver = &c
	}

	switch kind {
	case KindReminder:
		scope := Scope{{User: ownerPatientID, Read: true, Write: true}}
		if caregiver != nil {
			scope = append(scope, Grant{User: *caregiver, Read: true, Write: true})
		}
		return scope

	case KindJournalEntry:
		scope := Scope{{User: ownerPatientID, Read: true, Write: true}}
		if caregiver != nil && shared {
			scope = append(scope, Grant{User: *caregiver, Read: true})
		}
		return scope

	case KindChatMessage:
		scope := Scope{{User: ownerPatientID, Read: true}}
		if caregiver != nil {
			scope = append(scope, Grant{User: *caregiver, Read: true})
		}
		return scope
	}

	return nil
}
