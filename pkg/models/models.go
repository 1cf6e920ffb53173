package models

import (
	"crypto/rand"
	"time"
)

// Role is the explicit account role stored on a profile. It is empty until the
// user completes role selection and is set exactly once; nothing in the system
// may assume a default role when it is missing.
type Role string

const (
	RolePatient   Role = "patient"
	RoleCaregiver Role = "caregiver"
)

// Valid reports whether r is one of the two known roles.
func (r Role) Valid() bool {
	return r == RolePatient || r == RoleCaregiver
}

// UserProfile represents a registered account's profile document.
// ShareableCode is the short invite token a patient hands to their caregiver;
// it is generated at registration and never reused.
type UserProfile struct {
	ID            UserID    `json:"id"`
	Email         string    `json:"email"`
	Name          string    `json:"name"`
	Role          Role      `json:"role,omitempty"`
	ShareableCode string    `json:"shareable_code"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// RelationshipLink records that a caregiver is connected to a patient.
// Links are never mutated after creation; they are removed by explicit unlink.
// The ID is derived from the (caregiver, patient) pair, so a second create for
// the same pair collides at the store instead of producing a duplicate.
type RelationshipLink struct {
	ID          LinkID    `json:"id"`
	CaregiverID UserID    `json:"caregiver_id"`
	PatientID   UserID    `json:"patient_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// Reminder is a care task owned by a patient. Either side of an active link
// may create one or toggle its completion; the completion flag is a plain
// last-write-wins boolean.
type Reminder struct {
	ID        ReminderID `json:"id"`
	PatientID UserID     `json:"patient_id"`
	Title     string     `json:"title"`
	DueAt     *time.Time `json:"due_at,omitempty"`
	Completed bool       `json:"completed"`
	CreatedBy UserID     `json:"created_by"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// JournalEntry is a private recovery note owned by a patient. The caregiver
// can read it only while SharedWithCaregiver is set; writes stay owner-only.
type JournalEntry struct {
	ID                  EntryID   `json:"id"`
	PatientID           UserID    `json:"patient_id"`
	Content             string    `json:"content"`
	SharedWithCaregiver bool      `json:"shared_with_caregiver"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// ChatMessage is one message in a link's conversation. Messages are immutable
// once created.
type ChatMessage struct {
	ID        MessageID `json:"id"`
	LinkID    LinkID    `json:"link_id"`
	SenderID  UserID    `json:"sender_id"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

const shareableCodeLen = 6

// shareableCodeAlphabet excludes nothing; codes are matched case-normalized,
// so only uppercase letters and digits are ever issued.
const shareableCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// NewShareableCode returns a fresh 6-character invite code drawn from
// crypto/rand over A-Z0-9. Bytes at or above the largest multiple of the
// alphabet size are rejected, keeping the draw uniform.
func NewShareableCode() string {
	const limit = 256 - 256%len(shareableCodeAlphabet)

	out := make([]byte, 0, shareableCodeLen)
	var buf [16]byte
	for len(out) < shareableCodeLen {
		if _, err := rand.Read(buf[:]); err != nil {
			// crypto/rand.Read does not fail on supported platforms
			panic(err)
		}
		for _, b := range buf {
			if len(out) == shareableCodeLen {
				break
			}
			if int(b) >= limit {
				continue
			}
			out = append(out, shareableCodeAlphabet[int(b)%len(shareableCodeAlphabet)])
		}
	}
	return string(out)
}
