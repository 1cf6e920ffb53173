// Package models defines the domain entities for the caregiver/patient
// recovery companion service.
//
// The model centers on two account roles and the single relationship that
// connects them:
//
//   - [UserProfile]: a registered account with an explicit [Role] (patient or
//     caregiver) and a short [UserProfile.ShareableCode] a patient hands to
//     their caregiver to establish a connection
//   - [RelationshipLink]: the caregiver→patient connection. Immutable after
//     creation and removed only by explicit unlink
//   - [Reminder]: care tasks owned by a patient, visible and togglable by
//     both sides of an active link
//   - [JournalEntry]: private recovery notes owned by a patient, readable by
//     the caregiver only while the entry's sharing flag is set
//   - [ChatMessage]: immutable messages in a link's conversation
//
// # Typed IDs
//
// Each entity has a strongly-typed identifier ([UserID], [LinkID],
// [ReminderID], [EntryID], [MessageID]) wrapping a UUID. The typed IDs know
// their collection at compile time and marshal to SurrealDB RecordIDs through
// custom CBOR encoding, so a single model definition serves both the HTTP API
// (plain UUID strings in JSON) and the document store (tagged RecordIDs in
// CBOR). The compiler prevents mixing identifiers across entities, and each
// type carries IsZero for detecting uninitialized values.
//
// [LinkID] is special: it is derived deterministically from the ordered
// (caregiver, patient) pair via [NewLinkIDForPair], which turns relationship
// uniqueness into a store-level primary-key guarantee rather than an
// application-level check that could race.
//
// # Roles
//
// [Role] is empty until the user completes role selection and is set exactly
// once. Consumers must treat a missing role as an unresolved state; there is
// no default.
package models
