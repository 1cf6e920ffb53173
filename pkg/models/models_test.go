package models

import (
	"encoding/json"
	"testing"

	"github.com/fxamacker/cbor/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoleValid(t *testing.T) {
	assert.True(t, RolePatient.Valid())
	assert.True(t, RoleCaregiver.Valid())
	assert.False(t, Role("").Valid())
	assert.False(t, Role("admin").Valid())
}

func TestNewShareableCode(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		code := NewShareableCode()
		require.Len(t, code, 6)
		for _, c := range code {
			assert.Contains(t, shareableCodeAlphabet, string(c))
		}
		seen[code] = true
	}
	// 100 draws from a 36^6 space should not collide
	assert.Greater(t, len(seen), 95)
}

func TestNewShareableCodeCoversAlphabet(t *testing.T) {
	// 10k codes yield 60k characters; with a uniform draw every alphabet
	// character appears with overwhelming probability.
	counts := make(map[rune]int)
	for i := 0; i < 10000; i++ {
		for _, c := range NewShareableCode() {
			counts[c]++
		}
	}

	require.Len(t, counts, len(shareableCodeAlphabet))
	for _, c := range shareableCodeAlphabet {
		assert.Greater(t, counts[c], 0, "character %q never drawn", c)
	}
}

func TestNewLinkIDForPairDeterministic(t *testing.T) {
	caregiver := NewUserID()
	patient := NewUserID()

	a := NewLinkIDForPair(caregiver, patient)
	b := NewLinkIDForPair(caregiver, patient)
	assert.Equal(t, a, b)

	// the pair is ordered: swapping roles yields a different link
	swapped := NewLinkIDForPair(patient, caregiver)
	assert.NotEqual(t, a, swapped)

	other := NewLinkIDForPair(caregiver, NewUserID())
	assert.NotEqual(t, a, other)
}

func TestUserIDJSONRoundTrip(t *testing.T) {
	id := NewUserID()

	data, err := json.Marshal(id)
	require.NoError(t, err)
	assert.JSONEq(t, `"`+id.String()+`"`, string(data))

	var decoded UserID
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, id, decoded)
}

func TestUserIDCBORRoundTrip(t *testing.T) {
	id := NewUserID()

	data, err := cbor.Marshal(id)
	require.NoError(t, err)

	var decoded UserID
	require.NoError(t, cbor.Unmarshal(data, &decoded))
	assert.Equal(t, id, decoded)
}

func TestUnmarshalCBORIDRejectsWrongTable(t *testing.T) {
	id := NewUserID()
	data, err := cbor.Marshal(id)
	require.NoError(t, err)

	var link LinkID
	err = link.UnmarshalCBOR(data)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected table links")
}

func TestIDIsZero(t *testing.T) {
	var zero UserID
	assert.True(t, zero.IsZero())
	assert.False(t, NewUserID().IsZero())

	var zeroLink LinkID
	assert.True(t, zeroLink.IsZero())
}

func TestRecordIDTables(t *testing.T) {
	assert.Equal(t, "profiles", NewUserID().RecordID().Table)
	assert.Equal(t, "reminders", NewReminderID().RecordID().Table)
	assert.Equal(t, "journal_entries", NewEntryID().RecordID().Table)
	assert.Equal(t, "messages", NewMessageID().RecordID().Table)

	link := NewLinkIDForPair(NewUserID(), NewUserID())
	assert.Equal(t, "links", link.RecordID().Table)
}
