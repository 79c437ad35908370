package ir

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSystemProgramIDBase58(t *testing.T) {
	assert.Equal(t, "11111111111111111111111111111111", SystemProgramID.String())
	assert.True(t, SystemProgramID.IsZero())
}

func TestParsePubkeyRoundTrip(t *testing.T) {
	const id = "Fg6PaFpoGXkYsidMpWTK6W2BeZ7FEfcYkg476zPFsLnS"
	p, err := ParsePubkey(id)
	require.NoError(t, err)
	assert.Equal(t, id, p.String())
	assert.False(t, p.IsZero())
}

func TestParsePubkeyRejectsWrongLength(t *testing.T) {
	_, err := ParsePubkey("abc")
	require.Error(t, err)

	_, err = PubkeyFromBytes(make([]byte, 31))
	require.Error(t, err)
}

func TestParsePubkeyRejectsBadAlphabet(t *testing.T) {
	// '0', 'O', 'I' and 'l' are not in the base58 alphabet.
	_, err := ParsePubkey("0OIl")
	require.Error(t, err)
}

func TestPubkeyJSONUsesBase58(t *testing.T) {
	rec := ContributionRecord{
		Contributor: MustParsePubkey("Fg6PaFpoGXkYsidMpWTK6W2BeZ7FEfcYkg476zPFsLnS"),
		Timestamp:   1700000000,
		CodeHash:    "abc123",
	}
	data, err := json.Marshal(rec)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"contributor":"Fg6PaFpoGXkYsidMpWTK6W2BeZ7FEfcYkg476zPFsLnS"`)
	assert.Contains(t, string(data), `"code_hash":"abc123"`)

	var back ContributionRecord
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, rec, back)
}

func TestAccountCloneDoesNotAlias(t *testing.T) {
	a := Account{Lamports: 5, Data: []byte{1, 2, 3}}
	b := a.Clone()
	b.Data[0] = 9
	assert.Equal(t, byte(1), a.Data[0])
}

func TestLogStateCloneDoesNotAlias(t *testing.T) {
	s := LogState{Contributions: []ContributionRecord{{CodeHash: "a"}}}
	c := s.Clone()
	c.Contributions[0].CodeHash = "b"
	assert.Equal(t, "a", s.Contributions[0].CodeHash)
	assert.Equal(t, 1, c.Len())
}

func TestAccountDiscriminatorStable(t *testing.T) {
	a := AccountDiscriminator("LogState")
	b := AccountDiscriminator("LogState")
	c := AccountDiscriminator("Other")
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestSlotDigestDomainSeparated(t *testing.T) {
	assert.Equal(t, SlotDigest([]byte("x")), SlotDigest([]byte("x")))
	assert.NotEqual(t, SlotDigest([]byte("x")), SlotDigest([]byte("y")))
	assert.Len(t, SlotDigest(nil), 64)
}
