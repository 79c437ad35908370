package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalCanonical_SortedKeysNoWhitespace(t *testing.T) {
	out, err := MarshalCanonical(map[string]any{
		"z": 1,
		"a": "x",
		"m": []any{true, int64(-2)},
	})
	require.NoError(t, err)
	assert.Equal(t, `{"a":"x","m":[true,-2],"z":1}`, string(out))
}

func TestMarshalCanonical_NoHTMLEscape(t *testing.T) {
	out, err := MarshalCanonical("<a&b>")
	require.NoError(t, err)
	assert.Equal(t, `"<a&b>"`, string(out))
}

func TestMarshalCanonical_LineSeparatorsLiteral(t *testing.T) {
	out, err := MarshalCanonical("a\u2028b\u2029c")
	require.NoError(t, err)
	assert.Equal(t, "\"a\u2028b\u2029c\"", string(out))
}

func TestMarshalCanonical_EscapedBackslashKept(t *testing.T) {
	out, err := MarshalCanonical(`\u2028`)
	require.NoError(t, err)
	assert.Equal(t, `"\\u2028"`, string(out))
}

func TestMarshalCanonical_NFC(t *testing.T) {
	// "e" followed by a combining acute accent normalizes to U+00E9.
	out, err := MarshalCanonical("e\u0301")
	require.NoError(t, err)
	assert.Equal(t, "\"\u00e9\"", string(out))
}

func TestMarshalCanonical_UTF16KeyOrder(t *testing.T) {
	// U+FF61 sorts before U+1F600 in UTF-8 but after it in UTF-16,
	// where U+1F600 starts with the 0xD83D surrogate.
	out, err := MarshalCanonical(map[string]any{
		"\uff61":     1,
		"\U0001F600": 2,
	})
	require.NoError(t, err)
	assert.Equal(t, "{\"\U0001F600\":2,\"\uff61\":1}", string(out))
}

func TestMarshalCanonical_Pubkey(t *testing.T) {
	out, err := MarshalCanonical(map[string]any{"k": SystemProgramID})
	require.NoError(t, err)
	assert.Equal(t, `{"k":"11111111111111111111111111111111"}`, string(out))
}

func TestMarshalCanonical_RejectsNullAndFloat(t *testing.T) {
	_, err := MarshalCanonical(nil)
	require.Error(t, err)

	_, err = MarshalCanonical(map[string]any{"f": 1.5})
	require.Error(t, err)
}
