package expand

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeJSONRaw(t *testing.T) {
	var out []string
	strategy, err := decodeJSON(`["factura", "recibo"]`, &out)
	require.NoError(t, err)
	assert.Equal(t, "raw", strategy)
	assert.Equal(t, []string{"factura", "recibo"}, out)
}

func TestDecodeJSONFenced(t *testing.T) {
	raw := "Here you go:\n```json\n[\"factura\", \"recibo\"]\n```\nHope that helps!"
	var out []string
	strategy, err := decodeJSON(raw, &out)
	require.NoError(t, err)
	assert.Equal(t, "unfenced", strategy)
	assert.Equal(t, []string{"factura", "recibo"}, out)
}

func TestDecodeJSONLightRepair(t *testing.T) {
	// Bare keys, a comment and a trailing comma.
	raw := `{
		// the terms
		factura: {"frequency": 2, "context": "la factura", "type": "keyword"},
	}`
	var out map[string]map[string]any
	strategy, err := decodeJSON(raw, &out)
	require.NoError(t, err)
	assert.Equal(t, "light_repair", strategy)
	require.Contains(t, out, "factura")
	assert.Equal(t, "keyword", out["factura"]["type"])
}

func TestDecodeJSONExtractBalanced(t *testing.T) {
	raw := `Sure! The answer is ["factura","recibo"] as requested.`
	var out []string
	strategy, err := decodeJSON(raw, &out)
	require.NoError(t, err)
	assert.Equal(t, "extract_balanced", strategy)
	assert.Equal(t, []string{"factura", "recibo"}, out)
}

func TestDecodeJSONClosesTruncatedOutput(t *testing.T) {
	raw := `{"factura": {"frequency": 1, "context": "abc", "type": "keyword"`
	var out map[string]map[string]any
	_, err := decodeJSON(raw, &out)
	require.NoError(t, err)
	assert.Contains(t, out, "factura")
}

func TestDecodeJSONUnparseable(t *testing.T) {
	var out []string
	_, err := decodeJSON("I could not find any terms, sorry.", &out)
	assert.ErrorIs(t, err, ErrUnparseable)
}

func TestBalanceIgnoresBracesInStrings(t *testing.T) {
	raw := `{"context": "see {this} and [that]"}`
	var out map[string]string
	strategy, err := decodeJSON(raw, &out)
	require.NoError(t, err)
	assert.Equal(t, "raw", strategy)
	assert.Equal(t, "see {this} and [that]", out["context"])
}

func TestBalanceTruncatesTrailingProse(t *testing.T) {
	raw := `["uno","dos"] and some trailing commentary {`
	var out []string
	_, err := decodeJSON(raw, &out)
	require.NoError(t, err)
	assert.Equal(t, []string{"uno", "dos"}, out)
}
