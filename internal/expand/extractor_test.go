package expand

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestExtractFromCompletion(t *testing.T) {
	completions := &fakeCompletion{
		response: `{"factura": {"frequency": 2, "context": "la factura de junio", "type": "keyword"},
		            "marta": {"frequency": 1, "context": "para Marta", "type": "name"}}`,
	}
	extractor := NewPromptTermExtractor(completions, newFakeCache(), false, 0, zap.NewNop())

	terms, err := extractor.Extract(context.Background(), "la factura de junio para Marta")
	require.NoError(t, err)
	require.Len(t, terms, 2)
	assert.Equal(t, "keyword", terms["factura"].Type)
	assert.Equal(t, "name", terms["marta"].Type)
}

func TestExtractNormalizesKeysAndFrequencies(t *testing.T) {
	completions := &fakeCompletion{
		response: `{" Factura ": {"frequency": 0, "context": "", "type": "keyword"}}`,
	}
	extractor := NewPromptTermExtractor(completions, newFakeCache(), false, 0, zap.NewNop())

	terms, err := extractor.Extract(context.Background(), "factura")
	require.NoError(t, err)
	require.Contains(t, terms, "factura")
	assert.Equal(t, 1, terms["factura"].Frequency)
}

func TestExtractFallsBackToHeuristic(t *testing.T) {
	completions := &fakeCompletion{err: errors.New("timeout")}
	extractor := NewPromptTermExtractor(completions, newFakeCache(), false, 0, zap.NewNop())

	terms, err := extractor.Extract(context.Background(), "la factura de junio para Marta")
	require.NoError(t, err)
	assert.Contains(t, terms, "factura")
	assert.Contains(t, terms, "junio")
	assert.Contains(t, terms, "marta")
	assert.NotContains(t, terms, "la", "stopwords are dropped")
	assert.Equal(t, "name", terms["marta"].Type)
	assert.Equal(t, "keyword", terms["factura"].Type)
}

func TestExtractCachesByPromptHash(t *testing.T) {
	cache := newFakeCache()
	completions := &fakeCompletion{
		response: `{"factura": {"frequency": 1, "context": "", "type": "keyword"}}`,
	}
	extractor := NewPromptTermExtractor(completions, cache, true, time.Hour, zap.NewNop())

	_, err := extractor.Extract(context.Background(), "factura junio")
	require.NoError(t, err)
	_, err = extractor.Extract(context.Background(), "factura junio")
	require.NoError(t, err)

	assert.Equal(t, 1, completions.calls)
}

func TestHeuristicTermsAccentsAndStopwords(t *testing.T) {
	terms := HeuristicTerms("Revisión de la facturación")

	assert.Contains(t, terms, "revision")
	assert.Contains(t, terms, "facturacion")
	assert.NotContains(t, terms, "de")
	assert.NotContains(t, terms, "la")
}

func TestHeuristicTermsCountsRepeats(t *testing.T) {
	terms := HeuristicTerms("factura factura junio")
	require.Contains(t, terms, "factura")
	assert.Equal(t, 2, terms["factura"].Frequency)
	assert.Equal(t, 1, terms["junio"].Frequency)
}
