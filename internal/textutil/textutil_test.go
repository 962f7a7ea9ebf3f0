package textutil

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFoldAccents(t *testing.T) {
	assert.Equal(t, "revision", FoldAccents("revisión"))
	assert.Equal(t, "facturacion electronica", FoldAccents("facturación electrónica"))
	assert.Equal(t, "plain text", FoldAccents("plain text"))
}

func TestNormalizeSubject(t *testing.T) {
	tests := []struct {
		name    string
		subject string
		want    string
	}{
		{"plain", "Invoice June", "invoice june"},
		{"reply prefix", "Re: Invoice June", "invoice june"},
		{"stacked prefixes", "RE: Fwd: RV: Invoice June", "invoice june"},
		{"accented", "Re: Facturación Junio", "facturacion junio"},
		{"whitespace runs", "  Invoice   June \t report ", "invoice june report"},
		{"empty", "", ""},
		{"only prefix", "Re:", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeSubject(tt.subject))
		})
	}
}

func TestNormalizeSubjectEquatesConversation(t *testing.T) {
	a := NormalizeSubject("Facturación junio")
	b := NormalizeSubject("RE: facturacion   JUNIO")
	assert.Equal(t, a, b)
}

func TestTokenize(t *testing.T) {
	tokens := Tokenize("Re: Facturación, junio-2024 (x)")
	assert.Equal(t, []string{"re", "facturacion", "junio", "2024"}, tokens)
}

func TestTokenizeDropsSingleRunes(t *testing.T) {
	assert.Empty(t, Tokenize("a b c"))
}

func TestCosine(t *testing.T) {
	a := []float32{1, 0, 0}
	b := []float32{1, 0, 0}
	c := []float32{0, 1, 0}

	assert.InDelta(t, 1.0, Cosine(a, b), 1e-9)
	assert.InDelta(t, 0.0, Cosine(a, c), 1e-9)
}

func TestCosineDegenerate(t *testing.T) {
	assert.Zero(t, Cosine(nil, nil))
	assert.Zero(t, Cosine([]float32{1, 2}, []float32{1, 2, 3}))
	assert.Zero(t, Cosine([]float32{0, 0}, []float32{1, 1}))
}

func TestMeanVector(t *testing.T) {
	mean := MeanVector([][]float32{
		{1, 0},
		{0, 1},
	})
	require.Len(t, mean, 2)
	assert.InDelta(t, 0.5, float64(mean[0]), 1e-6)
	assert.InDelta(t, 0.5, float64(mean[1]), 1e-6)
}

func TestMeanVectorSkipsMismatched(t *testing.T) {
	mean := MeanVector([][]float32{
		{2, 2},
		{1, 2, 3},
		nil,
	})
	require.Len(t, mean, 2)
	assert.InDelta(t, 2.0, float64(mean[0]), 1e-6)

	assert.Nil(t, MeanVector(nil))
}

func TestTruncateText(t *testing.T) {
	assert.Equal(t, "short", TruncateText("short", 100))
	assert.Equal(t, "ab", TruncateText("abcdef", 2))
	assert.Equal(t, "abcdef", TruncateText("abcdef", 0))
}

func TestTruncateTextKeepsValidUTF8(t *testing.T) {
	// "ñ" is two bytes; truncating mid-rune must back off.
	out := TruncateText("añb", 2)
	assert.Equal(t, "a", out)
}

func TestSanitizeUTF8(t *testing.T) {
	assert.Equal(t, "ok", SanitizeUTF8("ok"))
	dirty := string([]byte{'h', 'i', 0xff, '!'})
	assert.Equal(t, "hi!", SanitizeUTF8(dirty))
}

func TestContentTokens(t *testing.T) {
	tokens := ContentTokens("la factura de junio para Marta")
	assert.NotContains(t, tokens, "la")
	assert.NotContains(t, tokens, "de")
	assert.NotContains(t, tokens, "para")
	assert.Contains(t, tokens, "factura")
	assert.Contains(t, tokens, "junio")
	assert.Contains(t, tokens, "marta")
}

func TestIsStopword(t *testing.T) {
	assert.True(t, IsStopword("the"))
	assert.True(t, IsStopword("para"))
	assert.False(t, IsStopword("factura"))
}

func TestCosineSymmetry(t *testing.T) {
	a := []float32{0.3, 0.7, 0.1}
	b := []float32{0.2, 0.5, 0.9}
	assert.InDelta(t, Cosine(a, b), Cosine(b, a), 1e-12)
	assert.False(t, math.IsNaN(Cosine(a, b)))
}
