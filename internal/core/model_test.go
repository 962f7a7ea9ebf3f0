package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIndexForIsStable(t *testing.T) {
	a := IndexFor("m1@example.com")
	b := IndexFor("m1@example.com")
	assert.Equal(t, a, b)
	assert.Len(t, a, 16)
	assert.NotEqual(t, a, IndexFor("m2@example.com"))
}

func TestGroupsFromTerms(t *testing.T) {
	terms := map[string]RelevantTerm{
		"factura": {Type: "keyword"},
		"junio":   {Type: "keyword"},
		"marta":   {Type: "name"},
	}

	groups, names := GroupsFromTerms(terms)
	require.Len(t, groups, 2)
	assert.Equal(t, TermGroup{"factura"}, groups[0])
	assert.Equal(t, TermGroup{"junio"}, groups[1])
	assert.Equal(t, []string{"marta"}, names)
}

func TestGroupsFromTermsEmpty(t *testing.T) {
	groups, names := GroupsFromTerms(nil)
	assert.Empty(t, groups)
	assert.Empty(t, names)
}

func TestEqualWeightsSumToOne(t *testing.T) {
	w := EqualWeights()
	require.Len(t, w, len(FeatureNames))
	sum := 0.0
	for _, v := range w {
		sum += v
	}
	assert.InDelta(t, 1.0, sum, 1e-9)
}
