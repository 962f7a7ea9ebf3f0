package mongo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/mailsift/mailsift/internal/core"
)

// existsFields collects the relevant_terms field paths used in $exists
// clauses anywhere in the filter.
func existsFields(filter bson.M) []string {
	var fields []string
	var walk func(v any)
	walk = func(v any) {
		switch node := v.(type) {
		case bson.M:
			for key, child := range node {
				if inner, ok := child.(bson.M); ok {
					if _, exists := inner["$exists"]; exists {
						fields = append(fields, key)
						continue
					}
				}
				walk(child)
			}
		case bson.A:
			for _, child := range node {
				walk(child)
			}
		}
	}
	walk(filter)
	return fields
}

func TestSearchFilterScopesMailboxes(t *testing.T) {
	filter := searchFilter(core.EmailQuery{
		TermGroups: []core.TermGroup{{"factura"}},
		Mailboxes:  []string{"inbox@corp.com"},
	})

	and, ok := filter["$and"].(bson.A)
	require.True(t, ok)
	require.NotEmpty(t, and)
	first, ok := and[0].(bson.M)
	require.True(t, ok)
	assert.Equal(t, bson.M{"$in": []string{"inbox@corp.com"}}, first["mailbox"])
}

func TestSearchFilterSkipsUnsafeTermFields(t *testing.T) {
	filter := searchFilter(core.EmailQuery{
		TermGroups: []core.TermGroup{{"factura", "v2.1", "$where"}},
		Mailboxes:  []string{"inbox@corp.com"},
	})

	fields := existsFields(filter)
	assert.Contains(t, fields, "relevant_terms.factura")
	assert.NotContains(t, fields, "relevant_terms.v2.1")
	assert.NotContains(t, fields, "relevant_terms.$where")
}

func TestSafeTermField(t *testing.T) {
	assert.True(t, safeTermField("factura"))
	assert.False(t, safeTermField(""))
	assert.False(t, safeTermField("v2.1"))
	assert.False(t, safeTermField("$where"))
	assert.True(t, safeTermField("pago$total"), "only a leading dollar is a path operator")
}
