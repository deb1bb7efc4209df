package docs

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbourn/event-campaigns/internal/domain"
)

func TestAudienceKindEnumMatchesDomain(t *testing.T) {
	var doc struct {
		Paths map[string]map[string]struct {
			Parameters []struct {
				Name string   `json:"name"`
				Enum []string `json:"enum"`
			} `json:"parameters"`
		} `json:"paths"`
	}
	require.NoError(t, json.Unmarshal([]byte(SwaggerInfo.ReadDoc()), &doc))

	op, ok := doc.Paths["/audience"]["get"]
	require.True(t, ok, "GET /audience missing from the document")

	want := make([]string, 0, len(domain.AllKinds))
	for _, k := range domain.AllKinds {
		want = append(want, string(k))
	}
	var found bool
	for _, p := range op.Parameters {
		if p.Name != "kind" {
			continue
		}
		found = true
		assert.Equal(t, want, p.Enum)
		for _, v := range p.Enum {
			_, err := domain.ParseMessageKind(v)
			assert.NoError(t, err, v)
		}
	}
	assert.True(t, found, "kind parameter missing")
}
