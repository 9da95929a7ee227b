package generator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitize(t *testing.T) {
	const doc = `{"a":{"b":1}}`

	tests := []struct {
		name string
		raw  string
	}{
		{"plain", doc},
		{"json fence", "```json\n" + doc + "\n```"},
		{"bare fence", "```\n" + doc + "\n```"},
		{"prose before and after", "Here is your plan:\n" + doc + "\nEnjoy!"},
		{"prose and fence", "Sure!\n```json\n" + doc + "\n```\nLet me know."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Sanitize(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, doc, got)
		})
	}
}

func TestSanitize_NoObject(t *testing.T) {
	for _, raw := range []string{"", "no json here", "} backwards {", "```json\n```"} {
		_, err := Sanitize(raw)
		assert.Error(t, err, raw)
	}
}
