package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExpandEnv(t *testing.T) {
	tests := []struct {
		name  string
		input string
		env   map[string]string
		want  string
	}{
		{
			name:  "braced substitution",
			input: "api_key: ${API_KEY}",
			env:   map[string]string{"API_KEY": "secret123"},
			want:  "api_key: secret123",
		},
		{
			name:  "bare substitution",
			input: "region: $AWS_REGION",
			env:   map[string]string{"AWS_REGION": "us-east-1"},
			want:  "region: us-east-1",
		},
		{
			name:  "missing variable expands to empty string",
			input: "api_key: ${MISSING_VAR}",
			env:   map[string]string{},
			want:  "api_key: ",
		},
		{
			name:  "multiple substitutions in one line",
			input: "url: ${PROTOCOL}://${HOST}",
			env: map[string]string{
				"PROTOCOL": "https",
				"HOST":     "example.com",
			},
			want: "url: https://example.com",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			got := ExpandEnv([]byte(tt.input))
			assert.Equal(t, tt.want, string(got))
		})
	}
}

func TestExpandEnv_NoVariables(t *testing.T) {
	input := []byte("plain: text with no vars")
	assert.Equal(t, input, ExpandEnv(input))
}

func TestMain_envUnset(t *testing.T) {
	// Sanity check that unset vars genuinely expand empty, not literal.
	os.Unsetenv("TRANSCLASSIFY_TEST_UNSET_VAR")
	got := ExpandEnv([]byte("${TRANSCLASSIFY_TEST_UNSET_VAR}"))
	assert.Equal(t, "", string(got))
}
