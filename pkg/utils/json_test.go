package utils

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testReply struct {
	Text  string `json:"text" jsonschema_description:"Reply text"`
	Score int    `json:"score"`
}

func TestIndentJSON(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr bool
	}{
		{
			name: "keeps key order",
			raw:  `{"zeta":1,"alpha":{"b":[],"a":[1]}}`,
			want: "{\n  \"zeta\": 1,\n  \"alpha\": {\n    \"b\": [],\n    \"a\": [\n      1\n    ]\n  }\n}",
		},
		{
			name: "empty candidates",
			raw:  `{"candidates":[]}`,
			want: "{\n  \"candidates\": []\n}",
		},
		{
			name:    "rejects invalid JSON",
			raw:     `{"candidates":`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(
			tt.name, func(t *testing.T) {
				got, err := IndentJSON([]byte(tt.raw))
				if tt.wantErr {
					assert.Error(t, err)
					return
				}
				require.NoError(t, err)
				assert.Equal(t, tt.want, string(got))
			},
		)
	}
}

func TestGenerateJsonSchema(t *testing.T) {
	raw, err := GenerateJsonSchema[testReply]()
	require.NoError(t, err)

	var schema map[string]any
	require.NoError(t, json.Unmarshal(raw, &schema))

	assert.Equal(t, "object", schema["type"])
	assert.Equal(t, false, schema["additionalProperties"])

	props, ok := schema["properties"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, props, "text")
	assert.Contains(t, props, "score")
}

func TestUnmarshal(t *testing.T) {
	got, err := Unmarshal[testReply](`{"text":"hi","score":3}`)
	require.NoError(t, err)
	assert.Equal(t, testReply{Text: "hi", Score: 3}, got)

	_, err = Unmarshal[testReply](`nope`)
	assert.Error(t, err)
}
