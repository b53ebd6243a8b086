package review

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeberg.org/n30w/planreview/pkg/llms"
)

type fakeGenerator struct {
	reply   *llms.Reply
	err     error
	prompts []string
}

func (f *fakeGenerator) Generate(_ context.Context, prompt string) (*llms.Reply, error) {
	f.prompts = append(f.prompts, prompt)
	return f.reply, f.err
}

func (f *fakeGenerator) String() string {
	return "fake"
}

func writePlan(t *testing.T, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "plan.md")
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func quietLogger() *log.Logger {
	return log.New(io.Discard)
}

func TestRequesterRun(t *testing.T) {
	tests := []struct {
		name    string
		reply   *llms.Reply
		want    string
		wantErr any
	}{
		{
			name:  "prints text",
			reply: &llms.Reply{StatusCode: 200, Body: []byte(`{"candidates":[{"content":{"parts":[{"text":"Hello"}]}}]}`)},
			want:  "Hello\n",
		},
		{
			name:    "structure error dumps indented JSON",
			reply:   &llms.Reply{StatusCode: 200, Body: []byte(`{"candidates":[]}`)},
			want:    "Response structure error: index 0 out of range at candidates (length 0)\n{\n  \"candidates\": []\n}\n",
			wantErr: &ResponseShapeError{},
		},
		{
			name:    "api error",
			reply:   &llms.Reply{StatusCode: 403, Body: []byte("Forbidden")},
			want:    "Error 403: Forbidden\n",
			wantErr: &APIError{},
		},
		{
			name:    "api error body is not parsed",
			reply:   &llms.Reply{StatusCode: 500, Body: []byte(`{"error":{"code":500}}`)},
			want:    "Error 500: {\"error\":{\"code\":500}}\n",
			wantErr: &APIError{},
		},
		{
			name:    "invalid JSON on 200",
			reply:   &llms.Reply{StatusCode: 200, Body: []byte("not json")},
			want:    "Response structure error: response body is not valid JSON\nnot json\n",
			wantErr: &ResponseShapeError{},
		},
	}

	for _, tt := range tests {
		t.Run(
			tt.name, func(t *testing.T) {
				var out strings.Builder

				gen := &fakeGenerator{reply: tt.reply}
				r := NewRequester(gen, &out, quietLogger(), Config{Prompt: DefaultPromptOptions()})

				err := r.Run(context.Background(), writePlan(t, "the plan"))

				switch tt.wantErr.(type) {
				case nil:
					require.NoError(t, err)
				case *ResponseShapeError:
					var se *ResponseShapeError
					assert.True(t, errors.As(err, &se), "got %v", err)
				case *APIError:
					var ae *APIError
					require.True(t, errors.As(err, &ae), "got %v", err)
					assert.Equal(t, tt.reply.StatusCode, ae.StatusCode)
				}

				assert.Equal(t, tt.want, out.String())
				require.Len(t, gen.prompts, 1)
				assert.Contains(t, gen.prompts[0], "\n\nthe plan\n\n")
			},
		)
	}
}

func TestRequesterRunMissingFile(t *testing.T) {
	var out strings.Builder

	gen := &fakeGenerator{}
	r := NewRequester(gen, &out, quietLogger(), Config{})

	err := r.Run(context.Background(), filepath.Join(t.TempDir(), "missing.md"))

	var fe *FileAccessError
	require.True(t, errors.As(err, &fe), "got %v", err)
	assert.Empty(t, gen.prompts)
	assert.Empty(t, out.String())
}

func TestRequesterRunTransportError(t *testing.T) {
	var out strings.Builder

	gen := &fakeGenerator{err: &llms.TransportError{Endpoint: "x", Err: errors.New("connection refused")}}
	r := NewRequester(gen, &out, quietLogger(), Config{})

	err := r.Run(context.Background(), writePlan(t, "p"))

	var te *llms.TransportError
	require.True(t, errors.As(err, &te))
	assert.Empty(t, out.String())
}

// TestRequesterAgainstServer drives the REST transport end to end.
func TestRequesterAgainstServer(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{
			name:   "hello",
			status: http.StatusOK,
			body:   `{"candidates":[{"content":{"parts":[{"text":"Hello"}]}}]}`,
			want:   "Hello\n",
		},
		{
			name:   "empty candidates",
			status: http.StatusOK,
			body:   `{"candidates":[]}`,
			want:   "Response structure error: index 0 out of range at candidates (length 0)\n{\n  \"candidates\": []\n}\n",
		},
		{
			name:   "forbidden",
			status: http.StatusForbidden,
			body:   "Forbidden",
			want:   "Error 403: Forbidden\n",
		},
	}

	for _, tt := range tests {
		t.Run(
			tt.name, func(t *testing.T) {
				var sent llms.GenerateContentRequest

				server := httptest.NewServer(
					http.HandlerFunc(
						func(w http.ResponseWriter, r *http.Request) {
							_ = json.NewDecoder(r.Body).Decode(&sent)
							w.WriteHeader(tt.status)
							_, _ = w.Write([]byte(tt.body))
						},
					),
				)
				defer server.Close()

				gen, err := llms.NewGoogleGemini(
					"k", llms.ModelConfig{
						Model:         llms.DefaultGeminiModel,
						BaseURL:       server.URL,
						HTTPClient:    server.Client(),
						RequestConfig: llms.DefaultRequestConfig(),
					}, quietLogger(),
				)
				require.NoError(t, err)

				var out strings.Builder
				r := NewRequester(gen, &out, quietLogger(), Config{})

				_ = r.Run(context.Background(), writePlan(t, "merge feature into main"))

				assert.Equal(t, tt.want, out.String())
				require.Len(t, sent.Contents, 1)
				require.Len(t, sent.Contents[0].Parts, 1)
				assert.Contains(t, sent.Contents[0].Parts[0].Text, "merge feature into main")
				assert.Equal(t, 0.2, sent.GenerationConfig.Temperature)
				assert.Equal(t, int64(8192), sent.GenerationConfig.MaxOutputTokens)
			},
		)
	}
}

func TestRequesterMissingFileSendsNothing(t *testing.T) {
	var hits atomic.Int32

	server := httptest.NewServer(
		http.HandlerFunc(
			func(w http.ResponseWriter, r *http.Request) {
				hits.Add(1)
			},
		),
	)
	defer server.Close()

	gen, err := llms.NewGoogleGemini(
		"k", llms.ModelConfig{
			Model:         llms.DefaultGeminiModel,
			BaseURL:       server.URL,
			HTTPClient:    server.Client(),
			RequestConfig: llms.DefaultRequestConfig(),
		}, quietLogger(),
	)
	require.NoError(t, err)

	r := NewRequester(gen, io.Discard, quietLogger(), Config{})

	err = r.Run(context.Background(), filepath.Join(t.TempDir(), "nope.md"))

	var fe *FileAccessError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, int32(0), hits.Load())
}

func TestRequesterVerdict(t *testing.T) {
	reviewJSON := `{"score":100,"summary":"ok","issues":[],"strengths":["clear"],"approved":true}`
	body, err := json.Marshal(
		map[string]any{
			"candidates": []any{
				map[string]any{
					"content": map[string]any{
						"parts": []any{map[string]any{"text": reviewJSON}},
					},
				},
			},
		},
	)
	require.NoError(t, err)

	var (
		out  strings.Builder
		logs strings.Builder
	)

	r := NewRequester(
		&fakeGenerator{reply: &llms.Reply{StatusCode: 200, Body: body}},
		&out,
		log.NewWithOptions(&logs, log.Options{Level: log.InfoLevel}),
		Config{Prompt: DefaultPromptOptions(), Verdict: true},
	)

	require.NoError(t, r.Run(context.Background(), writePlan(t, "p")))

	assert.Equal(t, reviewJSON+"\n", out.String())
	assert.Contains(t, logs.String(), "Review verdict")
	assert.Contains(t, logs.String(), "score=100")
}

func TestRequesterDryRun(t *testing.T) {
	var out strings.Builder

	gen := &fakeGenerator{}
	r := NewRequester(gen, &out, quietLogger(), Config{Request: llms.DefaultRequestConfig()})

	require.NoError(t, r.DryRun(writePlan(t, "dry plan")))
	assert.Empty(t, gen.prompts)

	var sent llms.GenerateContentRequest
	require.NoError(t, json.Unmarshal([]byte(out.String()), &sent))
	assert.Contains(t, sent.Contents[0].Parts[0].Text, "dry plan")
	assert.Equal(t, 0.2, sent.GenerationConfig.Temperature)
	assert.Equal(t, int64(8192), sent.GenerationConfig.MaxOutputTokens)
}

func TestRequesterVerdictZeroThreshold(t *testing.T) {
	reviewJSON := `{"score":40,"summary":"rough","issues":[],"strengths":[],"approved":true}`
	body := []byte(
		`{"candidates":[{"content":{"parts":[{"text":` + quoteJSON(reviewJSON) + `}]}}]}`,
	)

	var logs strings.Builder

	opts := DefaultPromptOptions()
	opts.ApprovalThreshold = 0

	r := NewRequester(
		&fakeGenerator{reply: &llms.Reply{StatusCode: 200, Body: body}},
		io.Discard,
		log.NewWithOptions(&logs, log.Options{Level: log.InfoLevel}),
		Config{Prompt: opts, Verdict: true},
	)

	require.NoError(t, r.Run(context.Background(), writePlan(t, "p")))

	assert.Contains(t, logs.String(), "threshold=0")
	assert.Contains(t, logs.String(), "meets_threshold=true")
	assert.NotContains(t, logs.String(), "says otherwise")
}

func quoteJSON(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

func TestRequesterShapeErrorKeepsUTF8(t *testing.T) {
	var out strings.Builder

	r := NewRequester(
		&fakeGenerator{reply: &llms.Reply{StatusCode: 200, Body: []byte(`{"note":"café é"}`)}},
		&out,
		quietLogger(),
		Config{Prompt: DefaultPromptOptions()},
	)

	err := r.Run(context.Background(), writePlan(t, "p"))

	var shapeErr *ResponseShapeError
	require.True(t, errors.As(err, &shapeErr))
	assert.Equal(
		t,
		"Response structure error: missing key \"candidates\" at root\n{\n  \"note\": \"café é\"\n}\n",
		out.String(),
	)
}
