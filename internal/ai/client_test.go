package ai

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

type fakeGenerator struct {
	mu      sync.Mutex
	calls   []string
	prompts []string
	answers map[string]string
	errs    map[string]error
}

func (f *fakeGenerator) GenerateText(_ context.Context, model, prompt string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, model)
	f.prompts = append(f.prompts, prompt)
	if err := f.errs[model]; err != nil {
		return "", err
	}
	return f.answers[model], nil
}

type restServer struct {
	*httptest.Server
	hits    atomic.Int32
	lastKey atomic.Value
	lastReq atomic.Value
}

func newRESTServer(t *testing.T, status int, body string) *restServer {
	t.Helper()
	rs := &restServer{}
	rs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rs.hits.Add(1)
		rs.lastKey.Store(r.Header.Get("x-goog-api-key"))
		raw, _ := io.ReadAll(r.Body)
		rs.lastReq.Store(r.Method + " " + r.URL.Path + " " + string(raw))
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(rs.Close)
	return rs
}

const okBody = `{"candidates":[{"content":{"role":"model","parts":[{"text":"from rest"},{"text":"ignored"}]}}]}`

func failingGenerator(models ...string) *fakeGenerator {
	f := &fakeGenerator{errs: map[string]error{}}
	for _, m := range models {
		f.errs[m] = errors.New(m + " down")
	}
	return f
}

func TestGenerateWithoutKeyMakesNoCall(t *testing.T) {
	srv := newRESTServer(t, http.StatusOK, okBody)
	gen := &fakeGenerator{}
	c := NewWithGenerator(Config{BaseURL: srv.URL}, gen)

	require.False(t, c.Configured())
	_, err := c.Generate(context.Background(), "hi")
	require.Error(t, err)
	assert.Equal(t, KindConfig, KindOf(err))
	assert.ErrorIs(t, err, ErrNotConfigured)
	assert.Empty(t, gen.calls)
	assert.Zero(t, srv.hits.Load())
}

func TestNewWithoutKeyIsUnconfigured(t *testing.T) {
	c, err := New(context.Background(), Config{})
	require.NoError(t, err)
	assert.False(t, c.Configured())
}

func TestGenerateFirstVariantWins(t *testing.T) {
	gen := &fakeGenerator{answers: map[string]string{"m1": "answer"}}
	c := NewWithGenerator(Config{APIKey: "k", Models: []string{"m1", "m2"}}, gen)

	text, err := c.Generate(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "answer", text)
	assert.Equal(t, []string{"m1"}, gen.calls)
	assert.Equal(t, []string{"hello"}, gen.prompts)
}

func TestGenerateFallsThroughVariantsInOrder(t *testing.T) {
	srv := newRESTServer(t, http.StatusOK, okBody)
	gen := failingGenerator("m1")
	gen.answers = map[string]string{"m2": "second"}
	c := NewWithGenerator(Config{APIKey: "k", Models: []string{"m1", "m2", "m3"}, BaseURL: srv.URL}, gen)

	text, err := c.Generate(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "second", text)
	assert.Equal(t, []string{"m1", "m2"}, gen.calls)
	assert.Zero(t, srv.hits.Load())
}

func TestGenerateEmptyTextCountsAsFailure(t *testing.T) {
	gen := &fakeGenerator{answers: map[string]string{"m1": "", "m2": "ok"}}
	c := NewWithGenerator(Config{APIKey: "k", Models: []string{"m1", "m2"}}, gen)

	text, err := c.Generate(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "ok", text)
	assert.Equal(t, []string{"m1", "m2"}, gen.calls)
}

func TestGenerateRESTFallback(t *testing.T) {
	srv := newRESTServer(t, http.StatusOK, okBody)
	gen := failingGenerator("m1", "m2")
	c := NewWithGenerator(Config{
		APIKey:        "secret",
		Models:        []string{"m1", "m2"},
		FallbackModel: "fb",
		BaseURL:       srv.URL + "/",
	}, gen)

	text, err := c.Generate(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "from rest", text)
	assert.Equal(t, []string{"m1", "m2"}, gen.calls)
	assert.Equal(t, int32(1), srv.hits.Load())
	assert.Equal(t, "secret", srv.lastKey.Load())

	req := srv.lastReq.Load().(string)
	assert.True(t, strings.HasPrefix(req, "POST /models/fb:generateContent "), req)
	assert.Contains(t, req, `"text":"hello"`)
}

func TestGenerateRESTFailureKinds(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		kind   Kind
	}{
		{"server error", http.StatusInternalServerError, `oops`, KindTransport},
		{"bad json", http.StatusOK, `{`, KindMalformed},
		{"api error", http.StatusOK, `{"error":{"code":400,"message":"bad","status":"INVALID_ARGUMENT"}}`, KindMalformed},
		{"no candidates", http.StatusOK, `{"candidates":[]}`, KindMalformed},
		{"no parts", http.StatusOK, `{"candidates":[{"content":{"parts":[]}}]}`, KindMalformed},
		{"empty text", http.StatusOK, `{"candidates":[{"content":{"parts":[{"text":""}]}}]}`, KindMalformed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := newRESTServer(t, tc.status, tc.body)
			gen := failingGenerator("m1", "m2")
			c := NewWithGenerator(Config{APIKey: "k", Models: []string{"m1", "m2"}, BaseURL: srv.URL}, gen)

			_, err := c.Generate(context.Background(), "hello")
			require.Error(t, err)
			var aerr *Error
			require.ErrorAs(t, err, &aerr)
			assert.Equal(t, tc.kind, aerr.Kind)
			assert.Equal(t, string(tc.kind), aerr.Code())
			require.Len(t, aerr.Attempts, 3)
			assert.Equal(t, "genai:m1", aerr.Attempts[0].Name)
			assert.Equal(t, "genai:m2", aerr.Attempts[1].Name)
			assert.Equal(t, "rest:"+DefaultFallbackModel, aerr.Attempts[2].Name)
			assert.NotEmpty(t, aerr.Diagnostic())
		})
	}
}

func TestGenerateTransportErrorOnUnreachableHost(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := NewWithGenerator(Config{APIKey: "k", Models: []string{"m1"}, BaseURL: url}, failingGenerator("m1"))
	_, err := c.Generate(context.Background(), "hello")
	assert.Equal(t, KindTransport, KindOf(err))
}

func TestGenerateAllVariantsFailedWithoutFallback(t *testing.T) {
	srv := newRESTServer(t, http.StatusOK, okBody)
	gen := failingGenerator("m1", "m2")
	c := NewWithGenerator(Config{
		APIKey:              "k",
		Models:              []string{"m1", "m2"},
		BaseURL:             srv.URL,
		DisableRESTFallback: true,
	}, gen)

	_, err := c.Generate(context.Background(), "hello")
	var aerr *Error
	require.ErrorAs(t, err, &aerr)
	assert.Equal(t, KindAllVariantsFailed, aerr.Kind)
	assert.Len(t, aerr.Attempts, 2)
	assert.EqualError(t, aerr.Err, "m2 down")
	assert.Zero(t, srv.hits.Load())
}

func TestGenerateReturnsLongAnswerVerbatim(t *testing.T) {
	long := strings.Repeat("ж", 10000)
	gen := &fakeGenerator{answers: map[string]string{"m1": long}}
	c := NewWithGenerator(Config{APIKey: "k", Models: []string{"m1"}}, gen)

	text, err := c.Generate(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, long, text)
}

func TestDefaults(t *testing.T) {
	cfg := Config{APIKey: "  k  "}.WithDefaults()
	assert.Equal(t, "k", cfg.APIKey)
	assert.Equal(t, DefaultModels, cfg.Models)
	assert.Equal(t, DefaultFallbackModel, cfg.FallbackModel)
	assert.Equal(t, DefaultBaseURL, cfg.BaseURL)
	assert.Equal(t, DefaultVariantTimeout, cfg.VariantTimeout)
	assert.Equal(t, DefaultFallbackTimeout, cfg.FallbackTimeout)
}

func TestFirstText(t *testing.T) {
	_, err := firstText(&genai.GenerateContentResponse{})
	assert.Error(t, err)

	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{
				{Text: "thinking", Thought: true},
				{Text: "answer"},
				{Text: "more"},
			}},
		}},
	}
	text, err := firstText(resp)
	require.NoError(t, err)
	assert.Equal(t, "answer", text)

	_, err = firstText(&genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{Content: &genai.Content{}}},
	})
	assert.ErrorIs(t, err, errEmptyText)
}

func TestFirstSuccessKeepsFailures(t *testing.T) {
	var seen []string
	attempts := []attempt[int]{
		{name: "a", run: func(context.Context) (int, error) { return 0, errors.New("a") }},
		{name: "b", run: func(context.Context) (int, error) { return 2, nil }},
		{name: "c", run: func(context.Context) (int, error) { t.Fatal("must not run"); return 0, nil }},
	}
	v, name, failed := firstSuccess(context.Background(), attempts, func(a Attempt) { seen = append(seen, a.Name) })
	assert.Equal(t, 2, v)
	assert.Equal(t, "b", name)
	assert.Equal(t, []string{"a"}, seen)
	require.Len(t, failed, 1)
	assert.EqualError(t, failed[0].Err, "a")
}
