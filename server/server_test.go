package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frauddesk/fraudqa/pipeline"
	"github.com/frauddesk/fraudqa/schema"
)

type stubAsker struct {
	lastQuestion string
}

func (s *stubAsker) Run(_ context.Context, question string) *pipeline.Response {
	s.lastQuestion = question
	return &pipeline.Response{
		RequestID: "req-1",
		Question:  question,
		Intent:    schema.IntentAnalytics,
		State:     pipeline.StateDone,
		Answer: &schema.Answer{
			Text:  "There were 1204 fraudulent transactions [T1].",
			Score: 0.97,
			Citations: []schema.Citation{
				{Kind: schema.CiteQuery, Ref: "T1", Locator: "SELECT COUNT(*) FROM transactions WHERE is_fraud = 1"},
			},
		},
	}
}

func doRequest(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	return w
}

func TestAskEndpoint(t *testing.T) {
	asker := &stubAsker{}
	srv := New(asker)

	w := doRequest(t, srv, http.MethodPost, "/v1/ask", `{"question":"how many fraud cases?"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var resp pipeline.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "req-1", resp.RequestID)
	assert.Equal(t, pipeline.StateDone, resp.State)
	assert.Equal(t, "how many fraud cases?", asker.lastQuestion)
	require.NotNil(t, resp.Answer)
	assert.InDelta(t, 0.97, resp.Answer.Score, 0.001)
}

func TestAskRejectsBadBodies(t *testing.T) {
	srv := New(&stubAsker{})

	for _, body := range []string{
		``,
		`{}`,
		`{"question":"   "}`,
		`{"question":` + `"` + strings.Repeat("x", 3000) + `"}`,
		`not json`,
	} {
		w := doRequest(t, srv, http.MethodPost, "/v1/ask", body)
		assert.Equal(t, http.StatusBadRequest, w.Code, "body %.30q", body)
	}
}

func TestHealthz(t *testing.T) {
	srv := New(&stubAsker{})
	w := doRequest(t, srv, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ok")
}

func TestMetricsExposed(t *testing.T) {
	srv := New(&stubAsker{})
	w := doRequest(t, srv, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, w.Code)
}
