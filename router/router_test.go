package router

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frauddesk/fraudqa/schema"
)

type mockProvider struct {
	response string
	err      error
	lastUser string
}

func (m *mockProvider) GenerateCompletion(_ context.Context, _ string, user string) (string, error) {
	m.lastUser = user
	return m.response, m.err
}

func (m *mockProvider) GetProviderType() string { return "mock" }

func TestLLMRouterLabels(t *testing.T) {
	cases := []struct {
		name     string
		response string
		intent   schema.Intent
		conf     float64
	}{
		{
			name:     "analytics",
			response: `{"intent":"ANALYTICS","confidence":0.93,"reason":"asks for a count"}`,
			intent:   schema.IntentAnalytics,
			conf:     0.93,
		},
		{
			name:     "document",
			response: `{"intent":"DOCUMENT","confidence":0.88,"reason":"asks for a definition"}`,
			intent:   schema.IntentDocument,
			conf:     0.88,
		},
		{
			name:     "both lowercase",
			response: `{"intent":"both","confidence":0.7,"reason":"trend plus explanation"}`,
			intent:   schema.IntentBoth,
			conf:     0.7,
		},
		{
			name:     "out of scope",
			response: `{"intent":"OUT_OF_SCOPE","confidence":0.99,"reason":"smalltalk"}`,
			intent:   schema.IntentOutOfScope,
			conf:     0.99,
		},
		{
			name:     "json wrapped in prose",
			response: "Sure! Here is the routing decision:\n{\"intent\":\"ANALYTICS\",\"confidence\":0.8,\"reason\":\"count\"}\nHope that helps.",
			intent:   schema.IntentAnalytics,
			conf:     0.8,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := NewLLMRouter(&mockProvider{response: tc.response})
			d, err := r.Route(context.Background(), "q")
			require.NoError(t, err)
			assert.Equal(t, tc.intent, d.Intent)
			assert.InDelta(t, tc.conf, d.Confidence, 0.001)
		})
	}
}

func TestLLMRouterFailSafeDefaults(t *testing.T) {
	// Unparseable output and unknown labels both decline rather than guess.
	for _, response := range []string{
		"the intent is probably analytics",
		`{"intent":"SQL","confidence":0.9,"reason":"made-up label"}`,
		`{"confidence":0.9}`,
	} {
		r := NewLLMRouter(&mockProvider{response: response})
		d, err := r.Route(context.Background(), "q")
		require.NoError(t, err, "response %q", response)
		assert.Equal(t, schema.IntentOutOfScope, d.Intent, "response %q", response)
	}
}

func TestLLMRouterClampsConfidence(t *testing.T) {
	r := NewLLMRouter(&mockProvider{response: `{"intent":"ANALYTICS","confidence":3.7,"reason":"x"}`})
	d, err := r.Route(context.Background(), "q")
	require.NoError(t, err)
	assert.Equal(t, float64(0), d.Confidence)
}

func TestLLMRouterPropagatesProviderError(t *testing.T) {
	r := NewLLMRouter(&mockProvider{err: errors.New("connection refused")})
	_, err := r.Route(context.Background(), "q")
	require.Error(t, err)
}

func TestRuleBasedRouter(t *testing.T) {
	r := &RuleBasedRouter{}
	cases := []struct {
		question string
		intent   schema.Intent
	}{
		{"how many fraud transactions happened in 2019?", schema.IntentAnalytics},
		{"what is card skimming?", schema.IntentDocument},
		{"what is the fraud rate and why does it spike at night?", schema.IntentBoth},
		{"what's a good pasta recipe?", schema.IntentOutOfScope},
	}
	for _, tc := range cases {
		d, err := r.Route(context.Background(), tc.question)
		require.NoError(t, err)
		assert.Equal(t, tc.intent, d.Intent, tc.question)
	}
}
