package router

import (
	"context"
	"strings"

	"github.com/frauddesk/fraudqa/common/jsonx"
	"github.com/frauddesk/fraudqa/common/logger"
	"github.com/frauddesk/fraudqa/llm"
	"github.com/frauddesk/fraudqa/schema"
)

// Decision is the routing outcome for one question.
type Decision struct {
	Intent     schema.Intent `json:"intent"`
	Confidence float64       `json:"confidence"` // Confidence score [0, 1]
	Reason     string        `json:"reason"`     // Human-readable reason
}

// Router classifies a question into one of the four handling modes.
type Router interface {
	Route(ctx context.Context, question string) (*Decision, error)
}

const routerSystemPrompt = `You are an intent router for a hybrid QA system about credit-card fraud.

Choose which route should handle the user's question:
- "ANALYTICS": best answered by querying the SQL table "transactions" (counts, trends, aggregations, top merchants/categories, fraud rate).
- "DOCUMENT": best answered by the fraud research documents (definitions, explanations, methods, prevention).
- "BOTH": ambiguous OR needs both (e.g., asks for a dataset trend plus an explanation).
- "OUT_OF_SCOPE": smalltalk, or questions unrelated to credit cards, payments, fraud or risk.

You ONLY choose the route. Do NOT generate SQL. Do NOT answer the question.

Return ONLY valid JSON (no markdown, no extra text):
{"intent":"ANALYTICS"|"DOCUMENT"|"BOTH"|"OUT_OF_SCOPE","confidence":0.0-1.0,"reason":"one short sentence"}`

// LLMRouter routes questions with a single classification call. Any model
// output that does not exactly match one of the four labels maps to
// OUT_OF_SCOPE: the fail-safe default is to decline, never to guess.
type LLMRouter struct {
	Provider llm.Provider
}

// NewLLMRouter creates a model-backed router.
func NewLLMRouter(p llm.Provider) *LLMRouter {
	return &LLMRouter{Provider: p}
}

type routerReply struct {
	Intent     string  `json:"intent"`
	Confidence float64 `json:"confidence"`
	Reason     string  `json:"reason"`
}

// Route issues the classification prompt. An inference error or timeout is
// returned to the caller as-is; the controller converts it into a
// ROUTING_FAILURE and short-circuits; this phase is never skipped.
func (r *LLMRouter) Route(ctx context.Context, question string) (*Decision, error) {
	raw, err := r.Provider.GenerateCompletion(ctx, routerSystemPrompt, question)
	if err != nil {
		return nil, err
	}

	var reply routerReply
	if err := jsonx.DecodeObject(raw, &reply); err != nil {
		logger.Warnf("router: unparseable model output, defaulting to OUT_OF_SCOPE: %v", err)
		return &Decision{Intent: schema.IntentOutOfScope, Reason: "unparseable router output"}, nil
	}

	intent := schema.Intent(strings.ToUpper(strings.TrimSpace(reply.Intent)))
	if !intent.Valid() {
		logger.Warnf("router: unknown label %q, defaulting to OUT_OF_SCOPE", reply.Intent)
		intent = schema.IntentOutOfScope
		reply.Reason = "unrecognized router label"
	}

	conf := reply.Confidence
	if conf < 0 || conf > 1 {
		conf = 0
	}

	logger.Infof("router: decision intent=%s confidence=%.2f reason=%s", intent, conf, reply.Reason)
	return &Decision{Intent: intent, Confidence: conf, Reason: reply.Reason}, nil
}

// RuleBasedRouter classifies with keyword heuristics only. It backs tests
// and offline runs where no model endpoint is reachable; the service wires
// the LLM router.
type RuleBasedRouter struct{}

// Route applies rule-based logic to determine routing
func (r *RuleBasedRouter) Route(_ context.Context, question string) (*Decision, error) {
	q := strings.ToLower(question)

	analytic := containsAny(q, []string{
		"how many", "count", "rate", "average", "total", "top ", "trend",
		"per month", "fraction", "percentage", "compare", "amount",
	})
	conceptual := containsAny(q, []string{
		"what is", "what are", "explain", "why", "how does", "define",
		"method", "prevention", "mitigat", "component",
	})
	domain := containsAny(q, []string{
		"fraud", "card", "transaction", "merchant", "payment", "chargeback", "risk",
	})

	d := &Decision{Confidence: 0.5, Reason: "keyword heuristics"}
	switch {
	case !domain:
		d.Intent = schema.IntentOutOfScope
	case analytic && conceptual:
		d.Intent = schema.IntentBoth
	case analytic:
		d.Intent = schema.IntentAnalytics
	case conceptual:
		d.Intent = schema.IntentDocument
	default:
		d.Intent = schema.IntentDocument
	}
	return d, nil
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}
