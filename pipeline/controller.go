package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/frauddesk/fraudqa/common/logger"
	"github.com/frauddesk/fraudqa/config"
	"github.com/frauddesk/fraudqa/metrics"
	"github.com/frauddesk/fraudqa/router"
	"github.com/frauddesk/fraudqa/schema"
)

// State names the controller's position in the request lifecycle. It is
// reported on the response for observability; transitions are one-way.
type State string

const (
	StateRouting              State = "ROUTING"
	StateAnalyzing            State = "ANALYZING"
	StateRetrieving           State = "RETRIEVING"
	StateAnalyzingAndRetrieve State = "ANALYZING_AND_RETRIEVING"
	StateSkipped              State = "SKIPPED"
	StateComposing            State = "COMPOSING"
	StateDone                 State = "DONE"
	StateFailed               State = "FAILED"
)

// Analyzer turns a question into executed tabular evidence.
type Analyzer interface {
	SynthesizeAndExecute(ctx context.Context, question string) (*schema.TabularEvidence, error)
}

// Retriever fetches document passages relevant to the question.
type Retriever interface {
	Retrieve(ctx context.Context, question string, k int) ([]schema.RetrievedPassage, error)
}

// Composer produces the final grounded answer from the evidence bundle.
type Composer interface {
	Compose(ctx context.Context, question string, intent schema.Intent, bundle *schema.EvidenceBundle) (*schema.Answer, error)
}

// Response is the terminal result of one pipeline run. Answer is always
// set, even on failure paths, so callers never see a raw error.
type Response struct {
	RequestID string                 `json:"request_id"`
	Question  string                 `json:"question"`
	Intent    schema.Intent          `json:"intent"`
	State     State                  `json:"state"`
	Answer    *schema.Answer         `json:"answer"`
	Evidence  *schema.EvidenceBundle `json:"evidence,omitempty"`
	ElapsedMs int64                  `json:"elapsed_ms"`
}

// Controller drives one question through route, evidence gathering and
// composition. Controllers are stateless; one instance serves all
// requests concurrently.
type Controller struct {
	Router   router.Router
	Analyzer Analyzer
	Retr     Retriever
	Comp     Composer
	Cfg      config.PipelineConfig
	TopK     int
}

// New wires a controller from its four phase implementations.
func New(r router.Router, a Analyzer, ret Retriever, comp Composer, cfg config.PipelineConfig, topK int) *Controller {
	return &Controller{Router: r, Analyzer: a, Retr: ret, Comp: comp, Cfg: cfg, TopK: topK}
}

const composeFailureAnswer = "I gathered evidence for this question but could not compose a reliable answer from it. Please try again."

// Run executes the full pipeline for one question. It never returns an
// error: every failure mode degrades into an answer with a zero or
// reduced score and typed failure notes.
func (c *Controller) Run(ctx context.Context, question string) *Response {
	start := time.Now()
	resp := &Response{
		RequestID: uuid.NewString(),
		Question:  question,
		State:     StateRouting,
	}

	decision := c.route(ctx, resp)
	resp.Intent = decision.Intent
	metrics.CountIntent(string(decision.Intent))

	bundle := &schema.EvidenceBundle{}
	if resp.State != StateFailed {
		c.gather(ctx, resp, decision.Intent, bundle)
	} else {
		bundle.Failures = append(bundle.Failures,
			schema.NewFailure(schema.FailRouting, decision.Reason, nil))
	}
	resp.Evidence = bundle
	for _, f := range bundle.Failures {
		metrics.CountFailure(string(f.Kind))
	}

	c.compose(ctx, resp, bundle)

	resp.ElapsedMs = time.Since(start).Milliseconds()
	logger.Infof("pipeline: request=%s intent=%s state=%s score=%.2f elapsed=%dms",
		resp.RequestID, resp.Intent, resp.State, resp.Answer.Score, resp.ElapsedMs)
	return resp
}

// route classifies the question. A router error does not stop the run; it
// marks the response failed and falls back to OUT_OF_SCOPE so downstream
// phases still produce a well-formed degraded answer.
func (c *Controller) route(ctx context.Context, resp *Response) *router.Decision {
	phaseStart := time.Now()
	defer metrics.ObservePhase("route", phaseStart)

	rctx, cancel := phaseContext(ctx, c.Cfg.RouteTimeoutMs)
	defer cancel()

	decision, err := c.Router.Route(rctx, resp.Question)
	if err != nil {
		logger.Errorf("pipeline: routing failed for request %s: %v", resp.RequestID, err)
		resp.State = StateFailed
		return &router.Decision{Intent: schema.IntentOutOfScope, Reason: "router unavailable"}
	}
	return decision
}

// gather runs the evidence phases the intent calls for. Under BOTH the
// two branches run concurrently and write to disjoint bundle slots; a
// branch failure degrades its slot to absent instead of aborting the run.
func (c *Controller) gather(ctx context.Context, resp *Response, intent schema.Intent, bundle *schema.EvidenceBundle) {
	switch {
	case intent == schema.IntentBoth:
		resp.State = StateAnalyzingAndRetrieve
		var wg sync.WaitGroup
		var tabErr, retErr error
		var passages []schema.RetrievedPassage

		wg.Add(2)
		go func() {
			defer wg.Done()
			bundle.Tabular, tabErr = c.analyze(ctx, resp.Question)
		}()
		go func() {
			defer wg.Done()
			passages, retErr = c.retrieve(ctx, resp.Question)
		}()
		wg.Wait()

		bundle.Passages = passages
		if tabErr != nil {
			bundle.Tabular = nil
			bundle.Failures = append(bundle.Failures, schema.FailureOf(tabErr, schema.FailExecution))
		}
		if retErr != nil {
			bundle.Passages = nil
			bundle.Failures = append(bundle.Failures, schema.FailureOf(retErr, schema.FailRetrieval))
		}

	case intent.NeedsAnalytics():
		resp.State = StateAnalyzing
		tab, err := c.analyze(ctx, resp.Question)
		if err != nil {
			bundle.Failures = append(bundle.Failures, schema.FailureOf(err, schema.FailExecution))
			return
		}
		bundle.Tabular = tab

	case intent.NeedsDocuments():
		resp.State = StateRetrieving
		passages, err := c.retrieve(ctx, resp.Question)
		if err != nil {
			bundle.Failures = append(bundle.Failures, schema.FailureOf(err, schema.FailRetrieval))
			return
		}
		bundle.Passages = passages

	default:
		resp.State = StateSkipped
	}
}

func (c *Controller) analyze(ctx context.Context, question string) (*schema.TabularEvidence, error) {
	phaseStart := time.Now()
	defer metrics.ObservePhase("analyze", phaseStart)

	actx, cancel := phaseContext(ctx, c.Cfg.AnalyzeTimeoutMs)
	defer cancel()

	tab, err := c.Analyzer.SynthesizeAndExecute(actx, question)
	if err != nil {
		return nil, err
	}
	metrics.ObserveSQLRows(len(tab.Rows))
	return tab, nil
}

func (c *Controller) retrieve(ctx context.Context, question string) ([]schema.RetrievedPassage, error) {
	phaseStart := time.Now()
	defer metrics.ObservePhase("retrieve", phaseStart)

	rctx, cancel := phaseContext(ctx, c.Cfg.RetrieveTimeoutMs)
	defer cancel()

	passages, err := c.Retr.Retrieve(rctx, question, c.TopK)
	if err != nil {
		return nil, err
	}
	metrics.ObserveRetrieverResults(len(passages))
	return passages, nil
}

func (c *Controller) compose(ctx context.Context, resp *Response, bundle *schema.EvidenceBundle) {
	phaseStart := time.Now()
	defer metrics.ObservePhase("compose", phaseStart)

	if resp.State != StateFailed && resp.State != StateSkipped {
		resp.State = StateComposing
	}

	cctx, cancel := phaseContext(ctx, c.Cfg.ComposeTimeoutMs)
	defer cancel()

	ans, err := c.Comp.Compose(cctx, resp.Question, resp.Intent, bundle)
	if err != nil {
		f := schema.FailureOf(err, schema.FailComposition)
		metrics.CountFailure(string(f.Kind))
		logger.Errorf("pipeline: composition failed for request %s: %v", resp.RequestID, err)
		resp.State = StateFailed
		resp.Answer = &schema.Answer{
			Text:      composeFailureAnswer,
			Citations: []schema.Citation{},
			Score:     0,
			Notes:     f.Error(),
		}
		return
	}

	resp.Answer = ans
	metrics.ObserveAnswerScore(ans.Score)
	if resp.State == StateComposing || resp.State == StateSkipped {
		resp.State = StateDone
	}
}

func phaseContext(ctx context.Context, ms int) (context.Context, context.CancelFunc) {
	if ms <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, time.Duration(ms)*time.Millisecond)
}
