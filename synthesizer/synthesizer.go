package synthesizer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/frauddesk/fraudqa/common/jsonx"
	"github.com/frauddesk/fraudqa/common/logger"
	"github.com/frauddesk/fraudqa/llm"
	"github.com/frauddesk/fraudqa/schema"
	"github.com/frauddesk/fraudqa/store"
)

// Synthesizer turns an analytics question into a validated read-only query
// and executes it. The model only ever sees schema metadata; all arithmetic
// (rates, ratios, aggregates) is computed by the store engine so numbers in
// the evidence are never model-estimated.
type Synthesizer struct {
	Provider  llm.Provider
	Store     *store.Store
	Validator *Validator
}

// New wires a synthesizer over the given model and store.
func New(p llm.Provider, st *store.Store, defaultLimit int) *Synthesizer {
	return &Synthesizer{
		Provider:  p,
		Store:     st,
		Validator: NewValidator(st.Schema(), defaultLimit, st.MaxRows()),
	}
}

const sqlSystemPromptTemplate = `You are a SQLite SQL generator for ONE table.

Goal:
Generate ONE SQLite SELECT query that answers the user's analytics question using:
%s
Hard rules:
1) Output MUST be valid JSON ONLY with keys exactly:
   {"sql": "...", "notes": "..."}
2) SELECT statements only. Absolutely NO: INSERT/UPDATE/DELETE/ALTER/CREATE/DROP/PRAGMA/ATTACH.
3) Use ONLY table "%s" and ONLY columns listed in the schema.
4) Always use explicit "AS" for every alias.
5) Always include LIMIT:
   - If user asks "top N", use LIMIT N (cap N at %d).
   - Otherwise default LIMIT %d.
6) If the request cannot be answered from this schema, return:
   {"sql": null, "notes": "UNSUPPORTED: <short reason>"}.
7) For relative time ranges ("last two years"), compute them from the
   dataset time range (MAX(trans_date_trans_time)) with a CTE. Do NOT use
   datetime('now').

Time filtering (trans_date_trans_time is TEXT "YYYY-MM-DD HH:MM:SS"):
- Prefer inclusive-exclusive ranges:
  trans_date_trans_time >= 'YYYY-MM-DD 00:00:00' AND trans_date_trans_time < 'YYYY-MM-DD 00:00:00'

Aggregation guidance:
- fraud_count = SUM(is_fraud)
- total_count = COUNT(*)
- fraud_rate = AVG(is_fraud)
- total_amount = SUM(amt)

Time bucketing guidance (for trends):
- monthly: strftime('%%Y-%%m', trans_date_trans_time) AS ym
- weekly:  strftime('%%Y-%%W', trans_date_trans_time) AS yw
- daily:   date(trans_date_trans_time) AS d

Return ONLY JSON, nothing else.`

type sqlReply struct {
	SQL   *string `json:"sql"`
	Notes string  `json:"notes"`
}

// SynthesizeAndExecute runs the full phase: generate, validate, execute.
// Failed validation returns UNSAFE_QUERY; store errors allow exactly one
// retry with a simplified query before returning EXECUTION_FAILURE.
func (s *Synthesizer) SynthesizeAndExecute(ctx context.Context, question string) (*schema.TabularEvidence, error) {
	stmt, notes, err := s.generate(ctx, question, "")
	if err != nil {
		return nil, err
	}

	ev, execErr := s.execute(ctx, stmt, notes)
	if execErr == nil {
		return ev, nil
	}

	// One bounded retry: ask for a simpler query, mentioning the failure.
	logger.Warnf("synthesizer: execution failed, retrying with simplified query: %v", execErr)
	stmt, notes, err = s.generate(ctx, question, simplifyHint(execErr))
	if err != nil {
		return nil, schema.NewFailure(schema.FailExecution, "retry generation failed", err)
	}
	ev, execErr = s.execute(ctx, stmt, notes)
	if execErr != nil {
		return nil, schema.FailureOf(execErr, schema.FailExecution)
	}
	return ev, nil
}

// generate drafts a candidate statement and passes it through the gate.
func (s *Synthesizer) generate(ctx context.Context, question, hint string) (string, string, error) {
	sch := s.Store.Schema()
	system := fmt.Sprintf(sqlSystemPromptTemplate, sch.Describe(), sch.Table, s.Store.MaxRows(), s.Validator.defaultLimit)
	user := question
	if hint != "" {
		user = fmt.Sprintf("%s\n\n%s", question, hint)
	}

	raw, err := s.Provider.GenerateCompletion(ctx, system, user)
	if err != nil {
		return "", "", schema.NewFailure(schema.FailExecution, "query generation failed", err)
	}

	var reply sqlReply
	if err := jsonx.DecodeObject(raw, &reply); err != nil {
		return "", "", schema.NewFailure(schema.FailUnsafeQuery, "unparseable generator output", err)
	}
	if reply.SQL == nil || strings.TrimSpace(*reply.SQL) == "" {
		return "", "", schema.NewFailure(schema.FailUnsafeQuery, firstNonEmpty(reply.Notes, "generator declined the question"), nil)
	}

	validated, err := s.Validator.Validate(*reply.SQL)
	if err != nil {
		logger.Warnf("synthesizer: rejected candidate query: %v", err)
		return "", "", schema.NewFailure(schema.FailUnsafeQuery, err.Error(), err)
	}
	return validated, reply.Notes, nil
}

func (s *Synthesizer) execute(ctx context.Context, stmt, notes string) (*schema.TabularEvidence, error) {
	start := time.Now()
	cols, rows, err := s.Store.Query(ctx, stmt)
	if err != nil {
		return nil, schema.NewFailure(schema.FailExecution, err.Error(), err)
	}
	elapsed := time.Since(start)
	logger.Infof("synthesizer: executed query, rows=%d, elapsed=%v", len(rows), elapsed)
	return &schema.TabularEvidence{
		Query:   schema.StructuredQuery{SQL: stmt, Notes: notes},
		Columns: cols,
		Rows:    rows,
		Elapsed: elapsed,
	}, nil
}

func simplifyHint(execErr error) string {
	return fmt.Sprintf("The previous query failed with: %v\nGenerate a SIMPLER query: no CTEs, a single aggregate, fewer clauses.", execErr)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
