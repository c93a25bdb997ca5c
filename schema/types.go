package schema

import (
	"fmt"
	"time"
)

// Intent is the router's classification of a question into one of four
// handling modes.
type Intent string

const (
	IntentAnalytics  Intent = "ANALYTICS"
	IntentDocument   Intent = "DOCUMENT"
	IntentBoth       Intent = "BOTH"
	IntentOutOfScope Intent = "OUT_OF_SCOPE"
)

// Valid reports whether i is one of the four known labels.
func (i Intent) Valid() bool {
	switch i {
	case IntentAnalytics, IntentDocument, IntentBoth, IntentOutOfScope:
		return true
	}
	return false
}

// NeedsAnalytics reports whether the analytical branch runs for this intent.
func (i Intent) NeedsAnalytics() bool { return i == IntentAnalytics || i == IntentBoth }

// NeedsDocuments reports whether the document branch runs for this intent.
func (i Intent) NeedsDocuments() bool { return i == IntentDocument || i == IntentBoth }

// StructuredQuery is a validated, read-only data-retrieval statement
// synthesized from natural language. SQL holds the statement as executed,
// after the safety gate and limit clamping.
type StructuredQuery struct {
	SQL   string `json:"sql"`
	Notes string `json:"notes,omitempty"`
}

// Row is one result row keyed by column name.
type Row map[string]any

// TabularEvidence is the output of the analytical branch: the executed query
// plus its result rows, kept together so the answer can cite the query.
type TabularEvidence struct {
	Query   StructuredQuery `json:"query"`
	Columns []string        `json:"columns"`
	Rows    []Row           `json:"rows"`
	Elapsed time.Duration   `json:"-"`
}

// DocumentChunk is an indexed unit of text with its source locator. Chunks
// are created at ingestion time and read-only thereafter.
type DocumentChunk struct {
	ID      string `json:"id"`
	Content string `json:"content"`
	Source  string `json:"source"` // source document identifier, e.g. "Bhatla.pdf"
	Page    int    `json:"page"`   // 1-based page or section number, 0 when unknown
}

// Locator renders the human-readable citation form, e.g. "Bhatla.pdf p.3".
func (c DocumentChunk) Locator() string {
	if c.Page > 0 {
		return fmt.Sprintf("%s p.%d", c.Source, c.Page)
	}
	return c.Source
}

// RetrievedPassage is one nearest-neighbor hit: a chunk with its similarity
// score and rank within the result set. Ephemeral, scoped to one request.
type RetrievedPassage struct {
	Chunk DocumentChunk `json:"chunk"`
	Score float64       `json:"score"`
	Rank  int           `json:"rank"`
}

// EvidenceBundle is the per-request container of tabular and/or document
// evidence passed to the composer. A branch that failed leaves its slot nil
// and records the failure so the answer can note it.
type EvidenceBundle struct {
	Tabular  *TabularEvidence   `json:"tabular,omitempty"`
	Passages []RetrievedPassage `json:"passages,omitempty"`

	// Failures holds phase-level failures from branches that did not
	// contribute evidence. The composer reflects them in the answer's
	// score and notes instead of aborting the request.
	Failures []*PhaseFailure `json:"failures,omitempty"`
}

// Empty reports whether the bundle carries no evidence at all.
func (b *EvidenceBundle) Empty() bool {
	return b == nil || (b.Tabular == nil && len(b.Passages) == 0)
}

// Citation points at the evidence backing a claim: either the executed
// analytical query or a document chunk locator.
type Citation struct {
	Kind    CitationKind `json:"kind"`
	Ref     string       `json:"ref"`               // "query" key or passage key, e.g. "T1", "D2"
	Locator string       `json:"locator,omitempty"` // human-readable form
}

// CitationKind discriminates citation targets.
type CitationKind string

const (
	CiteQuery    CitationKind = "query"
	CiteDocument CitationKind = "document"
)

// Answer is the final composed response. Immutable once returned.
type Answer struct {
	Text      string     `json:"text"`
	Citations []Citation `json:"citations"`
	Score     float64    `json:"score"` // quality score in [0, 1]
	Notes     string     `json:"notes,omitempty"`
}
