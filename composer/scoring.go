package composer

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/frauddesk/fraudqa/schema"
)

// Quality scoring policy. The score is assembled from measurable signals
// only:
//
//	score = 0.60*citationCoverage + 0.25*typeCoverage + 0.15*similarityStrength
//
// citationCoverage:   fraction of answer sentences carrying a resolved
// evidence tag.
// typeCoverage:       fraction of the evidence types the intent asked for
// that actually arrived (a failed branch under BOTH halves this).
// similarityStrength: mean retrieval similarity of the cited passages;
// when the intent asked for no documents, tabular evidence counts as
// full strength.
//
// The weights are policy, tuned on the scenario suite, not derived.
const (
	weightCitations  = 0.60
	weightTypes      = 0.25
	weightSimilarity = 0.15
)

var sentenceTag = regexp.MustCompile(`\[(T|D)\d+\]`)

// Score computes the answer quality for a composed answer. An empty bundle
// always scores zero regardless of the text.
func Score(intent schema.Intent, bundle *schema.EvidenceBundle, answer string, citations []schema.Citation) float64 {
	if bundle.Empty() || len(citations) == 0 {
		return 0
	}

	score := weightCitations*citationCoverage(answer) +
		weightTypes*typeCoverage(intent, bundle) +
		weightSimilarity*similarityStrength(intent, bundle)

	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

func citationCoverage(answer string) float64 {
	sentences := splitSentences(answer)
	if len(sentences) == 0 {
		return 0
	}
	tagged := 0
	for _, s := range sentences {
		if sentenceTag.MatchString(s) {
			tagged++
		}
	}
	return float64(tagged) / float64(len(sentences))
}

func typeCoverage(intent schema.Intent, bundle *schema.EvidenceBundle) float64 {
	requested, present := 0, 0
	if intent.NeedsAnalytics() {
		requested++
		if bundle.Tabular != nil {
			present++
		}
	}
	if intent.NeedsDocuments() {
		requested++
		if len(bundle.Passages) > 0 {
			present++
		}
	}
	if requested == 0 {
		return 0
	}
	return float64(present) / float64(requested)
}

func similarityStrength(intent schema.Intent, bundle *schema.EvidenceBundle) float64 {
	if len(bundle.Passages) == 0 {
		if !intent.NeedsDocuments() && bundle.Tabular != nil {
			return 1
		}
		return 0
	}
	var sum float64
	for _, p := range bundle.Passages {
		s := p.Score
		if s < 0 {
			s = 0
		}
		if s > 1 {
			s = 1
		}
		sum += s
	}
	return sum / float64(len(bundle.Passages))
}

func splitSentences(text string) []string {
	var out []string
	var b strings.Builder
	runes := []rune(text)
	flush := func() {
		if s := b.String(); len(strings.TrimSpace(s)) >= 3 {
			out = append(out, s)
		}
		b.Reset()
	}
	for i, r := range runes {
		switch r {
		case '!', '?', '\n':
			flush()
		case '.':
			// A period followed by a non-space rune is part of a token,
			// most often a decimal number, not a sentence boundary.
			if i+1 < len(runes) && !unicode.IsSpace(runes[i+1]) {
				b.WriteRune(r)
				continue
			}
			flush()
		default:
			b.WriteRune(r)
		}
	}
	flush()
	return out
}
