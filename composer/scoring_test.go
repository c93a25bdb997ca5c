package composer

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/frauddesk/fraudqa/schema"
)

func TestSplitSentencesKeepsDecimals(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "decimal rates stay in one sentence",
			text: "The fraud rate outside the EEA is 0.52% [T1]. Inside the EEA it is 0.31% [T1].",
			want: []string{
				"The fraud rate outside the EEA is 0.52% [T1]",
				" Inside the EEA it is 0.31% [T1]",
			},
		},
		{
			name: "plain terminators still split",
			text: "First claim [D1]. Second claim [D2]!\nThird claim [T1]?",
			want: []string{
				"First claim [D1]",
				" Second claim [D2]",
				"Third claim [T1]",
			},
		},
		{
			name: "trailing period at end of text terminates",
			text: "Only one sentence here [T1].",
			want: []string{"Only one sentence here [T1]"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, splitSentences(tt.text))
		})
	}
}

func TestCitationCoverageWithDecimalNumbers(t *testing.T) {
	answer := "The fraud rate outside the EEA is 0.52% [T1]. Inside the EEA it is 0.31% [T1]."
	assert.Equal(t, 1.0, citationCoverage(answer))

	half := "The fraud rate is 0.42% [T1]. No source for this claim."
	assert.Equal(t, 0.5, citationCoverage(half))
}

func TestScoreFullyGroundedRateAnswer(t *testing.T) {
	answer := "The fraud rate is 0.42% [T1]. Card-not-present fraud dominates online channels [D1]."
	citations := []schema.Citation{
		{Ref: "D1", Kind: schema.CiteDocument, Locator: "Bhatla.pdf p.3"},
		{Ref: "T1", Kind: schema.CiteQuery},
	}
	score := Score(schema.IntentBoth, fullBundle(), answer, citations)
	assert.Greater(t, score, 0.9)
	assert.LessOrEqual(t, score, 1.0)
}
