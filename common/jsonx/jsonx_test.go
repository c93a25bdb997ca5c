package jsonx

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	Intent     string  `json:"intent"`
	Confidence float64 `json:"confidence"`
}

func TestDecodeObjectStrictJSON(t *testing.T) {
	var p payload
	require.NoError(t, DecodeObject(`{"intent":"ANALYTICS","confidence":0.9}`, &p))
	assert.Equal(t, "ANALYTICS", p.Intent)
}

func TestDecodeObjectExtractsEmbeddedBlock(t *testing.T) {
	raw := "Sure, here's the result:\n```json\n{\"intent\":\"BOTH\",\"confidence\":0.7}\n```\nLet me know!"
	var p payload
	require.NoError(t, DecodeObject(raw, &p))
	assert.Equal(t, "BOTH", p.Intent)
	assert.InDelta(t, 0.7, p.Confidence, 0.001)
}

func TestDecodeObjectNoObject(t *testing.T) {
	var p payload
	assert.Error(t, DecodeObject("no json here at all", &p))
	assert.Error(t, DecodeObject("", &p))
}

func TestDecodeObjectMalformedBlock(t *testing.T) {
	var p payload
	assert.Error(t, DecodeObject(`prefix {"intent": "BOTH", unfinished`, &p))
}
