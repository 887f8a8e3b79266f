package integrity_test

import (
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"nomina-core/internal/integrity"
)

func TestCanonicalize_MapKeyOrderIsStable(t *testing.T) {
	a := map[string]any{"tax_table": "ISR-2024", "uma": "108.57", "sdi": "523.40"}
	b := map[string]any{"sdi": "523.40", "uma": "108.57", "tax_table": "ISR-2024"}

	bytesA, err := integrity.Canonicalize(a)
	assert.NoError(t, err)
	bytesB, err := integrity.Canonicalize(b)
	assert.NoError(t, err)

	assert.Equal(t, string(bytesA), string(bytesB))
}

func TestCanonicalize_DecimalFormattingIsFixed(t *testing.T) {
	type params struct {
		Rate decimal.Decimal `json:"rate"`
	}

	oneTenth := params{Rate: decimal.RequireFromString("0.10")}
	oneTenthAgain := params{Rate: decimal.NewFromFloat(0.1)}

	hashA, err := integrity.HashValue(oneTenth)
	assert.NoError(t, err)
	hashB, err := integrity.HashValue(oneTenthAgain)
	assert.NoError(t, err)

	assert.Equal(t, hashA, hashB, "0.10 and 0.1 must hash identically")
}

func TestCanonicalize_TimeNormalizedToUTC(t *testing.T) {
	loc := time.FixedZone("CST", -6*3600)
	local := time.Date(2024, 3, 15, 18, 0, 0, 0, loc)
	utc := local.UTC()

	hashA, err := integrity.HashValue(map[string]any{"effective": local})
	assert.NoError(t, err)
	hashB, err := integrity.HashValue(map[string]any{"effective": utc})
	assert.NoError(t, err)

	assert.Equal(t, hashA, hashB)
}

func TestHash_IsFullSHA256Hex(t *testing.T) {
	digest := integrity.Hash([]byte(`{"a":1}`))
	assert.Len(t, digest, 64)

	// Known vector
	assert.Equal(t,
		"e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855",
		integrity.Hash(nil),
	)
}

func TestVerify_DetectsTampering(t *testing.T) {
	payload := map[string]any{"tax_table": "ISR-2024", "rate": "0.0925"}

	digest, err := integrity.HashValue(payload)
	assert.NoError(t, err)

	ok, err := integrity.Verify(payload, digest)
	assert.NoError(t, err)
	assert.True(t, ok)

	payload["rate"] = "0.0930"
	ok, err = integrity.Verify(payload, digest)
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestCanonicalize_RejectsNonFiniteFloats(t *testing.T) {
	_, err := integrity.Canonicalize(map[string]any{"bad": math.NaN()})
	assert.ErrorIs(t, err, integrity.ErrNotCanonicalizable)

	_, err = integrity.Canonicalize(map[string]any{"bad": math.Inf(1)})
	assert.ErrorIs(t, err, integrity.ErrNotCanonicalizable)
}

func TestCanonicalize_NilSliceEqualsEmptySlice(t *testing.T) {
	type doc struct {
		Items []string `json:"items"`
	}

	hashNil, err := integrity.HashValue(doc{Items: nil})
	assert.NoError(t, err)
	hashEmpty, err := integrity.HashValue(doc{Items: []string{}})
	assert.NoError(t, err)

	assert.Equal(t, hashNil, hashEmpty)
}
