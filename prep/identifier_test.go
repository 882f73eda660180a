package prep

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStripLeadingZeros(t *testing.T) {
	cases := map[SampleID]SampleID{
		"0001234":    "1234",
		"1234":       "1234",
		"0A01":       "A01",
		"000":        "0",
		"0":          "0",
		"":           "",
		"BLANK0":     "BLANK0",
		"00.1e-3":    ".1e-3",
		"0123.000":   "123.000",
		"SP331130A4": "SP331130A4",
	}
	for in, want := range cases {
		got := in.StripLeadingZeros()
		assert.Equal(t, want, got, "strip(%q)", in)
		assert.Equal(t, got, got.StripLeadingZeros(), "strip is idempotent for %q", in)
	}
}

func TestIsBlank(t *testing.T) {
	assert.True(t, SampleID("BLANK3.3B").IsBlank())
	assert.False(t, SampleID("blank3").IsBlank())
	assert.False(t, SampleID("13059.BLANK3.3B").IsBlank())
	assert.True(t, SampleID("13059.BLANK3.3B").Unqualified("13059").IsBlank())
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, SampleID("SP331130A04"), SampleID("13059.SP331130A04").Normalize("13059"))
	assert.Equal(t, SampleID("4567"), SampleID("13059.0004567").Normalize("13059"))
	assert.Equal(t, SampleID("BLANK.01"), SampleID("13059.BLANK.01").Normalize("13059"))
	assert.Equal(t, SampleID("1305.x"), SampleID("1305.x").Normalize(""))
	assert.Equal(t, SampleID("99.x"), SampleID("0099.x").Normalize("13059"))
}
