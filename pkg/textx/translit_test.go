package textx

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHasDevanagari(t *testing.T) {
	assert.True(t, HasDevanagari("मैं ठीक हूँ"))
	assert.True(t, HasDevanagari("hello मैं"))
	assert.False(t, HasDevanagari("hello there"))
	assert.False(t, HasDevanagari("привет"))
}

func TestRomanize(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"pure latin unchanged", "I enjoy building systems", "I enjoy building systems"},
		{"simple word", "नमन", "namana"},
		{"matra", "की", "kii"},
		{"halant cluster", "क्या", "kyaa"},
		{"mixed text", "main काम karta hoon", "main kaama karta hoon"},
		{"nukta precomposed", "क़ाज़ी", "qaazii"},
		{"nukta decomposed", "क़ाज़ी", "qaazii"},
		{"nukta standalone", "फ़िल्म", "filma"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Romanize(tc.in))
		})
	}
}

func TestRomanizeProducesLatin(t *testing.T) {
	out := Romanize("मैं एक इंजीनियर हूँ और मुझे काम पसंद है")
	assert.True(t, IsLatinScript(out), "romanized output %q must be Latin", out)
	assert.NotEmpty(t, out)
}
