package phase

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLabel(t *testing.T) {
	tests := []struct {
		in   string
		want Label
	}{
		{"3", Label{3, 0}},
		{"0", Label{0, 0}},
		{"3.A", Label{3, 1}},
		{"3.B", Label{3, 2}},
		{"12.Z", Label{12, 26}},
		{"3.2", Label{3, 2}},
		{" 4.0 ", Label{4, 0}},
	}
	for _, tt := range tests {
		got, err := ParseLabel(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestParseLabelInvalid(t *testing.T) {
	for _, in := range []string{"", "x", "3.a", "3.AB", "-1", "3.", ".A", "3.-2"} {
		_, err := ParseLabel(in)
		assert.Error(t, err, in)
	}
}

func TestEntryString(t *testing.T) {
	assert.Equal(t, "1: Work", Entry{Label: "1", Name: "Work"}.String())
	assert.Equal(t, "2", Entry{Label: "2"}.String())
}

func TestParsePhase(t *testing.T) {
	assert.Equal(t, Entry{Label: "3.B", Name: "Review"}, ParsePhase("3.B: Review"))
	assert.Equal(t, Entry{Label: "4"}, ParsePhase("4"))
	assert.Equal(t, "3.B: Review", ParsePhase("3.B: Review").String())
}
