package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizePhone(t *testing.T) {
	cases := map[string]string{
		"+962790001122":    "+962790001122", // already E.164
		"0790001122":       "+962790001122", // local 07X
		"790001122":        "+962790001122", // local without leading zero
		"962790001122":     "+962790001122", // country code, no plus
		"00962790001122":   "+962790001122", // international 00 prefix
		"079 000 11 22":    "+962790001122", // spaces stripped
		"079-000-1122":     "+962790001122", // dashes stripped
		" +962790001122 ":  "+962790001122",
		"(079) 000 - 1122": "+962790001122",
		"abc":              "",
		"":                 "",
	}

	for in, want := range cases {
		assert.Equal(t, want, NormalizePhone(in), "input %q", in)
	}
}

func TestNewIDIsSortableAndUnique(t *testing.T) {
	a := NewID()
	b := NewID()

	assert.Len(t, a, 26)
	assert.NotEqual(t, a, b)
	// ULIDs generated later never sort before earlier ones
	assert.LessOrEqual(t, a, b)
}
