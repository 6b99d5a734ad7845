package log

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want Logging
		ok   bool
	}{
		{"ALL", ALL, true},
		{"info", INFO, true},
		{" Error ", ERROR, true},
		{"FATAL", FATAL, true},
		{"verbose", FATAL, false},
		{"", FATAL, false},
	}

	for _, tt := range tests {
		got, ok := ParseLevel(tt.in)
		assert.Equal(t, tt.want, got, tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
	}
}

func TestLevelString(t *testing.T) {
	for _, lv := range []Logging{FATAL, ERROR, INFO, ALL} {
		back, ok := ParseLevel(lv.String())
		assert.True(t, ok)
		assert.Equal(t, lv, back)
	}
}
