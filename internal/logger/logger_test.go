package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaskSensitiveString(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		prefix int
		suffix int
		want   string
	}{
		{"empty", "", 2, 2, ""},
		{"short is fully masked", "abcd", 2, 2, "****"},
		{"long keeps edges", "0123456789abcdef", 3, 2, "012...ef"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MaskSensitiveString(tt.input, tt.prefix, tt.suffix))
		})
	}
}

func TestGetLoggerIsShared(t *testing.T) {
	IsTest = true
	a := GetLogger()
	b := GetLogger()
	assert.Same(t, a, b)
	assert.NoError(t, Close())
}
