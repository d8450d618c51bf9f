package index

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want int
	}{
		{name: "int", in: 3, want: 3},
		{name: "float floors", in: 2.9, want: 2},
		{name: "negative clamps", in: -4, want: 0},
		{name: "negative fraction", in: -0.5, want: 0},
		{name: "nan", in: math.NaN(), want: 0},
		{name: "inf", in: math.Inf(1), want: 0},
		{name: "numeric string", in: " 7 ", want: 7},
		{name: "garbage string", in: "seven", want: 0},
		{name: "empty string", in: "", want: 0},
		{name: "nil", in: nil, want: 0},
		{name: "bool", in: true, want: 0},
		{name: "json number", in: json.Number("12.5"), want: 12},
		{name: "uint", in: uint8(9), want: 9},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestFinite(t *testing.T) {
	n, ok := Finite("1e2")
	assert.True(t, ok)
	assert.Equal(t, 100.0, n)

	_, ok = Finite(map[string]any{})
	assert.False(t, ok)

	_, ok = Finite(math.Inf(-1))
	assert.False(t, ok)
}
