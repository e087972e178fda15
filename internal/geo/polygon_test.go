package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

var cczRing = [][2]float64{
	{-125.5, -14.7},
	{-125.3, -14.7},
	{-125.3, -14.6},
	{-125.5, -14.6},
	{-125.5, -14.7},
}

func TestContains(t *testing.T) {
	tests := []struct {
		name string
		lng  float64
		lat  float64
		want bool
	}{
		{"inside", -125.4251, -14.6572, true},
		{"outside north", -125.4251, -13.0, false},
		{"outside east", -120.0, -14.6572, false},
		{"far away", 10.0, 50.0, false},
		{"near west edge inside", -125.4999, -14.65, true},
		{"just west of edge", -125.5001, -14.65, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Contains(cczRing, tt.lng, tt.lat))
		})
	}
}

func TestContainsDegenerateRing(t *testing.T) {
	assert.False(t, Contains(nil, 0, 0))
	assert.False(t, Contains([][2]float64{{0, 0}, {1, 1}}, 0.5, 0.5))
}

func TestContainsUnclosedRing(t *testing.T) {
	// The ray cast treats the last vertex as implicitly connected to the
	// first, so an unclosed ring behaves the same as a closed one.
	open := cczRing[:len(cczRing)-1]
	assert.True(t, Contains(open, -125.4251, -14.6572))
	assert.False(t, Contains(open, -120.0, -14.6572))
}
