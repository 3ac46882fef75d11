package tokens

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEstimateEmpty(t *testing.T) {
	e := New()

	assert.Equal(t, 0, e.Estimate(""))
}

func TestEstimateNonEmptyIsPositive(t *testing.T) {
	e := New()

	assert.Greater(t, e.Estimate("x"), 0)
	assert.Greater(t, e.Estimate("what's the weather like today"), 0)
}

func TestEstimateGrowsWithLength(t *testing.T) {
	e := New()

	short := e.Estimate("hello there")
	long := e.Estimate(strings.Repeat("hello there ", 50))

	assert.Greater(t, long, short)
}
