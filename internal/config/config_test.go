package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoadTraceSamplingRatio(t *testing.T) {
	t.Setenv("OTEL_SAMPLING_RATIO", "")
	assert.Equal(t, 0.1, Load().TraceSamplingRatio)

	t.Setenv("OTEL_SAMPLING_RATIO", "0.5")
	assert.Equal(t, 0.5, Load().TraceSamplingRatio)

	for _, invalid := range []string{"1.5", "-0.1", "half"} {
		t.Setenv("OTEL_SAMPLING_RATIO", invalid)
		assert.Equal(t, 0.1, Load().TraceSamplingRatio, invalid)
	}
}
