package tagreader

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeNumberDefaultsBelowOneToOne(t *testing.T) {
	assert.EqualValues(t, 1, normalizeNumber(0))
	assert.EqualValues(t, 1, normalizeNumber(-1))
	assert.EqualValues(t, 5, normalizeNumber(5))
}

func TestDurationFromStreamHeaderReturnsZeroForMissingFile(t *testing.T) {
	assert.Equal(t, float64(0), durationFromStreamHeader("/nonexistent/path/song.flac"))
}
