package census

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTractGEOIDPadding(t *testing.T) {
	assert.Equal(t, "36005000100", TractGEOID("36", "5", "100"))
	assert.Equal(t, "36005000100", TractGEOID("36", "005", "000100"))
	assert.Equal(t, "06037980010", TractGEOID("6", "37", "980010"))
	assert.Len(t, TractGEOID("1", "1", "1"), TractGEOIDLen)
}

func TestBlockGroupGEOID(t *testing.T) {
	assert.Equal(t, "360050001001", BlockGroupGEOID("36", "5", "100", "1"))
	assert.Equal(t, "360050001001", BlockGroupGEOID("36", "005", "000100", " 1 "))
	assert.Len(t, BlockGroupGEOID("36", "5", "100", "2"), TractGEOIDLen+1)
}

func TestZfill(t *testing.T) {
	assert.Equal(t, "005", zfill("5", 3))
	assert.Equal(t, "005", zfill(" 5 ", 3))
	// Inputs already at the width pass through unchanged.
	assert.Equal(t, "005", zfill("005", 3))
	// Longer inputs are never truncated.
	assert.Equal(t, "12345", zfill("12345", 3))
	assert.Equal(t, "000", zfill("", 3))
}
