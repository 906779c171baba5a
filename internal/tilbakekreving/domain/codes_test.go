package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEveryCauseHasExternalCode(t *testing.T) {
	for _, c := range Causes() {
		code, err := ExternalCause(c)
		require.NoError(t, err, c)
		if c == CauseWronglyPaidReceived {
			assert.Equal(t, "UTBFEILMOT", code)
			continue
		}
		assert.Equal(t, ExternalCauseOther, code, c)
	}
	assert.Len(t, causeCodes, len(Causes()))
}

func TestEveryLegalBasisHasExternalCode(t *testing.T) {
	for _, b := range LegalBases() {
		code, err := ExternalLegalBasis(b)
		require.NoError(t, err, b)
		if b == LegalBasis2215 {
			assert.Equal(t, "22-15", code)
			continue
		}
		assert.Equal(t, ExternalLegalBasisOther, code, b)
	}
	assert.Len(t, legalBasisCodes, len(LegalBases()))
}

func TestUnknownCauseIsRejected(t *testing.T) {
	_, err := ExternalCause("NYTT")
	var unmapped *UnmappedCodeError
	assert.True(t, errors.As(err, &unmapped))
}
