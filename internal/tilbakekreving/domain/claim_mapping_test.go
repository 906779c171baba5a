package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/smallbiznis/okonomi/internal/accounting/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const claimDetailJSON = `{
  "kravgrunnlagId": 555,
  "vedtakId": 12,
  "kodeStatusKrav": "NY",
  "fagsystemId": "1001",
  "utbetalingId": "2002",
  "kontrollfelt": "2024-02-01-12.00.00.000000",
  "saksbehId": "K231B433",
  "tilbakekrevingsPeriode": [{
    "periode": {"fom": "2024-01-01", "tom": "2024-01-31"},
    "belopSkattMnd": 300.00,
    "tilbakekrevingsBelop": [
      {"kodeKlasse": "BARNEPENSJON-OPPR", "typeKlasse": "YTEL", "belopOpprUtbet": 3000.00, "belopNy": 2000.00, "belopTilbakekreves": 1000.00, "belopUinnkrevd": 0, "skattProsent": 30.0},
      {"kodeKlasse": "KL_KODE_FEIL_BP", "typeKlasse": "FEIL", "belopOpprUtbet": 0, "belopNy": 1000.00, "belopTilbakekreves": 0, "belopUinnkrevd": 0, "skattProsent": 0}
    ]
  }]
}`

func TestClaimFromDetail(t *testing.T) {
	var detail protocol.ClaimDetail
	require.NoError(t, json.Unmarshal([]byte(claimDetailJSON), &detail))

	claim, err := ClaimFromDetail(detail)
	require.NoError(t, err)

	assert.Equal(t, int64(555), claim.ClaimID)
	assert.Equal(t, int64(1001), claim.SakID)
	assert.Equal(t, int64(12), claim.VedtakID)
	assert.Equal(t, ClaimStatusNew, claim.Status)
	require.Len(t, claim.Periods, 1)

	p := claim.Periods[0]
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), p.From.UTC())
	assert.Equal(t, int64(30000), p.TaxAmount)
	require.Len(t, p.Lines, 2)
	assert.Equal(t, ClassTypeBenefit, p.Lines[0].ClassType)
	assert.Equal(t, int64(300000), p.Lines[0].OriginalAmount)
	assert.Equal(t, int64(100000), p.Lines[0].GrossToRecover)
	assert.Equal(t, "30", p.Lines[0].TaxPercent.String())
	assert.Equal(t, ClassTypeError, p.Lines[1].ClassType)
}

func TestClaimFromDetailRejectsBadInput(t *testing.T) {
	var detail protocol.ClaimDetail
	require.NoError(t, json.Unmarshal([]byte(claimDetailJSON), &detail))

	badSak := detail
	badSak.SakRef = "abc"
	_, err := ClaimFromDetail(badSak)
	assert.ErrorIs(t, err, ErrInvalidClaim)

	badStatus := detail
	badStatus.StatusCode = "XXXX"
	_, err = ClaimFromDetail(badStatus)
	var unmapped *UnmappedCodeError
	require.ErrorAs(t, err, &unmapped)
	assert.Equal(t, "claim_status", unmapped.Field)

	badType := detail
	badType.Periods = []protocol.ClaimDetailPeriod{{Lines: []protocol.ClaimDetailLine{{ClassType: "ZZZZ"}}}}
	_, err = ClaimFromDetail(badType)
	require.ErrorAs(t, err, &unmapped)
	assert.Equal(t, "class_type", unmapped.Field)
}

func TestClaimStatusFromCode(t *testing.T) {
	cases := map[string]ClaimStatus{
		"NY":   ClaimStatusNew,
		"endr": ClaimStatusNew,
		"AVSL": ClaimStatusClosed,
		"ANNU": ClaimStatusAnnulled,
		"SPER": ClaimStatusSuspended,
	}
	for code, want := range cases {
		got, err := ClaimStatusFromCode(code)
		require.NoError(t, err, code)
		assert.Equal(t, want, got, code)
	}
	assert.True(t, ClaimStatusClosed.Terminal())
	assert.True(t, ClaimStatusAnnulled.Terminal())
	assert.False(t, ClaimStatusSuspended.Terminal())
}
