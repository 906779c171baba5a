package protocol

// ActionCodeIssueDecision is kodeAksjon for "fatte vedtak".
const ActionCodeIssueDecision = "8"

// InterestNotComputed tells the accounting system that interest is carried
// in the request and must not be computed on its side.
const InterestNotComputed = "N"

type VedtakRequest struct {
	Vedtak Vedtak `json:"tilbakekrevingsvedtak"`
}

type Vedtak struct {
	ActionCode       string         `json:"kodeAksjon"`
	VedtakID         int64          `json:"vedtakId"`
	LegalBasisCode   string         `json:"kodeHjemmel"`
	InterestComputed string         `json:"renterBeregnes"`
	ResponsibleUnit  string         `json:"enhetAnsvarlig"`
	ControlField     string         `json:"kontrollfelt"`
	PreparerIdent    string         `json:"saksbehId"`
	DecisionDate     Date           `json:"datoVedtakFagsystem"`
	Periods          []VedtakPeriod `json:"tilbakekrevingsperiode"`
}

type VedtakPeriod struct {
	Period           Period       `json:"periode"`
	InterestComputed string       `json:"renterBeregnes"`
	InterestAmount   Amount       `json:"belopRenter"`
	Lines            []VedtakLine `json:"tilbakekrevingsbelop"`
}

// VedtakLine carries outcome, fault and cause only for benefit-class lines;
// the accounting system does not define them for other classes.
type VedtakLine struct {
	ClassCode       string  `json:"kodeKlasse"`
	OriginalAmount  Amount  `json:"belopOpprUtbet"`
	CorrectedAmount Amount  `json:"belopNy"`
	AmountToRecover Amount  `json:"belopTilbakekreves"`
	TaxAmount       *Amount `json:"belopSkatt,omitempty"`
	OutcomeCode     string  `json:"kodeResultat,omitempty"`
	FaultCode       string  `json:"kodeSkyld,omitempty"`
	CauseCode       string  `json:"kodeAarsak,omitempty"`
}

type VedtakResponse struct {
	Message  Message `json:"mmel"`
	VedtakID int64   `json:"vedtakId,omitempty"`
}
