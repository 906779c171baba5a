package protocol

// ActionCodeFetchClaim is kodeAksjon for reading a claim (kravgrunnlag).
const ActionCodeFetchClaim = "3"

type ClaimRequest struct {
	Query ClaimQuery `json:"hentkravgrunnlag"`
}

type ClaimQuery struct {
	ActionCode      string `json:"kodeAksjon"`
	ClaimID         int64  `json:"kravgrunnlagId"`
	ResponsibleUnit string `json:"enhetAnsvarlig"`
	CaseWorker      string `json:"saksbehId"`
}

type ClaimResponse struct {
	Message Message      `json:"mmel"`
	Detail  *ClaimDetail `json:"detaljertkravgrunnlag,omitempty"`
}

// ClaimDetail is the claim as published by the accounting system, both on
// fetch responses and on the claim notification subject.
type ClaimDetail struct {
	ClaimID      int64               `json:"kravgrunnlagId"`
	VedtakID     int64               `json:"vedtakId"`
	StatusCode   string              `json:"kodeStatusKrav"`
	SakRef       string              `json:"fagsystemId"`
	SourceRef    string              `json:"utbetalingId"`
	ControlField string              `json:"kontrollfelt"`
	CaseWorker   string              `json:"saksbehId"`
	Reference    string              `json:"referanse"`
	Periods      []ClaimDetailPeriod `json:"tilbakekrevingsPeriode"`
}

type ClaimDetailPeriod struct {
	Period    Period            `json:"periode"`
	TaxAmount Amount            `json:"belopSkattMnd"`
	Lines     []ClaimDetailLine `json:"tilbakekrevingsBelop"`
}

type ClaimDetailLine struct {
	ClassCode       string `json:"kodeKlasse"`
	ClassType       string `json:"typeKlasse"`
	OriginalAmount  Amount `json:"belopOpprUtbet"`
	CorrectedAmount Amount `json:"belopNy"`
	GrossToRecover  Amount `json:"belopTilbakekreves"`
	Exempt          Amount `json:"belopUinnkrevd"`
	TaxPercent      Amount `json:"skattProsent"`
}

// ClaimStatusNotice reports a status change on an existing claim.
type ClaimStatusNotice struct {
	ClaimID    int64  `json:"kravgrunnlagId"`
	VedtakID   int64  `json:"vedtakId"`
	StatusCode string `json:"kodeStatusKrav"`
	SakRef     string `json:"fagsystemId"`
}
