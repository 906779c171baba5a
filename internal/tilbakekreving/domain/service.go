package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/okonomi/internal/accounting/protocol"
	auditdomain "github.com/smallbiznis/okonomi/internal/audit/domain"
	"gorm.io/gorm"
)

type SaveAssessmentRequest struct {
	CaseID          snowflake.ID `json:"case_id"`
	Assessment      Assessment   `json:"assessment"`
	ExpectedVersion int          `json:"expected_version"`
}

type SavePeriodsRequest struct {
	CaseID          snowflake.ID     `json:"case_id"`
	Lines           []LineAssessment `json:"lines"`
	ExpectedVersion int              `json:"expected_version"`
}

type SetNetOverrideRequest struct {
	CaseID          snowflake.ID `json:"case_id"`
	Enabled         bool         `json:"enabled"`
	ExpectedVersion int          `json:"expected_version"`
}

type DecideRequest struct {
	CaseID          snowflake.ID `json:"case_id"`
	PreparerIdent   string       `json:"preparer_ident"`
	ExpectedVersion int          `json:"expected_version"`
}

type DecisionResult struct {
	Case   *RepaymentCase  `json:"case"`
	Vedtak protocol.Vedtak `json:"vedtak"`
}

type SubmitResult struct {
	Case     *RepaymentCase    `json:"case"`
	Severity protocol.Severity `json:"severity"`
}

type RefreshResult struct {
	Case    *RepaymentCase `json:"case"`
	Found   bool           `json:"found"`
	Changed bool           `json:"changed"`
}

type Service interface {
	CreateFromClaim(ctx context.Context, claim Claim) (*RepaymentCase, error)
	Get(ctx context.Context, id snowflake.ID) (*RepaymentCase, error)
	SaveAssessment(ctx context.Context, req SaveAssessmentRequest) (*RepaymentCase, error)
	SavePeriods(ctx context.Context, req SavePeriodsRequest) (*RepaymentCase, error)
	SetNetOverride(ctx context.Context, req SetNetOverrideRequest) (*RepaymentCase, error)
	Decide(ctx context.Context, req DecideRequest) (*DecisionResult, error)
	Submit(ctx context.Context, id snowflake.ID) (*SubmitResult, error)
	Reject(ctx context.Context, id snowflake.ID, expectedVersion int) (*RepaymentCase, error)
	RefreshClaim(ctx context.Context, id snowflake.ID) (*RefreshResult, error)
	UpdateClaimStatus(ctx context.Context, claimID int64, status ClaimStatus) (*RepaymentCase, error)
	AuditTrail(ctx context.Context, id snowflake.ID) ([]auditdomain.Hendelse, error)
}

// Repository stores cases. Update applies only when the stored version
// equals expectedVersion.
type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, c *RepaymentCase) error
	Update(ctx context.Context, db *gorm.DB, c *RepaymentCase, expectedVersion int) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*RepaymentCase, error)
	FindByClaimID(ctx context.Context, db *gorm.DB, claimID int64) (*RepaymentCase, error)
}

// AccountingClient is the accounting system as seen by the repayment flow.
type AccountingClient interface {
	SendDecision(ctx context.Context, caseRef string, vedtak protocol.Vedtak) (protocol.Severity, error)
	FetchClaimDetail(ctx context.Context, caseRef string, claimID int64) (*protocol.ClaimDetail, error)
}
