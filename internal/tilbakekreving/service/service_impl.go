package service

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/okonomi/internal/audit/domain"
	"github.com/smallbiznis/okonomi/internal/clock"
	"github.com/smallbiznis/okonomi/internal/config"
	"github.com/smallbiznis/okonomi/internal/keylock"
	obsmetrics "github.com/smallbiznis/okonomi/internal/observability/metrics"
	"github.com/smallbiznis/okonomi/internal/tilbakekreving/domain"
	"github.com/smallbiznis/okonomi/internal/tilbakekreving/vedtak"
	"github.com/smallbiznis/okonomi/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	caseLockPrefix  = "tilbakekreving:sak:"
	claimLockPrefix = "tilbakekreving:krav:"
	defaultLockTTL  = 30 * time.Second
	defaultLockWait = 5 * time.Second
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Repo       domain.Repository
	Clock      clock.Clock
	Locker     keylock.Locker
	Builder    *vedtak.Builder
	Accounting domain.AccountingClient
	Audit      auditdomain.Service
	Config     config.Config       `optional:"true"`
	Metrics    *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	repo       domain.Repository
	clock      clock.Clock
	locker     keylock.Locker
	builder    *vedtak.Builder
	accounting domain.AccountingClient
	audit      auditdomain.Service
	metrics    *obsmetrics.Metrics
	lockTTL    time.Duration
	lockWait   time.Duration
}

func NewService(p Params) domain.Service {
	lockTTL := p.Config.LockTTL
	if lockTTL <= 0 {
		lockTTL = defaultLockTTL
	}
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("tilbakekreving.service"),
		genID:      p.GenID,
		repo:       p.Repo,
		clock:      p.Clock,
		locker:     p.Locker,
		builder:    p.Builder,
		accounting: p.Accounting,
		audit:      p.Audit,
		metrics:    p.Metrics,
		lockTTL:    lockTTL,
		lockWait:   defaultLockWait,
	}
}

func caseRef(sakID int64) string {
	return strconv.FormatInt(sakID, 10)
}

// CreateFromClaim opens a case for a claim. A claim that already has a case
// returns that case unchanged.
func (s *Service) CreateFromClaim(ctx context.Context, claim domain.Claim) (*domain.RepaymentCase, error) {
	if claim.ClaimID <= 0 || claim.SakID <= 0 || claim.VedtakID <= 0 {
		return nil, domain.ErrInvalidClaim
	}

	var created *domain.RepaymentCase
	err := s.withLock(ctx, claimLockPrefix+strconv.FormatInt(claim.ClaimID, 10), func(ctx context.Context) error {
		existing, err := s.repo.FindByClaimID(ctx, s.db, claim.ClaimID)
		if err != nil {
			return err
		}
		if existing != nil {
			created = existing
			return nil
		}

		if err := s.audit.Inbound(ctx, caseRef(claim.SakID), auditdomain.KindKravgrunnlagMottatt, claim); err != nil {
			return err
		}

		now := s.clock.Now().UTC()
		c := &domain.RepaymentCase{
			ID:        s.genID.Generate(),
			SakID:     claim.SakID,
			ClaimID:   claim.ClaimID,
			Status:    domain.CaseStatusCreated,
			Claim:     claim,
			Periods:   domain.ClonePeriods(claim.Periods),
			Version:   1,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := s.repo.Insert(ctx, s.db, c); err != nil {
			if db.IsDuplicateKeyErr(err) {
				existing, findErr := s.repo.FindByClaimID(ctx, s.db, claim.ClaimID)
				if findErr == nil && existing != nil {
					created = existing
					return nil
				}
			}
			return err
		}

		s.metrics.RecordClaimReceived(ctx, string(claim.Status))
		s.log.Info("repayment case created",
			zap.String("case_id", c.ID.String()),
			zap.Int64("sak_id", c.SakID),
			zap.Int64("claim_id", c.ClaimID),
		)
		created = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (s *Service) Get(ctx context.Context, id snowflake.ID) (*domain.RepaymentCase, error) {
	c, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, domain.ErrCaseNotFound
	}
	return c, nil
}

func (s *Service) SaveAssessment(ctx context.Context, req domain.SaveAssessmentRequest) (*domain.RepaymentCase, error) {
	return s.mutate(ctx, req.CaseID, req.ExpectedVersion, func(c *domain.RepaymentCase) error {
		return c.SetAssessment(req.Assessment)
	})
}

func (s *Service) SavePeriods(ctx context.Context, req domain.SavePeriodsRequest) (*domain.RepaymentCase, error) {
	return s.mutate(ctx, req.CaseID, req.ExpectedVersion, func(c *domain.RepaymentCase) error {
		return c.AnnotatePeriods(req.Lines)
	})
}

func (s *Service) SetNetOverride(ctx context.Context, req domain.SetNetOverrideRequest) (*domain.RepaymentCase, error) {
	return s.mutate(ctx, req.CaseID, req.ExpectedVersion, func(c *domain.RepaymentCase) error {
		return c.SetNetOverride(req.Enabled)
	})
}

// Decide moves the case to DECISION_MADE and returns the request that
// Submit will send. Mapping errors leave the case untouched.
func (s *Service) Decide(ctx context.Context, req domain.DecideRequest) (*domain.DecisionResult, error) {
	var result *domain.DecisionResult
	_, err := s.mutate(ctx, req.CaseID, req.ExpectedVersion, func(c *domain.RepaymentCase) error {
		if err := c.Decide(req.PreparerIdent); err != nil {
			return err
		}
		built, err := s.builder.Build(*c)
		if err != nil {
			return err
		}
		result = &domain.DecisionResult{Case: c, Vedtak: built}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Submit sends the decided vedtak. A fatal response leaves the case in
// DECISION_MADE and is returned unchanged; it is never retried here.
func (s *Service) Submit(ctx context.Context, id snowflake.ID) (*domain.SubmitResult, error) {
	var result *domain.SubmitResult
	err := s.withLock(ctx, caseLockPrefix+id.String(), func(ctx context.Context) error {
		c, err := s.Get(ctx, id)
		if err != nil {
			return err
		}
		if !c.CanBeModified() {
			return domain.ErrCaseClosed
		}
		if c.Status != domain.CaseStatusDecisionMade {
			return &domain.InvalidTransitionError{From: c.Status, To: domain.CaseStatusApproved}
		}

		request, err := s.builder.Build(*c)
		if err != nil {
			return err
		}

		severity, err := s.accounting.SendDecision(ctx, caseRef(c.SakID), request)
		if err != nil {
			s.metrics.RecordVedtakSent(ctx, "fatal")
			s.log.Error("vedtak rejected",
				zap.String("case_id", c.ID.String()),
				zap.Int64("vedtak_id", request.VedtakID),
				zap.Error(err),
			)
			return err
		}
		s.metrics.RecordVedtakSent(ctx, severity.String())

		expected := c.Version
		if err := c.Approve(); err != nil {
			return err
		}
		c.UpdatedAt = s.clock.Now().UTC()
		if err := s.repo.Update(ctx, s.db, c, expected); err != nil {
			return err
		}

		s.log.Info("vedtak sent",
			zap.String("case_id", c.ID.String()),
			zap.String("severity", severity.String()),
		)
		result = &domain.SubmitResult{Case: c, Severity: severity}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Service) Reject(ctx context.Context, id snowflake.ID, expectedVersion int) (*domain.RepaymentCase, error) {
	return s.mutate(ctx, id, expectedVersion, func(c *domain.RepaymentCase) error {
		return c.Reject()
	})
}

// RefreshClaim re-reads the claim from the accounting system. A changed
// control field means the stored claim is stale; the case is re-derived.
func (s *Service) RefreshClaim(ctx context.Context, id snowflake.ID) (*domain.RefreshResult, error) {
	var result *domain.RefreshResult
	err := s.withLock(ctx, caseLockPrefix+id.String(), func(ctx context.Context) error {
		c, err := s.Get(ctx, id)
		if err != nil {
			return err
		}
		if !c.CanBeModified() {
			return domain.ErrCaseClosed
		}

		detail, err := s.accounting.FetchClaimDetail(ctx, caseRef(c.SakID), c.ClaimID)
		if err != nil {
			return err
		}
		if detail == nil {
			result = &domain.RefreshResult{Case: c}
			return nil
		}

		claim, err := domain.ClaimFromDetail(*detail)
		if err != nil {
			return err
		}
		if claim.ControlField == c.Claim.ControlField {
			result = &domain.RefreshResult{Case: c, Found: true}
			return nil
		}

		expected := c.Version
		if err := c.ReplaceClaim(claim); err != nil {
			return err
		}
		c.UpdatedAt = s.clock.Now().UTC()
		if err := s.repo.Update(ctx, s.db, c, expected); err != nil {
			return err
		}
		s.log.Info("claim refreshed",
			zap.String("case_id", c.ID.String()),
			zap.String("control_field", claim.ControlField),
		)
		result = &domain.RefreshResult{Case: c, Found: true, Changed: true}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// UpdateClaimStatus applies a status notice from the accounting system.
// Terminal statuses close the case even when it is otherwise locked for
// edits.
func (s *Service) UpdateClaimStatus(ctx context.Context, claimID int64, status domain.ClaimStatus) (*domain.RepaymentCase, error) {
	found, err := s.repo.FindByClaimID(ctx, s.db, claimID)
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, domain.ErrCaseNotFound
	}

	var updated *domain.RepaymentCase
	err = s.withLock(ctx, caseLockPrefix+found.ID.String(), func(ctx context.Context) error {
		c, err := s.Get(ctx, found.ID)
		if err != nil {
			return err
		}

		if err := s.audit.Inbound(ctx, caseRef(c.SakID), auditdomain.KindKravstatusMottatt, map[string]any{
			"claim_id": claimID,
			"status":   status,
		}); err != nil {
			return err
		}

		expected := c.Version
		now := s.clock.Now().UTC()
		c.ApplyClaimStatus(status, now)
		c.UpdatedAt = now
		if err := s.repo.Update(ctx, s.db, c, expected); err != nil {
			return err
		}
		s.metrics.RecordClaimReceived(ctx, string(status))
		s.log.Info("claim status updated",
			zap.String("case_id", c.ID.String()),
			zap.String("status", string(status)),
			zap.Bool("closed", c.ExternallyClosed),
		)
		updated = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *Service) AuditTrail(ctx context.Context, id snowflake.ID) ([]auditdomain.Hendelse, error) {
	c, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.audit.Trail(ctx, caseRef(c.SakID))
}

// mutate applies fn to the case under the per-case lock and persists it when
// the caller's version is current.
func (s *Service) mutate(ctx context.Context, id snowflake.ID, expectedVersion int, fn func(c *domain.RepaymentCase) error) (*domain.RepaymentCase, error) {
	var updated *domain.RepaymentCase
	err := s.withLock(ctx, caseLockPrefix+id.String(), func(ctx context.Context) error {
		c, err := s.Get(ctx, id)
		if err != nil {
			return err
		}
		if c.Version != expectedVersion {
			return domain.ErrConcurrentModification
		}
		if err := fn(c); err != nil {
			return err
		}
		c.UpdatedAt = s.clock.Now().UTC()
		if err := s.repo.Update(ctx, s.db, c, expectedVersion); err != nil {
			return err
		}
		updated = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *Service) withLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	err := keylock.WithLock(ctx, s.locker, key, s.lockTTL, s.lockWait, fn)
	if errors.Is(err, keylock.ErrNotAcquired) {
		return domain.ErrCaseBusy
	}
	return err
}
