package service

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/okonomi/internal/audit/domain"
	"github.com/smallbiznis/okonomi/internal/audit/masking"
	"github.com/smallbiznis/okonomi/internal/clock"
	"github.com/smallbiznis/okonomi/internal/config"
	"github.com/smallbiznis/okonomi/internal/keylock"
	obsmetrics "github.com/smallbiznis/okonomi/internal/observability/metrics"
	"github.com/smallbiznis/okonomi/internal/utbetaling/domain"
	"github.com/smallbiznis/okonomi/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	recipientLockPrefix = "utbetaling:mottaker:"
	defaultLockTTL      = 30 * time.Second
	defaultLockWait     = 10 * time.Second
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Repo       domain.Repository
	Clock      clock.Clock
	Locker     keylock.Locker
	Categories domain.CategoryLookup
	Dispatcher domain.Dispatcher
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
	categories domain.CategoryLookup
	dispatcher domain.Dispatcher
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
		log:        p.Log.Named("utbetaling.service"),
		genID:      p.GenID,
		repo:       p.Repo,
		clock:      p.Clock,
		locker:     p.Locker,
		categories: p.Categories,
		dispatcher: p.Dispatcher,
		audit:      p.Audit,
		metrics:    p.Metrics,
		lockTTL:    lockTTL,
		lockWait:   defaultLockWait,
	}
}

// CreatePaymentOrder turns an approved decision into a persisted order and
// dispatches it. Creation is serialized per recipient so the replaces chain
// is computed against a stable history.
func (s *Service) CreatePaymentOrder(ctx context.Context, decision domain.Decision) (*domain.PaymentOrder, error) {
	decision.RecipientID = strings.TrimSpace(decision.RecipientID)
	decision.DecisionID = strings.TrimSpace(decision.DecisionID)
	if err := domain.ValidateDecision(decision); err != nil {
		return nil, err
	}

	var created *domain.PaymentOrder
	err := keylock.WithLock(ctx, s.locker, recipientLockPrefix+decision.RecipientID, s.lockTTL, s.lockWait, func(ctx context.Context) error {
		order, err := s.createLocked(ctx, decision)
		if err != nil {
			return err
		}
		created = order
		return s.dispatch(ctx, order)
	})
	if errors.Is(err, keylock.ErrNotAcquired) {
		return nil, domain.ErrRecipientBusy
	}
	if err != nil {
		return nil, err
	}

	return s.GetPaymentOrder(ctx, created.ID)
}

func (s *Service) createLocked(ctx context.Context, decision domain.Decision) (*domain.PaymentOrder, error) {
	existing, err := s.repo.FindOrderByDecisionID(ctx, s.db, decision.DecisionID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, domain.ErrOrderAlreadyExists
	}

	history, err := s.loadRecipientOrders(ctx, decision.RecipientID)
	if err != nil {
		return nil, err
	}

	snapshot, err := json.Marshal(decision)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now().UTC()
	order := domain.PaymentOrder{
		ID:                s.genID.Generate(),
		SakID:             decision.SakID,
		DecisionID:        decision.DecisionID,
		BenefitType:       decision.BenefitType,
		RecipientID:       decision.RecipientID,
		PreparerIdent:     decision.Preparer.Ident,
		PreparerUnit:      decision.Preparer.Unit,
		ApproverIdent:     decision.Approver.Ident,
		ApproverUnit:      decision.Approver.Unit,
		DecisionSnapshot:  datatypes.JSON(snapshot),
		ReconciliationKey: now,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	lines, err := domain.BuildLines(domain.ChainInput{
		OrderID:    order.ID,
		Decision:   decision,
		History:    history,
		Categories: s.categories,
		NextID:     s.genID.Generate,
		Now:        now,
	})
	if err != nil {
		s.log.Warn("payment lines rejected",
			zap.Int64("sak_id", decision.SakID),
			zap.String("recipient", masking.MaskIdent(decision.RecipientID)),
			zap.Error(err),
		)
		return nil, err
	}
	order.Lines = lines

	received := domain.PaymentEvent{
		ID:         s.genID.Generate(),
		OrderID:    order.ID,
		Status:     domain.PaymentStatusReceived,
		OccurredAt: now,
		CreatedAt:  now,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.InsertOrder(ctx, tx, &order); err != nil {
			return err
		}
		if err := s.repo.InsertLines(ctx, tx, order.Lines); err != nil {
			return err
		}
		return s.repo.InsertEvent(ctx, tx, &received)
	})
	if err != nil {
		if db.IsDuplicateKeyErr(err) {
			if dup, findErr := s.repo.FindOrderByDecisionID(ctx, s.db, decision.DecisionID); findErr == nil && dup != nil {
				return nil, domain.ErrOrderAlreadyExists
			}
		}
		return nil, err
	}
	order.Events = []domain.PaymentEvent{received}

	s.metrics.RecordPaymentOrder(ctx, string(order.BenefitType))
	s.log.Info("payment order created",
		zap.String("order_id", order.ID.String()),
		zap.Int64("sak_id", order.SakID),
		zap.String("recipient", masking.MaskIdent(order.RecipientID)),
		zap.Int("lines", len(order.Lines)),
	)
	return &order, nil
}

func (s *Service) dispatch(ctx context.Context, order *domain.PaymentOrder) error {
	caseRef := strconv.FormatInt(order.SakID, 10)
	if err := s.audit.Before(ctx, caseRef, auditdomain.KindOppdragSendt, order); err != nil {
		// Nothing was sent, so the order stays RECEIVED.
		return &domain.DispatchError{OrderID: order.ID, Err: err}
	}

	dispatchErr := s.dispatcher.Dispatch(ctx, *order)

	outcome := map[string]any{"order_id": order.ID.String(), "dispatched": dispatchErr == nil}
	if dispatchErr != nil {
		outcome["error"] = dispatchErr.Error()
	}
	if err := s.audit.After(ctx, caseRef, auditdomain.KindOppdragSendt, outcome); err != nil {
		return err
	}
	if dispatchErr != nil {
		s.log.Error("payment order dispatch failed",
			zap.String("order_id", order.ID.String()),
			zap.Error(dispatchErr),
		)
		return &domain.DispatchError{OrderID: order.ID, Err: dispatchErr}
	}

	now := s.clock.Now().UTC()
	sent := domain.PaymentEvent{
		ID:         s.genID.Generate(),
		OrderID:    order.ID,
		Status:     domain.PaymentStatusSent,
		OccurredAt: now,
		CreatedAt:  now,
	}
	if err := s.repo.InsertEvent(ctx, s.db, &sent); err != nil {
		return err
	}
	s.metrics.RecordPaymentEvent(ctx, string(sent.Status))
	return nil
}

func (s *Service) RecordPaymentEvent(ctx context.Context, req domain.RecordPaymentEventRequest) (*domain.PaymentEvent, error) {
	if req.OrderID == 0 {
		return nil, domain.ErrOrderNotFound
	}

	status := req.Status
	if status == "" && req.ReceiptCode != nil {
		derived, err := domain.StatusFromReceiptCode(*req.ReceiptCode)
		if err != nil {
			return nil, err
		}
		status = derived
	}
	if !status.Valid() {
		return nil, domain.ErrInvalidStatus
	}

	order, err := s.repo.FindOrderByID(ctx, s.db, req.OrderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, domain.ErrOrderNotFound
	}

	now := s.clock.Now().UTC()
	occurredAt := req.OccurredAt.UTC()
	if req.OccurredAt.IsZero() {
		occurredAt = now
	}

	event := domain.PaymentEvent{
		ID:                 s.genID.Generate(),
		OrderID:            order.ID,
		Status:             status,
		OccurredAt:         occurredAt,
		ReceiptCode:        req.ReceiptCode,
		ReceiptDescription: req.ReceiptDescription,
		CreatedAt:          now,
	}
	if len(req.Acknowledgement) > 0 {
		if !json.Valid(req.Acknowledgement) {
			return nil, domain.ErrInvalidStatus
		}
		event.Acknowledgement = datatypes.JSON(req.Acknowledgement)
	}

	if req.ReceiptCode != nil {
		var payload any = map[string]any{"order_id": order.ID.String(), "code": *req.ReceiptCode}
		if len(event.Acknowledgement) > 0 {
			payload = json.RawMessage(event.Acknowledgement)
		}
		if err := s.audit.Inbound(ctx, strconv.FormatInt(order.SakID, 10), auditdomain.KindKvitteringMottatt, payload); err != nil {
			return nil, err
		}
	}

	if err := s.repo.InsertEvent(ctx, s.db, &event); err != nil {
		return nil, err
	}

	s.metrics.RecordPaymentEvent(ctx, string(status))
	s.log.Info("payment event recorded",
		zap.String("order_id", order.ID.String()),
		zap.String("status", string(status)),
	)
	return &event, nil
}

func (s *Service) GetPaymentOrder(ctx context.Context, id snowflake.ID) (*domain.PaymentOrder, error) {
	order, err := s.repo.FindOrderByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, domain.ErrOrderNotFound
	}

	hydrated, err := s.hydrate(ctx, []*domain.PaymentOrder{order})
	if err != nil {
		return nil, err
	}
	return &hydrated[0], nil
}

func (s *Service) ListPaymentOrders(ctx context.Context, recipientID string) ([]domain.PaymentOrder, error) {
	recipientID = strings.TrimSpace(recipientID)
	if recipientID == "" {
		return nil, domain.ErrInvalidDecision
	}
	return s.loadRecipientOrders(ctx, recipientID)
}

func (s *Service) loadRecipientOrders(ctx context.Context, recipientID string) ([]domain.PaymentOrder, error) {
	orders, err := s.repo.ListOrdersByRecipient(ctx, s.db, recipientID)
	if err != nil {
		return nil, err
	}
	return s.hydrate(ctx, orders)
}

func (s *Service) hydrate(ctx context.Context, orders []*domain.PaymentOrder) ([]domain.PaymentOrder, error) {
	ids := make([]snowflake.ID, 0, len(orders))
	for _, o := range orders {
		if o != nil {
			ids = append(ids, o.ID)
		}
	}

	lines, err := s.repo.ListLines(ctx, s.db, ids)
	if err != nil {
		return nil, err
	}
	events, err := s.repo.ListEvents(ctx, s.db, ids)
	if err != nil {
		return nil, err
	}

	linesByOrder := make(map[snowflake.ID][]domain.PaymentLine, len(ids))
	for _, line := range lines {
		linesByOrder[line.OrderID] = append(linesByOrder[line.OrderID], line)
	}
	eventsByOrder := make(map[snowflake.ID][]domain.PaymentEvent, len(ids))
	for _, ev := range events {
		eventsByOrder[ev.OrderID] = append(eventsByOrder[ev.OrderID], ev)
	}

	out := make([]domain.PaymentOrder, 0, len(orders))
	for _, o := range orders {
		if o == nil {
			continue
		}
		order := *o
		order.Lines = linesByOrder[order.ID]
		order.Events = eventsByOrder[order.ID]
		out = append(out, order)
	}
	return out, nil
}
