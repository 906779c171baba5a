package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/okonomi/internal/audit/domain"
	"github.com/smallbiznis/okonomi/internal/clock"
	"github.com/smallbiznis/okonomi/pkg/telemetry"
	"github.com/smallbiznis/okonomi/pkg/telemetry/correlation"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Repo    auditdomain.Repository
	Clock   clock.Clock
	Metrics *telemetry.Metrics `optional:"true"`
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	repo    auditdomain.Repository
	clock   clock.Clock
	metrics *telemetry.Metrics
}

func NewService(p Params) auditdomain.Service {
	clk := p.Clock
	if clk == nil {
		clk = clock.SystemClock{}
	}
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("audit.service"),
		genID:   p.GenID,
		repo:    p.Repo,
		clock:   clk,
		metrics: p.Metrics,
	}
}

func (s *Service) Before(ctx context.Context, caseRef string, kind auditdomain.Kind, payload any) error {
	return s.write(ctx, caseRef, kind, auditdomain.DirectionBefore, payload)
}

func (s *Service) After(ctx context.Context, caseRef string, kind auditdomain.Kind, payload any) error {
	return s.write(ctx, caseRef, kind, auditdomain.DirectionAfter, payload)
}

func (s *Service) Inbound(ctx context.Context, caseRef string, kind auditdomain.Kind, payload any) error {
	return s.write(ctx, caseRef, kind, auditdomain.DirectionInbound, payload)
}

func (s *Service) Trail(ctx context.Context, caseRef string) ([]auditdomain.Hendelse, error) {
	caseRef = strings.TrimSpace(caseRef)
	if caseRef == "" {
		return nil, auditdomain.ErrInvalidCaseRef
	}

	items, err := s.repo.ListByCaseRef(ctx, s.db, caseRef)
	if err != nil {
		return nil, err
	}

	out := make([]auditdomain.Hendelse, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		out = append(out, *item)
	}
	return out, nil
}

func (s *Service) write(ctx context.Context, caseRef string, kind auditdomain.Kind, direction auditdomain.Direction, payload any) error {
	caseRef = strings.TrimSpace(caseRef)
	if caseRef == "" {
		return auditdomain.ErrInvalidCaseRef
	}
	if strings.TrimSpace(string(kind)) == "" {
		return auditdomain.ErrInvalidKind
	}

	raw, err := encodePayload(payload)
	if err != nil {
		return err
	}

	entry := auditdomain.Hendelse{
		ID:            s.genID.Generate(),
		CaseRef:       caseRef,
		Kind:          kind,
		Direction:     direction,
		CorrelationID: correlation.ExtractCorrelationID(ctx),
		Payload:       raw,
		CreatedAt:     s.clock.Now().UTC(),
	}

	if err := s.repo.Insert(ctx, s.db, &entry); err != nil {
		s.metrics.RecordAuditWrite(string(kind), "error")
		s.log.Error("failed to write audit hendelse",
			zap.String("case_ref", caseRef),
			zap.String("kind", string(kind)),
			zap.String("direction", string(direction)),
			zap.Error(err),
		)
		return &auditdomain.WriteError{CaseRef: caseRef, Kind: kind, Direction: direction, Err: err}
	}
	s.metrics.RecordAuditWrite(string(kind), "ok")
	return nil
}

func encodePayload(payload any) (datatypes.JSON, error) {
	switch v := payload.(type) {
	case nil:
		return datatypes.JSON("null"), nil
	case json.RawMessage:
		if !json.Valid(v) {
			return nil, auditdomain.ErrInvalidPayload
		}
		return datatypes.JSON(v), nil
	case []byte:
		if !json.Valid(v) {
			return nil, auditdomain.ErrInvalidPayload
		}
		return datatypes.JSON(v), nil
	default:
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", auditdomain.ErrInvalidPayload, err)
		}
		return datatypes.JSON(raw), nil
	}
}
