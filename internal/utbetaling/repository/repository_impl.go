package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/okonomi/internal/utbetaling/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) InsertOrder(ctx context.Context, db *gorm.DB, order *domain.PaymentOrder) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO payment_orders (
			id, sak_id, decision_id, benefit_type, recipient_id,
			preparer_ident, preparer_unit, approver_ident, approver_unit,
			decision_snapshot, reconciliation_key, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		order.ID,
		order.SakID,
		order.DecisionID,
		order.BenefitType,
		order.RecipientID,
		order.PreparerIdent,
		order.PreparerUnit,
		order.ApproverIdent,
		order.ApproverUnit,
		order.DecisionSnapshot,
		order.ReconciliationKey,
		order.CreatedAt,
		order.UpdatedAt,
	).Error
}

func (r *repo) InsertLines(ctx context.Context, db *gorm.DB, lines []domain.PaymentLine) error {
	for _, line := range lines {
		err := db.WithContext(ctx).Exec(
			`INSERT INTO payment_lines (
				id, order_id, sak_id, position, kind, period_from, period_to,
				amount, class_code, timing, replaces_id, created_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			line.ID,
			line.OrderID,
			line.SakID,
			line.Position,
			line.Kind,
			line.PeriodFrom,
			line.PeriodTo,
			line.Amount,
			line.ClassCode,
			line.Timing,
			line.ReplacesID,
			line.CreatedAt,
		).Error
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *repo) InsertEvent(ctx context.Context, db *gorm.DB, event *domain.PaymentEvent) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO payment_events (
			id, order_id, status, occurred_at, receipt_code,
			receipt_description, acknowledgement, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		event.ID,
		event.OrderID,
		event.Status,
		event.OccurredAt,
		event.ReceiptCode,
		event.ReceiptDescription,
		event.Acknowledgement,
		event.CreatedAt,
	).Error
}

func (r *repo) FindOrderByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.PaymentOrder, error) {
	var order domain.PaymentOrder
	err := db.WithContext(ctx).Where("id = ?", id).First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repo) FindOrderByDecisionID(ctx context.Context, db *gorm.DB, decisionID string) (*domain.PaymentOrder, error) {
	var order domain.PaymentOrder
	err := db.WithContext(ctx).Where("decision_id = ?", decisionID).First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repo) ListOrdersByRecipient(ctx context.Context, db *gorm.DB, recipientID string) ([]*domain.PaymentOrder, error) {
	var orders []*domain.PaymentOrder
	err := db.WithContext(ctx).
		Where("recipient_id = ?", recipientID).
		Order("created_at asc, id asc").
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *repo) ListLines(ctx context.Context, db *gorm.DB, orderIDs []snowflake.ID) ([]domain.PaymentLine, error) {
	if len(orderIDs) == 0 {
		return nil, nil
	}
	var lines []domain.PaymentLine
	err := db.WithContext(ctx).
		Where("order_id IN ?", orderIDs).
		Order("order_id asc, position asc").
		Find(&lines).Error
	if err != nil {
		return nil, err
	}
	return lines, nil
}

func (r *repo) ListEvents(ctx context.Context, db *gorm.DB, orderIDs []snowflake.ID) ([]domain.PaymentEvent, error) {
	if len(orderIDs) == 0 {
		return nil, nil
	}
	var events []domain.PaymentEvent
	err := db.WithContext(ctx).
		Where("order_id IN ?", orderIDs).
		Order("created_at asc, id asc").
		Find(&events).Error
	if err != nil {
		return nil, err
	}
	return events, nil
}
