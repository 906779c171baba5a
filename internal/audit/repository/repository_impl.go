package repository

import (
	"context"

	"github.com/smallbiznis/okonomi/internal/audit/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, entry *domain.Hendelse) error {
	if entry == nil {
		return nil
	}
	return db.WithContext(ctx).Exec(
		`INSERT INTO audit_hendelser (
			id, case_ref, kind, direction, correlation_id, payload, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.ID,
		entry.CaseRef,
		entry.Kind,
		entry.Direction,
		entry.CorrelationID,
		entry.Payload,
		entry.CreatedAt,
	).Error
}

func (r *repo) ListByCaseRef(ctx context.Context, db *gorm.DB, caseRef string) ([]*domain.Hendelse, error) {
	var items []*domain.Hendelse
	err := db.WithContext(ctx).
		Where("case_ref = ?", caseRef).
		Order("created_at asc, id asc").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}
