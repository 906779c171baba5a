package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/okonomi/internal/tilbakekreving/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, c *domain.RepaymentCase) error {
	if c == nil {
		return nil
	}
	return db.WithContext(ctx).Create(c).Error
}

// Update writes every mutable column and bumps the version. It fails with
// ErrConcurrentModification when another writer got there first.
func (r *repo) Update(ctx context.Context, db *gorm.DB, c *domain.RepaymentCase, expectedVersion int) error {
	if c == nil {
		return nil
	}
	c.Version = expectedVersion + 1

	res := db.WithContext(ctx).
		Model(c).
		Where("version = ?", expectedVersion).
		Select(
			"status",
			"claim",
			"assessment",
			"periods",
			"net_override",
			"decided_by",
			"externally_closed",
			"closed_at",
			"version",
			"updated_at",
		).
		Updates(c)
	if res.Error != nil {
		c.Version = expectedVersion
		return res.Error
	}
	if res.RowsAffected == 0 {
		c.Version = expectedVersion
		return domain.ErrConcurrentModification
	}
	return nil
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.RepaymentCase, error) {
	var c domain.RepaymentCase
	err := db.WithContext(ctx).Where("id = ?", id).First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *repo) FindByClaimID(ctx context.Context, db *gorm.DB, claimID int64) (*domain.RepaymentCase, error) {
	var c domain.RepaymentCase
	err := db.WithContext(ctx).Where("claim_id = ?", claimID).First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}
