package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(ctx context.Context, b *Booking) error {
	return r.db.WithContext(ctx).Create(b).Error
}

func (r *Repository) GetByID(ctx context.Context, id int64) (*Booking, error) {
	var b Booking
	if err := r.db.WithContext(ctx).First(&b, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &b, nil
}

func (r *Repository) ListByUser(ctx context.Context, userID int64, limit, offset int) ([]Booking, error) {
	var rows []Booking
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("date DESC, time DESC, id DESC").
		Limit(limit).
		Offset(offset).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// ListStalePending returns bookings still awaiting online payment that were
// created before olderThan, oldest first.
func (r *Repository) ListStalePending(ctx context.Context, olderThan time.Time, limit int) ([]Booking, error) {
	var rows []Booking
	err := r.db.WithContext(ctx).
		Where("status IN ?", []Status{StatusPendingPayment, StatusPaymentFailed}).
		Where("created_at < ?", olderThan).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// Transition moves a booking to status `to` under a row lock. mutate runs
// after the status is set and before the row is saved. It returns the updated
// booking and the status it left.
func (r *Repository) Transition(ctx context.Context, id int64, to Status, mutate func(*Booking)) (*Booking, Status, error) {
	var b Booking
	var from Status

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&b, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		from = b.Status
		if from == to {
			return ErrAlreadyInStatus
		}
		if !CanTransition(from, to) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidStatusTransition, from, to)
		}

		b.Status = to
		if mutate != nil {
			mutate(&b)
		}
		return tx.Save(&b).Error
	})
	if err != nil {
		if errors.Is(err, ErrAlreadyInStatus) {
			return &b, from, err
		}
		return nil, from, err
	}
	return &b, from, nil
}
