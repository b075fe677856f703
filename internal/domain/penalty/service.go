package penalty

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"salonbook/internal/pkg/logger"
)

type Service struct {
	db  *gorm.DB
	now func() time.Time
	log *zap.Logger
}

func NewService(db *gorm.DB, log *zap.Logger) *Service {
	return &Service{db: db, now: time.Now, log: logger.OrNop(log).Named("penalty")}
}

// Create records a pending penalty. A booking carries at most one penalty;
// recording it twice is a no-op.
func (s *Service) Create(ctx context.Context, userID, bookingID, amount int64, reason string) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	p := &Penalty{
		UserID:    userID,
		BookingID: bookingID,
		Amount:    amount,
		Status:    StatusPending,
		Reason:    reason,
	}
	if err := s.db.WithContext(ctx).Create(p).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil
		}
		return err
	}
	s.log.Info("penalty recorded",
		zap.Int64("user_id", userID),
		zap.Int64("booking_id", bookingID),
		zap.Int64("amount", amount),
	)
	return nil
}

func (s *Service) OutstandingTotal(ctx context.Context, userID int64) (int64, error) {
	var total int64
	err := s.db.WithContext(ctx).
		Model(&Penalty{}).
		Where("user_id = ? AND status = ?", userID, StatusPending).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&total).Error
	return total, err
}

func (s *Service) ListByUser(ctx context.Context, userID int64) ([]Penalty, error) {
	var rows []Penalty
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// Settle marks pending penalties paid, oldest first, while their running sum
// stays within upTo. It returns the amount settled.
func (s *Service) Settle(ctx context.Context, userID, paidOnBookingID, upTo int64) (int64, error) {
	var settled int64
	now := s.now()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var pending []Penalty
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("user_id = ? AND status = ?", userID, StatusPending).
			Order("created_at ASC, id ASC").
			Find(&pending).Error
		if err != nil {
			return err
		}

		var ids []int64
		for _, p := range pending {
			if settled+p.Amount > upTo {
				break
			}
			settled += p.Amount
			ids = append(ids, p.ID)
		}
		if len(ids) == 0 {
			return nil
		}
		return tx.Model(&Penalty{}).
			Where("id IN ?", ids).
			Updates(map[string]any{
				"status":             StatusPaid,
				"paid_on_booking_id": paidOnBookingID,
				"paid_at":            now,
			}).Error
	})
	if err != nil {
		return 0, err
	}
	return settled, nil
}

func (s *Service) Waive(ctx context.Context, id, adminID int64, reason string) (*Penalty, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, ErrReasonRequired
	}

	var p Penalty
	now := s.now()
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&p, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if p.Status != StatusPending {
			return ErrNotPending
		}
		p.Status = StatusWaived
		p.WaivedReason = reason
		p.WaivedBy = &adminID
		p.WaivedAt = &now
		return tx.Save(&p).Error
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("penalty waived", zap.Int64("penalty_id", id), zap.Int64("admin_id", adminID))
	return &p, nil
}

func isUniqueConstraintError(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "duplicate")
}
