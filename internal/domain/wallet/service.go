package wallet

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"salonbook/internal/pkg/logger"
)

var (
	ErrInvalidAmount     = errors.New("amount must be positive")
	ErrInsufficientFunds = errors.New("insufficient balance")
)

type Service struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewService(db *gorm.DB, log *zap.Logger) *Service {
	return &Service{db: db, log: logger.OrNop(log).Named("wallet")}
}

func (s *Service) GetOrCreateWallet(ctx context.Context, userID int64) (*Wallet, error) {
	wallet, err := s.getWalletByUserID(ctx, userID)
	if err == nil {
		return wallet, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	wallet = &Wallet{UserID: userID, Balance: 0}
	if err := s.db.WithContext(ctx).Create(wallet).Error; err != nil {
		if isUniqueConstraintError(err) {
			return s.getWalletByUserID(ctx, userID)
		}
		return nil, err
	}
	return wallet, nil
}

// TopUp credits the wallet from outside the booking flow.
func (s *Service) TopUp(ctx context.Context, userID int64, amount int64) (*Wallet, *Transaction, error) {
	return s.apply(ctx, userID, amount, TransactionTypeCredit, nil, "Wallet top-up")
}

// Debit pays for a booking from the wallet.
func (s *Service) Debit(ctx context.Context, userID, amount, bookingID int64, description string) error {
	_, _, err := s.apply(ctx, userID, amount, TransactionTypeDebit, &bookingID, description)
	return err
}

// Refund credits a booking refund. A second refund for the same booking is a
// no-op, so callers may retry.
func (s *Service) Refund(ctx context.Context, userID, amount, bookingID int64, description string) error {
	_, txn, err := s.apply(ctx, userID, amount, TransactionTypeRefund, &bookingID, description)
	if err != nil {
		return err
	}
	if txn == nil {
		s.log.Info("refund already credited", zap.Int64("booking_id", bookingID))
	}
	return nil
}

func (s *Service) apply(ctx context.Context, userID, amount int64, kind string, bookingID *int64, description string) (*Wallet, *Transaction, error) {
	if amount <= 0 {
		return nil, nil, ErrInvalidAmount
	}

	var wallet Wallet
	var txn *Transaction

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := getOrCreateWalletForUpdate(tx, userID, &wallet); err != nil {
			return err
		}

		if kind == TransactionTypeRefund && bookingID != nil {
			var n int64
			err := tx.Model(&Transaction{}).
				Where("wallet_id = ? AND booking_id = ? AND type = ?", wallet.ID, *bookingID, TransactionTypeRefund).
				Count(&n).Error
			if err != nil {
				return err
			}
			if n > 0 {
				return nil
			}
		}

		switch kind {
		case TransactionTypeDebit:
			if wallet.Balance < amount {
				return ErrInsufficientFunds
			}
			wallet.Balance -= amount
		default:
			wallet.Balance += amount
		}

		if err := tx.Model(&Wallet{}).Where("id = ?", wallet.ID).Update("balance", wallet.Balance).Error; err != nil {
			return err
		}

		txn = &Transaction{
			WalletID:    wallet.ID,
			Amount:      amount,
			Type:        kind,
			BookingID:   bookingID,
			Description: description,
		}
		return tx.Create(txn).Error
	})
	if err != nil {
		return nil, nil, err
	}

	if txn != nil {
		s.log.Info("wallet transaction",
			zap.Int64("user_id", userID),
			zap.String("type", kind),
			zap.Int64("amount", amount),
			zap.Int64("balance", wallet.Balance),
		)
	}
	return &wallet, txn, nil
}

func (s *Service) ListTransactions(ctx context.Context, userID int64) ([]Transaction, error) {
	wallet, err := s.GetOrCreateWallet(ctx, userID)
	if err != nil {
		return nil, err
	}

	var txns []Transaction
	if err := s.db.WithContext(ctx).Where("wallet_id = ?", wallet.ID).Order("created_at desc").Find(&txns).Error; err != nil {
		return nil, err
	}

	return txns, nil
}

func (s *Service) getWalletByUserID(ctx context.Context, userID int64) (*Wallet, error) {
	var wallet Wallet
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&wallet).Error; err != nil {
		return nil, err
	}
	return &wallet, nil
}

func getOrCreateWalletForUpdate(tx *gorm.DB, userID int64, wallet *Wallet) error {
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("user_id = ?", userID).First(wallet).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		*wallet = Wallet{UserID: userID, Balance: 0}
		if err := tx.Create(wallet).Error; err != nil {
			if isUniqueConstraintError(err) {
				return tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("user_id = ?", userID).First(wallet).Error
			}
			return err
		}
	}
	return nil
}

func isUniqueConstraintError(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return true
	}

	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate") || strings.Contains(msg, "unique constraint") || strings.Contains(msg, "unique failed")
}
