package wallet

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	TransactionTypeCredit = "CREDIT"
	TransactionTypeDebit  = "DEBIT"
	TransactionTypeRefund = "REFUND"
)

// Wallet holds a user's stored balance in whole rupees.
type Wallet struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	UserID    int64     `json:"user_id" gorm:"not null;uniqueIndex"`
	Balance   int64     `json:"balance" gorm:"not null;default:0"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Wallet) TableName() string {
	return "wallets"
}

func (w *Wallet) BeforeCreate(_ *gorm.DB) error {
	if w.ID == uuid.Nil {
		w.ID = uuid.New()
	}
	return nil
}

// Transaction records one balance movement. Amount is always positive; Type
// gives the direction.
type Transaction struct {
	ID          uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	WalletID    uuid.UUID `json:"wallet_id" gorm:"type:uuid;not null;index"`
	Amount      int64     `json:"amount" gorm:"not null"`
	Type        string    `json:"type" gorm:"type:varchar(16);not null;index;check:type IN ('CREDIT','DEBIT','REFUND')"`
	BookingID   *int64    `json:"booking_id,omitempty" gorm:"index"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at" gorm:"autoCreateTime"`

	Wallet *Wallet `json:"-" gorm:"foreignKey:WalletID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

func (Transaction) TableName() string {
	return "wallet_transactions"
}

func (t *Transaction) BeforeCreate(_ *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}
