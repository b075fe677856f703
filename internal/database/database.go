package database

import (
	"log"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"salonbook/internal/domain/auth"
	"salonbook/internal/domain/booking"
	"salonbook/internal/domain/catalog"
	"salonbook/internal/domain/notification"
	"salonbook/internal/domain/payment"
	"salonbook/internal/domain/penalty"
	"salonbook/internal/domain/wallet"
	"salonbook/internal/pkg/sqlitedb"
)

func Connect(dsn string) (*gorm.DB, error) {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		log.Println("Connecting to PostgreSQL...")
		return gorm.Open(postgres.Open(dsn), &gorm.Config{})
	}

	log.Println("Using SQLite for local development:", dsn)
	return sqlitedb.Open(dsn, nil)
}

// Migrate creates or updates every table owned by the application.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(Models()...)
}

func Models() []interface{} {
	return []interface{}{
		&auth.User{},
		&catalog.Salon{},
		&catalog.Service{},
		&booking.Booking{},
		&wallet.Wallet{},
		&wallet.Transaction{},
		&penalty.Penalty{},
		&payment.Payment{},
		&notification.Notification{},
	}
}
