package catalog

import (
	"errors"
	"time"
)

var ErrNotFound = errors.New("not found")

type Salon struct {
	ID        int64     `json:"id" gorm:"primaryKey"`
	OwnerID   int64     `json:"owner_id" gorm:"index;not null"`
	Name      string    `json:"name" gorm:"type:varchar(255);not null"`
	City      string    `json:"city" gorm:"type:varchar(100);index"`
	Address   string    `json:"address" gorm:"type:text"`
	Phone     string    `json:"phone,omitempty" gorm:"type:varchar(32)"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Services []Service `json:"services,omitempty" gorm:"foreignKey:SalonID"`
}

func (Salon) TableName() string { return "salons" }

// Service is a bookable treatment. Price is in whole currency units.
type Service struct {
	ID              int64     `json:"id" gorm:"primaryKey"`
	SalonID         int64     `json:"salon_id" gorm:"index;not null"`
	Name            string    `json:"name" gorm:"type:varchar(255);not null"`
	DurationMinutes int       `json:"duration_minutes" gorm:"not null;default:60"`
	Price           int64     `json:"price" gorm:"not null"`
	Active          bool      `json:"active" gorm:"not null;default:true"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func (Service) TableName() string { return "salon_services" }
