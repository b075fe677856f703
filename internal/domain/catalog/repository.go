package catalog

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) ListSalons(ctx context.Context, city string, limit, offset int) ([]Salon, error) {
	q := r.db.WithContext(ctx).Model(&Salon{})
	if city = strings.TrimSpace(city); city != "" {
		q = q.Where("LOWER(city) = ?", strings.ToLower(city))
	}
	var salons []Salon
	if err := q.Order("name").Limit(limit).Offset(offset).Find(&salons).Error; err != nil {
		return nil, err
	}
	return salons, nil
}

func (r *Repository) GetSalon(ctx context.Context, id int64) (*Salon, error) {
	var s Salon
	if err := r.db.WithContext(ctx).First(&s, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &s, nil
}

func (r *Repository) ListServices(ctx context.Context, salonID int64) ([]Service, error) {
	var services []Service
	err := r.db.WithContext(ctx).
		Where("salon_id = ? AND active = ?", salonID, true).
		Order("price").
		Find(&services).Error
	if err != nil {
		return nil, err
	}
	return services, nil
}

func (r *Repository) GetService(ctx context.Context, id int64) (*Service, error) {
	var s Service
	if err := r.db.WithContext(ctx).First(&s, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &s, nil
}
