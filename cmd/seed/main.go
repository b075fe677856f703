package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"salonbook/internal/config"
	"salonbook/internal/database"
	"salonbook/internal/domain/auth"
	"salonbook/internal/domain/catalog"
	"salonbook/internal/domain/wallet"
	"salonbook/internal/pkg/logger"
)

type seedUser struct {
	email    string
	password string
	name     string
	phone    string
	role     auth.UserRole
}

var users = []seedUser{
	{"admin@salonbook.in", "admin12345", "Administrator", "", auth.RoleAdmin},
	{"meera@glowstudio.in", "owner12345", "Meera Iyer", "+919800000001", auth.RoleOwner},
	{"rahul@sharpcuts.in", "owner12345", "Rahul Verma", "+919800000002", auth.RoleOwner},
	{"asha@example.in", "client12345", "Asha Nair", "+919800000101", auth.RoleClient},
	{"vikram@example.in", "client12345", "Vikram Rao", "+919800000102", auth.RoleClient},
}

type seedService struct {
	name    string
	minutes int
	price   int64
}

var menus = [][]seedService{
	{
		{"Haircut & Styling", 45, 600},
		{"Hair Spa", 60, 1200},
		{"Bridal Makeup", 180, 15000},
	},
	{
		{"Men's Haircut", 30, 300},
		{"Beard Trim", 20, 150},
		{"Head Massage", 30, 400},
	},
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		zap.NewExample().Fatal("config load failed", zap.Error(err))
	}
	log := logger.New(cfg.AppEnv)
	defer func() { _ = log.Sync() }()

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal("db connect failed", zap.Error(err))
	}
	if err := database.Migrate(db); err != nil {
		log.Fatal("migrate failed", zap.Error(err))
	}

	log.Info("cleaning old data")
	for _, table := range []string{
		"notifications", "payments", "cancellation_penalties", "wallet_transactions", "wallets",
		"bookings", "salon_services", "salons", "users",
	} {
		if err := db.Exec("DELETE FROM " + table).Error; err != nil {
			log.Fatal("cleanup failed", zap.String("table", table), zap.Error(err))
		}
	}

	created := make(map[string]auth.User, len(users))
	for _, su := range users {
		u, err := createUser(db, su)
		if err != nil {
			log.Fatal("create user failed", zap.String("email", su.email), zap.Error(err))
		}
		created[su.email] = *u
		log.Info("user created", zap.String("email", su.email), zap.String("role", string(su.role)))
	}

	owners := []auth.User{created["meera@glowstudio.in"], created["rahul@sharpcuts.in"]}
	names := []string{"Glow Studio", "Sharp Cuts"}
	cities := []string{"Bengaluru", "Pune"}
	for i, owner := range owners {
		salon := catalog.Salon{
			OwnerID: owner.ID,
			Name:    names[i],
			City:    cities[i],
			Address: fmt.Sprintf("%d MG Road", 10+i),
			Phone:   owner.Phone,
		}
		if err := db.Create(&salon).Error; err != nil {
			log.Fatal("create salon failed", zap.Error(err))
		}
		for _, m := range menus[i] {
			svc := catalog.Service{
				SalonID:         salon.ID,
				Name:            m.name,
				DurationMinutes: m.minutes,
				Price:           m.price,
				Active:          true,
			}
			if err := db.Create(&svc).Error; err != nil {
				log.Fatal("create service failed", zap.Error(err))
			}
		}
		log.Info("salon created", zap.String("name", salon.Name), zap.Int("services", len(menus[i])))
	}

	wallets := wallet.NewService(db, log)
	asha := created["asha@example.in"]
	if _, _, err := wallets.TopUp(context.Background(), asha.ID, 2000); err != nil {
		log.Fatal("wallet top-up failed", zap.Error(err))
	}

	log.Info("seed completed",
		zap.Int("users", len(created)),
		zap.Int("salons", len(owners)),
	)
}

func createUser(db *gorm.DB, su seedUser) (*auth.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(su.password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	u := &auth.User{
		Email:        su.email,
		PasswordHash: string(hash),
		Role:         su.role,
		Name:         su.name,
		Phone:        su.phone,
	}
	if err := db.Create(u).Error; err != nil {
		return nil, err
	}
	return u, nil
}
