package config

import (
	"fmt"
	"os"
	"time"

	"github.com/Emmanard/eventwave/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

type Config struct {
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
}

func LoadConfig() (*Config, error) {
	return &Config{
		DBHost:     os.Getenv("DB_HOST"),
		DBPort:     os.Getenv("DB_PORT"),
		DBUser:     os.Getenv("DB_USER"),
		DBPassword: os.Getenv("DB_PASSWORD"),
		DBName:     os.Getenv("DB_NAME"),
	}, nil
}

// PaystackConfig is assembled once at startup and passed explicitly into the
// gateway client and the webhook verifier.
type PaystackConfig struct {
	SecretKey   string
	BaseURL     string
	CallbackURL string
}

func LoadPaystackConfig() (*PaystackConfig, error) {
	cfg := &PaystackConfig{
		SecretKey:   os.Getenv("PAYSTACK_SECRET_KEY"),
		BaseURL:     os.Getenv("PAYSTACK_BASE_URL"),
		CallbackURL: os.Getenv("PAYSTACK_CALLBACK_URL"),
	}
	if cfg.SecretKey == "" {
		return nil, fmt.Errorf("PAYSTACK_SECRET_KEY not configured")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.paystack.co"
	}
	return cfg, nil
}

// SweeperInterval reads the status sweeper tick period, defaulting to one
// minute.
func SweeperInterval() time.Duration {
	raw := os.Getenv("SWEEPER_INTERVAL")
	if raw == "" {
		return time.Minute
	}
	interval, err := time.ParseDuration(raw)
	if err != nil {
		return time.Minute
	}
	return interval
}

func enableUUIDExtension(db *gorm.DB) error {
	return db.Exec("CREATE EXTENSION IF NOT EXISTS \"uuid-ossp\"").Error
}

func InitDatabase(cfg *Config) (*gorm.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=UTC",
		cfg.DBHost, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBPort,
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, err
	}

	if err := enableUUIDExtension(db); err != nil {
		return nil, err
	}

	err = db.AutoMigrate(&models.Role{}, &models.User{}, &models.Event{}, &models.Booking{}, &models.Payment{})
	if err != nil {
		return nil, err
	}

	seedRoles(db)

	return db, nil
}

func seedRoles(db *gorm.DB) {
	roles := []models.Role{
		{Name: models.RoleOrganizer},
		{Name: models.RoleAttendee},
		{Name: models.RoleAdmin},
	}

	for _, role := range roles {
		var existingRole models.Role
		result := db.Where("name = ?", role.Name).First(&existingRole)
		if result.Error != nil {
			db.Create(&role)
		}
	}
}
