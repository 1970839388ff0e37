// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"investflow-core/pkg/db"
)

// PlatformConfig holds the marketplace's financial constants. They are fixed
// per deployment and stamped onto commitments at creation time.
type PlatformConfig struct {
	MinimumDeposit     decimal.Decimal
	MinimumCommitment  decimal.Decimal
	PlatformFeeRate    decimal.Decimal // Fraction of the committed amount, e.g. 0.05
	PlatformEquityRate decimal.Decimal // Percentage points of the cap table, e.g. 5
}

// AppConfig holds all application-wide configurations.
type AppConfig struct {
	ServerPort string
	DB         db.Config
	Platform   PlatformConfig
}

// LoadConfig loads configuration from environment variables, after sourcing a
// .env file when one is present. It returns an AppConfig instance or an error
// if any variable is invalid.
func LoadConfig() (*AppConfig, error) {
	// A missing .env file is fine; explicit environment always wins.
	_ = godotenv.Load()

	serverPort := envOrDefault("SERVER_PORT", "8080")

	dbPort, err := strconv.Atoi(envOrDefault("DB_PORT", "5432"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_PORT: %w", err)
	}

	platform, err := loadPlatformConfig()
	if err != nil {
		return nil, err
	}

	return &AppConfig{
		ServerPort: serverPort,
		DB: db.Config{
			Host:     envOrDefault("DB_HOST", "localhost"),
			Port:     dbPort,
			User:     envOrDefault("DB_USER", "user"),
			Password: envOrDefault("DB_PASSWORD", "password"),
			DBName:   envOrDefault("DB_NAME", "investflowdb"),
			SSLMode:  envOrDefault("DB_SSLMODE", "disable"),
		},
		Platform: platform,
	}, nil
}

func loadPlatformConfig() (PlatformConfig, error) {
	minDeposit, err := decimalEnv("MINIMUM_DEPOSIT", "10")
	if err != nil {
		return PlatformConfig{}, err
	}
	minCommitment, err := decimalEnv("MINIMUM_COMMITMENT", "100")
	if err != nil {
		return PlatformConfig{}, err
	}
	feeRate, err := decimalEnv("PLATFORM_FEE_RATE", "0.05")
	if err != nil {
		return PlatformConfig{}, err
	}
	equityRate, err := decimalEnv("PLATFORM_EQUITY_RATE", "5")
	if err != nil {
		return PlatformConfig{}, err
	}
	return PlatformConfig{
		MinimumDeposit:     minDeposit,
		MinimumCommitment:  minCommitment,
		PlatformFeeRate:    feeRate,
		PlatformEquityRate: equityRate,
	}, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func decimalEnv(key, fallback string) (decimal.Decimal, error) {
	v, err := decimal.NewFromString(envOrDefault(key, fallback))
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}
