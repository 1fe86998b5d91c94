package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/netbill/netbill/internal/types"
	"github.com/spf13/viper"
)

type Configuration struct {
	Deployment DeploymentConfig `validate:"required"`
	Server     ServerConfig
	Logging    LoggingConfig `validate:"required"`
	Postgres   PostgresConfig
	Billing    BillingConfig
}

type DeploymentConfig struct {
	Mode types.RunMode `validate:"required"`
}

type ServerConfig struct {
	Address string
}

type LoggingConfig struct {
	Level types.LogLevel `validate:"required"`
}

type PostgresConfig struct {
	Host                   string
	Port                   int
	User                   string
	Password               string
	DBName                 string
	SSLMode                string
	MaxOpenConns           int
	MaxIdleConns           int
	ConnMaxLifetimeMinutes int
}

// BillingConfig holds engine-wide billing defaults
type BillingConfig struct {
	// DefaultCurrency is the 3 letter ISO code used when a plan does not
	// specify one, lowercase per convention
	DefaultCurrency string
	// DataUnitBytes is the size of one billable data unit; defaults to 1 MiB
	DataUnitBytes int64
	// TaxPercent is the flat tax percentage applied to invoice subtotals,
	// as a decimal string like "19" for 19%. Empty or "0" disables tax.
	TaxPercent string
	// TaxJurisdiction names the jurisdiction invoices are billed under.
	// It is passed to the tax calculator and recorded on the invoice's
	// tax event; the flat percentage calculator does not vary by it.
	TaxJurisdiction string
}

func NewConfig() (*Configuration, error) {
	// Load .env if present; environment variables win over file values
	_ = godotenv.Load()

	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./internal/config")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/netbill")

	v.SetEnvPrefix("NETBILL")
	v.SetEnvKeyReplacer(strings.NewReplacer(
		".", "_",
		"-", "_",
	))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, err
		}
	}

	var config Configuration
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func (c *Configuration) applyDefaults() {
	if c.Billing.DefaultCurrency == "" {
		c.Billing.DefaultCurrency = "usd"
	}
	if c.Billing.DataUnitBytes <= 0 {
		c.Billing.DataUnitBytes = 1 << 20
	}
	if c.Billing.TaxPercent == "" {
		c.Billing.TaxPercent = "0"
	}
	if c.Server.Address == "" {
		c.Server.Address = ":8080"
	}
	if c.Postgres.SSLMode == "" {
		c.Postgres.SSLMode = "disable"
	}
	if c.Postgres.MaxOpenConns <= 0 {
		c.Postgres.MaxOpenConns = 10
	}
	if c.Postgres.MaxIdleConns <= 0 {
		c.Postgres.MaxIdleConns = 5
	}
	if c.Postgres.ConnMaxLifetimeMinutes <= 0 {
		c.Postgres.ConnMaxLifetimeMinutes = 30
	}
}

func (c Configuration) Validate() error {
	validate := validator.New()
	return validate.Struct(c)
}

// GetDefaultConfig returns a default configuration for local development
// and tests
func GetDefaultConfig() *Configuration {
	cfg := &Configuration{
		Deployment: DeploymentConfig{Mode: types.ModeLocal},
		Logging:    LoggingConfig{Level: types.LogLevelInfo},
	}
	cfg.applyDefaults()
	return cfg
}

func (c PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"user=%s password=%s dbname=%s host=%s port=%d sslmode=%s",
		c.User,
		c.Password,
		c.DBName,
		c.Host,
		c.Port,
		c.SSLMode,
	)
}
