package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func validConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Database: DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "test",
			Password: "test",
			Database: "test_db",
		},
		Redis: RedisConfig{
			Host: "localhost",
			Port: 6379,
		},
		Payment: PaymentConfig{
			LockTTL:        30 * time.Second,
			GatewayTimeout: 10 * time.Second,
		},
	}
}

func TestConfig_Validate_Success(t *testing.T) {
	err := validConfig().Validate()
	assert.NoError(t, err)
}

func TestConfig_Validate_InvalidServerPort(t *testing.T) {
	tests := []struct {
		name string
		port int
	}{
		{"port too low", 0},
		{"port negative", -1},
		{"port too high", 99999},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			cfg.Server.Port = tt.port

			err := cfg.Validate()
			assert.Error(t, err)
			assert.Contains(t, err.Error(), "server.port")
		})
	}
}

func TestConfig_Validate_MissingDatabaseHost(t *testing.T) {
	cfg := validConfig()
	cfg.Database.Host = ""

	err := cfg.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "database.host")
}

func TestConfig_Validate_InvalidPaymentLockTTL(t *testing.T) {
	cfg := validConfig()
	cfg.Payment.LockTTL = 0

	err := cfg.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "payment.lock_ttl")
}

func TestConfig_Validate_InvalidGatewayTimeout(t *testing.T) {
	cfg := validConfig()
	cfg.Payment.GatewayTimeout = -1 * time.Second

	err := cfg.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "payment.gateway_timeout")
}

func TestConfig_Validate_JoinsMultipleErrors(t *testing.T) {
	cfg := validConfig()
	cfg.Server.Port = 0
	cfg.Payment.LockTTL = 0

	err := cfg.Validate()
	assert.Error(t, err)
	errStr := err.Error()
	assert.Contains(t, errStr, "server.port")
	assert.Contains(t, errStr, "payment.lock_ttl")
}

func TestConfig_Validate_ProductionRequiresSecrets(t *testing.T) {
	t.Setenv("ENV", "production")

	cfg := validConfig()
	cfg.Database.Password = ""
	cfg.Payment.Inicis.SignKey = ""
	cfg.Payment.Toss.SecretKey = ""

	err := cfg.Validate()
	assert.Error(t, err)
	errStr := err.Error()
	assert.Contains(t, errStr, "database.password")
	assert.Contains(t, errStr, "payment.inicis.sign_key")
	assert.Contains(t, errStr, "payment.toss.secret_key")
}

func TestDatabaseConfig_DSN(t *testing.T) {
	cfg := DatabaseConfig{
		Host:     "db.example.com",
		Port:     5433,
		User:     "commercepay",
		Password: "secret",
		Database: "commercepay",
		SSLMode:  "require",
	}

	dsn := cfg.DatabaseDSN()
	assert.Equal(t, "host=db.example.com port=5433 user=commercepay password=secret dbname=commercepay sslmode=require", dsn)
}

func TestRedisConfig_Addr(t *testing.T) {
	cfg := RedisConfig{Host: "redis.example.com", Port: 6380}
	assert.Equal(t, "redis.example.com:6380", cfg.RedisAddr())
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	assert.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 30*time.Second, cfg.Payment.LockTTL)
	assert.Equal(t, 10*time.Second, cfg.Payment.GatewayTimeout)
	assert.Equal(t, "INIpayTest", cfg.Payment.Inicis.MID)
	assert.Equal(t, "https://api.tosspayments.com/v1", cfg.Payment.Toss.APIBaseURL)
}
