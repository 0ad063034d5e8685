package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"Server"`
	Database DatabaseConfig `mapstructure:"Database"`
	Auth     AuthConfig     `mapstructure:"Auth"`
	Share    ShareConfig    `mapstructure:"Share"`
	Upload   UploadConfig   `mapstructure:"Upload"`
}

type ServerConfig struct {
	Port        string `mapstructure:"Port"`
	FrontendURL string `mapstructure:"FrontendURL"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"Host"`
	Port     string `mapstructure:"Port"`
	User     string `mapstructure:"User"`
	Password string `mapstructure:"Password"`
	Name     string `mapstructure:"Name"`
	SSLMode  string `mapstructure:"SSLMode"`
}

type AuthConfig struct {
	SecretKey                string `mapstructure:"SecretKey"`
	AccessTokenExpireMinutes int    `mapstructure:"AccessTokenExpireMinutes"`
	RefreshTokenExpireDays   int    `mapstructure:"RefreshTokenExpireDays"`
}

type ShareConfig struct {
	ExpireDays int `mapstructure:"ExpireDays"`
}

type UploadConfig struct {
	MaxFileSizeBytes int64 `mapstructure:"MaxFileSizeBytes"`
}

func NewConfig(path string) (*Config, error) {
	v := viper.New()

	v.SetConfigFile(path)

	// Привязываем переменные окружения
	v.BindEnv("Database.Host", "DATABASE_HOST")
	v.BindEnv("Database.Port", "DATABASE_PORT")
	v.BindEnv("Database.User", "DATABASE_USER")
	v.BindEnv("Database.Password", "DATABASE_PASSWORD")
	v.BindEnv("Database.Name", "DATABASE_NAME")
	v.BindEnv("Database.SSLMode", "DATABASE_SSLMODE")
	v.BindEnv("Server.Port", "HTTP_PORT")
	v.BindEnv("Server.FrontendURL", "FRONTEND_URL")
	v.BindEnv("Auth.SecretKey", "AUTH_SECRET_KEY")
	v.BindEnv("Auth.AccessTokenExpireMinutes", "AUTH_ACCESS_TOKEN_EXPIRE_MINUTES")
	v.BindEnv("Auth.RefreshTokenExpireDays", "AUTH_REFRESH_TOKEN_EXPIRE_DAYS")
	v.BindEnv("Share.ExpireDays", "SHARE_LINK_EXPIRE_DAYS")
	v.BindEnv("Upload.MaxFileSizeBytes", "UPLOAD_MAX_FILE_SIZE_BYTES")

	// Читаем конфигурацию из файла
	if err := v.ReadInConfig(); err != nil {
		fmt.Printf("Warning: using only environment variables: %v\n", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Проверяем переменные окружения напрямую если конфигурация неполная
	if cfg.Database.Host == "" {
		cfg.Database.Host = v.GetString("DATABASE_HOST")
	}
	if cfg.Database.Port == "" {
		cfg.Database.Port = v.GetString("DATABASE_PORT")
	}
	if cfg.Database.User == "" {
		cfg.Database.User = v.GetString("DATABASE_USER")
	}
	if cfg.Database.Password == "" {
		cfg.Database.Password = v.GetString("DATABASE_PASSWORD")
	}
	if cfg.Database.Name == "" {
		cfg.Database.Name = v.GetString("DATABASE_NAME")
	}
	if cfg.Auth.SecretKey == "" {
		cfg.Auth.SecretKey = v.GetString("AUTH_SECRET_KEY")
	}

	if cfg.Database.Host == "" ||
		cfg.Database.Port == "" ||
		cfg.Database.User == "" ||
		cfg.Database.Password == "" ||
		cfg.Database.Name == "" {
		return nil, fmt.Errorf("database configuration is incomplete: host=%s, port=%s, user=%s, name=%s",
			cfg.Database.Host, cfg.Database.Port, cfg.Database.User, cfg.Database.Name)
	}

	if len(cfg.Auth.SecretKey) < 32 {
		return nil, fmt.Errorf("Auth.SecretKey must be at least 32 characters long")
	}

	// Установка значений по умолчанию
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Server.Port == "" {
		cfg.Server.Port = "8000"
	}
	if cfg.Server.FrontendURL == "" {
		cfg.Server.FrontendURL = "http://localhost:5173"
	}
	if cfg.Auth.AccessTokenExpireMinutes <= 0 {
		cfg.Auth.AccessTokenExpireMinutes = 30
	}
	if cfg.Auth.RefreshTokenExpireDays <= 0 {
		cfg.Auth.RefreshTokenExpireDays = 7
	}
	if cfg.Share.ExpireDays <= 0 {
		cfg.Share.ExpireDays = 7
	}
	if cfg.Upload.MaxFileSizeBytes <= 0 {
		cfg.Upload.MaxFileSizeBytes = 100 * 1024 * 1024
	}

	return &cfg, nil
}

func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host,
		c.Port,
		c.User,
		c.Password,
		c.Name,
		c.SSLMode,
	)
}

func (c *AuthConfig) AccessTTL() time.Duration {
	return time.Duration(c.AccessTokenExpireMinutes) * time.Minute
}

func (c *AuthConfig) RefreshTTL() time.Duration {
	return time.Duration(c.RefreshTokenExpireDays) * 24 * time.Hour
}
