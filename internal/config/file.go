package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// fileConfig mirrors the YAML config file layout. Every field is optional;
// values present in the file override what Load read from the environment.
type fileConfig struct {
	Server struct {
		Host    string `yaml:"host"`
		Port    int    `yaml:"port"`
		BaseURL string `yaml:"base_url"`
	} `yaml:"server"`
	Database struct {
		URL            string `yaml:"url"`
		MaxConnections int    `yaml:"max_connections"`
	} `yaml:"database"`
	Auth struct {
		JWTSecret   string `yaml:"jwt_secret"`
		JWTExpiryHr int    `yaml:"jwt_expiry_hours"`
		Issuer      string `yaml:"issuer"`
	} `yaml:"auth"`
	OCR struct {
		BaseURL string `yaml:"base_url"`
		APIKey  string `yaml:"api_key"`
		Model   string `yaml:"model"`
	} `yaml:"ocr"`
	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"logging"`
	Environment string `yaml:"environment"`
}

// ApplyFile overlays values from a YAML config file onto cfg.
func ApplyFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	var file fileConfig
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}

	if file.Server.Host != "" {
		cfg.Server.Host = file.Server.Host
	}
	if file.Server.Port != 0 {
		cfg.Server.Port = file.Server.Port
	}
	if file.Server.BaseURL != "" {
		cfg.Server.BaseURL = file.Server.BaseURL
	}
	if file.Database.URL != "" {
		cfg.Database.URL = file.Database.URL
	}
	if file.Database.MaxConnections != 0 {
		cfg.Database.MaxConnections = file.Database.MaxConnections
	}
	if file.Auth.JWTSecret != "" {
		cfg.Auth.JWTSecret = file.Auth.JWTSecret
	}
	if file.Auth.JWTExpiryHr != 0 {
		cfg.Auth.JWTExpiry = time.Duration(file.Auth.JWTExpiryHr) * time.Hour
	}
	if file.Auth.Issuer != "" {
		cfg.Auth.Issuer = file.Auth.Issuer
	}
	if file.OCR.BaseURL != "" {
		cfg.OCR.BaseURL = file.OCR.BaseURL
	}
	if file.OCR.APIKey != "" {
		cfg.OCR.APIKey = file.OCR.APIKey
	}
	if file.OCR.Model != "" {
		cfg.OCR.Model = file.OCR.Model
	}
	if file.Logging.Level != "" {
		cfg.Logging.Level = file.Logging.Level
	}
	if file.Logging.Format != "" {
		cfg.Logging.Format = file.Logging.Format
	}
	if file.Environment != "" {
		cfg.Environment = file.Environment
	}
	return nil
}
