package main

import (
	"encoding/base64"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/edulock/sebdash/pkg/lms"
)

type SessionConfig struct {
	// base64-encoded 256-bit keys; generated fresh when empty, which
	// invalidates all sessions on restart
	SignKey       string `yaml:"sign_key"`
	EncryptionKey string `yaml:"encryption_key"`
	SecureCookies *bool  `yaml:"secure_cookies"`
}

type Config struct {
	Address string        `yaml:"address" validate:"required"`
	LMS     lms.Config    `yaml:"lms" validate:"required"`
	Session SessionConfig `yaml:"session"`
}

func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var config Config
	err = yaml.Unmarshal(data, &config)
	if err != nil {
		return nil, fmt.Errorf("unmarshal config file: %w", err)
	}

	if config.LMS.ClientSecret == "" {
		config.LMS.ClientSecret = os.Getenv("SEBDASH_CLIENT_SECRET")
	}

	validate := validator.New()
	err = validate.Struct(config)
	if err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &config, nil
}

func (c SessionConfig) decodeKey(encoded string) ([]byte, error) {
	if encoded == "" {
		return nil, nil
	}
	key, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("decode session key: %w", err)
	}
	return key, nil
}
