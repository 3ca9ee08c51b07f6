// Package config содержит логику чтения конфигурации магазина.
package config

import (
	"flag"
	"fmt"

	"github.com/caarlos0/env/v11"
)

// ServerConfig содержит параметры конфигурации сервера магазина.
type ServerConfig struct {
	RunAddress  string `env:"RUN_ADDRESS"`
	DatabaseURI string `env:"DATABASE_URI"`
	AuthSecret  string `env:"AUTH_SECRET"`
}

// ClientConfig содержит параметры конфигурации клиента магазина.
type ClientConfig struct {
	APIURL      string `env:"API_URL"`
	SessionFile string `env:"SESSION_FILE"`
}

// ParseServer считывает конфигурацию сервера из флагов командной строки и переменных окружения.
func ParseServer() (*ServerConfig, error) {
	cfg := &ServerConfig{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	envRunAddress := cfg.RunAddress
	envDatabaseURI := cfg.DatabaseURI
	envAuthSecret := cfg.AuthSecret

	flag.StringVar(&cfg.RunAddress, "a", "localhost:8000", "address and port for HTTP server")
	flag.StringVar(&cfg.DatabaseURI, "d", "", "database URI")
	flag.StringVar(&cfg.AuthSecret, "s", "", "secret key for signing tokens")

	flag.Parse()

	if envRunAddress != "" {
		cfg.RunAddress = envRunAddress
	}
	if envDatabaseURI != "" {
		cfg.DatabaseURI = envDatabaseURI
	}
	if envAuthSecret != "" {
		cfg.AuthSecret = envAuthSecret
	}

	if cfg.RunAddress == "" {
		cfg.RunAddress = "localhost:8000"
	}

	return cfg, nil
}

// ParseClient считывает конфигурацию клиента из флагов командной строки и переменных окружения.
// Флаги разбираются до первой не-флаговой команды, остаток возвращается вызывающему.
func ParseClient(args []string) (*ClientConfig, []string, error) {
	cfg := &ClientConfig{}

	if err := env.Parse(cfg); err != nil {
		return nil, nil, fmt.Errorf("parse env: %w", err)
	}

	envAPIURL := cfg.APIURL
	envSessionFile := cfg.SessionFile

	fs := flag.NewFlagSet("tienda", flag.ContinueOnError)
	fs.StringVar(&cfg.APIURL, "api", "http://localhost:8000", "base URL of the storefront API")
	fs.StringVar(&cfg.SessionFile, "session", "", "path to the session file")

	if err := fs.Parse(args); err != nil {
		return nil, nil, fmt.Errorf("parse flags: %w", err)
	}

	if envAPIURL != "" {
		cfg.APIURL = envAPIURL
	}
	if envSessionFile != "" {
		cfg.SessionFile = envSessionFile
	}

	if cfg.APIURL == "" {
		cfg.APIURL = "http://localhost:8000"
	}

	return cfg, fs.Args(), nil
}
