package config

import (
	"flag"
	"fmt"
	"os"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// MustLoad reads the YAML config and environment overrides, panicking
// on any problem. Secrets (DB password, bot/API tokens) normally arrive
// via env; a local .env file is honored when present.
func MustLoad() *Config {
	path := fetchConfigPath()
	if path == "" {
		panic("config path is empty")
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		panic("config file does not exist: " + path)
	}

	// Ignore a missing .env; deployments set real env vars.
	_ = godotenv.Load()

	var cfg Config
	if err := cleanenv.ReadConfig(path, &cfg); err != nil {
		panic(fmt.Sprintf("cannot read config %s: %v", path, err))
	}

	return &cfg
}

// fetchConfigPath resolves the config location from the --config flag
// or the CONFIG_PATH env var, flag taking precedence.
func fetchConfigPath() string {
	var res string

	flag.StringVar(&res, "config", "", "path to config file")
	flag.Parse()

	if res == "" {
		res = os.Getenv("CONFIG_PATH")
	}

	return res
}
