package config

import (
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Env     string  `yaml:"env" env:"ENV" env-default:"local"`
	Log     Log     `yaml:"log"`
	Storage Storage `yaml:"storage"`
}

type Log struct {
	Level string `yaml:"level" env:"LOG_LEVEL" env-default:"info"`
}

type Storage struct {
	// Driver selects the persistence collaborator: file, postgres or redis.
	Driver      string `yaml:"driver" env:"STORAGE_DRIVER" env-default:"file"`
	DataDir     string `yaml:"data_dir" env:"DATA_DIR" env-default:"./data"`
	PostgresURL string `yaml:"postgres_url" env:"DB_URL"`
	RedisAddr   string `yaml:"redis_addr" env:"REDIS_ADDR" env-default:"localhost:6379"`

	RetryAttempts int           `yaml:"retry_attempts" env:"STORAGE_RETRY_ATTEMPTS" env-default:"3"`
	RetryWait     time.Duration `yaml:"retry_wait" env:"STORAGE_RETRY_WAIT" env-default:"250ms"`
}

func MustLoad() *Config {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/local.yaml"
	}

	var cfg Config
	if _, err := os.Stat(configPath); err == nil {
		if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
			log.Fatalf("error reading config %s: %v", configPath, err)
		}
		return &cfg
	}

	if err := cleanenv.ReadEnv(&cfg); err != nil {
		log.Fatalf("error reading config from environment: %v", err)
	}
	return &cfg
}
