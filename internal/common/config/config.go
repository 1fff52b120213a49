package config

import (
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	Debug bool `env:"DEBUG" envDefault:"false"`

	Server struct {
		Port   int    `env:"PORT" envDefault:"9000"`
		Origin string `env:"ORIGIN" envDefault:"http://localhost:3000"`
	}

	Redis struct {
		Host     string `env:"REDIS_HOST" envDefault:"localhost"`
		Port     int    `env:"REDIS_PORT" envDefault:"6379"`
		Password string `env:"REDIS_PASSWORD" envDefault:""`
		DB       int    `env:"REDIS_DB" envDefault:"0"`
	}

	Telegram struct {
		BotToken string `env:"BOT_TOKEN,required"`
	}

	Chains struct {
		EthereumRPC   string `env:"ETHEREUM_RPC" envDefault:"https://eth.llamarpc.com"`
		SolanaRPC     string `env:"SOLANA_RPC" envDefault:"https://api.mainnet-beta.solana.com"`
		IndexerBase   string `env:"INDEXER_BASE_URL" envDefault:"https://api.helius.xyz"`
		IndexerAPIKey string `env:"INDEXER_API_KEY"`
	}

	Sweep struct {
		Interval time.Duration `env:"SWEEP_INTERVAL" envDefault:"1h"`
	}

	AI struct {
		APIKey  string `env:"OPENAI_API_KEY"`
		BaseURL string `env:"OPENAI_BASE_URL" envDefault:"https://api.openai.com/v1"`
		Model   string `env:"OPENAI_MODEL" envDefault:"gpt-4-turbo"`
	}

	Market struct {
		BaseURL string `env:"DEX_API_URL" envDefault:"https://api.dexscreener.io"`
	}
}

func Load() *Config {
	// Missing .env is fine, variables may be set directly in production.
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		panic(err)
	}

	return cfg
}
