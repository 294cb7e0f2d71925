// Package config loads server and analyst settings from flags, the
// environment and an optional .env file.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"
)

// Price sources
const (
	PriceSourceMock        = "mock"
	PriceSourceBinance     = "binance"
	PriceSourceDexScreener = "dexscreener"
)

// Config is the dashboard server configuration. Struct tags are
// interpreted by github.com/jessevdk/go-flags.
type Config struct {
	Listen    string `long:"listen" env:"LISTEN_ADDR" default:":8080" description:"HTTP listen address"`
	LogLevel  string `long:"log-level" env:"LOG_LEVEL" default:"info" description:"debug, info, warn or error"`
	LogPretty bool   `long:"log-pretty" env:"LOG_PRETTY" description:"human-readable log output"`
	Catalog   string `long:"catalog" env:"CATALOG_FILE" description:"catalog YAML; embedded catalog when empty"`

	AnalystURL    string `long:"analyst-url" env:"ANALYST_URL" description:"job-status backend; scripted analysis when empty"`
	SwapURL       string `long:"swap-url" env:"SWAP_URL" description:"swap-quote endpoint; orders are simulated when empty"`
	StrictTimeout bool   `long:"strict-timeout" env:"STRICT_TIMEOUT" description:"end timed-out analyses instead of substituting the fallback"`

	RPCURL     string `long:"rpc-url" env:"RPC_URL" description:"Ethereum JSON-RPC endpoint; mock wallet when empty"`
	ChainID    int64  `long:"chain-id" env:"CHAIN_ID" default:"1" description:"expected chain id"`
	PrivateKey string `long:"private-key" env:"PRIVATE_KEY" description:"hex private key of the trading wallet"`

	JWTSecret string        `long:"jwt-secret" env:"JWT_SECRET" description:"session signing secret; auth disabled when empty"`
	JWTTTL    time.Duration `long:"jwt-ttl" env:"JWT_TTL" default:"24h" description:"session lifetime"`

	RedisURL    string `long:"redis-url" env:"REDIS_URL" description:"redis journal; file journal when empty"`
	JournalDir  string `long:"journal-dir" env:"JOURNAL_DIR" default:".agentdesk/journal" description:"file journal directory"`
	HistoryDB   string `long:"history-db" env:"HISTORY_DB" default:".agentdesk/history.db" description:"sqlite trade history"`
	DeployState string `long:"deploy-state" env:"DEPLOY_STATE_FILE" default:".agentdesk-deploy-state.json" description:"deployment state file"`

	PriceSource   string        `long:"price-source" env:"PRICE_SOURCE" default:"mock" choice:"mock" choice:"binance" choice:"dexscreener" description:"ADA/USD price feed"`
	PriceRefresh  string        `long:"price-refresh" env:"PRICE_REFRESH" default:"@every 60s" description:"cron schedule of the price refresh"`
	PriceCacheTTL time.Duration `long:"price-cache-ttl" env:"PRICE_CACHE_TTL" default:"30s" description:"price cache lifetime"`
	BinanceKey    string        `long:"binance-key" env:"BINANCE_API_KEY" description:"Binance API key (optional)"`
	BinanceSecret string        `long:"binance-secret" env:"BINANCE_SECRET_KEY" description:"Binance secret key (optional)"`
	BinanceURL    string        `long:"binance-url" env:"BINANCE_BASE_URL" description:"Binance REST base URL override"`
	DexScreenURL  string        `long:"dexscreener-url" env:"DEXSCREENER_URL" description:"DexScreener base URL override"`

	Version bool `short:"v" long:"version" description:"print version and exit"`
}

// AnalystConfig configures the job-status backend
type AnalystConfig struct {
	Listen    string `long:"listen" env:"ANALYST_LISTEN_ADDR" default:":8090" description:"HTTP listen address"`
	LogLevel  string `long:"log-level" env:"LOG_LEVEL" default:"info" description:"debug, info, warn or error"`
	LogPretty bool   `long:"log-pretty" env:"LOG_PRETTY" description:"human-readable log output"`

	Provider        string        `long:"provider" env:"ANALYST_PROVIDER" default:"rules" choice:"rules" choice:"openai" choice:"anthropic" description:"recommendation backend"`
	OpenAIKey       string        `long:"openai-key" env:"OPENAI_API_KEY" description:"OpenAI API key"`
	OpenAIModel     string        `long:"openai-model" env:"OPENAI_MODEL" default:"gpt-4o-mini" description:"OpenAI model"`
	AnthropicKey    string        `long:"anthropic-key" env:"ANTHROPIC_API_KEY" description:"Anthropic API key"`
	AnthropicModel  string        `long:"anthropic-model" env:"ANTHROPIC_MODEL" default:"claude-3-5-haiku-latest" description:"Anthropic model"`
	JobTTL          time.Duration `long:"job-ttl" env:"ANALYST_JOB_TTL" default:"1h" description:"how long finished jobs are kept"`
	RequestTimeout  time.Duration `long:"request-timeout" env:"ANALYST_REQUEST_TIMEOUT" default:"60s" description:"per-job LLM timeout"`
	ArtificialDelay time.Duration `long:"delay" env:"ANALYST_DELAY" description:"extra delay before a job completes"`

	Version bool `short:"v" long:"version" description:"print version and exit"`
}

// Load reads .env (if present) and parses args into cfg.
// Flags override environment variables, which override defaults.
func Load(cfg any, args []string) error {
	if err := loadDotEnv(); err != nil {
		return err
	}

	parser := flags.NewParser(cfg, flags.HelpFlag|flags.PassDoubleDash)
	if _, err := parser.ParseArgs(args); err != nil {
		return err
	}
	return nil
}

func loadDotEnv() error {
	path := os.Getenv("DOTENV_FILE")
	if path == "" {
		path = ".env"
	}
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// IsHelp reports whether err is the --help request
func IsHelp(err error) bool {
	if fe, ok := err.(*flags.Error); ok {
		return fe.Type == flags.ErrHelp
	}
	return false
}

// Validate checks settings that depend on each other
func (c *Config) Validate() error {
	if c.PrivateKey != "" && c.RPCURL == "" {
		return fmt.Errorf("--private-key requires --rpc-url")
	}
	if c.ChainID <= 0 {
		return fmt.Errorf("invalid chain id %d", c.ChainID)
	}
	return nil
}

// Validate checks that the selected provider has credentials
func (c *AnalystConfig) Validate() error {
	switch c.Provider {
	case "openai":
		if c.OpenAIKey == "" {
			return fmt.Errorf("provider openai requires OPENAI_API_KEY")
		}
	case "anthropic":
		if c.AnthropicKey == "" {
			return fmt.Errorf("provider anthropic requires ANTHROPIC_API_KEY")
		}
	}
	return nil
}
