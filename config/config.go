package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config es la configuración completa del bot de trading.
type Config struct {
	Trading TradingConfig `yaml:"trading"`
	API     APIConfig     `yaml:"api"`
	Storage StorageConfig `yaml:"storage"`
	Log     LogConfig     `yaml:"log"`
}

// TradingConfig controla el comportamiento del engine.
type TradingConfig struct {
	AccountID            string  `yaml:"account_id"`
	InitialBalance       string  `yaml:"initial_balance"`        // saldo inicial de cada ledger (demo y live)
	SweepIntervalSeconds int     `yaml:"sweep_interval_seconds"` // cada cuánto se revisan órdenes límite
	PriceCacheSeconds    int     `yaml:"price_cache_seconds"`
	PriceAttempts        int     `yaml:"price_attempts"`
	DemoStartPrice       string  `yaml:"demo_start_price"`
	DemoVolatility       float64 `yaml:"demo_volatility"`
}

// APIConfig contiene el base URL del proveedor de precios.
type APIConfig struct {
	QuoteBase string `yaml:"quote_base"`
}

// StorageConfig controla dónde se persisten los datos.
type StorageConfig struct {
	DSN string `yaml:"dsn"` // ruta al archivo SQLite, o ":memory:"
}

// LogConfig controla el formato y nivel de logging.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// Load carga la configuración desde el archivo YAML y el archivo .env si existe.
// Las variables de entorno sobreescriben los valores del YAML.
func Load(path string) (*Config, error) {
	// Cargar .env si existe (silencia error si no hay archivo)
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config.Load: parse YAML: %w", err)
	}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	return &cfg, nil
}

// SweepInterval devuelve el intervalo del sweep como time.Duration.
func (c *Config) SweepInterval() time.Duration {
	return time.Duration(c.Trading.SweepIntervalSeconds) * time.Second
}

// PriceCacheDuration devuelve la ventana de frescura del cache de precios.
func (c *Config) PriceCacheDuration() time.Duration {
	return time.Duration(c.Trading.PriceCacheSeconds) * time.Second
}

// applyEnvOverrides sobreescribe valores con variables de entorno si están presentes.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("QUOTE_BASE"); v != "" {
		cfg.API.QuoteBase = v
	}
	if v := os.Getenv("STORAGE_DSN"); v != "" {
		cfg.Storage.DSN = v
	}
}

// setDefaults asegura que los valores requeridos tengan valores sensatos.
func setDefaults(cfg *Config) {
	if cfg.Trading.AccountID == "" {
		cfg.Trading.AccountID = "global"
	}
	if cfg.Trading.InitialBalance == "" {
		cfg.Trading.InitialBalance = "100000"
	}
	if cfg.Trading.SweepIntervalSeconds <= 0 {
		cfg.Trading.SweepIntervalSeconds = 30
	}
	if cfg.Trading.PriceCacheSeconds <= 0 {
		cfg.Trading.PriceCacheSeconds = 60
	}
	if cfg.Trading.PriceAttempts <= 0 {
		cfg.Trading.PriceAttempts = 3
	}
	if cfg.Trading.DemoStartPrice == "" {
		cfg.Trading.DemoStartPrice = "100"
	}
	if cfg.Trading.DemoVolatility <= 0 {
		cfg.Trading.DemoVolatility = 0.10
	}
	if cfg.Storage.DSN == "" {
		cfg.Storage.DSN = "stockbot.db"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}
