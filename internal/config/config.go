package config

import (
	"flag"
	"strings"

	"CardVault/internal/catalog"
	"CardVault/internal/scryfall"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
)

type Config struct {
	// Server-side settings
	Port        string `env:"PORT"`
	Password    string `env:"PASSWORD"`
	AuthSecret  string `env:"AUTH_SECRET"`
	DatabaseDSN string `env:"DATABASE_URI"`
	StoreDir    string `env:"STORE_DIR"`
	PublicDir   string `env:"PUBLIC_DIR"`

	UploadMaxSizeMB int64  `env:"UPLOAD_MAX_MB"`
	LogFormat       string `env:"LOG_FORMAT"` // console | json
	BcryptCost      int    `env:"-"`

	// Price catalog
	CatalogPath     string `env:"CATALOG_PATH"`
	BulkDataURL     string `env:"BULK_DATA_URL"`
	BulkDataType    string `env:"BULK_DATA_TYPE"`
	PriceCurrency   string `env:"PRICE_CURRENCY"`
	RefreshSchedule string `env:"REFRESH_SCHEDULE"`
	RefreshTZ       string `env:"REFRESH_TZ"`

	// Client-side settings
	ServerURL string `env:"SERVER_URL"`
	Version   bool   `env:"-"` // show client version and exit (flag only)
}

func NewConfig() *Config {
	_ = godotenv.Load()

	cfg := &Config{}
	_ = env.Parse(cfg)

	// Server flags
	flag.StringVar(&cfg.Port, "port", cfg.Port, "HTTP port")
	flag.StringVar(&cfg.Password, "password", cfg.Password, "общий пароль для загрузки и удаления")
	flag.StringVar(&cfg.AuthSecret, "auth-secret", cfg.AuthSecret, "секрет для подписи JWT")
	flag.StringVar(&cfg.DatabaseDSN, "d", cfg.DatabaseDSN, "строка подключения к БД истории задач")
	flag.StringVar(&cfg.StoreDir, "store-dir", cfg.StoreDir, "каталог с CSV-файлами")
	flag.StringVar(&cfg.CatalogPath, "catalog", cfg.CatalogPath, "путь к локальной копии справочника цен")
	flag.StringVar(&cfg.BulkDataURL, "bulk-url", cfg.BulkDataURL, "адрес списка bulk-выгрузок")
	flag.StringVar(&cfg.PriceCurrency, "currency", cfg.PriceCurrency, "валюта цен (eur, usd)")
	// Client flags
	flag.StringVar(&cfg.ServerURL, "server", cfg.ServerURL, "base URL of the CardVault server")
	flag.BoolVar(&cfg.Version, "version", cfg.Version, "Show client version and exit")

	flag.Parse()

	cfg.applyDefaults()
	return cfg
}

func (cfg *Config) applyDefaults() {
	if cfg.Port == "" {
		cfg.Port = "3000"
	}
	if cfg.Password == "" {
		cfg.Password = "changeme"
	}
	if cfg.AuthSecret == "" {
		cfg.AuthSecret = "dev-secret-key"
	}
	if cfg.DatabaseDSN == "" {
		cfg.DatabaseDSN = "cardvault.db"
	}
	if cfg.StoreDir == "" {
		cfg.StoreDir = "textfiles"
	}
	if cfg.PublicDir == "" {
		cfg.PublicDir = "public"
	}
	if cfg.UploadMaxSizeMB <= 0 {
		cfg.UploadMaxSizeMB = 10
	}
	if cfg.LogFormat == "" {
		cfg.LogFormat = "console"
	}
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}

	if cfg.CatalogPath == "" {
		cfg.CatalogPath = "data/default-cards.json"
	}
	if cfg.BulkDataURL == "" {
		cfg.BulkDataURL = scryfall.DefaultBulkDataURL
	}
	if cfg.BulkDataType == "" {
		cfg.BulkDataType = scryfall.DefaultCardsType
	}
	cfg.PriceCurrency = strings.ToLower(strings.TrimSpace(cfg.PriceCurrency))
	if cfg.PriceCurrency == "" {
		cfg.PriceCurrency = catalog.DefaultCurrency
	}
	if cfg.RefreshSchedule == "" {
		cfg.RefreshSchedule = "0 3 * * *"
	}
	if cfg.RefreshTZ == "" {
		cfg.RefreshTZ = "Europe/Berlin"
	}

	if cfg.ServerURL == "" {
		cfg.ServerURL = "http://localhost:" + cfg.Port
	}
	cfg.ServerURL = strings.TrimRight(cfg.ServerURL, "/")
}

// UploadMaxBytes — предел размера тела загрузки в байтах.
func (cfg *Config) UploadMaxBytes() int64 {
	return cfg.UploadMaxSizeMB << 20
}
