package configs

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	App struct {
		Name     string `koanf:"name"`
		HTTPAddr string `koanf:"http_addr"`
		LogLevel string `koanf:"log_level"`
	} `koanf:"app"`

	HTTP struct {
		ReadTimeout  time.Duration `koanf:"read_timeout"`
		WriteTimeout time.Duration `koanf:"write_timeout"`
		IdleTimeout  time.Duration `koanf:"idle_timeout"`
	} `koanf:"http"`

	MySQL struct {
		DSN             string        `koanf:"dsn"`
		MigrationsDir   string        `koanf:"migrations_dir"`
		MaxOpenConns    int           `koanf:"max_open_conns"`
		MaxIdleConns    int           `koanf:"max_idle_conns"`
		ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
	} `koanf:"mysql"`

	Redis struct {
		Addr     string `koanf:"addr"`
		Password string `koanf:"password"`
	} `koanf:"redis"`

	Reconcile struct {
		CacheTTL time.Duration `koanf:"cache_ttl"`
	} `koanf:"reconcile"`

	Cache struct {
		StatusTTL time.Duration `koanf:"status_ttl"`
	} `koanf:"cache"`

	Rabbit struct {
		URL        string        `koanf:"url"`
		OutboxTick time.Duration `koanf:"outbox_tick"`
	} `koanf:"rabbitmq"`

	Kafka struct {
		Brokers     []string `koanf:"brokers"`
		TopicStatus string   `koanf:"topic_status"`
		GroupID     string   `koanf:"group_id"`
	} `koanf:"kafka"`

	Security struct {
		JWTSecret string        `koanf:"jwt_secret"`
		Issuer    string        `koanf:"issuer"`
		Audience  string        `koanf:"audience"`
		TTL       time.Duration `koanf:"ttl"`
	} `koanf:"security"`

	MercadoPago struct {
		AccessToken     string `koanf:"access_token"`
		BaseURL         string `koanf:"base_url"`
		WebhookSecret   string `koanf:"webhook_secret"`
		SuccessURL      string `koanf:"success_url"`
		FailureURL      string `koanf:"failure_url"`
		PendingURL      string `koanf:"pending_url"`
		NotificationURL string `koanf:"notification_url"`
	} `koanf:"mercadopago"`

	Delivery struct {
		// zone name -> shipping price
		Zones map[string]float64 `koanf:"zones"`
	} `koanf:"delivery"`
}

func Load(pathDir, envName string) (Config, error) {
	k := koanf.New(".")
	// 1) base
	if err := k.Load(file.Provider(fmt.Sprintf("%s/base.yaml", pathDir)), yaml.Parser()); err != nil {
		return Config{}, fmt.Errorf("load base: %w", err)
	}

	// 2) env override (dev/staging/prod). Optional: allow missing for local runs.
	_ = k.Load(file.Provider(fmt.Sprintf("%s/%s.yaml", pathDir, envName)), yaml.Parser())

	// 3) environment variables override (prefix PEDIDOS_, nested with __)
	// e.g. PEDIDOS_MYSQL__DSN, PEDIDOS_MERCADOPAGO__ACCESS_TOKEN
	if err := k.Load(env.Provider("PEDIDOS_", ".", func(s string) string {
		s = strings.TrimPrefix(s, "PEDIDOS_")
		s = strings.ReplaceAll(s, "__", ".")
		return strings.ToLower(s)
	}), nil); err != nil {
		return Config{}, fmt.Errorf("env overlay: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.App.HTTPAddr == "" {
		return fmt.Errorf("app.http_addr required")
	}
	if c.MySQL.DSN == "" {
		return fmt.Errorf("mysql.dsn required")
	}
	if c.MercadoPago.AccessToken == "" {
		return fmt.Errorf("mercadopago.access_token required")
	}
	if len(c.Delivery.Zones) == 0 {
		return fmt.Errorf("delivery.zones required")
	}
	return nil
}
