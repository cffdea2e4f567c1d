package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"zxsgit/internal/password"
)

// Config is shared by the API server and the client CLIs.
type Config struct {
	Server struct {
		Address     string   `mapstructure:"address"`      // 0.0.0.0
		HTTPPort    string   `mapstructure:"http_port"`    // 4000, also PORT
		CORSOrigins []string `mapstructure:"cors_origins"` // empty: CORS off
	} `mapstructure:"server"`

	Data struct {
		Dir string `mapstructure:"dir"` // users.json + data.json
	} `mapstructure:"data"`

	Logging struct {
		Level  string `mapstructure:"level"`  // trace|debug|info|warning|error|fatal
		Format string `mapstructure:"format"` // text|json
		File   string `mapstructure:"file"`   // file path/prefix; empty: stdout only
	} `mapstructure:"logs"`

	Auth struct {
		PasswordScheme string `mapstructure:"password_scheme"` // sha256|bcrypt|argon2id
	} `mapstructure:"auth"`

	RateLimit struct {
		RPS        float64 `mapstructure:"rps"` // 0: off
		Burst      int     `mapstructure:"burst"`
		TrustProxy bool    `mapstructure:"trust_proxy"`
	} `mapstructure:"ratelimit"`

	Client struct {
		APIURL  string        `mapstructure:"api_url"` // also API_URL
		Timeout time.Duration `mapstructure:"timeout"`
	} `mapstructure:"client"`

	Local struct {
		Driver     string `mapstructure:"driver"` // memory|sqlite|postgres|mysql|redis
		DSN        string `mapstructure:"dsn"`
		QuotaBytes int64  `mapstructure:"quota_bytes"`
		KeyPrefix  string `mapstructure:"key_prefix"`
		Redis      struct {
			Addr     string `mapstructure:"addr"`
			Password string `mapstructure:"password"`
			DB       int    `mapstructure:"db"`
		} `mapstructure:"redis"`
	} `mapstructure:"local"`
}

var localDrivers = map[string]bool{"memory": true, "sqlite": true, "postgres": true, "mysql": true, "redis": true}

// LoadDotenv reads .env.local, then .env. Variables already set are kept;
// missing files are not an error.
func LoadDotenv() {
	for _, f := range []string{".env.local", ".env"} {
		if _, err := os.Stat(f); err == nil {
			_ = godotenv.Load(f)
		}
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.address", "0.0.0.0")
	v.SetDefault("server.http_port", "4000")
	v.SetDefault("server.cors_origins", []string{})

	v.SetDefault("data.dir", "./data")

	v.SetDefault("logs.level", "info")
	v.SetDefault("logs.format", "text")
	v.SetDefault("logs.file", "")

	v.SetDefault("auth.password_scheme", string(password.SchemeSHA256))

	v.SetDefault("ratelimit.rps", 0)
	v.SetDefault("ratelimit.burst", 10)
	v.SetDefault("ratelimit.trust_proxy", false)

	v.SetDefault("client.api_url", "http://localhost:4000")
	v.SetDefault("client.timeout", 10*time.Second)

	v.SetDefault("local.driver", "sqlite")
	v.SetDefault("local.dsn", "zxs-local.db")
	v.SetDefault("local.quota_bytes", 5<<20)
	v.SetDefault("local.key_prefix", "zxs:")
	v.SetDefault("local.redis.addr", "localhost:6379")
	v.SetDefault("local.redis.password", "")
	v.SetDefault("local.redis.db", 0)
}

// Load reads config from env and file on top of defaults.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	// short names familiar from node deployments
	_ = v.BindEnv("server.http_port", "SERVER_HTTP_PORT", "PORT")
	_ = v.BindEnv("client.api_url", "CLIENT_API_URL", "API_URL")

	if cfgFile := os.Getenv("CONFIG_FILE"); cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			v.AddConfigPath(filepath.Join(xdg, "zxsgit"))
		}
		v.AddConfigPath("/etc/zxsgit")
	}

	if err := v.ReadInConfig(); err != nil {
		var nf viper.ConfigFileNotFoundError
		if !errors.As(err, &nf) {
			return nil, fmt.Errorf("config read error: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config unmarshal error: %w", err)
	}
	// from env the list arrives as one comma-separated string
	if len(cfg.Server.CORSOrigins) == 1 && strings.Contains(cfg.Server.CORSOrigins[0], ",") {
		cfg.Server.CORSOrigins = strings.Split(cfg.Server.CORSOrigins[0], ",")
	}
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

func validate(c *Config) error {
	if strings.TrimSpace(c.Server.Address) == "" {
		return errors.New("server.address must not be empty")
	}
	if strings.TrimSpace(c.Server.HTTPPort) == "" {
		return errors.New("server.http_port must not be empty")
	}
	if strings.TrimSpace(c.Data.Dir) == "" {
		return errors.New("data.dir must not be empty")
	}
	if !password.Scheme(c.Auth.PasswordScheme).Valid() {
		return fmt.Errorf("auth.password_scheme %q is not one of sha256|bcrypt|argon2id", c.Auth.PasswordScheme)
	}
	if c.RateLimit.RPS < 0 {
		return errors.New("ratelimit.rps must not be negative")
	}
	if !localDrivers[c.Local.Driver] {
		return fmt.Errorf("local.driver %q is not one of memory|sqlite|postgres|mysql|redis", c.Local.Driver)
	}
	if c.Client.Timeout <= 0 {
		return errors.New("client.timeout must be positive")
	}
	return nil
}
