package config

import (
	"errors"
	"io/fs"
	"strings"

	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

type Config struct {
	App struct {
		Env      string
		Timezone string
	} `mapstructure:"app"`

	HTTP struct {
		Addr    string
		BaseURL string `mapstructure:"base_url"`
	} `mapstructure:"http"`

	Postgres struct {
		DSN string
	} `mapstructure:"postgres"`

	Store struct {
		Driver       string // postgres|memory
		MaxAttempts  int    `mapstructure:"max_attempts"`
		SnapshotPath string `mapstructure:"snapshot_path"`
	} `mapstructure:"store"`

	Metrics struct {
		Enabled bool
	} `mapstructure:"metrics"`

	Telegram struct {
		Token       string
		AdminChatID int64 `mapstructure:"admin_chat_id"`
	} `mapstructure:"telegram"`

	Inventory struct {
		LowStockThreshold float64 `mapstructure:"low_stock_threshold"`
	} `mapstructure:"inventory"`
}

func Load(path string) (Config, error) {
	// .env не обязателен: локально удобно, в проде переменные приходят из окружения
	if err := gotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, err
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("app.env", "prod")
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("store.driver", "postgres")
	v.SetDefault("store.max_attempts", 5)
	v.SetDefault("inventory.low_stock_threshold", 1.0)

	var c Config
	if err := v.ReadInConfig(); err != nil {
		return c, err
	}
	if err := v.Unmarshal(&c); err != nil {
		return c, err
	}
	return c, nil
}
