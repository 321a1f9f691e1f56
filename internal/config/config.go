package config

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

type Config struct {
	App struct {
		Env      string
		Timezone string
	} `mapstructure:"app"`

	Telegram struct {
		Token       string
		AdminChatID int64 `mapstructure:"admin_chat_id"`
		TimeoutSec  int   `mapstructure:"timeout_sec"`
	} `mapstructure:"telegram"`

	HTTP struct {
		Addr string
	} `mapstructure:"http"`

	Postgres struct {
		DSN string
	} `mapstructure:"postgres"`

	Metrics struct {
		Enabled bool
	} `mapstructure:"metrics"`

	Payments struct {
		BaseURL      string        `mapstructure:"base_url"`
		RedirectURL  string        `mapstructure:"redirect_url"`
		PollInterval time.Duration `mapstructure:"poll_interval"`
		PollTimeout  time.Duration `mapstructure:"poll_timeout"`
	} `mapstructure:"payments"`

	Storage struct {
		UploadURL string `mapstructure:"upload_url"`
		MaxBytes  int64  `mapstructure:"max_bytes"`
	} `mapstructure:"storage"`

	Wizard struct {
		EventID    int64  `mapstructure:"event_id"`
		GroupTitle string `mapstructure:"group_title"`
		TermsURL   string `mapstructure:"terms_url"`
	} `mapstructure:"wizard"`
}

// Load читает YAML и переопределения из ENV (APP_POSTGRES_DSN и т.п.).
// Если рядом есть .env — подхватываем его до viper.
func Load(path string) (Config, error) {
	_ = gotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var c Config
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !os.IsNotExist(err) {
				return c, err
			}
		}
	}
	if err := v.Unmarshal(&c); err != nil {
		return c, err
	}
	return c, c.validate()
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.env", "dev")
	v.SetDefault("app.timezone", "Europe/Moscow")
	v.SetDefault("telegram.token", "")
	v.SetDefault("telegram.admin_chat_id", 0)
	v.SetDefault("telegram.timeout_sec", 60)
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("postgres.dsn", "")
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("payments.base_url", "http://localhost:8080")
	v.SetDefault("payments.redirect_url", "")
	v.SetDefault("payments.poll_interval", 3*time.Second)
	v.SetDefault("payments.poll_timeout", 15*time.Minute)
	v.SetDefault("storage.upload_url", "")
	v.SetDefault("storage.max_bytes", 20<<20)
	v.SetDefault("wizard.event_id", 0)
	v.SetDefault("wizard.group_title", "Стенд экспонента")
	v.SetDefault("wizard.terms_url", "")
}

func (c Config) validate() error {
	if c.Postgres.DSN == "" {
		return errors.New("config: postgres.dsn is required")
	}
	return nil
}

// RequireEvent — для команд, которые работают с каталогом конкретного мероприятия.
func (c Config) RequireEvent() error {
	if c.Wizard.EventID <= 0 {
		return errors.New("config: wizard.event_id is required")
	}
	return nil
}
