package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/ilyakaznacheev/cleanenv"
)

type (
	Config struct {
		App       App       `env-prefix:"APP_"`
		HTTP      HTTP      `env-prefix:"HTTP_"`
		Logger    Logger    `env-prefix:"LOGGER_"`
		Database  Database  `env-prefix:"DB_"`
		Redis     Redis     `env-prefix:"REDIS_"`
		Rabbit    Rabbit    `env-prefix:"RABBIT_"`
		SMTP      SMTP      `env-prefix:"SMTP_"`
		Discord   Discord   `env-prefix:"DISCORD_"`
		Scheduler Scheduler `env-prefix:"SCHEDULER_"`
		Env       string    `env:"ENV" env-default:"local" validate:"oneof=local dev staging prod"`
	}

	App struct {
		Name    string `env:"NAME"    env-default:"cartographer-notify" validate:"required"`
		Version string `env:"VERSION" env-default:"0.1.0"               validate:"required"`
		DataDir string `env:"DATA_DIR" env-default:"./data"`
	}

	HTTP struct {
		Host              string        `env:"HOST"                env-default:"0.0.0.0" validate:"required"`
		Port              string        `env:"PORT"                env-default:"8005"    validate:"required"`
		ReadTimeout       time.Duration `env:"READ_TIMEOUT"        env-default:"5s"      validate:"gte=10ms,lte=30s"`
		WriteTimeout      time.Duration `env:"WRITE_TIMEOUT"       env-default:"10s"     validate:"gte=10ms,lte=30s"`
		IdleTimeout       time.Duration `env:"IDLE_TIMEOUT"        env-default:"60s"     validate:"gte=10ms,lte=120s"`
		ReadHeaderTimeout time.Duration `env:"READ_HEADER_TIMEOUT" env-default:"5s"      validate:"gte=10ms,lte=30s"`
		ShutdownTimeout   time.Duration `env:"SHUTDOWN_TIMEOUT"    env-default:"10s"     validate:"gte=10ms,lte=30s"`
	}

	Logger struct {
		Level      string `env:"LEVEL"       env-default:"info"                         validate:"oneof=debug info warn error"`
		Filename   string `env:"FILENAME"    env-default:"./logs/notification-service.log"`
		MaxSize    int    `env:"MAX_SIZE"    env-default:"100" validate:"min=1,max=1000"`
		MaxBackups int    `env:"MAX_BACKUPS" env-default:"3"   validate:"min=0,max=20"`
		MaxAge     int    `env:"MAX_AGE"     env-default:"28"  validate:"min=1,max=365"`
	}

	Database struct {
		DSN          string        `env:"DSN" validate:"required"`
		PoolMax      int           `env:"POOL_MAX"      env-default:"10" validate:"min=1,max=100"`
		ConnAttempts int           `env:"CONN_ATTEMPTS" env-default:"5"  validate:"min=1,max=20"`
		ConnDelay    time.Duration `env:"CONN_DELAY"    env-default:"1s" validate:"gte=100ms,lte=30s"`
		MigrateOnUp  bool          `env:"MIGRATE_ON_UP" env-default:"true"`
	}

	Redis struct {
		Addr        string        `env:"ADDR" validate:"required"`
		Password    string        `env:"PASSWORD"`
		PoolSize    int           `env:"POOL_SIZE"     env-default:"20"    validate:"min=1,max=100"`
		MinIdleCons int           `env:"MIN_IDLE_CONS" env-default:"10"    validate:"min=1,max=100"`
		PoolTimeout time.Duration `env:"POOL_TIMEOUT"  env-default:"100ms" validate:"gte=10ms,lte=10s"`
		CacheTTL    time.Duration `env:"CACHE_TTL"     env-default:"5m"    validate:"gte=1s,lte=1h"`
	}

	Rabbit struct {
		Enabled        bool          `env:"ENABLED" env-default:"false"`
		URL            string        `env:"URL"`
		Queue          string        `env:"QUEUE"           env-default:"network.events"`
		ConnectionName string        `env:"CONNECTION_NAME" env-default:"cartographer-notify"`
		ReconnectDelay time.Duration `env:"RECONNECT_DELAY" env-default:"5s" validate:"gte=1s,lte=1m"`
	}

	SMTP struct {
		Host     string `env:"HOST"`
		Port     int    `env:"PORT" env-default:"587" validate:"gte=1,lte=65535"`
		Username string `env:"USERNAME"`
		Password string `env:"PASSWORD"`
		From     string `env:"FROM"`
	}

	Discord struct {
		BotToken string `env:"BOT_TOKEN"`
		APIBase  string `env:"API_BASE" env-default:"https://discord.com/api/v10"`
	}

	Scheduler struct {
		SweepInterval time.Duration `env:"SWEEP_INTERVAL" env-default:"30s" validate:"gte=10s,lte=5m"`
		MinLeadTime   time.Duration `env:"MIN_LEAD_TIME"  env-default:"5m"  validate:"gte=1m,lte=24h"`
		ClaimBatch    int           `env:"CLAIM_BATCH"    env-default:"50"  validate:"min=1,max=500"`
	}
)

// Load reads configuration from the environment (plus an optional .env in
// local setups, which cleanenv picks up through the DSN-bearing vars).
func Load() (*Config, error) {
	const op = "config.Load"

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("%s: read env: %w", op, err)
	}

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &cfg, nil
}

func validate(cfg *Config) error {
	v := validator.New()
	err := v.Struct(cfg)
	if err == nil {
		return nil
	}

	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		msgs := make([]string, 0, len(validationErrs))
		for _, ve := range validationErrs {
			msgs = append(msgs, fmt.Sprintf("%s=%v must satisfy '%s'", ve.Field(), ve.Value(), ve.Tag()))
		}
		return fmt.Errorf("config validation: %s", strings.Join(msgs, "; "))
	}
	return fmt.Errorf("config validation: %w", err)
}
