package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Admin visibility policies for provisioned winner channels.
const (
	// AdminPolicySnapshot grants every current administrator individually at
	// provisioning time. Later admins get no access, departing ones keep it.
	AdminPolicySnapshot = "snapshot"
	// AdminPolicyRole grants the configured admin role on the channel.
	AdminPolicyRole = "role"
)

type Config struct {
	Debug bool `env:"DEBUG" envDefault:"false"`
	// LogFormat is "console" for humans or "json" for log shippers.
	LogFormat string `env:"LOG_FORMAT" envDefault:"console"`

	Discord struct {
		Token string `env:"DISCORD_BOT_TOKEN,required,notEmpty"`
		// Commands are registered globally when GuildID is empty.
		GuildID string `env:"DISCORD_GUILD_ID" envDefault:""`
	}

	Giveaway struct {
		EntryEmoji      string        `env:"GIVEAWAY_ENTRY_EMOJI" envDefault:"🎉"`
		MaxDuration     time.Duration `env:"GIVEAWAY_MAX_DURATION" envDefault:"720h"`
		MaxWinners      int           `env:"GIVEAWAY_MAX_WINNERS" envDefault:"25"`
		AdminPolicy     string        `env:"GIVEAWAY_ADMIN_POLICY" envDefault:"snapshot"`
		AdminRoleID     string        `env:"GIVEAWAY_ADMIN_ROLE_ID" envDefault:""`
		CategoryID      string        `env:"GIVEAWAY_CATEGORY_ID" envDefault:""`
		ProvisionWorker int           `env:"GIVEAWAY_PROVISION_CONCURRENCY" envDefault:"3"`
		Retries         int           `env:"GIVEAWAY_PLATFORM_RETRIES" envDefault:"3"`
		RetryDelay      time.Duration `env:"GIVEAWAY_RETRY_DELAY" envDefault:"1s"`
		RefreshDelay    time.Duration `env:"GIVEAWAY_REFRESH_DELAY" envDefault:"2s"`
		// Union reaction users into the entrant snapshot at selection time.
		ReconcileReactions bool `env:"GIVEAWAY_RECONCILE_REACTIONS" envDefault:"false"`
	}

	Server struct {
		Port   int    `env:"PORT" envDefault:"8080"`
		Origin string `env:"ORIGIN" envDefault:"http://localhost:3000"`
		// The admin API answers 403 to everything while AdminToken is empty.
		AdminToken string `env:"ADMIN_API_TOKEN" envDefault:""`
	}

	Redis struct {
		// Event publishing is disabled when Addr is empty.
		Addr     string `env:"REDIS_ADDR" envDefault:""`
		Password string `env:"REDIS_PASSWORD" envDefault:""`
		DB       int    `env:"REDIS_DB" envDefault:"0"`
		Stream   string `env:"REDIS_EVENTS_STREAM" envDefault:"bot:events"`
	}

	History struct {
		// Outcome archive is disabled when Path is empty.
		Path string `env:"HISTORY_SQLITE_PATH" envDefault:"giveaways.db"`
	}
}

// Load reads .env (when present) and the environment into a validated Config.
func Load() (*Config, error) {
	// A missing .env is fine: production sets variables directly.
	_ = godotenv.Load()
	return Parse()
}

// Parse reads the process environment only.
func Parse() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	g := c.Giveaway
	switch g.AdminPolicy {
	case AdminPolicySnapshot:
	case AdminPolicyRole:
		if g.AdminRoleID == "" {
			return fmt.Errorf("GIVEAWAY_ADMIN_ROLE_ID is required with admin policy %q", AdminPolicyRole)
		}
	default:
		return fmt.Errorf("invalid GIVEAWAY_ADMIN_POLICY %q", g.AdminPolicy)
	}
	if g.EntryEmoji == "" {
		return fmt.Errorf("GIVEAWAY_ENTRY_EMOJI must not be empty")
	}
	if g.MaxDuration <= 0 {
		return fmt.Errorf("GIVEAWAY_MAX_DURATION must be positive")
	}
	if g.MaxWinners < 1 {
		return fmt.Errorf("GIVEAWAY_MAX_WINNERS must be >= 1")
	}
	if g.ProvisionWorker < 1 {
		return fmt.Errorf("GIVEAWAY_PROVISION_CONCURRENCY must be >= 1")
	}
	if g.Retries < 1 {
		return fmt.Errorf("GIVEAWAY_PLATFORM_RETRIES must be >= 1")
	}
	if g.RetryDelay < 0 {
		return fmt.Errorf("GIVEAWAY_RETRY_DELAY must not be negative")
	}
	if c.LogFormat != "console" && c.LogFormat != "json" {
		return fmt.Errorf("invalid LOG_FORMAT %q", c.LogFormat)
	}
	if c.Server.Port <= 0 {
		return fmt.Errorf("invalid PORT %d", c.Server.Port)
	}
	return nil
}
