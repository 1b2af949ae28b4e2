package models

import "time"

// Settings is the full process configuration, assembled by config.Load.
type Settings struct {
	BotToken  string            `mapstructure:"bot_token"`
	HTTP      HTTPSettings      `mapstructure:"http"`
	Store     StoreSettings     `mapstructure:"store"`
	Media     MediaSettings     `mapstructure:"media"`
	Scheduler SchedulerSettings `mapstructure:"scheduler"`
	Platforms PlatformSettings  `mapstructure:"platforms"`
	Notify    NotifySettings    `mapstructure:"notify"`
	Log       LogSettings       `mapstructure:"log"`
	Bot       BotSettings       `mapstructure:"bot"`
	Commands  CommandsConfig    `mapstructure:"commands"`
	// SuperAdmins are user ids ensured to exist as super admins at startup.
	SuperAdmins []string `mapstructure:"super_admins"`
}

// HTTPSettings configures the caller-facing API.
type HTTPSettings struct {
	Addr string `mapstructure:"addr"`
	Mode string `mapstructure:"mode"` // gin mode: debug, release, test
}

// StoreSettings selects and configures the document store.
type StoreSettings struct {
	Driver   string `mapstructure:"driver"` // sqlite3, postgres or mongo
	DSN      string `mapstructure:"dsn"`
	Database string `mapstructure:"database"` // mongo database name
}

// MediaSettings configures durable media storage.
type MediaSettings struct {
	Backend string `mapstructure:"backend"` // disk or gridfs
	Dir     string `mapstructure:"dir"`
	BaseURL string `mapstructure:"base_url"`
	Bucket  string `mapstructure:"bucket"`
}

// SchedulerSettings configures the scheduled publish job.
type SchedulerSettings struct {
	Enabled      bool          `mapstructure:"enabled"`
	Owner        string        `mapstructure:"owner"` // empty: every user's posts
	Interval     time.Duration `mapstructure:"interval"`
	Guard        time.Duration `mapstructure:"guard"`
	ClaimTimeout time.Duration `mapstructure:"claim_timeout"`
	RunAtStartup bool          `mapstructure:"run_at_startup"`
	WatchChanges bool          `mapstructure:"watch_changes"`
}

// PlatformSettings holds credentials and endpoints for every adapter.
type PlatformSettings struct {
	Timeout   time.Duration     `mapstructure:"timeout"`
	Proxy     string            `mapstructure:"proxy"`
	Enabled   []Platform        `mapstructure:"enabled"`
	Facebook  FacebookSettings  `mapstructure:"facebook"`
	Instagram InstagramSettings `mapstructure:"instagram"`
	Twitter   TwitterSettings   `mapstructure:"twitter"`
}

type FacebookSettings struct {
	GraphURL    string `mapstructure:"graph_url"`
	PageID      string `mapstructure:"page_id"`
	AccessToken string `mapstructure:"access_token"`
}

type InstagramSettings struct {
	GraphURL    string `mapstructure:"graph_url"`
	AccountID   string `mapstructure:"account_id"`
	AccessToken string `mapstructure:"access_token"`
}

type TwitterSettings struct {
	APIURL         string `mapstructure:"api_url"`
	UploadURL      string `mapstructure:"upload_url"`
	IntentURL      string `mapstructure:"intent_url"`
	ConsumerKey    string `mapstructure:"consumer_key"`
	ConsumerSecret string `mapstructure:"consumer_secret"`
	AccessToken    string `mapstructure:"access_token"`
	AccessSecret   string `mapstructure:"access_secret"`
	BearerToken    string `mapstructure:"bearer_token"`
}

// NotifySettings selects where "post published" notifications go.
type NotifySettings struct {
	DiscordChannelID    string        `mapstructure:"discord_channel_id"`
	ModerationChannelID string        `mapstructure:"moderation_channel_id"`
	GRPCAddr            string        `mapstructure:"grpc_addr"`
	GRPCTimeout         time.Duration `mapstructure:"grpc_timeout"`
}

// LogSettings configures the structured logger.
type LogSettings struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"` // text or json
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

// BotSettings configures the optional Discord moderation bot.
type BotSettings struct {
	AdminChannelID string `mapstructure:"adminChannelId"`
}

// CommandsConfig maps Discord identities onto moderation actors.
type CommandsConfig struct {
	Auth AuthConfig `mapstructure:"auth"`
}

// AuthConfig lists Discord user ids and role ids allowed to moderate.
type AuthConfig struct {
	Developers  []string `mapstructure:"developers"`
	AdminsRoles []string `mapstructure:"adminsRoles"`
	Moderators  []string `mapstructure:"moderators"`
}
