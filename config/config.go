package config

import (
	"fmt"
	"reflect"
	"strings"

	"social-publisher/models"
	"social-publisher/utils"

	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// fragments are merged over config.yaml in this order.
var fragments = []string{"platforms", "scheduler"}

// LoadConfig loads configuration from several sources into the global viper:
//  1. .env (environment variables)
//  2. config.yaml (base configuration)
//  3. config/platforms.json and config/scheduler.json (merged over the base)
//
// Environment variables override file values; a key such as store.dsn maps to
// STORE_DSN.
func LoadConfig() {
	if err := godotenv.Load(); err != nil {
		utils.Logger.Debug("no .env file found, skipping")
	}

	setDefaults()
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			utils.Logger.Info("config.yaml not found, using defaults and environment")
		} else {
			panic(fmt.Errorf("fatal error parsing config.yaml: %w", err))
		}
	}

	for _, name := range fragments {
		viper.SetConfigName(name)
		viper.SetConfigType("json")
		viper.AddConfigPath("./config")

		if err := viper.MergeInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); ok {
				utils.Logger.Debugf("config/%s.json not found, skipping merge", name)
			} else {
				panic(fmt.Errorf("fatal error merging config/%s.json: %w", name, err))
			}
		}
	}
}

// Load runs LoadConfig and decodes the result into typed settings.
func Load() (*models.Settings, error) {
	LoadConfig()

	var settings models.Settings
	hooks := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
		stringToPlatformHook(),
	))
	if err := viper.Unmarshal(&settings, hooks); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}
	return &settings, nil
}

// stringToPlatformHook accepts platform names in any case.
func stringToPlatformHook() mapstructure.DecodeHookFuncType {
	platformType := reflect.TypeOf(models.Platform(""))
	return func(from reflect.Type, to reflect.Type, data any) (any, error) {
		if from.Kind() != reflect.String || to != platformType {
			return data, nil
		}
		return models.ParsePlatform(data.(string))
	}
}

// setDefaults registers every key so that environment overrides reach Unmarshal.
func setDefaults() {
	defaults := map[string]any{
		"bot_token":    "",
		"super_admins": []string{},

		"http.addr": ":8080",
		"http.mode": "release",

		"store.driver":   "sqlite3",
		"store.dsn":      "data/posts.db",
		"store.database": "social_publisher",

		"media.backend":  "disk",
		"media.dir":      "data/media",
		"media.base_url": "http://localhost:8080/media",
		"media.bucket":   "media",

		"scheduler.enabled":        true,
		"scheduler.owner":          "",
		"scheduler.interval":       "60s",
		"scheduler.guard":          "30s",
		"scheduler.claim_timeout":  "10m",
		"scheduler.run_at_startup": true,
		"scheduler.watch_changes":  true,

		"platforms.timeout":                 "30s",
		"platforms.proxy":                   "",
		"platforms.enabled":                 []string{},
		"platforms.facebook.graph_url":      "",
		"platforms.facebook.page_id":        "",
		"platforms.facebook.access_token":   "",
		"platforms.instagram.graph_url":     "",
		"platforms.instagram.account_id":    "",
		"platforms.instagram.access_token":  "",
		"platforms.twitter.api_url":         "",
		"platforms.twitter.upload_url":      "",
		"platforms.twitter.intent_url":      "",
		"platforms.twitter.consumer_key":    "",
		"platforms.twitter.consumer_secret": "",
		"platforms.twitter.access_token":    "",
		"platforms.twitter.access_secret":   "",
		"platforms.twitter.bearer_token":    "",

		"notify.discord_channel_id":    "",
		"notify.moderation_channel_id": "",
		"notify.grpc_addr":             "",
		"notify.grpc_timeout":          "5s",

		"log.level":        "info",
		"log.format":       "text",
		"log.file":         "",
		"log.max_size_mb":  100,
		"log.max_backups":  5,
		"log.max_age_days": 30,

		"bot.adminChannelId": "",
	}
	for key, value := range defaults {
		viper.SetDefault(key, value)
	}
}
