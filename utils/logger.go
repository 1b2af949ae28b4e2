package utils

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"social-publisher/models"

	"github.com/bwmarrin/discordgo"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	ColorInfo  = 0x00ff00 // Green
	ColorWarn  = 0xffff00 // Yellow
	ColorError = 0xff0000 // Red
)

// Logger is the process-wide structured logger.
var Logger = logrus.New()

var (
	mu        sync.RWMutex
	session   *discordgo.Session
	channelID string
)

// SetupLogger applies level, format and output settings to Logger.
func SetupLogger(cfg models.LogSettings) error {
	level := logrus.InfoLevel
	if cfg.Level != "" {
		parsed, err := logrus.ParseLevel(cfg.Level)
		if err != nil {
			return fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
		}
		level = parsed
	}
	Logger.SetLevel(level)

	if strings.EqualFold(cfg.Format, "json") {
		Logger.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339})
	} else {
		Logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	var out io.Writer = os.Stdout
	if cfg.File != "" {
		rotating := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    orDefault(cfg.MaxSizeMB, 100),
			MaxBackups: orDefault(cfg.MaxBackups, 5),
			MaxAge:     orDefault(cfg.MaxAgeDays, 30),
			Compress:   true,
		}
		out = io.MultiWriter(os.Stdout, rotating)
	}
	Logger.SetOutput(out)
	return nil
}

// InitLogger forwards log lines to a Discord admin channel.
func InitLogger(s *discordgo.Session, adminChannelID string) {
	mu.Lock()
	defer mu.Unlock()
	session = s
	channelID = adminChannelID
	if channelID == "" {
		Logger.Warn("bot.adminChannelId is not set; logging to channel is disabled")
	}
}

// Component returns a logger tagged with a component name.
func Component(name string) *logrus.Entry {
	return Logger.WithField("component", name)
}

// Log records a message and mirrors it to the admin channel when configured.
func Log(level logrus.Level, module, operation, details string) {
	Logger.WithFields(logrus.Fields{
		"module":    module,
		"operation": operation,
	}).Log(level, details)

	mu.RLock()
	s, ch := session, channelID
	mu.RUnlock()
	if s == nil || ch == "" {
		return
	}

	var color int
	switch level {
	case logrus.WarnLevel:
		color = ColorWarn
	case logrus.ErrorLevel, logrus.FatalLevel, logrus.PanicLevel:
		color = ColorError
	default:
		color = ColorInfo
	}

	embed := &discordgo.MessageEmbed{
		Title:     fmt.Sprintf("Log Level: %s", strings.ToUpper(level.String())),
		Color:     color,
		Timestamp: time.Now().Format(time.RFC3339),
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Module", Value: module, Inline: true},
			{Name: "Operation", Value: operation, Inline: true},
			{Name: "Details", Value: truncateField(details)},
		},
	}
	if _, err := s.ChannelMessageSendEmbed(ch, embed); err != nil {
		Logger.WithError(err).Debug("failed to send log message to Discord")
	}
}

// Info logs an informational message.
func Info(module, operation, details string) {
	Log(logrus.InfoLevel, module, operation, details)
}

// Warn logs a warning message.
func Warn(module, operation, details string) {
	Log(logrus.WarnLevel, module, operation, details)
}

// Error logs an error message.
func Error(module, operation, details string) {
	Log(logrus.ErrorLevel, module, operation, details)
}

// Discord rejects embed field values over 1024 characters.
func truncateField(s string) string {
	if s == "" {
		return "-"
	}
	runes := []rune(s)
	if len(runes) > 1024 {
		return string(runes[:1021]) + "..."
	}
	return s
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
