package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"social-publisher/api"
	"social-publisher/bot"
	"social-publisher/clock"
	"social-publisher/command"
	"social-publisher/config"
	"social-publisher/database"
	"social-publisher/grpc"
	"social-publisher/handlers"
	"social-publisher/lifecycle"
	"social-publisher/media"
	"social-publisher/models"
	"social-publisher/moderation"
	"social-publisher/notify"
	"social-publisher/platform"
	"social-publisher/publisher"
	"social-publisher/roles"
	"social-publisher/scheduler"
	"social-publisher/utils"

	"github.com/gin-gonic/gin"
)

func main() {
	if err := run(); err != nil {
		utils.Logger.WithError(err).Fatal("social-publisher stopped")
	}
}

func run() error {
	settings, err := config.Load()
	if err != nil {
		return err
	}
	if err := utils.SetupLogger(settings.Log); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	defer stop()

	store, err := database.Open(ctx, settings.Store)
	if err != nil {
		return err
	}
	defer store.Close()

	clk := clock.Real{}
	roleFlow := roles.New(store, clk)
	for _, id := range settings.SuperAdmins {
		if err := roleFlow.EnsureSuperAdmin(ctx, id); err != nil {
			return fmt.Errorf("failed to ensure super admin %s: %w", id, err)
		}
	}

	storage, err := openMedia(settings.Media, store)
	if err != nil {
		return err
	}

	adapters := platform.NewAdapters(settings.Platforms)
	machine := lifecycle.New(store, publisher.New(adapters, storage, clk), clk)

	// The Discord session backs the notification sink before the bot connects.
	var discordBot *bot.Bot
	if settings.BotToken != "" {
		discordBot, err = bot.NewBot(settings.BotToken)
		if err != nil {
			return err
		}
	}

	sinks := notify.Multi{notify.NewLogSink()}
	var announcer moderation.Announcer
	if discordBot != nil {
		discord := notify.NewDiscordSink(discordBot.Session, settings.Notify.DiscordChannelID, settings.Notify.ModerationChannelID)
		sinks = append(sinks, discord)
		announcer = discord
	}
	if settings.Notify.GRPCAddr != "" {
		client, err := grpc.NewClient(settings.Notify.GRPCAddr, settings.Notify.GRPCTimeout)
		if err != nil {
			return fmt.Errorf("failed to create notification client: %w", err)
		}
		defer client.Close()
		sinks = append(sinks, notify.NewGRPCSink(client))
	}

	modFlow := moderation.New(machine, store, announcer)

	if settings.Scheduler.Enabled {
		sched := scheduler.New(store, machine, sinks, notify.NewPreferences(store), clk, settings.Scheduler)
		handle, err := sched.Start(ctx)
		if err != nil {
			return err
		}
		defer handle.Stop()
	}

	if discordBot != nil {
		utils.InitLogger(discordBot.Session, settings.Bot.AdminChannelID)
		discordBot.RegisterCommands(command.GetCommandDefinitions())
		h := handlers.New(modFlow, utils.NewAuth(settings.Commands))
		if err := discordBot.Start(func(b *bot.Bot) { handlers.Register(b, h) }); err != nil {
			return err
		}
		defer discordBot.Stop()
	}

	if settings.HTTP.Mode != "" {
		gin.SetMode(settings.HTTP.Mode)
	}
	srv := &http.Server{
		Addr: settings.HTTP.Addr,
		Handler: api.NewRouter(&api.Handler{
			Posts:      machine,
			Moderation: modFlow,
			Roles:      roleFlow,
			Store:      store,
			Media:      storage,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		utils.Component("api").Infof("listening on %s", settings.HTTP.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	utils.Component("main").Info("shut down gracefully")
	return nil
}

// openMedia selects durable media storage. GridFS shares the Mongo store's database.
func openMedia(cfg models.MediaSettings, store database.Store) (media.Storage, error) {
	switch cfg.Backend {
	case "gridfs":
		mongoStore, ok := store.(*database.MongoStore)
		if !ok {
			return nil, fmt.Errorf("gridfs media storage needs the mongo store driver")
		}
		bucket, err := media.NewGridFSStorage(mongoStore.Database(), cfg.Bucket, cfg.BaseURL)
		if err != nil {
			return nil, err
		}
		return bucket, nil
	case "", "disk":
		disk, err := media.NewDiskStorage(cfg.Dir, cfg.BaseURL)
		if err != nil {
			return nil, err
		}
		return disk, nil
	}
	return nil, fmt.Errorf("unsupported media backend %q", cfg.Backend)
}
