package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"remindbot/internal/config"
	"remindbot/internal/conversation"
	"remindbot/internal/freq"
	"remindbot/internal/notify"
	"remindbot/internal/reminder"
	"remindbot/internal/runtime/supervisor"
	"remindbot/internal/scheduler"
	"remindbot/internal/storage"
	"remindbot/internal/transport/telegram"
	"remindbot/pkg/logx"
	"remindbot/pkg/systemd"
)

func main() {
	var cfgPath string
	flag.StringVar(&cfgPath, "config", "./config.yaml", "path to config yaml")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfgPath); err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfgPath string) error {
	mgr := config.NewManager(cfgPath, logx.NewConsole("info"))
	cfg, err := mgr.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, logCloser, err := logx.New(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File:    logFile(cfg),
	})
	if err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	defer logCloser.Close()

	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	db, err := storage.Open(storage.Config{
		Path:        cfg.Storage.Path,
		BusyTimeout: cfg.BusyTimeout(),
	}, log.With(logx.String("comp", "storage")))
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer db.Close()

	sched := scheduler.New(loc, log.With(logx.String("comp", "scheduler")))
	sched.Start(ctx)
	defer sched.Stop()

	client, err := telegram.NewClient(telegram.Config{
		Token:       cfg.Telegram.Token,
		PollTimeout: cfg.PollTimeout(),
	})
	if err != nil {
		return fmt.Errorf("init telegram: %w", err)
	}

	sender := notify.New(client, notify.Config{
		RatePerSec: cfg.Notify.RatePerSec,
		Burst:      cfg.Notify.Burst,
	}, log.With(logx.String("comp", "notify")))

	svc := reminder.NewService(db, sched, sender, log.With(logx.String("comp", "reminder")))

	lex := freq.DefaultLexicon()
	nowIn := func() time.Time { return time.Now().In(loc) }
	flows := conversation.NewManager(svc, lex, nowIn, log.With(logx.String("comp", "conversation")))

	bot := telegram.New(client, svc, db, flows, loc, log.With(logx.String("comp", "telegram")))

	// Restore persisted reminders into the in-memory executor, then
	// keep records and jobs converged in the background.
	stats, err := svc.Reconcile(ctx)
	if err != nil {
		return fmt.Errorf("restore reminders: %w", err)
	}
	log.Info("reminders restored",
		logx.Int("checked", stats.Checked), logx.Int("rebuilt", stats.Rebuilt))
	sup := supervisor.New(ctx, log.With(logx.String("comp", "supervisor")))
	sup.Go("reconcile", func(c context.Context) error {
		svc.RunReconcileLoop(c, cfg.ReconcileInterval())
		return nil
	})

	// Config hot reload: only the delivery rate is retunable at
	// runtime, everything else applies on restart.
	updates := mgr.Subscribe(1)
	defer mgr.Unsubscribe(updates)
	sup.GoRestart("config.watch", mgr.Watch)
	sup.Go("config.apply", func(c context.Context) error {
		for {
			select {
			case <-c.Done():
				return nil
			case next := <-updates:
				if next == nil {
					return nil
				}
				sender.ApplyRate(next.Notify.RatePerSec, next.Notify.Burst)
				log.Info("config applied", logx.String("path", cfgPath))
			}
		}
	})
	sup.Go("watchdog", func(c context.Context) error {
		systemd.RunWatchdog(c, log)
		return nil
	})

	systemd.NotifyReady(log)
	defer systemd.NotifyStopping(log)

	bot.Start(ctx)

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer stopCancel()
	sup.Stop(stopCtx)
	return nil
}

func logFile(cfg *config.Config) string {
	if cfg.Logging.File.Enabled {
		return cfg.Logging.File.Path
	}
	return ""
}
