// Command todod runs the task daemon: the task store, its periodic
// evaluators, and the JSON HTTP API the presentation layer consumes.
package main

import (
	"context"
	"flag"
	"net/http"
	"os"

	"github.com/charmbracelet/log"

	"github.com/nhle/daily-todo/internal/model"
	"github.com/nhle/daily-todo/internal/notify"
	"github.com/nhle/daily-todo/internal/sched"
	"github.com/nhle/daily-todo/internal/store"
	"github.com/nhle/daily-todo/internal/todo"
)

func main() {
	configPath := flag.String("config", model.DefaultConfigPath(), "path to config file")
	flag.Parse()

	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Prefix:          "todod",
	})

	cfg, err := model.LoadDaemonConfig(*configPath)
	if err != nil {
		logger.Fatal("loading config", "err", err)
	}

	kv, err := store.NewSQLiteKV(cfg.DBPath)
	if err != nil {
		logger.Fatal("opening store", "err", err)
	}
	defer kv.Close()

	var notifier notify.Notifier = notify.Nop{}
	if cfg.RelayURL != "" {
		notifier = notify.NewRelayNotifier(cfg.RelayURL)
	} else {
		logger.Warn("no relay configured, notifications disabled")
	}

	s, err := todo.New(context.Background(), kv, notifier, logger)
	if err != nil {
		logger.Fatal("loading task store", "err", err)
	}
	defer s.Flush()

	scheduler := sched.New(s, logger)
	scheduler.Start()
	defer scheduler.Stop()

	handler := todo.NewHandler(s, logger)

	logger.Info("task daemon listening", "addr", cfg.ListenAddr, "db", cfg.DBPath)
	if err := http.ListenAndServe(cfg.ListenAddr, handler.Routes()); err != nil {
		logger.Fatal("server stopped", "err", err)
	}
}
