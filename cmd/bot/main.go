package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"voxelbot.ai/internal/agent/perception"
	"voxelbot.ai/internal/agent/session"
	"voxelbot.ai/internal/agent/supervisor"
	"voxelbot.ai/internal/config"
	"voxelbot.ai/internal/persistence/indexdb"
	jlog "voxelbot.ai/internal/persistence/log"
	"voxelbot.ai/internal/protocol"
	"voxelbot.ai/internal/transport/status"
)

func main() {
	var (
		cfgPath    = flag.String("config", "settings.yaml", "settings file (YAML)")
		statusAddr = flag.String("status_addr", "", "status listen address (overrides settings)")
		journalDir = flag.String("journal", "", "journal directory (overrides settings; empty disables)")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[bot] ", log.LstdFlags|log.Lmicroseconds)

	settings, err := config.Load(*cfgPath)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Printf("settings %s not found, using defaults", *cfgPath)
		} else {
			logger.Fatalf("settings: %v", err)
		}
	}
	if *statusAddr != "" {
		settings.Status.Addr = *statusAddr
	}
	if *journalDir != "" {
		settings.Journal.Dir = *journalDir
	}

	ctx, cancel := signalContext()
	defer cancel()

	journal, closeJournal := openJournal(settings.Journal, logger)
	defer closeJournal()

	go func() {
		if err := status.Serve(ctx, settings.Status.Addr, logger); err != nil {
			logger.Printf("status server: %v", err)
		}
	}()

	source := func() (config.Settings, error) {
		s, err := config.Load(*cfgPath)
		if err != nil && os.IsNotExist(err) {
			err = nil
		}
		return s, err
	}

	sup := supervisor.New(supervisor.Options{
		Config:  source,
		Connect: connector(logger),
		Journal: journal,
		Logger:  logger,
	})
	if err := sup.Run(ctx); err != nil {
		logger.Printf("supervisor: %v", err)
	}
	if ctx.Err() == nil {
		logger.Printf("bot offline; status endpoint still serving until signalled")
		<-ctx.Done()
	}
	logger.Printf("shutting down")
}

func connector(logger *log.Logger) supervisor.Connector {
	return func(ctx context.Context, s config.Settings) (supervisor.Conn, error) {
		version := s.Server.Version
		if !protocol.IsSupportedVersion(version) {
			logger.Printf("protocol version %q not supported, using %s", version, protocol.Version)
			version = protocol.Version
		}
		prefix := logger.Prefix() + "[session] "
		sessLog := log.New(logger.Writer(), prefix, logger.Flags())
		foods := perception.NewFoods(s.Utils.AutoEat.FoodList()...)
		conn, err := session.Dial(ctx, session.Config{
			URL:       s.WSURL(),
			AgentName: s.Account.Username,
			AuthType:  s.Account.Type,
			Token:     s.Account.Password,
			Version:   version,
		}, perception.NewStore(sessLog), foods, sessLog)
		if err != nil {
			return nil, err
		}
		return conn, nil
	}
}

// openJournal wires the JSONL journal and, when configured, the SQLite index.
func openJournal(cfg config.Journal, logger *log.Logger) (supervisor.Journal, func()) {
	var sinks supervisor.MultiJournal
	var closers []func() error
	if cfg.Dir != "" {
		jl := jlog.NewJournalLogger(cfg.Dir)
		sinks = append(sinks, jl)
		closers = append(closers, jl.Close)
		logger.Printf("journal: %s", filepath.Join(cfg.Dir, "journal"))
	}
	if cfg.SQLite != "" {
		idx, err := indexdb.OpenSQLite(cfg.SQLite)
		if err != nil {
			logger.Printf("journal index disabled: %v", err)
		} else {
			sinks = append(sinks, idx)
			closers = append(closers, idx.Close)
			logger.Printf("journal index: %s", cfg.SQLite)
		}
	}
	return sinks, func() {
		for _, c := range closers {
			_ = c()
		}
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}
