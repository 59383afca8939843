package main

import (
	"context"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/flowdeck/flowdeck/internal/autosave"
	"github.com/flowdeck/flowdeck/internal/editor"
	"github.com/flowdeck/flowdeck/internal/parserclient"
	"github.com/flowdeck/flowdeck/pkg/mcp"
)

func runServe(ctx context.Context, cfg Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	var parser editor.CodeParser
	if cfg.ParserURL != "" {
		parser = parserclient.New(parserclient.Config{
			BaseURL: cfg.ParserURL,
			Token:   cfg.ParserToken,
			Logger:  logger,
		})
	}

	// Editor sessions attached by embedders register here; the loop is a
	// no-op until then.
	saver, err := autosave.New(st, cfg.AutosaveSchedule, logger)
	if err != nil {
		return err
	}
	if err := saver.Start(ctx); err != nil {
		return err
	}
	defer func() { _ = saver.Stop(context.Background()) }()

	srv := mcp.NewFlowdeckServer(mcp.FlowdeckServerDeps{
		Store:  st,
		Parser: parser,
		Logger: logger,
	})

	logger.Info("serving flowdeck tools over stdio", "db_path", cfg.DBPath)
	return srv.Serve(ctx)
}
