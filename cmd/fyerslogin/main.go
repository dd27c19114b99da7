package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/waabox/fyerslogin/internal/browser"
	"github.com/waabox/fyerslogin/internal/config"
	"github.com/waabox/fyerslogin/internal/server"
	"github.com/waabox/fyerslogin/internal/store"
	"github.com/waabox/fyerslogin/internal/tui"
)

// version is set at build time via -ldflags "-X main.version=x.y.z".
var version = "dev"

func main() {
	versionFlag := flag.Bool("version", false, "print version and exit")
	configPath := flag.String("config", config.DefaultConfigPath(), "path to the TOML config file")
	modeFlag := flag.String("mode", "", "exchange mode override: live or simulated")
	initFlag := flag.Bool("init", false, "write a default config file and exit")
	serveFlag := flag.Bool("serve", false, "run the local token server")
	noTUI := flag.Bool("no-tui", false, "log in with plain terminal prompts instead of the TUI")
	saveFlag := flag.Bool("save", false, "with -no-tui, save the token to the token file")
	logFile := flag.String("log-file", "", "write JSON logs to this file")
	flag.Parse()
	if *versionFlag {
		fmt.Println("fyerslogin", version)
		os.Exit(0)
	}

	if *initFlag {
		cfg := config.Default()
		cfg.Broker.SecretKey = ""
		if err := config.Save(*configPath, cfg); err != nil {
			fmt.Fprintf(os.Stderr, "error writing config: %v\n", err)
			os.Exit(1)
		}
		fmt.Fprintf(os.Stderr, "Config written to %s\n", *configPath)
		os.Exit(0)
	}

	cfg, err := config.LoadFrom(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error loading config: %v\n", err)
		os.Exit(1)
	}
	if *modeFlag != "" {
		cfg.Mode = *modeFlag
	}
	if *logFile != "" {
		cfg.LogFile = *logFile
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	// The TUI owns the terminal, so it only logs when a file is configured.
	logger, err := newLogger(cfg.LogFile, *serveFlag || *noTUI)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error creating logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	tokenStore := store.NewFileStore(cfg.TokenFileOrDefault())

	if *serveFlag {
		if err := runServer(cfg, tokenStore, logger); err != nil {
			logger.Error("token server failed", zap.Error(err))
			os.Exit(1)
		}
		return
	}

	sess, err := newSession(cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if *noTUI {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		token, err := promptLogin(ctx, sess, os.Stdin, os.Stderr, browser.Open)
		if err != nil {
			fmt.Fprintf(os.Stderr, "login failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(token.Value)
		if *saveFlag {
			if err := sess.Persist(tokenStore); err != nil {
				fmt.Fprintf(os.Stderr, "error saving token: %v\n", err)
				os.Exit(1)
			}
			fmt.Fprintf(os.Stderr, "Access token saved to %s\n", tokenStore.Path())
		}
		return
	}

	if err := tui.Run(sess, tokenStore, browser.Open); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// runServer serves the token endpoints until SIGINT or SIGTERM.
func runServer(cfg config.Config, tokenStore *store.FileStore, logger *zap.Logger) error {
	srv := server.New(tokenStore, server.Options{
		Addr:           cfg.ServerAddrOrDefault(),
		AllowedOrigins: cfg.CORSOrigins(),
		DevMode:        cfg.Server.DevMode,
	}, logger)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down token server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
