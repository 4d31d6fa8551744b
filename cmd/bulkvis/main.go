// CLAUDE:SUMMARY bulkvis entry point: HTTP dashboard server, MCP stdio server, and one-shot export/keys commands.
package main

import (
	"context"
	"crypto/rand"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/bulkvis/config"
	"github.com/hazyhaar/bulkvis/export"
	"github.com/hazyhaar/bulkvis/observability"
	"github.com/hazyhaar/bulkvis/server"
	"github.com/hazyhaar/bulkvis/session"
	"github.com/hazyhaar/bulkvis/shield"
	"github.com/hazyhaar/bulkvis/source"
)

var version = "dev"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	setupLogging(env("LOG_LEVEL", "info"))

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var err error
	switch os.Args[1] {
	case "serve":
		err = cmdServe(ctx, os.Args[2:])
	case "mcp":
		err = cmdMCP(ctx, os.Args[2:])
	case "export":
		err = cmdExport(ctx, os.Args[2:])
	case "keys":
		err = cmdKeys(ctx, os.Args[2:])
	case "version":
		fmt.Println("bulkvis", version)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		slog.Error("bulkvis: "+os.Args[1]+" failed", "error", err, "kind", source.Kind(err))
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `bulkvis: browse nanopore bulk and read files

usage:
  bulkvis serve   [-config bulkvis.yaml]
  bulkvis mcp     [-config bulkvis.yaml]
  bulkvis export  [-config bulkvis.yaml] [-format fast5|pod5] [-o out] <location> <position>
  bulkvis keys    [-config bulkvis.yaml] <location>
  bulkvis version

serve   Runs the HTTP dashboard API.
mcp     Serves one session as MCP tools over stdio.
export  Writes the slice at <position> as a single-read file.
keys    Lists channels or read ids of <location>.

Locations are local paths, s3://bucket/key or https URLs.
`)
}

func env(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func setupLogging(level string) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	// stdout carries the MCP stream, logs go to stderr.
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
	slog.SetDefault(logger)
}

// loadConfig reads the YAML file when given (or BULKVIS_CONFIG), then applies
// environment overrides.
func loadConfig(fs *flag.FlagSet, args []string) (*config.Config, error) {
	path := fs.String("config", env("BULKVIS_CONFIG", ""), "YAML configuration file")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	cfg := config.DefaultConfig()
	if *path != "" {
		var err error
		if cfg, err = config.LoadConfig(*path); err != nil {
			return nil, err
		}
	}
	cfg.ApplyEnv(os.Getenv)
	return cfg, cfg.Validate()
}

func sessionConfig(cfg *config.Config, history *observability.History) session.Config {
	return session.Config{
		Source:    cfg.Source,
		CacheSize: cfg.Session.CacheSize,
		History:   history,
		Logger:    slog.Default(),
	}
}

func openHistory(ctx context.Context, cfg *config.Config) (*observability.History, error) {
	if cfg.HistoryDB == "" {
		return nil, nil
	}
	h, err := observability.Open(cfg.HistoryDB)
	if err != nil {
		return nil, err
	}
	if n, err := h.Cleanup(ctx, cfg.HistoryRetentionDays); err != nil {
		slog.Warn("history cleanup", "error", err)
	} else if n > 0 {
		slog.Info("history cleanup", "deleted", n)
	}
	return h, nil
}

func cmdServe(ctx context.Context, args []string) error {
	cfg, err := loadConfig(flag.NewFlagSet("serve", flag.ExitOnError), args)
	if err != nil {
		return err
	}

	history, err := openHistory(ctx, cfg)
	if err != nil {
		return err
	}
	defer history.Close()

	secret := []byte(cfg.Session.Secret)
	if len(secret) == 0 {
		secret = make([]byte, 32)
		rand.Read(secret)
		slog.Warn("no session secret configured, sessions will not survive a restart")
	}

	reg, err := session.NewRegistry(sessionConfig(cfg, history), session.WithIdleTTL(cfg.Session.IdleTimeout))
	if err != nil {
		return err
	}
	defer reg.Close()

	srv := server.New(server.Config{
		Registry:      reg,
		History:       history,
		Secret:        secret,
		CookieTTL:     cfg.Session.TTL,
		SecureCookies: cfg.Session.SecureCookies,
		PlotWidth:     cfg.Plot.Width,
		PlotHeight:    cfg.Plot.Height,
		Shield:        shield.Options{MaxBody: cfg.MaxBodyBytes(), Limits: cfg.RateLimits},
		Logger:        slog.Default(),
		Version:       version,
	})

	httpSrv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           srv,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		slog.Info("bulkvis listening", "addr", cfg.Listen, "version", version)
		errc <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		slog.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
	}
	return nil
}

func cmdMCP(ctx context.Context, args []string) error {
	cfg, err := loadConfig(flag.NewFlagSet("mcp", flag.ExitOnError), args)
	if err != nil {
		return err
	}
	history, err := openHistory(ctx, cfg)
	if err != nil {
		return err
	}
	defer history.Close()

	sess, err := session.New("mcp", sessionConfig(cfg, history))
	if err != nil {
		return err
	}
	defer sess.Close()

	srv := mcp.NewServer(&mcp.Implementation{Name: "bulkvis", Version: version}, nil)
	session.RegisterMCP(srv, sess)
	slog.Info("bulkvis MCP server on stdio", "version", version)
	if err := srv.Run(ctx, &mcp.StdioTransport{}); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func cmdExport(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	formatFlag := fs.String("format", "fast5", "output format: fast5 or pod5")
	out := fs.String("o", "", "output file (default signal.<format>)")
	cfg, err := loadConfig(fs, args)
	if err != nil {
		return err
	}
	if fs.NArg() != 2 {
		return fmt.Errorf("export requires <location> <position>")
	}
	format, err := export.ParseFormat(*formatFlag)
	if err != nil {
		return err
	}

	sess, err := session.New("cli", sessionConfig(cfg, nil))
	if err != nil {
		return err
	}
	defer sess.Close()

	v, err := sess.Load(ctx, fs.Arg(0), fs.Arg(1))
	if err != nil {
		return err
	}
	data, name, err := sess.Download(ctx, format)
	if err != nil {
		return err
	}
	if *out != "" {
		name = *out
	}
	if err := os.WriteFile(name, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	fmt.Fprintf(os.Stderr, "wrote %s: %s, %d samples, %d bytes\n", name, v.Label, len(v.Slice.Raw), len(data))
	return nil
}

func cmdKeys(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("keys", flag.ExitOnError)
	cfg, err := loadConfig(fs, args)
	if err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("keys requires <location>")
	}
	s, err := source.Open(ctx, fs.Arg(0), cfg.Source)
	if err != nil {
		return err
	}
	defer s.Close()

	keys, err := s.Keys()
	if err != nil {
		return err
	}
	for _, k := range keys {
		fmt.Println(k)
	}
	return nil
}
