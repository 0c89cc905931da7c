package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/manujcode/lose-and-found/internal/access"
	"github.com/manujcode/lose-and-found/internal/api"
	"github.com/manujcode/lose-and-found/internal/auth"
	"github.com/manujcode/lose-and-found/internal/blob"
	"github.com/manujcode/lose-and-found/internal/cache"
	"github.com/manujcode/lose-and-found/internal/config"
	"github.com/manujcode/lose-and-found/internal/db"
	"github.com/manujcode/lose-and-found/internal/events"
	"github.com/manujcode/lose-and-found/internal/metrics"
	"github.com/manujcode/lose-and-found/internal/service"
	"github.com/manujcode/lose-and-found/internal/store"
)

// levelRouter is a slog.Handler that routes INFO/WARN to stdout and ERROR+ to stderr.
type levelRouter struct {
	stdout slog.Handler
	stderr slog.Handler
}

func (lr *levelRouter) Enabled(_ context.Context, level slog.Level) bool {
	return level >= slog.LevelInfo
}

func (lr *levelRouter) Handle(ctx context.Context, r slog.Record) error {
	if r.Level >= slog.LevelError {
		return lr.stderr.Handle(ctx, r)
	}
	return lr.stdout.Handle(ctx, r)
}

func (lr *levelRouter) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &levelRouter{
		stdout: lr.stdout.WithAttrs(attrs),
		stderr: lr.stderr.WithAttrs(attrs),
	}
}

func (lr *levelRouter) WithGroup(name string) slog.Handler {
	return &levelRouter{
		stdout: lr.stdout.WithGroup(name),
		stderr: lr.stderr.WithGroup(name),
	}
}

// setupLogger configures structured logging. INFO/WARN go to stdout, ERROR goes
// to stderr. If logPath is non-empty, all levels are also written to that file.
// Returns a cleanup function that closes the log file (if opened).
func setupLogger(logPath string) (func(), error) {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}

	var cleanup func()

	stdoutW := io.Writer(os.Stdout)
	stderrW := io.Writer(os.Stderr)

	if logPath != "" {
		f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("opening log file: %w", err)
		}
		cleanup = func() { f.Close() }
		stdoutW = io.MultiWriter(os.Stdout, f)
		stderrW = io.MultiWriter(os.Stderr, f)
	}

	handler := &levelRouter{
		stdout: slog.NewTextHandler(stdoutW, opts),
		stderr: slog.NewTextHandler(stderrW, opts),
	}
	slog.SetDefault(slog.New(handler))
	return cleanup, nil
}

func main() {
	os.Exit(run())
}

func run() int {
	fs := flag.NewFlagSet("lostfound", flag.ContinueOnError)

	var configPath string
	fs.StringVar(&configPath, "config", "", "")
	fs.StringVar(&configPath, "c", "", "")

	var dsn string
	fs.StringVar(&dsn, "db", "", "")
	fs.StringVar(&dsn, "d", "", "")

	var addr string
	fs.StringVar(&addr, "addr", "", "")
	fs.StringVar(&addr, "a", "", "")

	var logPath string
	fs.StringVar(&logPath, "log", "", "")
	fs.StringVar(&logPath, "l", "", "")

	fs.Usage = func() {
		fmt.Fprint(os.Stdout, `Usage: lostfound [flags]

Flags:
  -c, -config <path>      config file (YAML, TOML or JSON; default: none)
  -d, -db <dsn>           database DSN, overrides database.dsn
  -a, -addr <host:port>   listen address, overrides addr (default: :8080)
  -l, -log <path>         log file path, overrides log.file
  -h, -help               show this help and exit

Settings can also be given as LOSTFOUND_* environment variables or in .env.
`)
	}

	if err := fs.Parse(os.Args[1:]); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 1
	}

	if fs.NArg() > 0 {
		fmt.Fprintf(os.Stderr, "unexpected argument: %s\n", fs.Arg(0))
		fs.Usage()
		return 1
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	if dsn != "" {
		cfg.Database.DSN = dsn
	}
	if addr != "" {
		cfg.Addr = addr
	}
	if logPath != "" {
		cfg.Log.File = logPath
	}

	// Set up structured logging: INFO/WARN → stdout, ERROR → stderr.
	// Optionally also write to a log file.
	closeLog, err := setupLogger(cfg.Log.File)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	if closeLog != nil {
		defer closeLog()
	}

	ctx := context.Background()

	database, err := db.Connect(ctx, cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		slog.Error("failed to open database", "driver", cfg.Database.Driver, "error", err)
		return 1
	}
	defer database.Close()

	// Ensure schema exists (idempotent).
	if err := db.EnsureSchema(ctx, database); err != nil {
		slog.Error("failed to ensure database schema", "error", err)
		return 1
	}
	slog.Info("database ready", "driver", cfg.Database.Driver)

	if err := bootstrapAdmin(ctx, database, cfg.Auth.AdminEmails); err != nil {
		slog.Error("failed to create admin account", "error", err)
		return 1
	}

	// Load JWT secret from database (auto-generated on first run).
	jwtSecret, err := store.GetJWTSecret(ctx, database)
	if err != nil {
		slog.Error("failed to get JWT secret", "error", err)
		return 1
	}

	blobs, err := blob.Open(ctx, blob.Config{
		Driver:          cfg.Storage.Driver,
		Root:            cfg.Storage.Root,
		Bucket:          cfg.Storage.Bucket,
		Region:          cfg.Storage.Region,
		Endpoint:        cfg.Storage.Endpoint,
		PathStyle:       cfg.Storage.PathStyle,
		AccessKeyID:     cfg.Storage.AccessKeyID,
		SecretAccessKey: cfg.Storage.SecretAccessKey,
	})
	if err != nil {
		slog.Error("failed to open image storage", "driver", cfg.Storage.Driver, "error", err)
		return 1
	}
	slog.Info("image storage ready", "driver", blobs.Driver())

	var oauth *auth.OAuth
	if cfg.OAuthEnabled() {
		oauth, err = auth.NewOAuth(auth.OAuthConfig{
			ClientID:     cfg.OAuth.Google.ClientID,
			ClientSecret: cfg.OAuth.Google.ClientSecret,
			RedirectURL:  cfg.OAuth.RedirectBase + "/api/auth/oauth/google/callback",
		}, auth.NewSessionStore([]byte(cfg.Auth.SessionKey), cfg.Auth.CookieSecure))
		if err != nil {
			slog.Error("failed to configure oauth", "error", err)
			return 1
		}
	} else {
		slog.Warn("oauth not configured, only local accounts can log in")
	}

	hub := events.NewHub()
	defer hub.Close()
	m := metrics.New()

	svc := &service.Service{
		DB:      database,
		Blobs:   blobs,
		Cache:   cache.New(cfg.Cache.Size, cfg.Cache.TTL),
		Events:  hub,
		Metrics: m,
	}
	gate := access.NewGate(cfg.Auth.AdminEmails, func(ctx context.Context, email string) (bool, error) {
		return store.GuardExists(ctx, database, email)
	})

	handler := api.NewRouter(api.Options{
		DB:           database,
		Service:      svc,
		Gate:         gate,
		Hub:          hub,
		Metrics:      m,
		JWTSecret:    jwtSecret,
		SessionTTL:   cfg.Auth.SessionTTL,
		CookieSecure: cfg.Auth.CookieSecure,
		OAuth:        oauth,
		SuccessURL:   cfg.OAuth.SuccessURL,
		FailureURL:   cfg.OAuth.FailureURL,
	})

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Graceful shutdown on SIGINT/SIGTERM.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-quit
		slog.Info("shutdown signal received", "signal", sig.String())

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		// Hijacked WebSocket connections are not tracked by Shutdown.
		hub.Close()
		if err := server.Shutdown(ctx); err != nil {
			slog.Error("server forced to shutdown", "error", err)
		}
	}()

	slog.Info("server started", "addr", cfg.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		return 1
	}

	slog.Info("server stopped, closing database")
	return 0
}

// bootstrapAdmin creates a local account for the first admin email when the
// database has no accounts yet, and prints its password once.
func bootstrapAdmin(ctx context.Context, database *db.DB, adminEmails []string) error {
	if len(adminEmails) == 0 {
		return nil
	}
	n, err := store.CountAccounts(ctx, database)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	password, err := auth.GeneratePassword(16)
	if err != nil {
		return err
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	account, err := store.CreateAccount(ctx, database, adminEmails[0], "Admin", hash)
	if err != nil {
		return fmt.Errorf("creating admin account: %w", err)
	}

	printInitResult(account.Email, password)
	return nil
}

// printInitResult prints the bootstrap account to stdout.
func printInitResult(email, password string) {
	fmt.Println("Admin account created:")
	fmt.Printf("  Email:    %s\n", email)
	fmt.Printf("  Password: %s\n", password)
	fmt.Println()
	fmt.Println("Save this password, it cannot be recovered.")
	fmt.Println("It can be changed after logging in.")
	fmt.Println()
}
