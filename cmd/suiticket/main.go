// Package main provides the entry point for the SuiTicket Companion.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/graaaaa/suiticket-companion/internal/api"
	"github.com/graaaaa/suiticket-companion/internal/app"
	"github.com/graaaaa/suiticket-companion/internal/appinfo"
	"github.com/graaaaa/suiticket-companion/internal/config"
	"github.com/graaaaa/suiticket-companion/internal/derive"
	"github.com/graaaaa/suiticket-companion/internal/finality"
	"github.com/graaaaa/suiticket-companion/internal/ingest"
	"github.com/graaaaa/suiticket-companion/internal/ledger/rpc"
	"github.com/graaaaa/suiticket-companion/internal/model"
	"github.com/graaaaa/suiticket-companion/internal/namecache"
	"github.com/graaaaa/suiticket-companion/internal/notify"
	"github.com/graaaaa/suiticket-companion/internal/reconcile"
	"github.com/graaaaa/suiticket-companion/internal/singleinstance"
	"github.com/graaaaa/suiticket-companion/internal/store"
	"github.com/graaaaa/suiticket-companion/internal/version"
)

func main() {
	// 1. Flags. Values left unset fall through to env and config.
	flags := pflag.NewFlagSet("suiticket", pflag.ExitOnError)
	port := flags.Int("port", 0, "HTTP server port")
	rpcURL := flags.String("rpc-url", "", "Sui fullnode JSON-RPC URL")
	owner := flags.String("owner", "", "account address to sync")
	packageID := flags.String("package-id", "", "ticketing package id")
	configPath := flags.String("config", "", "path to config.json")
	showVersion := flags.Bool("version", false, "print version and exit")
	flags.Parse(os.Args[1:])

	if *showVersion {
		fmt.Printf("%s %s\n", appinfo.AppName, version.String())
		return
	}

	// 2. Single instance check (flock on POSIX, named mutex on Windows)
	paths, err := config.ResolvePaths()
	if err != nil {
		log.Fatalf("Failed to resolve data directory: %v", err)
	}
	if err := paths.Ensure(); err != nil {
		log.Fatalf("Failed to ensure data directory: %v", err)
	}
	release, ok, err := singleinstance.AcquireLock(paths.Lock())
	if err != nil {
		log.Fatalf("Failed to acquire lock: %v", err)
	}
	if !ok {
		log.Println("Another instance is already running")
		os.Exit(1)
	}
	defer release()

	// 3. Load configuration: flags > env (.env included) > file > defaults
	if err := config.LoadDotEnv(".env", paths.Env()); err != nil {
		log.Printf("Warning: %v", err)
	}
	if *configPath == "" {
		*configPath = paths.Config()
	}
	secretsPath := paths.Secrets()
	cfg, _ := config.LoadConfigFrom(*configPath)
	cfg = config.ApplyEnvOverrides(cfg)
	if *port != 0 {
		cfg.Port = *port
	}
	if *rpcURL != "" {
		cfg.RPCURL = *rpcURL
	}
	if *owner != "" {
		cfg.OwnerAddress = model.NormalizeID(*owner)
	}
	if *packageID != "" {
		cfg.PackageID = model.NormalizeID(*packageID)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: parseLevel(cfg.LogLevel)}))
	slog.SetDefault(logger)

	secrets := loadSecrets(paths, cfg.LanEnabled)

	// 4. Open SQLite store, then compact and prune the journal
	db, err := store.Open(paths.Database(), store.WithLogger(logger))
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if _, err := db.VacuumIfNeeded(ctx); err != nil {
		logger.Warn("vacuum failed", "error", err)
	}
	cutoff := time.Now().AddDate(0, 0, -cfg.JournalRetentionDays)
	if n, err := db.PruneActions(ctx, cutoff); err != nil {
		logger.Warn("journal prune failed", "error", err)
	} else if n > 0 {
		logger.Info("pruned journal", "removed", n, "retention_days", cfg.JournalRetentionDays)
	}

	// 5. Ledger gateway and finality poller
	gw, err := rpc.NewGateway(rpc.Config{
		URL:             cfg.RPCURL,
		Logger:          logger,
		WaitForFinality: cfg.FinalityMode == config.FinalityWait,
	})
	if err != nil {
		log.Fatalf("Failed to create ledger client: %v", err)
	}
	poller := finality.New(gw, finality.WithLogger(logger))

	// 6. Shared state, SSE hub, and notifier
	state := derive.New()
	snapshotService := app.SnapshotService{State: state}

	hub := api.NewHub(api.WithHubLogger(logger))
	go hub.Run()

	publishSnapshot := func() {
		hub.PublishSnapshot(snapshotService.Current(ctx))
	}

	var notifier *notify.Notifier
	if !secrets.DiscordWebhookURL.IsEmpty() {
		sender := notify.NewDiscordSender(secrets.DiscordWebhookURL, notify.WithSenderLogger(logger))
		notifier = notify.NewNotifier(sender, cfg.DiscordBatchSec, notify.FilterConfig{
			NotifyOnSuccess: cfg.NotifyOnSuccess,
			NotifyOnFailure: cfg.NotifyOnFailure,
		}, notify.WithNotifierLogger(logger))
		go notifier.Run(ctx)
		log.Println("Discord notifications enabled")
	} else {
		log.Println("Discord webhook not configured, notifications disabled")
	}

	// 7. Owned-set sync runner, seeded from the cached snapshot
	synchronizer := ingest.NewSynchronizer(gw, cfg.PackageID,
		ingest.WithLogger(logger),
		ingest.WithMalformedSink(db),
	)
	runner := ingest.NewRunner(synchronizer, cfg.OwnerAddress, time.Duration(cfg.SyncIntervalSec)*time.Second,
		ingest.WithStore(db),
		ingest.WithRunnerLogger(logger),
		ingest.WithOnSnapshot(func(snap *model.Snapshot, fp string) {
			if c := state.Replace(snap, fp); c != nil {
				publishSnapshot()
			}
		}),
	)
	snapshotService.Syncer = runner
	if cfg.OwnerAddress != "" {
		cached, err := db.LoadSnapshot(ctx, cfg.OwnerAddress, cfg.PackageID)
		switch {
		case err == nil:
			state.Replace(cached.Snapshot, cached.Fingerprint)
			runner.Seed(cached.Snapshot, cached.Fingerprint)
			logger.Info("restored cached snapshot", "owner", cfg.OwnerAddress, "updated_at", cached.UpdatedAt)
		case !errors.Is(err, store.ErrNotFound):
			logger.Warn("failed to load cached snapshot", "error", err)
		}
	} else {
		log.Println("Owner address not configured; sync is idle until one is set")
	}

	// 8. Reconciliation engine
	engine := reconcile.New(gw, poller, state, cfg.PackageID,
		reconcile.WithOwner(cfg.OwnerAddress),
		reconcile.WithResyncer(runner),
		reconcile.WithJournal(db),
		reconcile.WithLogger(logger),
		reconcile.WithNarrator(reconcile.NarratorFunc(func(n reconcile.Narration) {
			hub.PublishStatus(n)
		})),
		reconcile.WithOnChange(func(*derive.Change) { publishSnapshot() }),
		reconcile.WithOnSettled(func(rep reconcile.Report) {
			if notifier != nil {
				notifier.Enqueue(&rep)
			}
		}),
	)

	go func() {
		if err := runner.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("sync runner error", "error", err)
		}
	}()

	// 9. Determine bind address
	host := "127.0.0.1"
	if cfg.LanEnabled {
		host = "0.0.0.0"
	}
	addr := net.JoinHostPort(host, fmt.Sprint(cfg.Port))

	// Build dependencies
	resolver := namecache.NewResolver(gw, namecache.NewCache(namecache.DefaultCapacity), logger)
	health := app.HealthService{
		Version:   version.String(),
		Network:   cfg.Network,
		OwnerFunc: engine.Owner,
		PackageID: cfg.PackageID,
	}
	if notifier != nil {
		health.NotifyFunc = notifier.State
	}

	serverOpts := []api.ServerOption{
		api.WithSnapshotUsecase(snapshotService),
		api.WithActionsUsecase(&app.ActionsService{Engine: engine, Store: db}),
		api.WithEventsUsecase(&app.EventsService{
			Reader:     engine,
			Resolver:   resolver,
			Recent:     db,
			Gateway:    gw,
			RegistryID: cfg.RegistryID,
			Logger:     logger,
		}),
		api.WithPrefsUsecase(&app.PrefsService{Store: db}),
		api.WithStatsUsecase(app.NewStatsService(db)),
		api.WithConfigUsecase(app.ConfigService{
			ConfigPath:  *configPath,
			SecretsPath: secretsPath,
			OwnerChanged: func(owner string) {
				logger.Info("owner changed", "owner", owner)
				state.Clear()
				engine.SetOwner(owner)
				runner.SetOwner(owner)
			},
		}),
		api.WithHub(hub),
		api.WithSSESecret([]byte(secrets.SSESigningKey.Value())),
	}

	if len(cfg.AllowedOrigins) > 0 {
		serverOpts = append(serverOpts,
			api.WithCORS(api.CORSConfig{AllowedOrigins: cfg.AllowedOrigins, AllowCredentials: cfg.LanEnabled}),
			api.WithAllowedHosts(originHosts(cfg.AllowedOrigins)...),
		)
	}

	var rateLimiter *api.RateLimiter
	if cfg.LanEnabled {
		// Credentials are guaranteed by EnsureLanAuth
		rateLimiter = api.NewRateLimiter(api.DefaultRateLimiterConfig())
		serverOpts = append(serverOpts,
			api.WithBasicAuth(secrets.BasicAuthUsername, secrets.BasicAuthPassword.Value()),
			api.WithAuthFailureLimiter(api.NewAuthFailureLimiter(api.DefaultAuthFailureLimiterConfig())),
			api.WithRateLimiter(rateLimiter),
			api.WithAllowedHosts(lanHosts()...),
		)
		log.Println("Basic Auth enabled for LAN mode")
	}

	server := api.NewServer(addr, health, serverOpts...)

	// Graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Starting %s v%s on %s (data: %s)", appinfo.AppName, version.String(), addr, paths.Dir)
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-done:
		log.Println("Shutting down...")
	case err := <-errCh:
		log.Printf("Server error: %v", err)
		os.Exit(1)
	}

	// Stop the sync runner first; this also ends the notifier's run loop
	cancel()

	if notifier != nil {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), 3*time.Second)
		if err := notifier.Stop(stopCtx); err != nil {
			log.Printf("Notifier stop error: %v", err)
		}
		stopCancel()
	}

	// Stop SSE hub (closes all subscriber channels)
	hub.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	log.Println("Server stopped")
}

// loadSecrets loads secrets and fills in generated credentials. A secrets
// file that failed to parse is never overwritten.
func loadSecrets(paths config.Paths, lanEnabled bool) config.Secrets {
	path := paths.Secrets()
	secrets, status, err := config.LoadSecretsFrom(path)
	if err != nil {
		log.Printf("Warning: %v", err)
	}

	updated, generatedPw := config.EnsureLanAuth(&secrets, lanEnabled)
	keyUpdated, err := config.EnsureSSEKey(&secrets)
	if err != nil {
		log.Fatalf("Failed to ensure SSE signing key: %v", err)
	}
	updated = updated || keyUpdated

	if !updated {
		return secrets
	}
	if status == config.SecretsFallback {
		log.Println("WARNING: Secrets file has errors; new credentials not saved to avoid data loss")
		log.Println("Please fix or delete secrets.json and restart")
		return secrets
	}
	if err := config.SaveSecretsTo(secrets, path); err != nil {
		log.Fatalf("Failed to save secrets: %v", err)
	}
	if generatedPw != "" {
		pwPath := paths.PasswordFile()
		if err := config.WritePasswordFile(pwPath, secrets.BasicAuthUsername, generatedPw); err != nil {
			log.Printf("Warning: failed to write password file: %v", err)
			log.Println("=== GENERATED BASIC AUTH CREDENTIALS ===")
			log.Printf("Username: %s", secrets.BasicAuthUsername)
			log.Printf("Password: %s", generatedPw)
			log.Println("=========================================")
		} else {
			log.Println("=== BASIC AUTH CREDENTIALS GENERATED ===")
			log.Printf("Credentials saved to: %s", pwPath)
			log.Println("Delete this file after saving the credentials!")
			log.Println("=========================================")
		}
	}
	return secrets
}

func parseLevel(s string) slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

// originHosts returns the host part of each validated origin.
func originHosts(origins []string) []string {
	hosts := make([]string, 0, len(origins))
	for _, o := range origins {
		if u, err := url.Parse(o); err == nil {
			hosts = append(hosts, u.Host)
		}
	}
	return hosts
}

// lanHosts lists this machine's unicast addresses so LAN clients pass the
// CSRF origin check.
func lanHosts() []string {
	hosts := []string{}
	if name, err := os.Hostname(); err == nil {
		hosts = append(hosts, name)
	}
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return hosts
	}
	for _, a := range addrs {
		if ipn, ok := a.(*net.IPNet); ok && !ipn.IP.IsLoopback() {
			hosts = append(hosts, ipn.IP.String())
		}
	}
	return hosts
}
