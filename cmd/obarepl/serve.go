package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/KilimcininKorOglu/obarepl/internal/config"
	"github.com/KilimcininKorOglu/obarepl/internal/logging"
	"github.com/KilimcininKorOglu/obarepl/internal/replication/assured"
	"github.com/KilimcininKorOglu/obarepl/internal/replication/protocol"
	"github.com/KilimcininKorOglu/obarepl/internal/replication/session"
)

const (
	defaultEnvFile  = ".env"
	shutdownTimeout = 10 * time.Second
)

// serveOverrides holds the command line values that take precedence over
// the configuration file.
type serveOverrides struct {
	address  string
	serverID int
	logLevel string
}

func serveCmd(args []string) int {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	configFile := fs.String("config", "", "Path to configuration file")
	envFile := fs.String("env-file", defaultEnvFile, "Environment file")
	var o serveOverrides
	fs.StringVar(&o.address, "address", "", "Replication listen address")
	fs.IntVar(&o.serverID, "server-id", 0, "Replication server ID")
	fs.StringVar(&o.logLevel, "log-level", "", "Log level")
	help := fs.Bool("h", false, "Show help message")
	helpLong := fs.Bool("help", false, "Show help message")

	if err := fs.Parse(args); err != nil {
		return 1
	}
	if *help || *helpLong {
		printServeUsage(os.Stdout)
		return 0
	}

	if err := loadEnvFile(*envFile); err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to load %s: %v\n", *envFile, err)
		return 1
	}

	cfg, err := loadServeConfig(*configFile, o)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	if errs := config.ValidateConfig(cfg); len(errs) > 0 {
		fmt.Fprintln(os.Stderr, "Error: invalid configuration:")
		for _, e := range errs {
			fmt.Fprintf(os.Stderr, "  %v\n", e)
		}
		return 1
	}

	logger := logging.New(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := serve(ctx, cfg, *configFile, logger); err != nil {
		logger.Error("replication server stopped", "error", err)
		return 1
	}
	logger.Info("replication server stopped")
	return 0
}

// loadEnvFile loads path into the environment. A missing default file is
// not an error.
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) && path == defaultEnvFile {
		return nil
	}
	return godotenv.Load(path)
}

func loadServeConfig(path string, o serveOverrides) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if path != "" {
		var err error
		cfg, err = config.LoadConfig(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}
	applyOverrides(cfg, o)
	return cfg, nil
}

func applyOverrides(cfg *config.Config, o serveOverrides) {
	if o.address != "" {
		cfg.Replication.Address = o.address
	}
	if o.serverID != 0 {
		cfg.Replication.ServerID = o.serverID
	}
	if o.logLevel != "" {
		cfg.Logging.Level = o.logLevel
	}
}

// serve runs the replication listener and the metrics server until ctx is
// done or one of them fails.
func serve(ctx context.Context, cfg *config.Config, configFile string, logger logging.Logger) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	sessionMetrics := session.NewMetrics(reg)

	acks := assured.NewWaitingAcks(cfg.Assured.Timeout, logger.WithFields(logging.FieldComponent, "assured"), assured.NewMetrics(reg))
	defer acks.Close()

	rs := newReplServer(cfg, logger, sessionMetrics, acks)

	ln, err := session.Listen(cfg.Replication.Address,
		protocol.Version(cfg.Replication.ProtocolVersion),
		rs.respond,
		logger.WithFields(logging.FieldComponent, "listener"),
		session.WithMetrics(sessionMetrics))
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", cfg.Replication.Address, err)
	}

	if configFile != "" {
		w, err := config.NewWatcher(&config.WatcherConfig{
			FilePath: configFile,
			OnChange: rs.reload,
			Logger:   logger,
		})
		if err != nil {
			logger.Warn("config watcher disabled", "error", err)
		} else {
			w.Start()
			defer w.Stop()
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return ln.Serve(gctx, rs.handle)
	})

	if cfg.Metrics.Enabled {
		var probe func(context.Context) error
		if cfg.LDAP.Address != "" {
			probe = ldapProbe(cfg.LDAP.Address, cfg.LDAP.MaxElementSize, logger.WithFields(logging.FieldComponent, "ldap-probe"))
		}
		srv := &http.Server{
			Addr:              cfg.Metrics.Address,
			Handler:           newRouter(reg, rs, probe),
			ReadHeaderTimeout: 5 * time.Second,
		}
		g.Go(func() error {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	logger.Info("replication server started",
		logging.FieldServerID, cfg.Replication.ServerID,
		"address", ln.Addr().String(),
		"baseDN", cfg.Replication.BaseDN,
		"protocolVersion", cfg.Replication.ProtocolVersion,
		"metrics", cfg.Metrics.Enabled)

	return g.Wait()
}
