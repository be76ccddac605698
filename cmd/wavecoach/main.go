package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/ayusman/wavecoach/internal/app"
	"github.com/ayusman/wavecoach/internal/config"
	"github.com/ayusman/wavecoach/internal/hook"
	"github.com/ayusman/wavecoach/internal/logging"
	"github.com/ayusman/wavecoach/internal/metrics"
	"github.com/ayusman/wavecoach/internal/pose"
	"github.com/ayusman/wavecoach/internal/server"
	"github.com/ayusman/wavecoach/internal/store"
)

func main() {
	fmt.Println("wavecoach - arm wave repetition coach")

	env := flag.String("env", "development", "environment [dev | development | prod | production]")
	configPath := flag.String("config", "./config.toml", "path for the TOML config file")
	sourcePath := flag.String("source", "", "JSON-lines pose recording to analyze in a new session (- for stdin)")
	flag.Parse()

	cfg, err := config.Load(*env, *configPath)
	if err != nil {
		log.Fatalf("load config: %s", err)
	}

	logCloser := logging.Setup(logging.LoggerSetupParams{
		LogFileName:   cfg.LogsPath,
		LogToStdout:   cfg.LogToStdout,
		LogLevel:      cfg.LogLevel,
		LogFormatJSON: cfg.LogFormatJSON,
	})
	defer logCloser.Close()

	log.Warnf("---->> running in [%s] environment", cfg.Environment)

	if dir := filepath.Dir(cfg.DBPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.Fatalf("create data directory: %s", err)
		}
	}
	st, err := store.New(cfg.DBPath)
	if err != nil {
		log.Fatalf("open store: %s", err)
	}
	defer st.Close()
	log.Debugf("using database: [%s]", st.Path())

	promRegistry := metrics.SetupPrometheus()
	metricsManager := metrics.NewManager("wavecoach", "service", promRegistry)

	hooks := hook.NewRegistry(cfg.Hooks...)
	found, err := hooks.Discover(cfg.HooksDir)
	if err != nil {
		log.Errorf("discover hooks in %s: %s", cfg.HooksDir, err)
	}
	log.Infof("hooks: %d configured, %d discovered", len(cfg.Hooks), found)

	a, err := app.New(app.Config{
		Store:        st,
		Metrics:      metricsManager,
		Hooks:        hooks,
		HookExecutor: hook.NewExecutor(cfg.HookTimeoutMs),
		Defaults: app.SessionOptions{
			Side:      pose.Side(cfg.Analyzer.Side),
			Wave:      cfg.Analyzer.WaveConfig(),
			Smoothing: cfg.Analyzer.Smoothing,
		},
	})
	if err != nil {
		log.Fatalf("create app: %s", err)
	}

	srv := server.New(server.Config{
		StaticDir: cfg.StaticDir,
		App:       a,
		Gatherer:  promRegistry,
	})
	httpServer := &http.Server{
		Handler:           srv,
		Addr:              cfg.Addr(),
		ReadHeaderTimeout: 15 * time.Second,
	}

	chOsInterrupt := make(chan os.Signal, 1)
	signal.Notify(chOsInterrupt, os.Interrupt, syscall.SIGTERM)

	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		log.Infof(" > server listening on: [%s]", httpServer.Addr)
		err := httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	if *sourcePath != "" {
		go func() {
			if err := analyzeSource(ctx, a, *sourcePath); err != nil {
				log.Errorf("analyze %s: %s", *sourcePath, err)
			}
		}()
	}

	receivedSig := <-chOsInterrupt
	log.Warnf("signal [%s] received, shutting down ...", receivedSig)
	cancel()

	gracefulShutdown(httpServer, srv, a)
}

// analyzeSource replays a recording (or stdin) into a new session using the
// default session options.
func analyzeSource(ctx context.Context, a *app.App, path string) error {
	var r io.ReadCloser = os.Stdin
	name := "stdin"
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		r = f
		name = filepath.Base(path)
	}

	opts, err := a.Defaults()
	if err != nil {
		r.Close()
		return err
	}
	opts.Name = name

	session, err := a.StartSession(opts)
	if err != nil {
		r.Close()
		return err
	}

	// Run closes the source, which closes r.
	runErr := a.Run(ctx, session.ID, pose.NewStreamSource(r))
	if errors.Is(runErr, context.Canceled) {
		return nil
	}

	if err := a.EndSession(session.ID); err != nil {
		return err
	}
	summary, err := a.Summary(session.ID)
	if err != nil {
		return err
	}
	log.WithFields(log.Fields{
		"session":     session.ID,
		"repetitions": summary.Repetitions,
		"best":        fmt.Sprintf("%.1f", summary.BestPerformance),
		"mean":        fmt.Sprintf("%.1f", summary.MeanPerformance),
	}).Info("source analyzed")
	return runErr
}

func gracefulShutdown(httpServer *http.Server, srv *server.Server, a *app.App) {
	maxWaitDuration := time.Second * 10
	ctx, timeoutCancel := context.WithTimeout(context.Background(), maxWaitDuration)
	defer timeoutCancel()

	srv.Close()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Errorf(" >>> failed to gracefully shutdown http server: %s", err)
	}
	if err := a.Close(); err != nil {
		log.Errorf("close app: %s", err)
	}
	log.Warnln("server shut down")
}
