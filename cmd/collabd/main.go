package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/amoylab/snipcollab/internal/apiserver/database"
	"github.com/amoylab/snipcollab/internal/apiserver/handler"
	"github.com/amoylab/snipcollab/internal/apiserver/middleware"
	"github.com/amoylab/snipcollab/internal/audit"
	"github.com/amoylab/snipcollab/internal/auth/jwt"
	"github.com/amoylab/snipcollab/internal/collab"
	"github.com/amoylab/snipcollab/internal/collab/session"
	"github.com/amoylab/snipcollab/internal/common/config"
	"github.com/amoylab/snipcollab/internal/i18n"
	"github.com/amoylab/snipcollab/internal/snippet"
	"github.com/amoylab/snipcollab/pkg/helper"
	"github.com/amoylab/snipcollab/pkg/logger"
	"github.com/amoylab/snipcollab/pkg/metrics"
	"github.com/amoylab/snipcollab/pkg/trace"
	"github.com/amoylab/snipcollab/pkg/utils"
	"github.com/amoylab/snipcollab/pkg/version"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"
	"golang.org/x/sys/unix"
	"gorm.io/gorm"
)

var (
	configPath string

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of collabd",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("collabd version %s\n", version.Build())
		},
	}

	sweepCmd = &cobra.Command{
		Use:   "sweep",
		Short: "Delete expired collaboration sessions once and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			return sweep(cmd.Context())
		},
	}

	stopCmd = &cobra.Command{
		Use:   "stop",
		Short: "Stop a running collabd through its pid file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := config.LoadConfig(configPath)
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			return utils.NewPIDFile(helper.PIDPath(cfg.PID)).Signal(unix.SIGTERM)
		},
	}

	rootCmd = &cobra.Command{
		Use:   "collabd",
		Short: "Snippet collaboration server",
		Long:  `collabd hosts real-time collaboration sessions on code snippets`,
		Run: func(cmd *cobra.Command, args []string) {
			run()
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "conf", "c", "collabd.yaml", "path to configuration file")
	rootCmd.AddCommand(versionCmd, sweepCmd, stopCmd)
}

// app holds everything both the server and the one-shot sweep need
type app struct {
	cfg      *config.CollabdConfig
	logger   *zap.Logger
	db       *gorm.DB
	sessions session.Store
	manager  *collab.Manager
	metrics  *metrics.Metrics
}

func setup() (*app, error) {
	cfg, cfgPath, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration from %s: %w", cfgPath, err)
	}

	lg, err := logger.NewService(&cfg.Logger, "collabd", version.Get())
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	lg.Info("Loaded configuration", zap.String("path", cfgPath))

	if err := i18n.InitTranslator(cfg.I18n.Path); err != nil {
		lg.Warn("Failed to load translations, falling back to message ids",
			zap.String("path", cfg.I18n.Path),
			zap.Error(err))
	}

	db, err := database.Open(lg, &cfg.Database)
	if err != nil {
		return nil, err
	}

	snippets, err := snippet.NewDBStore(lg, db)
	if err != nil {
		_ = database.Close(db)
		return nil, err
	}

	dbSink, err := audit.NewDBSink(db)
	if err != nil {
		_ = database.Close(db)
		return nil, err
	}

	sessions, err := session.NewStore(lg, &cfg.Session, db)
	if err != nil {
		_ = database.Close(db)
		return nil, err
	}

	a := &app{cfg: cfg, logger: lg, db: db, sessions: sessions}

	options := []collab.Option{
		collab.WithAudit(audit.Multi{dbSink, audit.NewZapSink(lg)}),
	}
	if cfg.Metrics.Enabled {
		a.metrics = metrics.New(cfg.Metrics)
		options = append(options, collab.WithObserver(a.metrics))
	}
	a.manager = collab.NewManager(lg, sessions, snippets, collab.OptionsFromConfig(cfg.Collaboration), options...)
	return a, nil
}

func (a *app) close() {
	if err := a.sessions.Close(); err != nil {
		a.logger.Warn("Failed to close session store", zap.Error(err))
	}
	if err := database.Close(a.db); err != nil {
		a.logger.Warn("Failed to close database", zap.Error(err))
	}
	_ = a.logger.Sync()
}

func sweep(ctx context.Context) error {
	a, err := setup()
	if err != nil {
		return err
	}
	defer a.close()

	deleted := a.manager.SweepExpired(ctx)
	a.logger.Info("Sweep finished", zap.Int("deleted", deleted))
	return nil
}

func run() {
	a, err := setup()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer a.close()
	lg, cfg := a.logger, a.cfg

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Tracing.Enabled {
		shutdown, err := trace.InitTracing(ctx, &cfg.Tracing, lg)
		if err != nil {
			lg.Fatal("Failed to initialize tracing", zap.Error(err))
		}
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(sctx); err != nil {
				lg.Warn("Failed to flush traces", zap.Error(err))
			}
		}()
	}

	jwtService, err := jwt.NewService(cfg.JWT)
	if err != nil {
		lg.Fatal("Failed to create jwt service", zap.Error(err))
	}

	pidFile := utils.NewPIDFile(helper.PIDPath(cfg.PID))
	if cfg.PID != "" {
		if err := pidFile.Write(); err != nil {
			lg.Fatal("Failed to write pid file", zap.String("path", pidFile.Path()), zap.Error(err))
		}
		defer func() {
			if err := pidFile.Remove(); err != nil {
				lg.Warn("Failed to remove pid file", zap.Error(err))
			}
		}()
	}

	if cfg.Collaboration.CleanupEnabled {
		runner := collab.NewRunner(lg, a.manager, cfg.Collaboration.CleanupInterval)
		runner.Start(ctx)
		defer runner.Stop()
	}

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.Tracing.Enabled {
		name := cfg.Tracing.ServiceName
		if name == "" {
			name = "collabd"
		}
		r.Use(otelgin.Middleware(name))
	}
	r.Use(middleware.RequestID(), i18n.LanguageMiddleware())
	if a.metrics != nil {
		r.Use(a.metrics.Middleware())
		r.GET(cfg.Metrics.Path, gin.WrapH(a.metrics.Handler()))
	}

	r.GET("/health", handler.HandleHealth)
	r.GET("/api/info", handler.HandleServiceInfo(cfg.Session.Type))
	handler.NewCollaboration(lg, a.manager, cfg.Collaboration.CleanupKey).
		RegisterRoutes(r, middleware.JWTAuthMiddleware(lg, jwtService))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		lg.Info("Starting collabd", zap.String("version", version.Get()), zap.Int("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			lg.Error("Server stopped unexpectedly", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	lg.Info("Shutting down collabd")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		lg.Error("Failed to shut down server", zap.Error(err))
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
