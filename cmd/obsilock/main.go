package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logger"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/obsilock/obsilock/internal/config"
	"github.com/obsilock/obsilock/internal/db"
	"github.com/obsilock/obsilock/internal/filestore"
	"github.com/obsilock/obsilock/internal/handler"
	"github.com/obsilock/obsilock/internal/job"
	"github.com/obsilock/obsilock/internal/pkg/filecrypt"
	"github.com/obsilock/obsilock/internal/repo"
	"github.com/obsilock/obsilock/internal/schedule"
	"github.com/obsilock/obsilock/internal/service"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "obsilock",
		Short: "obsilock vault server",
	}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run obsilock server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if configPath == "" {
				return fmt.Errorf("--config is required")
			}
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			logger.Init(
				cfg.LogConfig.File,
				cfg.LogConfig.Level,
				int(cfg.LogConfig.FileCount),
				int(cfg.LogConfig.FileSize),
				int(cfg.LogConfig.KeepDays),
				cfg.LogConfig.Console,
			)
			logutil.GetLogger(context.Background()).Info("config loaded", zap.String("config", configPath))

			conn, err := db.Open(cfg.Database)
			if err != nil {
				return fmt.Errorf("open db: %w", err)
			}
			if err := db.ApplyMigrations(conn); err != nil {
				return fmt.Errorf("migrations: %w", err)
			}
			return runServer(cfg, conn)
		},
	}

	runCmd.Flags().StringVar(&configPath, "config", "", "path to config.json")
	rootCmd.AddCommand(runCmd)

	if err := rootCmd.Execute(); err != nil {
		logutil.GetLogger(context.Background()).Fatal("startup error", zap.Error(err))
	}
}

func runServer(cfg *config.Config, conn *sql.DB) error {
	logutil.GetLogger(context.Background()).Info(
		"starting server",
		zap.Int("port", cfg.Port),
		zap.String("file_store", cfg.FileStore.Type),
	)

	masterKey, err := cfg.MasterKeyBytes()
	if err != nil {
		return err
	}
	engine, err := filecrypt.NewEngine(masterKey)
	if err != nil {
		return fmt.Errorf("init encryption engine: %w", err)
	}
	store, err := filestore.New(cfg.FileStore)
	if err != nil {
		return fmt.Errorf("init file store: %w", err)
	}

	userRepo := repo.NewUserRepo(conn)
	folderRepo := repo.NewFolderRepo(conn)
	fileRepo := repo.NewFileRepo(conn)
	versionRepo := repo.NewVersionRepo(conn)
	shareRepo := repo.NewShareRepo(conn)
	logRepo := repo.NewDownloadLogRepo(conn)

	jwtSecret := []byte(cfg.JWTSecret)
	authService := service.NewAuthService(userRepo, jwtSecret, time.Hour*time.Duration(cfg.JWTTTLHours), cfg.DefaultQuota)
	folderService := service.NewFolderService(folderRepo, fileRepo)
	fileService := service.NewFileService(fileRepo, versionRepo, folderRepo, userRepo, store, engine)
	shareService := service.NewShareService(shareRepo, fileRepo, folderRepo, versionRepo, logRepo, fileService, []byte(cfg.ShareHMACSecret))

	router := handler.NewRouter(handler.RouterDeps{
		Auth:    handler.NewAuthHandler(authService),
		Folder:  handler.NewFolderHandler(folderService),
		File:    handler.NewFileHandler(fileService),
		Share:   handler.NewShareHandler(shareService),
		Secret:  jwtSecret,
		Origins: cfg.CORSAllowlist,
	})

	scheduler := schedule.NewScheduler()
	if err := scheduler.Register("@hourly", job.NewShareCleanupJob(shareRepo)); err != nil {
		return fmt.Errorf("register cleanup job: %w", err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	server := &http.Server{
		Addr:    fmt.Sprintf("0.0.0.0:%d", cfg.Port),
		Handler: router,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logutil.GetLogger(context.Background()).Info("http server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logutil.GetLogger(context.Background()).Error("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logutil.GetLogger(context.Background()).Info("server stopping...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
