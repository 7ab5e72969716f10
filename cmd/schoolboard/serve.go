package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/MarcoPoloResearchLab/schoolboard/internal/config"
	"github.com/MarcoPoloResearchLab/schoolboard/internal/database"
	"github.com/MarcoPoloResearchLab/schoolboard/internal/records"
	"github.com/MarcoPoloResearchLab/schoolboard/internal/server"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the records API server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
	}
}

type repositorySet struct {
	students      records.Repository[records.Student]
	notices       records.Repository[records.Notice]
	announcements records.Repository[records.Announcement]
	close         func() error
}

func openRepositories(ctx context.Context, appConfig config.AppConfig, logger *zap.Logger) (repositorySet, error) {
	switch appConfig.StorageDriver {
	case config.StorageDriverRedis:
		client, err := database.OpenRedis(ctx, appConfig.RedisAddress, appConfig.RedisDB, logger)
		if err != nil {
			return repositorySet{}, err
		}
		return repositorySet{
			students:      records.NewRedisRepository[records.Student](client, records.KindStudent),
			notices:       records.NewRedisRepository[records.Notice](client, records.KindNotice),
			announcements: records.NewRedisRepository[records.Announcement](client, records.KindAnnouncement),
			close:         client.Close,
		}, nil
	case config.StorageDriverSQLite:
		db, err := database.OpenSQLite(appConfig.DatabasePath, logger)
		if err != nil {
			return repositorySet{}, err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return repositorySet{}, err
		}
		return repositorySet{
			students:      records.NewGormRepository[records.Student](db),
			notices:       records.NewGormRepository[records.Notice](db),
			announcements: records.NewGormRepository[records.Announcement](db),
			close:         sqlDB.Close,
		}, nil
	default:
		return repositorySet{}, fmt.Errorf("unsupported storage driver %q", appConfig.StorageDriver)
	}
}

func runServer(ctx context.Context) error {
	appConfig, logger, err := loadRuntime(config.LoadServer)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	repositories, err := openRepositories(ctx, appConfig, logger)
	if err != nil {
		return err
	}
	defer repositories.close() //nolint:errcheck

	idProvider := records.NewUUIDProvider()

	studentService, err := records.NewService[records.Student, *records.Student](records.ServiceConfig[records.Student]{
		Kind:       records.KindStudent,
		Repository: repositories.students,
		IDProvider: idProvider,
		Logger:     logger,
	})
	if err != nil {
		return err
	}
	noticeService, err := records.NewService[records.Notice, *records.Notice](records.ServiceConfig[records.Notice]{
		Kind:       records.KindNotice,
		Repository: repositories.notices,
		IDProvider: idProvider,
		Logger:     logger,
	})
	if err != nil {
		return err
	}
	announcementService, err := records.NewService[records.Announcement, *records.Announcement](records.ServiceConfig[records.Announcement]{
		Kind:       records.KindAnnouncement,
		Repository: repositories.announcements,
		IDProvider: idProvider,
		Logger:     logger,
	})
	if err != nil {
		return err
	}

	handler, err := server.NewHTTPHandler(server.Dependencies{
		Students:      studentService,
		Notices:       noticeService,
		Announcements: announcementService,
		Logger:        logger,
	})
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:    appConfig.HTTPAddress,
		Handler: handler,
	}

	signalCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting",
			zap.String("address", appConfig.HTTPAddress),
			zap.String("storage", appConfig.StorageDriver))
		err := httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-signalCtx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
