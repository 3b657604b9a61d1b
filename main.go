package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/LilVoxy/et_dwh_sync/ETL/config"
	"github.com/LilVoxy/et_dwh_sync/ETL/etclient"
	"github.com/LilVoxy/et_dwh_sync/ETL/extractors"
	"github.com/LilVoxy/et_dwh_sync/ETL/load"
	"github.com/LilVoxy/et_dwh_sync/ETL/models"
	"github.com/LilVoxy/et_dwh_sync/ETL/runner"
	"github.com/LilVoxy/et_dwh_sync/ETL/transform"
	"github.com/LilVoxy/et_dwh_sync/ETL/utils"
)

// SyncApp собирает все компоненты синхронизации ET -> DWH
type SyncApp struct {
	settings config.Settings
	logger   *utils.ETLLogger
	conn     *config.DBConnection
	runner   *runner.Runner
	runOpts  runner.Options
}

// NewSyncApp создает и связывает компоненты синхронизации
func NewSyncApp(ctx context.Context, settings config.Settings, loadTo, filters string, runOpts runner.Options) (*SyncApp, error) {
	logger := utils.NewETLLogger(settings.EnableDetailedLogging)
	logger.Info("Инициализация синхронизации ET -> DWH")

	client, err := newETClient(ctx, settings, logger)
	if err != nil {
		return nil, err
	}

	extractor := extractors.NewExtractor(client, logger, extractors.Options{
		PageLimit:         settings.PageLimit,
		LogEvery:          settings.LogEvery,
		Filters:           filters,
		GetScoresDetailed: true,
		GetSummaries:      true,
	})
	transformer := transform.NewTransformer(logger)

	app := &SyncApp{settings: settings, logger: logger, runOpts: runOpts}

	var loader runner.Loader
	var runLogRepo models.RunLogRepository
	switch loadTo {
	case "db":
		if settings.DatabaseURL == "" {
			return nil, fmt.Errorf("не задан DATABASE_URL для выгрузки в базу данных")
		}
		conn, err := config.ConnectDatabase(settings.DatabaseURL)
		if err != nil {
			return nil, err
		}
		app.conn = conn
		logger.Info("Подключение к целевой базе установлено: %s", config.AnonymizeDatabaseURL(settings.DatabaseURL))

		dbLoader := load.NewDBLoader(conn, logger, settings.LoadRetry, settings.LogEvery)
		if settings.InitDBTables {
			if err := dbLoader.EnsureSchema(ctx); err != nil {
				app.Close()
				return nil, err
			}
		}
		loader = dbLoader
		runLogRepo = load.NewSQLRunLogRepository(conn)
	case load.FormatJSON, load.FormatGob:
		sink, err := load.NewFileSink(logger, loadTo)
		if err != nil {
			return nil, err
		}
		loader = sink
	default:
		return nil, fmt.Errorf("неподдерживаемое значение --load-to: '%s' (ожидается db, json или gob)", loadTo)
	}

	watermark := models.NewWatermarkStore(settings.LastSyncedFpath)
	app.runner = runner.NewRunner(settings, logger, extractor, transformer, loader, watermark, runLogRepo)
	return app, nil
}

// newETClient создает клиент ET API по токену либо по логину и паролю
func newETClient(ctx context.Context, settings config.Settings, logger *utils.ETLLogger) (*etclient.Client, error) {
	if settings.EtAuthByToken && settings.EtToken != "" {
		logger.Info("Авторизация в ET API по персональному токену")
		return etclient.NewClientByToken(settings.EtDomain, settings.EtToken, settings.ExtractRetry, logger)
	}
	logger.Info("Авторизация в ET API по логину и паролю")
	return etclient.NewClientByPassword(ctx, settings.EtDomain, settings.EtUser, settings.EtPassword,
		settings.ExtractRetry, logger)
}

// Close освобождает ресурсы приложения
func (a *SyncApp) Close() {
	if a.conn != nil {
		if err := a.conn.Close(); err != nil {
			a.logger.Error("Ошибка при закрытии подключения к базе: %v", err)
		}
	}
}

// RunOnce выполняет один запуск синхронизации
func (a *SyncApp) RunOnce(ctx context.Context) error {
	_, err := a.runner.Run(ctx, a.runOpts)
	return err
}

// RunScheduled выполняет синхронизацию по расписанию до сигнала остановки
func (a *SyncApp) RunScheduled(ctx context.Context) error {
	scheduler := gocron.NewScheduler(time.UTC)
	a.logger.Info("Запуск планировщика синхронизации с интервалом %v", a.settings.RunInterval)

	_, err := scheduler.Every(a.settings.RunInterval).Do(func() {
		if err := a.RunOnce(ctx); err != nil {
			a.logger.Error("Запланированный запуск завершился с ошибкой: %v", err)
		}
	})
	if err != nil {
		return fmt.Errorf("ошибка настройки планировщика: %w", err)
	}

	scheduler.StartAsync()
	<-ctx.Done()
	scheduler.Stop()
	a.logger.Info("Планировщик синхронизации остановлен")
	return nil
}

func main() {
	settings := config.GetConfig()

	mode := flag.String("mode", "once", "режим запуска: once или scheduled")
	loadTo := flag.String("load-to", "db", "приемник данных: db, json или gob")
	startDt := flag.String("start-dt", "", "начало периода YYYY-MM-DD (по умолчанию водяной знак)")
	stopDt := flag.String("stop-dt", "", "конец периода YYYY-MM-DD, не включается (по умолчанию сегодня)")
	filters := flag.String("filters", "", "дополнительный фильтр сессий, скопированный из UI")
	testMode := flag.Bool("test-mode", settings.TestMode, "тестовый режим: один день и ограничение сессий")
	testModeLimit := flag.Int("test-mode-limit-sessions", settings.TestModeLimitSessions,
		"лимит сессий в тестовом режиме")
	flag.Parse()

	settings.TestMode = *testMode
	settings.TestModeLimitSessions = *testModeLimit

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Останавливаемся по Ctrl+C или SIGTERM
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Printf("Получен сигнал %v, завершение работы...", sig)
		cancel()
	}()

	app, err := NewSyncApp(ctx, settings, *loadTo, *filters, runner.Options{
		StartDt: *startDt,
		StopDt:  *stopDt,
	})
	if err != nil {
		log.Fatalf("Ошибка инициализации: %v", err)
	}
	defer app.Close()

	switch *mode {
	case "once":
		if err := app.RunOnce(ctx); err != nil {
			app.Close()
			log.Fatalf("Синхронизация завершилась с ошибкой: %v", err)
		}
	case "scheduled":
		if err := app.RunScheduled(ctx); err != nil {
			app.Close()
			log.Fatalf("Ошибка планировщика: %v", err)
		}
	default:
		log.Fatalf("Неизвестный режим '%s' (ожидается once или scheduled)", *mode)
	}
}
