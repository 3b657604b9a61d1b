// Package extractors реализует фазу Extract: выгрузку базовых справочников
// и данных сессий из ET API постранично, окно за окном.
// Экстрактор не хранит состояние между запусками: повторный запуск окна
// выгружает его заново целиком
package extractors

import (
	"context"
	"fmt"

	"github.com/LilVoxy/et_dwh_sync/ETL/etclient"
	"github.com/LilVoxy/et_dwh_sync/ETL/models"
	"github.com/LilVoxy/et_dwh_sync/ETL/utils"
)

// Extractor координирует процесс извлечения данных из ET API
type Extractor struct {
	client   *etclient.Client
	logger   *utils.ETLLogger
	baseDict *BaseDictExtractor
	sessions *SessionExtractor
}

// Options параметры извлечения данных сессий
type Options struct {
	// Размер страницы пагинации /sessions
	PageLimit int

	// Прогресс логируется на каждой N-ой сессии при дозагрузке деталей
	LogEvery int

	// Дополнительный фильтр сессий, скопированный из UI (может быть пустым)
	Filters string

	// Дозагрузка детальных оценок и саммари по каждой сессии
	GetScoresDetailed bool
	GetSummaries      bool
}

// NewExtractor создает новый экземпляр Extractor
func NewExtractor(client *etclient.Client, logger *utils.ETLLogger, opts Options) *Extractor {
	if opts.PageLimit <= 0 {
		opts.PageLimit = 500
	}
	if opts.LogEvery <= 0 {
		opts.LogEvery = 250
	}
	return &Extractor{
		client:   client,
		logger:   logger,
		baseDict: NewBaseDictExtractor(client, logger),
		sessions: NewSessionExtractor(client, logger, opts),
	}
}

// ExtractBaseDicts извлекает все базовые справочники:
// agents, categories, groups, labels, scorecards, tags, users
func (e *Extractor) ExtractBaseDicts(ctx context.Context) (*models.BaseDicts, error) {
	e.logger.Info("--- Фаза Extract: базовые справочники ---")
	dicts, err := e.baseDict.Extract(ctx)
	if err != nil {
		return nil, fmt.Errorf("ошибка извлечения справочников: %w", err)
	}
	e.logger.Info("Извлечено записей справочников: %d", dicts.Count())
	return dicts, nil
}

// ExtractSessions извлекает сессии за окно [window.Start, window.Stop)
// вместе с детальными оценками и саммари.
// limit > 0 ограничивает суммарное количество сессий (тестовый режим)
func (e *Extractor) ExtractSessions(ctx context.Context, window utils.TimeWindow, limit int) ([]models.RawRecord, error) {
	e.logger.Info("--- Фаза Extract: сессии за окно %s ---", window)
	sessions, err := e.sessions.Extract(ctx, window, limit)
	if err != nil {
		return nil, fmt.Errorf("ошибка извлечения сессий за окно %s: %w", window, err)
	}
	e.logger.Info("Извлечено сессий за окно %s: %d", window, len(sessions))
	return sessions, nil
}

// ExtractSessionsFiltered извлекает сессии за окно с дополнительным фильтром.
// Используется инкрементальной досинхронизацией оцененных и
// перекатегоризированных сессий за прошедшие дни
func (e *Extractor) ExtractSessionsFiltered(ctx context.Context, window utils.TimeWindow, limit int, filter string) ([]models.RawRecord, error) {
	e.logger.Info("--- Фаза Extract: досинхронизация за окно %s (фильтр '%s') ---", window, filter)
	sessions, err := e.sessions.ExtractFiltered(ctx, window, limit, filter)
	if err != nil {
		return nil, fmt.Errorf("ошибка досинхронизации за окно %s: %w", window, err)
	}
	e.logger.Info("Извлечено сессий досинхронизации за окно %s: %d", window, len(sessions))
	return sessions, nil
}
