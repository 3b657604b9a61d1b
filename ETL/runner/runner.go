// Package runner управляет запуском синхронизации: планирует суточные окна,
// проводит каждое окно через Extract, Transform и Load и продвигает
// водяной знак. Ошибка одного окна не прерывает обработку остальных
package runner

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/LilVoxy/et_dwh_sync/ETL/config"
	"github.com/LilVoxy/et_dwh_sync/ETL/etclient"
	"github.com/LilVoxy/et_dwh_sync/ETL/models"
	"github.com/LilVoxy/et_dwh_sync/ETL/transform"
	"github.com/LilVoxy/et_dwh_sync/ETL/utils"
)

// DataExtractor извлекает данные из ET API
type DataExtractor interface {
	ExtractBaseDicts(ctx context.Context) (*models.BaseDicts, error)
	ExtractSessions(ctx context.Context, window utils.TimeWindow, limit int) ([]models.RawRecord, error)
	ExtractSessionsFiltered(ctx context.Context, window utils.TimeWindow, limit int, filter string) ([]models.RawRecord, error)
}

// Loader загружает нормализованные строки в целевое хранилище
type Loader interface {
	Load(ctx context.Context, data *models.TransformedData) error
}

// Options аргументы одного запуска синхронизации
type Options struct {
	// Явные границы периода в формате YYYY-MM-DD (могут быть пустыми).
	// Пустые границы означают ежедневный режим: от водяного знака до вчера
	StartDt string
	StopDt  string
}

// Runner выполняет один запуск синхронизации от планирования до журнала
type Runner struct {
	settings    config.Settings
	logger      *utils.ETLLogger
	extractor   DataExtractor
	transformer *transform.Transformer
	loader      Loader
	watermark   *models.WatermarkStore
	runLog      models.RunLogRepository
}

// NewRunner создает новый экземпляр Runner.
// runLog может быть nil: при выгрузке в файл журнал запусков не ведется
func NewRunner(settings config.Settings, logger *utils.ETLLogger, extractor DataExtractor,
	transformer *transform.Transformer, loader Loader,
	watermark *models.WatermarkStore, runLog models.RunLogRepository) *Runner {
	return &Runner{
		settings:    settings,
		logger:      logger,
		extractor:   extractor,
		transformer: transformer,
		loader:      loader,
		watermark:   watermark,
		runLog:      runLog,
	}
}

// Run выполняет один запуск синхронизации.
// Запуск считается неуспешным, если не удалось ни одно окно либо произошла
// фатальная ошибка (авторизация, справочники, планирование)
func (r *Runner) Run(ctx context.Context, opts Options) (*models.RunLog, error) {
	startTime := time.Now()
	runLog := &models.RunLog{
		ID:        uuid.NewString(),
		StartTime: startTime.UTC(),
		Status:    models.RunStatusInProgress,
	}

	// Планирование: ошибка здесь не оставляет никаких следов в хранилищах
	wm, err := r.watermark.Read()
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения водяного знака: %w", err)
	}
	start, stop, err := utils.ResolveRange(opts.StartDt, opts.StopDt, wm, r.settings.HistoricalStart, time.Now())
	if err != nil {
		return nil, fmt.Errorf("ошибка планирования периода: %w", err)
	}
	windows := utils.PlanWindows(start, stop, r.settings.TestMode)

	r.logger.LogRunStart(runLog.ID, start, stop)
	if len(windows) == 0 {
		r.logger.Info("Новых полных дней нет, основная синхронизация не требуется")
	}

	if err := r.createRunLog(runLog); err != nil {
		return nil, err
	}

	err = r.runSync(ctx, runLog, windows, wm, stop, opts)
	runLog.EndTime = time.Now().UTC()
	if err != nil {
		runLog.Status = models.RunStatusFailed
		runLog.ErrorMessage = err.Error()
	} else if len(windows) > 0 && runLog.WindowsOK == 0 {
		runLog.Status = models.RunStatusFailed
		runLog.ErrorMessage = "все окна завершились с ошибкой"
		err = errors.New(runLog.ErrorMessage)
	} else {
		runLog.Status = models.RunStatusSuccess
	}

	r.finishRunLog(runLog)
	r.logger.LogRunComplete(runLog.ID, startTime, runLog.WindowsOK, runLog.WindowsFailed, runLog.RecordsProcessed)
	return runLog, err
}

// runSync выполняет фазы запуска: справочники, окна сессий, досинхронизация.
// Возвращает ошибку только при фатальном для всего запуска сбое
func (r *Runner) runSync(ctx context.Context, runLog *models.RunLog, windows []utils.TimeWindow,
	wm time.Time, stop time.Time, opts Options) error {

	// Справочники нужны для разрешения внешних ключей,
	// без них ни одно окно обработать нельзя
	dicts, err := r.extractor.ExtractBaseDicts(ctx)
	if err != nil {
		return fmt.Errorf("фатальная ошибка извлечения справочников: %w", err)
	}
	dictData, keys, err := r.transformer.TransformBaseDicts(dicts)
	if err != nil {
		return fmt.Errorf("фатальная ошибка трансформации справочников: %w", err)
	}
	if err := r.loader.Load(ctx, dictData); err != nil {
		return fmt.Errorf("фатальная ошибка загрузки справочников: %w", err)
	}

	// Водяной знак продвигается только по непрерывному префиксу успешных окон,
	// иначе упавшее окно было бы потеряно навсегда
	advanceWatermark := true
	for _, window := range windows {
		limit := r.sessionLimit(runLog.RecordsProcessed)
		if r.settings.TestMode && limit <= 0 {
			r.logger.Warn("Достигнут лимит тестового режима (%d сессий), оставшиеся окна пропущены",
				r.settings.TestModeLimitSessions)
			break
		}

		if err := r.runWindow(ctx, runLog, window, keys, limit); err != nil {
			var authErr *etclient.AuthError
			if errors.As(err, &authErr) {
				return fmt.Errorf("фатальная ошибка авторизации: %w", err)
			}
			r.logger.Error("Окно %s завершилось с ошибкой: %v", window, err)
			runLog.WindowsFailed++
			advanceWatermark = false
			continue
		}

		runLog.WindowsOK++
		if advanceWatermark {
			if err := r.watermark.Write(window.Stop); err != nil {
				return fmt.Errorf("ошибка записи водяного знака: %w", err)
			}
			r.logger.Debug("Водяной знак продвинут до %s", window.Stop.Format(utils.DateFormat))
		}
	}

	// Досинхронизация меняющихся задним числом оценок и категорий
	// выполняется только в ежедневном режиме без явных границ периода
	if opts.StartDt == "" && opts.StopDt == "" && !wm.IsZero() && r.settings.IncrementalSyncNDays > 0 {
		if err := r.runIncrementalSync(ctx, runLog, dicts, keys, wm, stop); err != nil {
			var authErr *etclient.AuthError
			if errors.As(err, &authErr) {
				return fmt.Errorf("фатальная ошибка авторизации: %w", err)
			}
			r.logger.Error("Досинхронизация завершилась с ошибкой: %v", err)
		}
	}

	return nil
}

// runWindow проводит одно суточное окно через Extract, Transform и Load
func (r *Runner) runWindow(ctx context.Context, runLog *models.RunLog, window utils.TimeWindow,
	keys *models.BaseDictKeys, limit int) error {

	sessions, err := r.extractor.ExtractSessions(ctx, window, limit)
	if err != nil {
		return err
	}

	data, err := r.transformer.TransformSessions(sessions, keys)
	if err != nil {
		return err
	}
	if err := r.loader.Load(ctx, data); err != nil {
		return err
	}

	runLog.RecordsProcessed += len(sessions)
	return nil
}

// runIncrementalSync повторно выгружает за последние N дней сессии,
// которые меняются задним числом: оцененные вручную и попавшие в категории,
// определения которых обновились после последней синхронизации
func (r *Runner) runIncrementalSync(ctx context.Context, runLog *models.RunLog,
	dicts *models.BaseDicts, keys *models.BaseDictKeys, wm, stop time.Time) error {

	window := utils.TimeWindow{
		Start: utils.TruncateToDay(stop).AddDate(0, 0, -r.settings.IncrementalSyncNDays),
		Stop:  utils.TruncateToDay(stop),
	}

	filters := []string{"is_scored,manual"}
	if ids := updatedCategoryIDs(dicts.Categories, wm); len(ids) > 0 {
		filters = append(filters, "categories,"+strings.Join(ids, ",")+"|or")
		r.logger.Info("Обнаружено %d категорий, обновленных после %s", len(ids), wm.Format(utils.DateFormat))
	}

	for _, filter := range filters {
		limit := r.sessionLimit(runLog.RecordsProcessed)
		if r.settings.TestMode && limit <= 0 {
			return nil
		}

		sessions, err := r.extractor.ExtractSessionsFiltered(ctx, window, limit, filter)
		if err != nil {
			return err
		}
		data, err := r.transformer.TransformSessions(sessions, keys)
		if err != nil {
			return err
		}
		if err := r.loader.Load(ctx, data); err != nil {
			return err
		}
		runLog.RecordsProcessed += len(sessions)
	}
	return nil
}

// sessionLimit возвращает остаток лимита сессий тестового режима.
// Вне тестового режима лимита нет
func (r *Runner) sessionLimit(processed int) int {
	if !r.settings.TestMode {
		return 0
	}
	return r.settings.TestModeLimitSessions - processed
}

func (r *Runner) createRunLog(runLog *models.RunLog) error {
	if r.runLog == nil {
		return nil
	}
	if err := r.runLog.EnsureTable(); err != nil {
		return err
	}
	return r.runLog.Create(runLog)
}

func (r *Runner) finishRunLog(runLog *models.RunLog) {
	if r.runLog == nil {
		return
	}
	if err := r.runLog.Finish(runLog); err != nil {
		r.logger.Error("Не удалось записать итог запуска в журнал: %v", err)
	}
}

// updatedCategoryIDs возвращает идентификаторы категорий,
// обновленных после водяного знака
func updatedCategoryIDs(categories []models.RawRecord, wm time.Time) []string {
	var ids []string
	for _, category := range categories {
		updatedAt, ok := category["updated_at"].(string)
		if !ok || updatedAt == "" {
			continue
		}
		dt, err := parseAPITime(updatedAt)
		if err != nil || !dt.After(wm) {
			continue
		}
		if id, isNum := category["id"].(float64); isNum {
			ids = append(ids, fmt.Sprintf("%d", int64(id)))
		}
	}
	return ids
}

// parseAPITime разбирает дату-время в форматах, встречающихся в ответах ET API
func parseAPITime(s string) (time.Time, error) {
	layouts := []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999", "2006-01-02T15:04:05"}
	for _, layout := range layouts {
		if dt, err := time.Parse(layout, s); err == nil {
			return dt, nil
		}
	}
	return time.Time{}, fmt.Errorf("нераспознанный формат даты '%s'", s)
}
