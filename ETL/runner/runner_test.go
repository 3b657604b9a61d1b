package runner

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LilVoxy/et_dwh_sync/ETL/config"
	"github.com/LilVoxy/et_dwh_sync/ETL/etclient"
	"github.com/LilVoxy/et_dwh_sync/ETL/models"
	"github.com/LilVoxy/et_dwh_sync/ETL/transform"
	"github.com/LilVoxy/et_dwh_sync/ETL/utils"
)

type fakeExtractor struct {
	dicts        *models.BaseDicts
	dictsErr     error
	sessionsFn   func(window utils.TimeWindow, limit int) ([]models.RawRecord, error)
	limits       []int
	filters      []string
	filteredResp []models.RawRecord
}

func (f *fakeExtractor) ExtractBaseDicts(ctx context.Context) (*models.BaseDicts, error) {
	if f.dictsErr != nil {
		return nil, f.dictsErr
	}
	if f.dicts != nil {
		return f.dicts, nil
	}
	return &models.BaseDicts{}, nil
}

func (f *fakeExtractor) ExtractSessions(ctx context.Context, window utils.TimeWindow, limit int) ([]models.RawRecord, error) {
	f.limits = append(f.limits, limit)
	if f.sessionsFn != nil {
		return f.sessionsFn(window, limit)
	}
	return nil, nil
}

func (f *fakeExtractor) ExtractSessionsFiltered(ctx context.Context, window utils.TimeWindow, limit int, filter string) ([]models.RawRecord, error) {
	f.filters = append(f.filters, filter)
	return f.filteredResp, nil
}

type fakeLoader struct {
	calls int
	rows  int
	err   error
}

func (f *fakeLoader) Load(ctx context.Context, data *models.TransformedData) error {
	if f.err != nil {
		return f.err
	}
	f.calls++
	f.rows += data.Stats.RowsOut
	return nil
}

type fakeRunLogRepo struct {
	created  bool
	finished *models.RunLog
}

func (f *fakeRunLogRepo) EnsureTable() error { return nil }

func (f *fakeRunLogRepo) Create(runLog *models.RunLog) error {
	f.created = true
	return nil
}

func (f *fakeRunLogRepo) Finish(runLog *models.RunLog) error {
	copied := *runLog
	f.finished = &copied
	return nil
}

func sessionRecord(n int) models.RawRecord {
	return models.RawRecord{"id": fmt.Sprintf("aaaaaaaa-0000-0000-0000-%012d", n)}
}

type testEnv struct {
	runner    *Runner
	extractor *fakeExtractor
	loader    *fakeLoader
	runLog    *fakeRunLogRepo
	watermark *models.WatermarkStore
}

func newTestEnv(t *testing.T, settings config.Settings, extractor *fakeExtractor) *testEnv {
	logger := utils.NewDiscardLogger()
	loader := &fakeLoader{}
	runLogRepo := &fakeRunLogRepo{}
	watermark := models.NewWatermarkStore(filepath.Join(t.TempDir(), "last_synced.json"))

	return &testEnv{
		runner: NewRunner(settings, logger, extractor,
			transform.NewTransformer(logger), loader, watermark, runLogRepo),
		extractor: extractor,
		loader:    loader,
		runLog:    runLogRepo,
		watermark: watermark,
	}
}

func TestRunExplicitRangeProcessesAllWindows(t *testing.T) {
	extractor := &fakeExtractor{
		sessionsFn: func(window utils.TimeWindow, limit int) ([]models.RawRecord, error) {
			return []models.RawRecord{sessionRecord(window.Start.Day())}, nil
		},
	}
	env := newTestEnv(t, config.DefaultSettings, extractor)

	runLog, err := env.runner.Run(context.Background(),
		Options{StartDt: "2026-03-01", StopDt: "2026-03-03"})

	require.NoError(t, err)
	assert.Equal(t, models.RunStatusSuccess, runLog.Status)
	assert.Equal(t, 2, runLog.WindowsOK)
	assert.Equal(t, 0, runLog.WindowsFailed)
	assert.Equal(t, 2, runLog.RecordsProcessed)

	// Справочники плюс два окна
	assert.Equal(t, 3, env.loader.calls)

	wm, err := env.watermark.Read()
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC), wm)

	// При явных границах периода досинхронизация не выполняется
	assert.Empty(t, extractor.filters)

	assert.True(t, env.runLog.created)
	require.NotNil(t, env.runLog.finished)
	assert.Equal(t, models.RunStatusSuccess, env.runLog.finished.Status)
}

func TestRunWindowFailureDoesNotAbortRun(t *testing.T) {
	extractor := &fakeExtractor{
		sessionsFn: func(window utils.TimeWindow, limit int) ([]models.RawRecord, error) {
			if window.Start.Day() == 1 {
				return nil, fmt.Errorf("временный сбой")
			}
			return []models.RawRecord{sessionRecord(window.Start.Day())}, nil
		},
	}
	env := newTestEnv(t, config.DefaultSettings, extractor)

	runLog, err := env.runner.Run(context.Background(),
		Options{StartDt: "2026-03-01", StopDt: "2026-03-03"})

	require.NoError(t, err)
	assert.Equal(t, models.RunStatusSuccess, runLog.Status)
	assert.Equal(t, 1, runLog.WindowsOK)
	assert.Equal(t, 1, runLog.WindowsFailed)

	// Водяной знак не продвигается через упавшее окно,
	// иначе оно было бы потеряно навсегда
	wm, err := env.watermark.Read()
	require.NoError(t, err)
	assert.True(t, wm.IsZero())
}

func TestRunAllWindowsFailedMeansRunFailed(t *testing.T) {
	extractor := &fakeExtractor{
		sessionsFn: func(window utils.TimeWindow, limit int) ([]models.RawRecord, error) {
			return nil, fmt.Errorf("сбой")
		},
	}
	env := newTestEnv(t, config.DefaultSettings, extractor)

	runLog, err := env.runner.Run(context.Background(),
		Options{StartDt: "2026-03-01", StopDt: "2026-03-03"})

	require.Error(t, err)
	assert.Equal(t, models.RunStatusFailed, runLog.Status)
	assert.Equal(t, 0, runLog.WindowsOK)
	assert.Equal(t, 2, runLog.WindowsFailed)
	require.NotNil(t, env.runLog.finished)
	assert.Equal(t, models.RunStatusFailed, env.runLog.finished.Status)
}

func TestRunAuthErrorIsFatal(t *testing.T) {
	extractor := &fakeExtractor{
		sessionsFn: func(window utils.TimeWindow, limit int) ([]models.RawRecord, error) {
			return nil, &etclient.AuthError{StatusCode: http.StatusUnauthorized, URL: "/sessions"}
		},
	}
	env := newTestEnv(t, config.DefaultSettings, extractor)

	runLog, err := env.runner.Run(context.Background(),
		Options{StartDt: "2026-03-01", StopDt: "2026-03-05"})

	require.Error(t, err)
	assert.Equal(t, models.RunStatusFailed, runLog.Status)
	// После отказа в авторизации остальные окна не запрашиваются
	assert.Len(t, extractor.limits, 1)
}

func TestRunPlanningErrorLeavesNoTraces(t *testing.T) {
	env := newTestEnv(t, config.DefaultSettings, &fakeExtractor{})

	_, err := env.runner.Run(context.Background(),
		Options{StartDt: "2026-03-10", StopDt: "2026-03-01"})

	require.ErrorIs(t, err, utils.ErrInvalidRange)
	assert.False(t, env.runLog.created)
	assert.Equal(t, 0, env.loader.calls)

	wm, err := env.watermark.Read()
	require.NoError(t, err)
	assert.True(t, wm.IsZero())
}

func TestRunBaseDictFailureIsFatal(t *testing.T) {
	env := newTestEnv(t, config.DefaultSettings,
		&fakeExtractor{dictsErr: fmt.Errorf("справочники недоступны")})

	runLog, err := env.runner.Run(context.Background(),
		Options{StartDt: "2026-03-01", StopDt: "2026-03-03"})

	require.Error(t, err)
	assert.Equal(t, models.RunStatusFailed, runLog.Status)
	assert.Equal(t, 0, env.loader.calls)
}

func TestRunTestModePassesRemainingLimit(t *testing.T) {
	settings := config.DefaultSettings
	settings.TestMode = true
	settings.TestModeLimitSessions = 5

	extractor := &fakeExtractor{
		sessionsFn: func(window utils.TimeWindow, limit int) ([]models.RawRecord, error) {
			return []models.RawRecord{sessionRecord(1), sessionRecord(2)}, nil
		},
	}
	env := newTestEnv(t, settings, extractor)

	runLog, err := env.runner.Run(context.Background(),
		Options{StartDt: "2026-03-01", StopDt: "2026-03-10"})

	require.NoError(t, err)
	// Тестовый режим ограничивает план одним окном
	assert.Equal(t, []int{5}, extractor.limits)
	assert.Equal(t, 2, runLog.RecordsProcessed)
}

func TestRunDailyModeRunsIncrementalSync(t *testing.T) {
	yesterday := utils.TruncateToDay(time.Now()).AddDate(0, 0, -1)

	extractor := &fakeExtractor{
		dicts: &models.BaseDicts{
			Categories: []models.RawRecord{
				{"id": float64(7), "name": "Жалобы",
					"updated_at": time.Now().UTC().Format(time.RFC3339)},
				{"id": float64(8), "name": "Старая",
					"updated_at": "2020-01-01T00:00:00"},
			},
		},
		sessionsFn: func(window utils.TimeWindow, limit int) ([]models.RawRecord, error) {
			return []models.RawRecord{sessionRecord(1)}, nil
		},
	}
	env := newTestEnv(t, config.DefaultSettings, extractor)
	require.NoError(t, env.watermark.Write(yesterday))

	runLog, err := env.runner.Run(context.Background(), Options{})

	require.NoError(t, err)
	assert.Equal(t, models.RunStatusSuccess, runLog.Status)

	// Досинхронизация: оцененные вручную и обновленные категории
	require.Len(t, extractor.filters, 2)
	assert.Equal(t, "is_scored,manual", extractor.filters[0])
	assert.Equal(t, "categories,7|or", extractor.filters[1])
}

func TestRunFirstRunSkipsIncrementalSync(t *testing.T) {
	extractor := &fakeExtractor{
		sessionsFn: func(window utils.TimeWindow, limit int) ([]models.RawRecord, error) {
			return nil, nil
		},
	}
	settings := config.DefaultSettings
	settings.HistoricalStart = utils.TruncateToDay(time.Now()).AddDate(0, 0, -2)
	env := newTestEnv(t, settings, extractor)

	_, err := env.runner.Run(context.Background(), Options{})

	require.NoError(t, err)
	// Без водяного знака досинхронизировать нечего
	assert.Empty(t, extractor.filters)
}

func TestRunEmptyPlanIsSuccess(t *testing.T) {
	extractor := &fakeExtractor{}
	env := newTestEnv(t, config.DefaultSettings, extractor)
	today := utils.TruncateToDay(time.Now())
	require.NoError(t, env.watermark.Write(today))

	runLog, err := env.runner.Run(context.Background(), Options{})

	require.NoError(t, err)
	assert.Equal(t, models.RunStatusSuccess, runLog.Status)
	assert.Empty(t, extractor.limits)
}

func TestUpdatedCategoryIDs(t *testing.T) {
	wm := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	ids := updatedCategoryIDs([]models.RawRecord{
		{"id": float64(1), "updated_at": "2026-03-05T10:00:00"},
		{"id": float64(2), "updated_at": "2026-02-01T10:00:00"},
		{"id": float64(3)},
	}, wm)

	assert.Equal(t, "1", strings.Join(ids, ","))
}
