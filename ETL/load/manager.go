// Package load реализует фазу Load: идемпотентную загрузку
// нормализованных строк в целевую базу данных либо выгрузку в файлы.
// Каждая таблица загружается в отдельной транзакции с одним повтором
package load

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/LilVoxy/et_dwh_sync/ETL/config"
	"github.com/LilVoxy/et_dwh_sync/ETL/models"
	"github.com/LilVoxy/et_dwh_sync/ETL/schema"
	"github.com/LilVoxy/et_dwh_sync/ETL/utils"
)

// BatchError описывает сбой загрузки пакета строк одной таблицы
type BatchError struct {
	Table string
	Err   error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("ошибка загрузки таблицы '%s': %v", e.Table, e.Err)
}

func (e *BatchError) Unwrap() error {
	return e.Err
}

// DBLoader загружает нормализованные строки в целевую реляционную базу
type DBLoader struct {
	conn     *config.DBConnection
	logger   *utils.ETLLogger
	retry    config.RetryConfig
	logEvery int
}

// NewDBLoader создает новый экземпляр DBLoader
func NewDBLoader(conn *config.DBConnection, logger *utils.ETLLogger, retry config.RetryConfig, logEvery int) *DBLoader {
	if logEvery <= 0 {
		logEvery = 250
	}
	return &DBLoader{
		conn:     conn,
		logger:   logger,
		retry:    retry,
		logEvery: logEvery,
	}
}

// EnsureSchema создает отсутствующие целевые таблицы.
// Существующие таблицы не изменяются
func (l *DBLoader) EnsureSchema(ctx context.Context) error {
	l.logger.Info("Проверка схемы целевой базы данных (диалект %s)...", l.conn.Dialect)
	for _, t := range schema.Tables() {
		if _, err := l.conn.DB.ExecContext(ctx, schema.CreateTableSQL(t, l.conn.Dialect)); err != nil {
			return fmt.Errorf("ошибка создания таблицы '%s': %w", t.Name, err)
		}
	}
	l.logger.Info("Схема целевой базы данных готова")
	return nil
}

// Load загружает результат трансформации в целевую базу.
// Таблицы обрабатываются в порядке, безопасном для внешних ключей;
// пакет таблицы выполняется в транзакции и повторяется один раз при сбое
func (l *DBLoader) Load(ctx context.Context, data *models.TransformedData) error {
	startTime := time.Now()
	l.logger.Info("--- Фаза Load: загрузка в базу данных ---")

	l.warnSchemaDrift(data)

	totalRows := 0
	for _, t := range schema.Tables() {
		rows := data.Tables[t.Name]
		if len(rows) == 0 {
			continue
		}
		if err := l.loadTableWithRetry(ctx, t, rows); err != nil {
			return err
		}
		totalRows += len(rows)
	}

	l.logger.Info("Фаза Load завершена за %v: загружено %d строк", time.Since(startTime), totalRows)
	return nil
}

// warnSchemaDrift логирует расхождения входных данных со схемой приемника.
// Расхождение — предупреждение, а не ошибка: схема никогда не правится
// автоматически, несовпавшие таблицы и колонки просто не загружаются
func (l *DBLoader) warnSchemaDrift(data *models.TransformedData) {
	for _, name := range unknownTables(data.Tables) {
		l.logger.Warn("Таблица '%s' не объявлена в схеме приемника, %d строк не будет загружено",
			name, len(data.Tables[name]))
	}
	for _, t := range schema.Tables() {
		rows := data.Tables[t.Name]
		if len(rows) == 0 {
			continue
		}
		for _, col := range unknownColumns(t, rows[0]) {
			l.logger.Warn("Колонка '%s' таблицы '%s' не объявлена в схеме приемника, значения игнорируются",
				col, t.Name)
		}
	}
}

// unknownTables возвращает имена таблиц входных данных, отсутствующие в схеме
func unknownTables(tables map[string][]models.NormalizedRow) []string {
	var names []string
	for name := range tables {
		if _, ok := schema.ByName(name); !ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// unknownColumns возвращает колонки строки, не объявленные в таблице схемы
func unknownColumns(t schema.Table, row models.NormalizedRow) []string {
	var cols []string
	for col := range row {
		if !t.HasColumn(col) {
			cols = append(cols, col)
		}
	}
	sort.Strings(cols)
	return cols
}

// loadTableWithRetry выполняет пакет таблицы с повторами по политике LoadRetry
func (l *DBLoader) loadTableWithRetry(ctx context.Context, t schema.Table, rows []models.NormalizedRow) error {
	var lastErr error
	for attempt := 1; attempt <= l.retry.MaxAttempts; attempt++ {
		if err := l.loadTable(ctx, t, rows); err != nil {
			lastErr = err
			if attempt < l.retry.MaxAttempts {
				delay := l.backoffDelay(attempt)
				l.logger.Warn("Сбой загрузки таблицы '%s' (попытка %d/%d), повтор через %v: %v",
					t.Name, attempt, l.retry.MaxAttempts, delay, err)
				select {
				case <-time.After(delay):
				case <-ctx.Done():
					return ctx.Err()
				}
			}
			continue
		}
		return nil
	}
	return &BatchError{Table: t.Name, Err: lastErr}
}

// loadTable загружает строки одной таблицы в транзакции.
// Строки применяются подготовленным UPSERT по естественному ключу
func (l *DBLoader) loadTable(ctx context.Context, t schema.Table, rows []models.NormalizedRow) error {
	tx, err := l.conn.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("ошибка открытия транзакции: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, UpsertSQL(t, l.conn.Dialect))
	if err != nil {
		return fmt.Errorf("ошибка подготовки запроса: %w", err)
	}
	defer stmt.Close()

	for i, row := range rows {
		if _, err := stmt.ExecContext(ctx, RowArgs(t, row)...); err != nil {
			return fmt.Errorf("ошибка записи строки %d: %w", i+1, err)
		}
		if (i+1)%l.logEvery == 0 {
			l.logger.Info("Таблица '%s': загружено %d/%d строк", t.Name, i+1, len(rows))
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("ошибка фиксации транзакции: %w", err)
	}
	l.logger.Debug("Таблица '%s': пакет из %d строк зафиксирован", t.Name, len(rows))
	return nil
}

func (l *DBLoader) backoffDelay(attempt int) time.Duration {
	delay := time.Duration(float64(l.retry.BaseDelay) * math.Pow(l.retry.Multiplier, float64(attempt-1)))
	if delay > l.retry.MaxDelay {
		delay = l.retry.MaxDelay
	}
	return delay
}
