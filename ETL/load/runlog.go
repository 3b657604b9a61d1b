package load

import (
	"fmt"

	"github.com/LilVoxy/et_dwh_sync/ETL/config"
	"github.com/LilVoxy/et_dwh_sync/ETL/models"
	"github.com/LilVoxy/et_dwh_sync/ETL/schema"
)

// runLogTable описывает таблицу журнала запусков синхронизации.
// Журнал живет рядом с целевыми таблицами, но не входит в схему данных
var runLogTable = schema.Table{
	Name: "etl_run_log",
	Columns: []schema.Column{
		{Name: "id", Type: schema.TypeUUID},
		{Name: "start_time", Type: schema.TypeDateTime, Nullable: true},
		{Name: "end_time", Type: schema.TypeDateTime, Nullable: true},
		{Name: "status", Type: schema.TypeString, Nullable: true},
		{Name: "windows_ok", Type: schema.TypeInt, Nullable: true},
		{Name: "windows_failed", Type: schema.TypeInt, Nullable: true},
		{Name: "records_processed", Type: schema.TypeInt, Nullable: true},
		{Name: "error_message", Type: schema.TypeText, Nullable: true},
	},
	UpsertKey: []string{"id"},
}

// SQLRunLogRepository хранит журнал запусков в целевой базе данных
type SQLRunLogRepository struct {
	conn *config.DBConnection
}

// NewSQLRunLogRepository создает новый экземпляр SQLRunLogRepository
func NewSQLRunLogRepository(conn *config.DBConnection) *SQLRunLogRepository {
	return &SQLRunLogRepository{conn: conn}
}

// EnsureTable создает таблицу журнала, если она не существует
func (r *SQLRunLogRepository) EnsureTable() error {
	if _, err := r.conn.DB.Exec(schema.CreateTableSQL(runLogTable, r.conn.Dialect)); err != nil {
		return fmt.Errorf("ошибка создания таблицы журнала запусков: %w", err)
	}
	return nil
}

// Create создает запись о начатом запуске
func (r *SQLRunLogRepository) Create(runLog *models.RunLog) error {
	return r.upsert(runLog)
}

// Finish обновляет запись по завершении запуска
func (r *SQLRunLogRepository) Finish(runLog *models.RunLog) error {
	return r.upsert(runLog)
}

// upsert применяет текущее состояние запуска по его идентификатору.
// Создание и завершение используют один и тот же идемпотентный запрос
func (r *SQLRunLogRepository) upsert(runLog *models.RunLog) error {
	row := map[string]interface{}{
		"id":                runLog.ID,
		"start_time":        runLog.StartTime,
		"status":            runLog.Status,
		"windows_ok":        runLog.WindowsOK,
		"windows_failed":    runLog.WindowsFailed,
		"records_processed": runLog.RecordsProcessed,
	}
	if !runLog.EndTime.IsZero() {
		row["end_time"] = runLog.EndTime
	}
	if runLog.ErrorMessage != "" {
		row["error_message"] = runLog.ErrorMessage
	}

	query := UpsertSQL(runLogTable, r.conn.Dialect)
	if _, err := r.conn.DB.Exec(query, RowArgs(runLogTable, row)...); err != nil {
		return fmt.Errorf("ошибка записи журнала запусков (запуск %s): %w", runLog.ID, err)
	}
	return nil
}
