package models

import "time"

// Статусы запуска синхронизации в журнале etl_run_log
const (
	RunStatusInProgress = "in_progress"
	RunStatusSuccess    = "success"
	RunStatusFailed     = "failed"
)

// RunLog представляет запись журнала запусков синхронизации
type RunLog struct {
	ID               string
	StartTime        time.Time
	EndTime          time.Time
	Status           string
	WindowsOK        int
	WindowsFailed    int
	RecordsProcessed int
	ErrorMessage     string
}

// RunLogRepository хранит журнал запусков в целевой базе данных.
// При выгрузке в файл журнал не ведется
type RunLogRepository interface {
	// EnsureTable создает таблицу журнала, если она не существует
	EnsureTable() error

	// Create создает запись о начатом запуске
	Create(runLog *RunLog) error

	// Finish обновляет запись по завершении запуска
	Finish(runLog *RunLog) error
}
