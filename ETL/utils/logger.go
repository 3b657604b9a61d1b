package utils

import (
	"fmt"
	"io"
	"log"
	"os"
	"time"
)

// ETLLogger представляет логгер для процесса синхронизации
type ETLLogger struct {
	infoLogger  *log.Logger
	warnLogger  *log.Logger
	errorLogger *log.Logger
	debugLogger *log.Logger
	isVerbose   bool
	console     bool
}

// NewETLLogger создает новый экземпляр логгера для ETL
// Лог пишется одновременно в файл (имя с текущей датой) и в стандартный вывод
func NewETLLogger(verbose bool) *ETLLogger {
	currentTime := time.Now().Format("2006-01-02")
	logFileName := fmt.Sprintf("et_sync_%s.log", currentTime)

	file, err := os.OpenFile(logFileName, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0666)
	if err != nil {
		log.Fatalf("Не удалось открыть или создать файл лога: %v", err)
	}

	return &ETLLogger{
		infoLogger:  log.New(file, "INFO: ", log.Ldate|log.Ltime|log.Lshortfile),
		warnLogger:  log.New(file, "WARN: ", log.Ldate|log.Ltime|log.Lshortfile),
		errorLogger: log.New(file, "ERROR: ", log.Ldate|log.Ltime|log.Lshortfile),
		debugLogger: log.New(file, "DEBUG: ", log.Ldate|log.Ltime|log.Lshortfile),
		isVerbose:   verbose,
		console:     true,
	}
}

// NewDiscardLogger создает логгер, отбрасывающий весь вывод (для тестов)
func NewDiscardLogger() *ETLLogger {
	l := log.New(io.Discard, "", 0)
	return &ETLLogger{
		infoLogger:  l,
		warnLogger:  l,
		errorLogger: l,
		debugLogger: l,
	}
}

// Info логирует информационное сообщение
func (l *ETLLogger) Info(format string, v ...interface{}) {
	msg := fmt.Sprintf(format, v...)
	l.infoLogger.Println(msg)
	if l.console {
		log.Println("INFO:", msg)
	}
}

// Warn логирует предупреждение
func (l *ETLLogger) Warn(format string, v ...interface{}) {
	msg := fmt.Sprintf(format, v...)
	l.warnLogger.Println(msg)
	if l.console {
		log.Println("WARN:", msg)
	}
}

// Error логирует сообщение об ошибке
func (l *ETLLogger) Error(format string, v ...interface{}) {
	msg := fmt.Sprintf(format, v...)
	l.errorLogger.Println(msg)
	if l.console {
		log.Println("ERROR:", msg)
	}
}

// Debug логирует отладочное сообщение (только если включен verbose режим)
func (l *ETLLogger) Debug(format string, v ...interface{}) {
	if !l.isVerbose {
		return
	}
	msg := fmt.Sprintf(format, v...)
	l.debugLogger.Println(msg)
	if l.console {
		log.Println("DEBUG:", msg)
	}
}

// LogRunStart логирует начало запуска синхронизации
func (l *ETLLogger) LogRunStart(runID string, start, stop time.Time) {
	l.Info("------- Запуск синхронизации %s: период с %s по %s -------",
		runID, start.Format("2006-01-02"), stop.Format("2006-01-02"))
}

// LogRunComplete логирует завершение запуска синхронизации
func (l *ETLLogger) LogRunComplete(runID string, startTime time.Time, windowsOK, windowsFailed, records int) {
	l.Info("------- Синхронизация %s завершена. Длительность: %v -------", runID, time.Since(startTime))
	l.Info("Окон успешно: %d, окон с ошибками: %d, записей обработано: %d", windowsOK, windowsFailed, records)
}
