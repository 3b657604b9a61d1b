package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// RetryConfig описывает политику повторов для сетевых операций
// Повторы ограничены по числу попыток, задержка растет экспоненциально
type RetryConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Multiplier  float64
	MaxDelay    time.Duration
}

// Settings содержит конфигурацию процесса синхронизации
type Settings struct {
	// Подключение к Ender Turing API
	EtDomain      string
	EtUser        string
	EtPassword    string
	EtToken       string
	EtAuthByToken bool

	// Подключение к целевой БД. Пустое значение означает выгрузку в файл
	DatabaseURL  string
	InitDBTables bool

	// Тестовый режим: один день данных и ограничение числа сессий
	TestMode              bool
	TestModeLimitSessions int

	// Инкрементальная досинхронизация оценок/категорий за последние N дней
	IncrementalSyncNDays int

	// Начало истории для самого первого запуска
	HistoricalStart time.Time

	// Файл водяного знака последней успешной синхронизации
	LastSyncedFpath string

	// Интервал запуска в режиме планировщика
	RunInterval time.Duration

	// Прогресс логируется на каждой N-ой записи
	LogEvery int

	// Размер страницы при выгрузке сессий
	PageLimit int

	// Политики повторов для Extract и Load
	ExtractRetry RetryConfig
	LoadRetry    RetryConfig

	EnableDetailedLogging bool
}

// DefaultSettings значения конфигурации по умолчанию
var DefaultSettings = Settings{
	EtAuthByToken:         true,
	InitDBTables:          true,
	TestModeLimitSessions: 200,
	IncrementalSyncNDays:  30,
	HistoricalStart:       time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	LastSyncedFpath:       "last_synced.json",
	RunInterval:           24 * time.Hour,
	LogEvery:              250,
	PageLimit:             500,
	ExtractRetry: RetryConfig{
		MaxAttempts: 10,
		BaseDelay:   5 * time.Second,
		Multiplier:  2.0,
		MaxDelay:    30 * time.Second,
	},
	LoadRetry: RetryConfig{
		MaxAttempts: 2,
		BaseDelay:   time.Second,
		Multiplier:  2.0,
		MaxDelay:    10 * time.Second,
	},
	EnableDetailedLogging: false,
}

// GetConfig возвращает конфигурацию, собранную из .env файла и переменных окружения
// Переменные окружения имеют приоритет над .env, отсутствующие значения берутся по умолчанию
func GetConfig() Settings {
	// .env не обязателен: в проде значения приходят из окружения
	_ = godotenv.Load()

	s := DefaultSettings

	s.EtDomain = envString("ET_DOMAIN", s.EtDomain)
	s.EtUser = envString("ET_USER", s.EtUser)
	s.EtPassword = envString("ET_PASSWORD", s.EtPassword)
	s.EtToken = envString("ET_TOKEN", s.EtToken)
	s.EtAuthByToken = envBool("ET_AUTH_BY_TOKEN", s.EtAuthByToken)

	s.DatabaseURL = envString("DATABASE_URL", s.DatabaseURL)
	s.InitDBTables = envBool("INIT_DB_TABLES", s.InitDBTables)

	s.TestMode = envBool("TEST_MODE", s.TestMode)
	s.TestModeLimitSessions = envInt("TEST_MODE_LIMIT_SESSIONS", s.TestModeLimitSessions)
	s.IncrementalSyncNDays = envInt("INCREMENTAL_SYNC_N_DAYS", s.IncrementalSyncNDays)
	s.LastSyncedFpath = envString("LAST_SYNCED_FPATH", s.LastSyncedFpath)
	s.LogEvery = envInt("LOG_EVERY", s.LogEvery)
	s.PageLimit = envInt("PAGE_LIMIT", s.PageLimit)
	s.EnableDetailedLogging = envBool("ENABLE_DETAILED_LOGGING", s.EnableDetailedLogging)

	if v := os.Getenv("HISTORICAL_START"); v != "" {
		if dt, err := time.Parse("2006-01-02", v); err == nil {
			s.HistoricalStart = dt
		}
	}
	if v := os.Getenv("RUN_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			s.RunInterval = d
		}
	}

	return s
}

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
