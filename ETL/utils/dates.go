package utils

import (
	"errors"
	"fmt"
	"time"
)

// DateFormat формат дат, принимаемый из командной строки и от API
const DateFormat = "2006-01-02"

// ErrInvalidRange возвращается планировщиком, если начало периода не раньше конца
var ErrInvalidRange = errors.New("начало периода должно быть раньше конца периода")

// TimeWindow представляет полуоткрытый интервал дат [Start, Stop)
// Один интервал — одна единица работы синхронизации
type TimeWindow struct {
	Start time.Time
	Stop  time.Time
}

// String возвращает читаемое представление интервала для логов
func (w TimeWindow) String() string {
	return fmt.Sprintf("[%s, %s)", w.Start.Format(DateFormat), w.Stop.Format(DateFormat))
}

// ParseDate разбирает дату в формате YYYY-MM-DD
func ParseDate(s string) (time.Time, error) {
	dt, err := time.Parse(DateFormat, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("некорректная дата '%s', ожидается формат YYYY-MM-DD: %w", s, err)
	}
	return dt, nil
}

// TruncateToDay отбрасывает время, оставляя полночь UTC
func TruncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// ResolveRange вычисляет период синхронизации [start, stop) по аргументам запуска.
// Если stopStr не задан, синхронизация заканчивается на последнем полном дне:
// stop = сегодняшняя полночь, то есть последний покрытый день — вчера.
// Если startStr не задан, период начинается с водяного знака последнего
// успешного запуска, а при первом запуске — с historicalStart.
func ResolveRange(startStr, stopStr string, watermark, historicalStart, now time.Time) (time.Time, time.Time, error) {
	var start, stop time.Time
	var err error

	if stopStr != "" {
		if stop, err = ParseDate(stopStr); err != nil {
			return time.Time{}, time.Time{}, err
		}
	} else {
		stop = TruncateToDay(now)
	}

	if startStr != "" {
		if start, err = ParseDate(startStr); err != nil {
			return time.Time{}, time.Time{}, err
		}
	} else if !watermark.IsZero() {
		start = TruncateToDay(watermark)
	} else {
		start = TruncateToDay(historicalStart)
	}

	// Явно заданный некорректный период — ошибка планирования
	if (startStr != "" || stopStr != "") && !start.Before(stop) {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: %s >= %s",
			ErrInvalidRange, start.Format(DateFormat), stop.Format(DateFormat))
	}

	return start, stop, nil
}

// PlanWindows разбивает период [start, stop) на последовательные суточные
// интервалы без пропусков. В тестовом режиме период ограничивается одним днем.
// Если start >= stop, возвращается пустой план (нечего синхронизировать).
func PlanWindows(start, stop time.Time, testMode bool) []TimeWindow {
	start = TruncateToDay(start)
	stop = TruncateToDay(stop)

	var windows []TimeWindow
	for day := start; day.Before(stop); day = day.AddDate(0, 0, 1) {
		windows = append(windows, TimeWindow{Start: day, Stop: day.AddDate(0, 0, 1)})
		if testMode {
			// В тестовом режиме достаточно одного дня данных
			break
		}
	}
	return windows
}

// SplitHalfDays возвращает фильтры date_range по половинам дня для интервала.
// ET API нестабильно отдает более 10 тысяч сессий за один период,
// поэтому каждый день запрашивается двумя половинами
func SplitHalfDays(w TimeWindow) []string {
	var intervals []string
	for day := TruncateToDay(w.Start); day.Before(w.Stop); day = day.AddDate(0, 0, 1) {
		d := day.Format(DateFormat)
		intervals = append(intervals,
			fmt.Sprintf("%s,%s||00:00,12:00", d, d),
			fmt.Sprintf("%s,%s||12:01,23:59", d, d),
		)
	}
	return intervals
}
