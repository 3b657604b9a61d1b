package extractors

import (
	"context"
	"errors"
	"net/url"
	"strconv"

	"github.com/LilVoxy/et_dwh_sync/ETL/etclient"
	"github.com/LilVoxy/et_dwh_sync/ETL/models"
	"github.com/LilVoxy/et_dwh_sync/ETL/utils"
)

// SessionExtractor извлекает данные сессий (разговоров) из ET API
type SessionExtractor struct {
	client *etclient.Client
	logger *utils.ETLLogger
	opts   Options
}

// NewSessionExtractor создает новый экземпляр SessionExtractor
func NewSessionExtractor(client *etclient.Client, logger *utils.ETLLogger, opts Options) *SessionExtractor {
	return &SessionExtractor{client: client, logger: logger, opts: opts}
}

// sessionsPage представляет страницу ответа /sessions
type sessionsPage struct {
	Items []models.RawRecord `json:"items"`
	Total int                `json:"total"`
}

// Extract извлекает сессии за окно и дозагружает детали по каждой.
// limit > 0 ограничивает суммарное количество сессий
func (e *SessionExtractor) Extract(ctx context.Context, window utils.TimeWindow, limit int) ([]models.RawRecord, error) {
	return e.ExtractFiltered(ctx, window, limit, "")
}

// ExtractFiltered извлекает сессии за окно с дополнительным фильтром поиска
// поверх настроенного в Options (используется инкрементальной досинхронизацией)
func (e *SessionExtractor) ExtractFiltered(ctx context.Context, window utils.TimeWindow, limit int, extraFilter string) ([]models.RawRecord, error) {
	sessions, err := e.searchSessions(ctx, window, limit, extraFilter)
	if err != nil {
		return nil, err
	}

	// Инициализируем ключи деталей, чтобы трансформация всегда видела их
	for _, session := range sessions {
		session["scores"] = []interface{}{}
		session["summary"] = []interface{}{}
	}

	if e.opts.GetScoresDetailed {
		// Оценки запрашиваются только для сессий, у которых есть рецензенты
		if err := e.fetchDetails(ctx, sessions, "/scores", "reviewers"); err != nil {
			return nil, err
		}
	}
	if e.opts.GetSummaries {
		if err := e.fetchDetails(ctx, sessions, "/summary", ""); err != nil {
			return nil, err
		}
	}

	return sessions, nil
}

// searchSessions постранично выгружает список сессий за окно.
// Каждый день запрашивается двумя половинами (см. utils.SplitHalfDays)
func (e *SessionExtractor) searchSessions(ctx context.Context, window utils.TimeWindow, limit int, extraFilter string) ([]models.RawRecord, error) {
	pageLimit := e.opts.PageLimit
	if limit > 0 && limit < pageLimit {
		pageLimit = limit
	}

	var sessions []models.RawRecord
	for _, interval := range utils.SplitHalfDays(window) {
		urlFilters := "date_range," + interval
		if e.opts.Filters != "" {
			urlFilters += "±" + e.opts.Filters
		}
		if extraFilter != "" {
			urlFilters += "±" + extraFilter
		}

		skip := 0
		pageNumber := 1
		for {
			e.logger.Debug("Поиск сессий: страница %d, skip=%d, limit=%d", pageNumber, skip, pageLimit)
			e.logger.Info("Поиск сессий с фильтром: %s", urlFilters)

			params := url.Values{}
			params.Set("skip", strconv.Itoa(skip))
			params.Set("limit", strconv.Itoa(pageLimit))
			params.Set("filters", urlFilters)

			var page sessionsPage
			if err := e.client.Get(ctx, "/sessions", params, &page); err != nil {
				return nil, err
			}

			e.logger.Info("Найдено %d сессий на странице %d", len(page.Items), pageNumber)
			sessions = append(sessions, page.Items...)

			if limit > 0 && len(sessions) >= limit {
				e.logger.Warn("Пагинация остановлена по лимиту %d сессий", limit)
				return sessions[:limit], nil
			}
			if len(page.Items) != pageLimit {
				break // последняя страница
			}
			pageNumber++
			skip += len(page.Items)
		}
	}

	return sessions, nil
}

// fetchDetails дозагружает детали по каждой сессии с эндпоинта
// /sessions/{id}{suffix}. Если задан requiredField, запрашиваются только
// сессии с непустым значением этого поля.
// Ошибка по одной сессии не прерывает дозагрузку, кроме отказа в авторизации
func (e *SessionExtractor) fetchDetails(ctx context.Context, sessions []models.RawRecord, suffix, requiredField string) error {
	e.logger.Info("Дозагрузка '%s' для %d сессий", suffix, len(sessions))

	key := suffix[1:] // '/scores' -> 'scores'
	failed := 0
	for idx, session := range sessions {
		if idx%e.opts.LogEvery == 0 {
			e.logger.Info("Прогресс дозагрузки '%s': %d из %d", suffix, idx, len(sessions))
		}

		sessionID, ok := session["id"].(string)
		if !ok || sessionID == "" {
			e.logger.Error("Сессия без идентификатора, дозагрузка '%s' пропущена", suffix)
			failed++
			continue
		}
		if requiredField != "" && isEmptyField(session[requiredField]) {
			e.logger.Debug("Пропуск сессии %s: пустое поле '%s'", sessionID, requiredField)
			continue
		}

		var detail interface{}
		if err := e.client.Get(ctx, "/sessions/"+sessionID+suffix, nil, &detail); err != nil {
			var authErr *etclient.AuthError
			if errors.As(err, &authErr) {
				return err
			}
			e.logger.Error("Ошибка дозагрузки '%s' для сессии %s: %v", suffix, sessionID, err)
			failed++
			continue
		}
		session[key] = detail
	}

	if failed > 0 {
		e.logger.Warn("Дозагрузка '%s' завершена с %d ошибками из %d сессий", suffix, failed, len(sessions))
	} else {
		e.logger.Info("Дозагрузка '%s' завершена для %d сессий", suffix, len(sessions))
	}
	return nil
}

// isEmptyField проверяет, что поле сессии пустое (nil, пустой список, ноль)
func isEmptyField(v interface{}) bool {
	switch val := v.(type) {
	case nil:
		return true
	case []interface{}:
		return len(val) == 0
	case float64:
		return val == 0
	case string:
		return val == ""
	default:
		return false
	}
}
