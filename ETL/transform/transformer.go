// Package transform реализует фазу Transform: нормализацию исходных записей
// ET API в строки целевых таблиц DWH.
// Невалидные записи пропускаются и учитываются, не прерывая пакет;
// фатальна только системная ошибка схемы
package transform

import (
	"time"

	"github.com/LilVoxy/et_dwh_sync/ETL/models"
	"github.com/LilVoxy/et_dwh_sync/ETL/schema"
	"github.com/LilVoxy/et_dwh_sync/ETL/utils"
)

// Transformer координирует преобразование исходных данных ET в формат DWH
type Transformer struct {
	logger *utils.ETLLogger
}

// NewTransformer создает новый экземпляр Transformer
func NewTransformer(logger *utils.ETLLogger) *Transformer {
	return &Transformer{logger: logger}
}

// TransformBaseDicts преобразует базовые справочники в строки целевых таблиц:
// вложенные списки разворачиваются в отдельные таблицы связей,
// даты приводятся к формату БД, дубликаты по ключу схлопываются.
// Возвращает также набор ключей справочников для разрешения внешних ключей
func (t *Transformer) TransformBaseDicts(dicts *models.BaseDicts) (*models.TransformedData, *models.BaseDictKeys, error) {
	startTime := time.Now()
	t.logger.Info("--- Фаза Transform: базовые справочники ---")

	data := models.NewTransformedData()
	keys := models.NewBaseDictKeys()

	t.transformAgents(dicts.Agents, data, keys)
	t.transformScorecards(dicts.Scorecards, data, keys)
	t.transformGroups(dicts.Groups, data, keys)
	t.transformCategories(dicts.Categories, data, keys)
	t.transformLabels(dicts.Labels, data)
	t.transformTags(dicts.Tags, data, keys)
	t.transformUsers(dicts.Users, data, keys)

	t.dedupAll(data)
	data.Stats.RecordsIn = dicts.Count()

	t.logger.Info("Фаза Transform справочников завершена за %v: строк %d, пропущено %d",
		time.Since(startTime), data.Stats.RowsOut, data.SkippedTotal())
	return data, keys, nil
}

// TransformSessions преобразует записи сессий в строки целевых таблиц.
// Одна сессия разворачивается в строку sessions и строки таблиц связей:
// теги, категории, рецензенты, оценки, комментарии, саммари, CRM-статусы.
// Внешние ключи проверяются по справочникам: неразрешенная ссылка пропускает
// только строку связи, строка самой сессии загружается в любом случае
func (t *Transformer) TransformSessions(sessions []models.RawRecord, keys *models.BaseDictKeys) (*models.TransformedData, error) {
	startTime := time.Now()
	t.logger.Info("--- Фаза Transform: сессии (%d записей) ---", len(sessions))

	data := models.NewTransformedData()
	for _, session := range sessions {
		t.transformSession(session, data, keys)
	}

	t.dedupAll(data)
	data.Stats.RecordsIn = len(sessions)

	t.logger.Info("Фаза Transform сессий завершена за %v: строк %d, пропущено %d",
		time.Since(startTime), data.Stats.RowsOut, data.SkippedTotal())
	return data, nil
}

// dedupAll схлопывает дубликаты по естественному ключу во всех таблицах,
// последняя встреченная запись побеждает
func (t *Transformer) dedupAll(data *models.TransformedData) {
	for name, rows := range data.Tables {
		table, ok := schema.ByName(name)
		if !ok {
			continue
		}
		deduped := dedupLastWins(rows, table.UpsertKey)
		if len(deduped) != len(rows) {
			t.logger.Debug("Таблица '%s': схлопнуто %d дубликатов", name, len(rows)-len(deduped))
			data.Tables[name] = deduped
			data.Stats.RowsOut -= len(rows) - len(deduped)
		}
	}
}
