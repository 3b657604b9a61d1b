package transform

import (
	"fmt"
	"strings"

	"github.com/LilVoxy/et_dwh_sync/ETL/models"
	"github.com/LilVoxy/et_dwh_sync/ETL/schema"
)

// buildRow строит нормализованную строку целевой таблицы из исходной записи:
// берутся только объявленные в схеме колонки, значения приводятся к их типам.
// Отсутствие обязательного поля или неприводимое значение — ошибка записи
func buildRow(table schema.Table, raw models.RawRecord) (models.NormalizedRow, error) {
	row := make(models.NormalizedRow, len(table.Columns))
	for _, col := range table.Columns {
		coerced, ok := coerceValue(raw[col.Name], col.Type)
		if !ok {
			return nil, fmt.Errorf("неприводимое значение поля '%s' таблицы '%s': %v",
				col.Name, table.Name, raw[col.Name])
		}
		if coerced == nil && !col.Nullable {
			return nil, fmt.Errorf("отсутствует обязательное поле '%s' таблицы '%s'", col.Name, table.Name)
		}
		row[col.Name] = coerced
	}
	return row, nil
}

// dedupLastWins удаляет дубликаты строк по естественному ключу.
// Источник авторитетен и поздние записи страницы считаются более свежими,
// поэтому из дубликатов остается последняя встреченная
func dedupLastWins(rows []models.NormalizedRow, key []string) []models.NormalizedRow {
	if len(rows) < 2 {
		return rows
	}

	seen := make(map[string]int, len(rows))
	result := make([]models.NormalizedRow, 0, len(rows))
	for _, row := range rows {
		fp := rowFingerprint(row, key)
		if idx, exists := seen[fp]; exists {
			result[idx] = row
			continue
		}
		seen[fp] = len(result)
		result = append(result, row)
	}
	return result
}

// rowFingerprint строит ключ дедупликации по значениям естественного ключа
func rowFingerprint(row models.NormalizedRow, key []string) string {
	parts := make([]string, len(key))
	for i, k := range key {
		parts[i] = fmt.Sprintf("%v", row[k])
	}
	return strings.Join(parts, "\x00")
}

// rawInt64 читает целочисленное поле исходной записи (JSON отдает float64)
func rawInt64(raw models.RawRecord, field string) (int64, bool) {
	v, ok := coerceInt(raw[field])
	if !ok || v == nil {
		return 0, false
	}
	return v.(int64), true
}

// rawList приводит значение поля к списку вложенных записей
func rawList(v interface{}) []models.RawRecord {
	items, ok := v.([]interface{})
	if !ok {
		return nil
	}
	records := make([]models.RawRecord, 0, len(items))
	for _, item := range items {
		if m, isMap := item.(map[string]interface{}); isMap {
			records = append(records, models.RawRecord(m))
		}
	}
	return records
}

// mustTable возвращает таблицу из реестра схемы.
// Отсутствие таблицы — системная ошибка конфигурации, а не данных
func mustTable(name string) schema.Table {
	t, ok := schema.ByName(name)
	if !ok {
		panic(fmt.Sprintf("таблица '%s' не объявлена в схеме", name))
	}
	return t
}
