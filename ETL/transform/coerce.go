package transform

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/LilVoxy/et_dwh_sync/ETL/schema"
	"github.com/google/uuid"
)

// Слои разбора дат, встречающиеся в ответах ET API
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// minDBTime минимально допустимая дата в целевой базе.
// ET использует '0001-01-01T00:00:00' как дату начала по умолчанию,
// такие значения заменяются на 1900-01-01
var minDBTime = time.Date(1900, 1, 1, 0, 0, 0, 0, time.UTC)

// coerceValue приводит исходное значение к типу целевой колонки.
// Возвращает (nil, true) для отсутствующего значения:
// обязательность проверяет вызывающая сторона
func coerceValue(v interface{}, t schema.ColumnType) (interface{}, bool) {
	if v == nil {
		return nil, true
	}

	switch t {
	case schema.TypeInt:
		return coerceInt(v)
	case schema.TypeFloat:
		return coerceFloat(v)
	case schema.TypeBool:
		return coerceBool(v)
	case schema.TypeString, schema.TypeText:
		return coerceString(v)
	case schema.TypeDateTime:
		return coerceTime(v)
	case schema.TypeJSON:
		return coerceJSON(v)
	case schema.TypeUUID:
		return coerceUUID(v)
	}
	return nil, false
}

func coerceInt(v interface{}) (interface{}, bool) {
	switch val := v.(type) {
	case float64:
		return int64(val), true
	case int:
		return int64(val), true
	case int64:
		return val, true
	case json.Number:
		n, err := val.Int64()
		return n, err == nil
	case string:
		if val == "" {
			return nil, true
		}
		n, err := strconv.ParseInt(strings.TrimSpace(val), 10, 64)
		return n, err == nil
	case bool:
		if val {
			return int64(1), true
		}
		return int64(0), true
	}
	return nil, false
}

func coerceFloat(v interface{}) (interface{}, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case int:
		return float64(val), true
	case int64:
		return float64(val), true
	case json.Number:
		f, err := val.Float64()
		return f, err == nil
	case string:
		if val == "" {
			return nil, true
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		return f, err == nil
	}
	return nil, false
}

func coerceBool(v interface{}) (interface{}, bool) {
	switch val := v.(type) {
	case bool:
		return val, true
	case float64:
		return val != 0, true
	case string:
		if val == "" {
			return nil, true
		}
		b, err := strconv.ParseBool(strings.ToLower(val))
		return b, err == nil
	}
	return nil, false
}

func coerceString(v interface{}) (interface{}, bool) {
	switch val := v.(type) {
	case string:
		return val, true
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(val), true
	}
	return nil, false
}

// coerceTime разбирает дату-время и округляет до секунды.
// Выходящие за допустимый диапазон даты заменяются на minDBTime
func coerceTime(v interface{}) (interface{}, bool) {
	s, ok := v.(string)
	if !ok {
		if t, isTime := v.(time.Time); isTime {
			return t.UTC().Truncate(time.Second), true
		}
		return nil, false
	}
	if s == "" {
		return nil, true
	}

	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC().Truncate(time.Second)
			if t.Before(minDBTime) {
				return minDBTime, true
			}
			return t, true
		}
	}
	return nil, false
}

// coerceJSON сериализует вложенный объект в строку для JSON-колонки
func coerceJSON(v interface{}) (interface{}, bool) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, false
	}
	return string(data), true
}

// coerceUUID проверяет и канонизирует UUID-идентификатор
func coerceUUID(v interface{}) (interface{}, bool) {
	s, ok := v.(string)
	if !ok {
		return nil, false
	}
	if s == "" {
		return nil, true
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return nil, false
	}
	return id.String(), true
}
