package models

// NormalizedRow представляет одну нормализованную строку для загрузки:
// значения приведены к типам колонок целевой таблицы,
// внешние ключи разрешены по справочникам
type NormalizedRow map[string]interface{}

// TransformedData содержит результат фазы Transform:
// нормализованные строки, сгруппированные по целевым таблицам
type TransformedData struct {
	Tables map[string][]NormalizedRow
	Stats  TransformStats
}

// TransformStats содержит счетчики фазы Transform.
// Пропуски на уровне записей не фатальны, но обязательно учитываются
type TransformStats struct {
	RecordsIn int
	RowsOut   int
	// Количество пропущенных строк по таблицам (невалидные записи,
	// неразрешенные внешние ключи)
	Skipped map[string]int
}

// NewTransformedData создает пустой результат трансформации
func NewTransformedData() *TransformedData {
	return &TransformedData{
		Tables: make(map[string][]NormalizedRow),
		Stats:  TransformStats{Skipped: make(map[string]int)},
	}
}

// Add добавляет нормализованную строку в целевую таблицу
func (d *TransformedData) Add(table string, row NormalizedRow) {
	d.Tables[table] = append(d.Tables[table], row)
	d.Stats.RowsOut++
}

// Skip учитывает пропущенную строку целевой таблицы
func (d *TransformedData) Skip(table string) {
	d.Stats.Skipped[table]++
}

// SkippedTotal возвращает общее количество пропущенных строк
func (d *TransformedData) SkippedTotal() int {
	total := 0
	for _, n := range d.Stats.Skipped {
		total += n
	}
	return total
}

// Merge переносит строки и счетчики другого результата в текущий
func (d *TransformedData) Merge(other *TransformedData) {
	if other == nil {
		return
	}
	for table, rows := range other.Tables {
		d.Tables[table] = append(d.Tables[table], rows...)
	}
	d.Stats.RecordsIn += other.Stats.RecordsIn
	d.Stats.RowsOut += other.Stats.RowsOut
	for table, n := range other.Stats.Skipped {
		d.Stats.Skipped[table] += n
	}
}
