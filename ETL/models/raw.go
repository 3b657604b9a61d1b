package models

// RawRecord представляет одну запись ET API в исходном виде,
// как ее вернул сервер: имя поля -> значение
type RawRecord map[string]interface{}

// BaseDicts содержит базовые справочники — редко меняющиеся сущности,
// по которым разрешаются внешние ключи быстрых данных
type BaseDicts struct {
	Agents     []RawRecord
	Categories []RawRecord
	Groups     []RawRecord
	Labels     []RawRecord
	Scorecards []RawRecord
	Tags       []RawRecord
	Users      []RawRecord
}

// Count возвращает суммарное количество записей во всех справочниках
func (d *BaseDicts) Count() int {
	return len(d.Agents) + len(d.Categories) + len(d.Groups) +
		len(d.Labels) + len(d.Scorecards) + len(d.Tags) + len(d.Users)
}

// BaseDictKeys содержит множества ключей справочников для разрешения
// внешних ключей при трансформации данных сессий
type BaseDictKeys struct {
	Agents          map[int64]struct{}
	Groups          map[int64]struct{}
	Categories      map[int64]struct{}
	Tags            map[int64]struct{}
	Users           map[int64]struct{}
	Scorecards      map[int64]struct{}
	ScorecardPoints map[int64]struct{}
}

// NewBaseDictKeys создает пустой набор ключей справочников
func NewBaseDictKeys() *BaseDictKeys {
	return &BaseDictKeys{
		Agents:          make(map[int64]struct{}),
		Groups:          make(map[int64]struct{}),
		Categories:      make(map[int64]struct{}),
		Tags:            make(map[int64]struct{}),
		Users:           make(map[int64]struct{}),
		Scorecards:      make(map[int64]struct{}),
		ScorecardPoints: make(map[int64]struct{}),
	}
}
