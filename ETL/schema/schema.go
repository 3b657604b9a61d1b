// Package schema описывает целевую реляционную схему DWH:
// таблицы, колонки, ключи и порядок загрузки.
// Схема создается при первой загрузке и никогда не удаляется этим процессом
package schema

// ColumnType семантический тип колонки, отображаемый в тип конкретного диалекта
type ColumnType int

const (
	TypeInt ColumnType = iota
	TypeFloat
	TypeBool
	TypeString
	TypeText
	TypeDateTime
	TypeJSON
	TypeUUID
)

// Column описывает колонку целевой таблицы
type Column struct {
	Name     string
	Type     ColumnType
	Nullable bool
}

// ForeignKey описывает ссылку колонки на справочную таблицу
type ForeignKey struct {
	Column    string
	RefTable  string
	RefColumn string
}

// Table описывает целевую таблицу.
// AutoID добавляет суррогатный автоинкрементный первичный ключ 'id',
// UpsertKey — естественный ключ, по которому выполняется UPSERT
type Table struct {
	Name        string
	Columns     []Column
	AutoID      bool
	UpsertKey   []string
	ForeignKeys []ForeignKey
}

// ColumnNames возвращает имена объявленных колонок (без суррогатного id)
func (t Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// HasColumn проверяет наличие объявленной колонки
func (t Table) HasColumn(name string) bool {
	for _, c := range t.Columns {
		if c.Name == name {
			return true
		}
	}
	return false
}

// ByName возвращает таблицу по имени
func ByName(name string) (Table, bool) {
	for _, t := range Tables() {
		if t.Name == name {
			return t, true
		}
	}
	return Table{}, false
}

// Tables возвращает все целевые таблицы в порядке, безопасном для
// загрузки с внешними ключами: справочники раньше ссылающихся на них данных
func Tables() []Table {
	return []Table{
		// --- Базовые справочники ---
		{
			Name: "agents",
			Columns: []Column{
				{Name: "id", Type: TypeInt},
				{Name: "name", Type: TypeString, Nullable: true},
				{Name: "phone_number", Type: TypeString, Nullable: true},
				{Name: "is_active", Type: TypeBool, Nullable: true},
				{Name: "deactivated_at", Type: TypeDateTime, Nullable: true},
			},
			UpsertKey: []string{"id"},
		},
		{
			Name: "scorecards",
			Columns: []Column{
				{Name: "id", Type: TypeInt},
				{Name: "name", Type: TypeString, Nullable: true},
				{Name: "type", Type: TypeString, Nullable: true},
				{Name: "na_behavior", Type: TypeString, Nullable: true},
				{Name: "count_critical_scores", Type: TypeBool, Nullable: true},
				{Name: "is_automated", Type: TypeBool, Nullable: true},
				{Name: "is_protected", Type: TypeBool, Nullable: true},
				{Name: "is_default", Type: TypeBool, Nullable: true},
				{Name: "is_archived", Type: TypeBool, Nullable: true},
			},
			UpsertKey: []string{"id"},
		},
		{
			Name: "groups",
			Columns: []Column{
				{Name: "id", Type: TypeInt},
				{Name: "name", Type: TypeString, Nullable: true},
				{Name: "scorecard_id", Type: TypeInt, Nullable: true},
				{Name: "is_default", Type: TypeBool, Nullable: true},
			},
			UpsertKey: []string{"id"},
			ForeignKeys: []ForeignKey{
				{Column: "scorecard_id", RefTable: "scorecards", RefColumn: "id"},
			},
		},
		{
			Name:   "agent_group_associations",
			AutoID: true,
			Columns: []Column{
				{Name: "group_id", Type: TypeInt, Nullable: true},
				{Name: "agent_id", Type: TypeInt, Nullable: true},
				{Name: "start_dt", Type: TypeDateTime, Nullable: true},
			},
			UpsertKey: []string{"group_id", "agent_id", "start_dt"},
			ForeignKeys: []ForeignKey{
				{Column: "group_id", RefTable: "groups", RefColumn: "id"},
				{Column: "agent_id", RefTable: "agents", RefColumn: "id"},
			},
		},
		{
			Name: "users",
			Columns: []Column{
				{Name: "id", Type: TypeInt},
				{Name: "email", Type: TypeString, Nullable: true},
				{Name: "is_active", Type: TypeBool, Nullable: true},
				{Name: "is_superuser", Type: TypeBool, Nullable: true},
				{Name: "full_name", Type: TypeString, Nullable: true},
				{Name: "agent_id", Type: TypeInt, Nullable: true},
				{Name: "agent_group_id", Type: TypeInt, Nullable: true},
				{Name: "language", Type: TypeString, Nullable: true},
				{Name: "uuid", Type: TypeUUID, Nullable: true},
				{Name: "invite_expires", Type: TypeDateTime, Nullable: true},
			},
			UpsertKey: []string{"id"},
			ForeignKeys: []ForeignKey{
				{Column: "agent_id", RefTable: "agents", RefColumn: "id"},
				{Column: "agent_group_id", RefTable: "groups", RefColumn: "id"},
			},
		},
		{
			Name: "categories",
			Columns: []Column{
				{Name: "id", Type: TypeInt},
				{Name: "name", Type: TypeString, Nullable: true},
				{Name: "filter_data", Type: TypeText, Nullable: true},
				{Name: "position", Type: TypeInt, Nullable: true},
				{Name: "created_at", Type: TypeDateTime, Nullable: true},
				{Name: "updated_at", Type: TypeDateTime, Nullable: true},
			},
			UpsertKey: []string{"id"},
		},
		{
			Name: "labels",
			Columns: []Column{
				{Name: "id", Type: TypeInt},
				{Name: "text", Type: TypeString, Nullable: true},
			},
			UpsertKey: []string{"id"},
		},
		{
			Name:   "category_labels",
			AutoID: true,
			Columns: []Column{
				{Name: "category_id", Type: TypeInt, Nullable: true},
				{Name: "label_id", Type: TypeInt, Nullable: true},
			},
			UpsertKey: []string{"category_id", "label_id"},
			ForeignKeys: []ForeignKey{
				{Column: "category_id", RefTable: "categories", RefColumn: "id"},
				{Column: "label_id", RefTable: "labels", RefColumn: "id"},
			},
		},
		{
			Name: "scorecard_categories",
			Columns: []Column{
				{Name: "id", Type: TypeInt},
				{Name: "name", Type: TypeString, Nullable: true},
				{Name: "scorecard_id", Type: TypeInt, Nullable: true},
				{Name: "sort_order", Type: TypeInt, Nullable: true},
			},
			UpsertKey: []string{"id"},
			ForeignKeys: []ForeignKey{
				{Column: "scorecard_id", RefTable: "scorecards", RefColumn: "id"},
			},
		},
		{
			Name: "scorecard_points",
			Columns: []Column{
				{Name: "id", Type: TypeInt},
				{Name: "scorecard_id", Type: TypeInt, Nullable: true},
				{Name: "category_id", Type: TypeInt, Nullable: true},
				{Name: "name", Type: TypeString, Nullable: true},
				{Name: "description", Type: TypeText, Nullable: true},
				{Name: "sort_order", Type: TypeInt, Nullable: true},
				{Name: "critical", Type: TypeBool, Nullable: true},
				{Name: "max_score", Type: TypeInt, Nullable: true},
				{Name: "allow_partial_score", Type: TypeBool, Nullable: true},
			},
			UpsertKey: []string{"id"},
			ForeignKeys: []ForeignKey{
				{Column: "scorecard_id", RefTable: "scorecards", RefColumn: "id"},
				{Column: "category_id", RefTable: "scorecard_categories", RefColumn: "id"},
			},
		},
		{
			Name: "tags",
			Columns: []Column{
				{Name: "id", Type: TypeInt},
				{Name: "name", Type: TypeString, Nullable: true},
				{Name: "type", Type: TypeString, Nullable: true},
				{Name: "team_id", Type: TypeInt, Nullable: true},
				{Name: "is_archived", Type: TypeBool, Nullable: true},
				{Name: "archived_by_id", Type: TypeInt, Nullable: true},
				{Name: "archived_at", Type: TypeDateTime, Nullable: true},
			},
			UpsertKey: []string{"id"},
			ForeignKeys: []ForeignKey{
				{Column: "team_id", RefTable: "groups", RefColumn: "id"},
			},
		},
		{
			Name:   "tag_labels",
			AutoID: true,
			Columns: []Column{
				{Name: "tag_id", Type: TypeInt, Nullable: true},
				{Name: "label_id", Type: TypeInt, Nullable: true},
			},
			UpsertKey: []string{"tag_id", "label_id"},
			ForeignKeys: []ForeignKey{
				{Column: "tag_id", RefTable: "tags", RefColumn: "id"},
				{Column: "label_id", RefTable: "labels", RefColumn: "id"},
			},
		},
		// --- Данные - меняются в течение дня: сессии, теги, оценки ---
		{
			Name: "sessions",
			Columns: []Column{
				{Name: "id", Type: TypeUUID},
				{Name: "type", Type: TypeString, Nullable: true},
				{Name: "caller_id", Type: TypeString, Nullable: true},
				{Name: "source", Type: TypeString, Nullable: true},
				{Name: "language_code", Type: TypeString, Nullable: true},
				{Name: "asr_size", Type: TypeString, Nullable: true},
				{Name: "filename", Type: TypeString, Nullable: true},
				{Name: "destination_id", Type: TypeString, Nullable: true},
				{Name: "start_dt", Type: TypeDateTime, Nullable: true},
				{Name: "direction", Type: TypeString, Nullable: true},
				{Name: "agent_id", Type: TypeInt, Nullable: true},
				{Name: "group_id", Type: TypeInt, Nullable: true},
				{Name: "duration", Type: TypeFloat, Nullable: true},
				{Name: "silence", Type: TypeFloat, Nullable: true},
				{Name: "silence_percent", Type: TypeFloat, Nullable: true},
				{Name: "agent_channel", Type: TypeInt, Nullable: true},
				{Name: "comments_count", Type: TypeInt, Nullable: true},
				{Name: "default_scorecard_id", Type: TypeInt, Nullable: true},
				{Name: "average_score", Type: TypeFloat, Nullable: true},
				{Name: "is_processed", Type: TypeBool, Nullable: true},
				{Name: "overlaps_data", Type: TypeJSON, Nullable: true},
				{Name: "duration_details", Type: TypeJSON, Nullable: true},
				{Name: "score_details", Type: TypeJSON, Nullable: true},
				{Name: "queue_name", Type: TypeString, Nullable: true},
				{Name: "campaign_name", Type: TypeString, Nullable: true},
				{Name: "term_reason", Type: TypeString, Nullable: true},
				{Name: "waiting_time", Type: TypeInt, Nullable: true},
				{Name: "fcr", Type: TypeInt, Nullable: true},
				{Name: "csi", Type: TypeInt, Nullable: true},
				{Name: "nps", Type: TypeInt, Nullable: true},
				{Name: "list_id", Type: TypeInt, Nullable: true},
				{Name: "words_count_agent", Type: TypeInt, Nullable: true},
				{Name: "words_count_client", Type: TypeInt, Nullable: true},
				{Name: "words_count_both", Type: TypeInt, Nullable: true},
				{Name: "caller_prev_session_id", Type: TypeUUID, Nullable: true},
				{Name: "additional_info", Type: TypeJSON, Nullable: true},
			},
			UpsertKey: []string{"id"},
			ForeignKeys: []ForeignKey{
				{Column: "agent_id", RefTable: "agents", RefColumn: "id"},
				{Column: "group_id", RefTable: "groups", RefColumn: "id"},
			},
		},
		{
			Name:   "sessions_categories",
			AutoID: true,
			Columns: []Column{
				{Name: "session_id", Type: TypeUUID, Nullable: true},
				{Name: "category_id", Type: TypeInt, Nullable: true},
				{Name: "is_verified", Type: TypeBool, Nullable: true},
			},
			UpsertKey: []string{"session_id", "category_id", "is_verified"},
			ForeignKeys: []ForeignKey{
				{Column: "session_id", RefTable: "sessions", RefColumn: "id"},
				{Column: "category_id", RefTable: "categories", RefColumn: "id"},
			},
		},
		{
			Name:   "sessions_crm_statuses",
			AutoID: true,
			Columns: []Column{
				{Name: "session_id", Type: TypeUUID, Nullable: true},
				{Name: "crm_status", Type: TypeString, Nullable: true},
			},
			UpsertKey: []string{"session_id", "crm_status"},
			ForeignKeys: []ForeignKey{
				{Column: "session_id", RefTable: "sessions", RefColumn: "id"},
			},
		},
		{
			Name:   "sessions_reviewers",
			AutoID: true,
			Columns: []Column{
				{Name: "session_id", Type: TypeUUID, Nullable: true},
				{Name: "reviewer_id", Type: TypeInt, Nullable: true},
				{Name: "last_reviewed_at", Type: TypeDateTime, Nullable: true},
			},
			UpsertKey: []string{"session_id", "reviewer_id"},
			ForeignKeys: []ForeignKey{
				{Column: "session_id", RefTable: "sessions", RefColumn: "id"},
				{Column: "reviewer_id", RefTable: "users", RefColumn: "id"},
			},
		},
		{
			Name:   "sessions_scores",
			AutoID: true,
			Columns: []Column{
				{Name: "session_id", Type: TypeUUID, Nullable: true},
				{Name: "scorecard_id", Type: TypeInt, Nullable: true},
				{Name: "reviewer_id", Type: TypeInt, Nullable: true},
				{Name: "scorecard_point_id", Type: TypeInt, Nullable: true},
				{Name: "score", Type: TypeInt, Nullable: true},
				{Name: "comment", Type: TypeText, Nullable: true},
			},
			UpsertKey: []string{"session_id", "scorecard_id", "reviewer_id", "scorecard_point_id"},
			ForeignKeys: []ForeignKey{
				{Column: "session_id", RefTable: "sessions", RefColumn: "id"},
				{Column: "scorecard_id", RefTable: "scorecards", RefColumn: "id"},
				{Column: "reviewer_id", RefTable: "users", RefColumn: "id"},
				{Column: "scorecard_point_id", RefTable: "scorecard_points", RefColumn: "id"},
			},
		},
		{
			Name:   "sessions_tags",
			AutoID: true,
			Columns: []Column{
				{Name: "session_id", Type: TypeUUID, Nullable: true},
				{Name: "tag_id", Type: TypeInt, Nullable: true},
				{Name: "score", Type: TypeFloat, Nullable: true},
				{Name: "matched_corpus_text", Type: TypeText, Nullable: true},
				{Name: "is_agent", Type: TypeBool, Nullable: true},
				{Name: "transcript_id", Type: TypeInt, Nullable: true},
				{Name: "matched_query_text", Type: TypeText, Nullable: true},
				{Name: "meta", Type: TypeJSON, Nullable: true},
			},
			UpsertKey: []string{"session_id", "tag_id", "transcript_id"},
			ForeignKeys: []ForeignKey{
				{Column: "session_id", RefTable: "sessions", RefColumn: "id"},
				{Column: "tag_id", RefTable: "tags", RefColumn: "id"},
			},
		},
		{
			Name:   "sessions_comments",
			AutoID: true,
			Columns: []Column{
				{Name: "session_id", Type: TypeUUID, Nullable: true},
				{Name: "author_id", Type: TypeInt, Nullable: true},
				{Name: "text", Type: TypeText, Nullable: true},
				{Name: "comments", Type: TypeText, Nullable: true},
			},
			UpsertKey: []string{"session_id"},
			ForeignKeys: []ForeignKey{
				{Column: "session_id", RefTable: "sessions", RefColumn: "id"},
				{Column: "author_id", RefTable: "users", RefColumn: "id"},
			},
		},
		{
			Name:   "sessions_summaries",
			AutoID: true,
			Columns: []Column{
				{Name: "session_id", Type: TypeUUID, Nullable: true},
				{Name: "text", Type: TypeText, Nullable: true},
			},
			UpsertKey: []string{"session_id"},
			ForeignKeys: []ForeignKey{
				{Column: "session_id", RefTable: "sessions", RefColumn: "id"},
			},
		},
	}
}
