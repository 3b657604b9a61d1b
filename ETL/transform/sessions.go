package transform

import (
	"github.com/LilVoxy/et_dwh_sync/ETL/models"
)

// transformSession разворачивает одну запись сессии в строки целевых таблиц
func (t *Transformer) transformSession(session models.RawRecord, data *models.TransformedData, keys *models.BaseDictKeys) {
	sessionsTable := mustTable("sessions")

	// Неразрешенная ссылка на агента или команду не блокирует саму сессию:
	// колонка обнуляется с предупреждением
	for field, dict := range map[string]map[int64]struct{}{
		"agent_id": keys.Agents,
		"group_id": keys.Groups,
	} {
		if id, ok := rawInt64(session, field); ok {
			if _, exists := dict[id]; !exists {
				t.logger.Warn("Сессия %v: '%s'=%d отсутствует в справочнике, значение обнулено",
					session["id"], field, id)
				session[field] = nil
			}
		}
	}

	row, err := buildRow(sessionsTable, session)
	if err != nil {
		t.logger.Error("Пропуск записи sessions: %v", err)
		data.Skip(sessionsTable.Name)
		return
	}
	data.Add(sessionsTable.Name, row)

	sessionID := row["id"].(string)
	t.transformSessionTags(sessionID, session, data, keys)
	t.transformSessionCategories(sessionID, session, data, keys)
	t.transformSessionReviewers(sessionID, session, data, keys)
	t.transformSessionScores(sessionID, session, data, keys)
	t.transformSessionComments(sessionID, session, data, keys)
	t.transformSessionSummaries(sessionID, session, data)
	t.transformSessionCRMStatuses(sessionID, session, data)
}

// transformSessionTags разворачивает совпадения тегов сессии.
// Каждое вхождение тега в транскрипте — отдельная строка sessions_tags
func (t *Transformer) transformSessionTags(sessionID string, session models.RawRecord, data *models.TransformedData, keys *models.BaseDictKeys) {
	table := mustTable("sessions_tags")

	for _, tag := range rawList(session["tags"]) {
		tagID, ok := rawInt64(tag, "id")
		if !ok {
			t.logger.Error("Сессия %s: совпадение тега без идентификатора, строка пропущена", sessionID)
			data.Skip(table.Name)
			continue
		}
		if _, exists := keys.Tags[tagID]; !exists {
			t.logger.Error("Сессия %s: тег %d отсутствует в справочнике, строка пропущена", sessionID, tagID)
			data.Skip(table.Name)
			continue
		}

		for _, match := range rawList(tag["match"]) {
			match["session_id"] = sessionID
			match["tag_id"] = tag["id"]
			row, err := buildRow(table, match)
			if err != nil {
				t.logger.Error("Пропуск записи sessions_tags: %v", err)
				data.Skip(table.Name)
				continue
			}
			data.Add(table.Name, row)
		}
	}
}

// transformSessionCategories разворачивает категории (топики) сессии
func (t *Transformer) transformSessionCategories(sessionID string, session models.RawRecord, data *models.TransformedData, keys *models.BaseDictKeys) {
	table := mustTable("sessions_categories")

	for _, category := range rawList(session["categories"]) {
		categoryID, ok := rawInt64(category, "id")
		if !ok {
			t.logger.Error("Сессия %s: категория без идентификатора, строка пропущена", sessionID)
			data.Skip(table.Name)
			continue
		}
		if _, exists := keys.Categories[categoryID]; !exists {
			t.logger.Error("Сессия %s: категория %d отсутствует в справочнике, строка пропущена", sessionID, categoryID)
			data.Skip(table.Name)
			continue
		}

		raw := models.RawRecord{
			"session_id":  sessionID,
			"category_id": category["id"],
			"is_verified": category["is_verified"],
		}
		row, err := buildRow(table, raw)
		if err != nil {
			t.logger.Error("Пропуск записи sessions_categories: %v", err)
			data.Skip(table.Name)
			continue
		}
		data.Add(table.Name, row)
	}
}

// transformSessionReviewers разворачивает рецензентов сессии
func (t *Transformer) transformSessionReviewers(sessionID string, session models.RawRecord, data *models.TransformedData, keys *models.BaseDictKeys) {
	table := mustTable("sessions_reviewers")

	for _, reviewer := range rawList(session["reviewers"]) {
		reviewerID, ok := rawInt64(reviewer, "id")
		if !ok {
			t.logger.Error("Сессия %s: рецензент без идентификатора, строка пропущена", sessionID)
			data.Skip(table.Name)
			continue
		}
		if _, exists := keys.Users[reviewerID]; !exists {
			t.logger.Error("Сессия %s: рецензент %d отсутствует в справочнике, строка пропущена", sessionID, reviewerID)
			data.Skip(table.Name)
			continue
		}

		raw := models.RawRecord{
			"session_id":       sessionID,
			"reviewer_id":      reviewer["id"],
			"last_reviewed_at": reviewer["last_reviewed_at"],
		}
		row, err := buildRow(table, raw)
		if err != nil {
			t.logger.Error("Пропуск записи sessions_reviewers: %v", err)
			data.Skip(table.Name)
			continue
		}
		data.Add(table.Name, row)
	}
}

// transformSessionScores разворачивает детальные оценки качества.
// Все баллы опросника хранятся в API одним списком point_scores под оценкой,
// каждый балл — отдельная строка sessions_scores
func (t *Transformer) transformSessionScores(sessionID string, session models.RawRecord, data *models.TransformedData, keys *models.BaseDictKeys) {
	table := mustTable("sessions_scores")

	for _, score := range rawList(session["scores"]) {
		for _, point := range rawList(score["point_scores"]) {
			raw := models.RawRecord{
				"session_id":         sessionID,
				"scorecard_id":       score["scorecard_id"],
				"reviewer_id":        score["reviewer_id"],
				"scorecard_point_id": point["scorecard_point_id"],
				"score":              point["score"],
				"comment":            point["comment"],
			}

			if !t.resolveScoreFKs(sessionID, raw, keys) {
				data.Skip(table.Name)
				continue
			}

			row, err := buildRow(table, raw)
			if err != nil {
				t.logger.Error("Пропуск записи sessions_scores: %v", err)
				data.Skip(table.Name)
				continue
			}
			data.Add(table.Name, row)
		}
	}
}

// resolveScoreFKs проверяет ссылки строки оценки на справочники
func (t *Transformer) resolveScoreFKs(sessionID string, raw models.RawRecord, keys *models.BaseDictKeys) bool {
	checks := []struct {
		field string
		dict  map[int64]struct{}
	}{
		{"scorecard_id", keys.Scorecards},
		{"reviewer_id", keys.Users},
		{"scorecard_point_id", keys.ScorecardPoints},
	}
	for _, check := range checks {
		id, ok := rawInt64(raw, check.field)
		if !ok {
			continue // отсутствие необязательной ссылки допустимо
		}
		if _, exists := check.dict[id]; !exists {
			t.logger.Error("Сессия %s: '%s'=%d отсутствует в справочнике, строка оценки пропущена",
				sessionID, check.field, id)
			return false
		}
	}
	return true
}

// transformSessionComments разворачивает комментарии сессии
func (t *Transformer) transformSessionComments(sessionID string, session models.RawRecord, data *models.TransformedData, keys *models.BaseDictKeys) {
	table := mustTable("sessions_comments")

	for _, comment := range rawList(session["comments"]) {
		if authorID, ok := rawInt64(comment, "author_id"); ok {
			if _, exists := keys.Users[authorID]; !exists {
				t.logger.Error("Сессия %s: автор комментария %d отсутствует в справочнике, строка пропущена",
					sessionID, authorID)
				data.Skip(table.Name)
				continue
			}
		}

		comment["session_id"] = sessionID
		row, err := buildRow(table, comment)
		if err != nil {
			t.logger.Error("Пропуск записи sessions_comments: %v", err)
			data.Skip(table.Name)
			continue
		}
		data.Add(table.Name, row)
	}
}

// transformSessionSummaries разворачивает саммари сессии.
// API может вернуть как список, так и одиночный объект
func (t *Transformer) transformSessionSummaries(sessionID string, session models.RawRecord, data *models.TransformedData) {
	table := mustTable("sessions_summaries")

	var summaries []models.RawRecord
	switch v := session["summary"].(type) {
	case map[string]interface{}:
		summaries = []models.RawRecord{models.RawRecord(v)}
	default:
		summaries = rawList(session["summary"])
	}

	for _, summary := range summaries {
		raw := models.RawRecord{
			"session_id": sessionID,
			"text":       summary["text"],
		}
		row, err := buildRow(table, raw)
		if err != nil {
			t.logger.Error("Пропуск записи sessions_summaries: %v", err)
			data.Skip(table.Name)
			continue
		}
		data.Add(table.Name, row)
	}
}

// transformSessionCRMStatuses разворачивает CRM-статусы сессии.
// Статусы приходят списком строк либо списком объектов
func (t *Transformer) transformSessionCRMStatuses(sessionID string, session models.RawRecord, data *models.TransformedData) {
	table := mustTable("sessions_crm_statuses")

	items, ok := session["crm_statuses"].([]interface{})
	if !ok {
		return
	}
	for _, item := range items {
		raw := models.RawRecord{"session_id": sessionID}
		switch v := item.(type) {
		case string:
			raw["crm_status"] = v
		case map[string]interface{}:
			raw["crm_status"] = v["crm_status"]
		default:
			continue
		}

		row, err := buildRow(table, raw)
		if err != nil {
			t.logger.Error("Пропуск записи sessions_crm_statuses: %v", err)
			data.Skip(table.Name)
			continue
		}
		data.Add(table.Name, row)
	}
}
