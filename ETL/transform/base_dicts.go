package transform

import (
	"github.com/LilVoxy/et_dwh_sync/ETL/models"
)

// etDefaultUser служебный пользователь Ender Turing.
// Автоматические оценки ссылаются на reviewer_id = 0,
// которого нет в справочнике пользователей API
var etDefaultUser = models.RawRecord{
	"id":             float64(0),
	"full_name":      "Ender Turing",
	"email":          "ender.turing@enderturing.com",
	"is_active":      false,
	"is_superuser":   false,
	"invite_expires": "1900-01-01T00:00:00.000",
}

// transformAgents разворачивает агентов: строка agents плюс строки
// agent_group_associations для каждой группы агента
func (t *Transformer) transformAgents(agents []models.RawRecord, data *models.TransformedData, keys *models.BaseDictKeys) {
	agentsTable := mustTable("agents")
	assocTable := mustTable("agent_group_associations")

	for _, agent := range agents {
		row, err := buildRow(agentsTable, agent)
		if err != nil {
			t.logger.Error("Пропуск записи agents: %v", err)
			data.Skip(agentsTable.Name)
			continue
		}
		data.Add(agentsTable.Name, row)
		if id, ok := rawInt64(agent, "id"); ok {
			keys.Agents[id] = struct{}{}
		}

		// 'groups' агента уходит в отдельную таблицу связей
		for _, group := range rawList(agent["groups"]) {
			assoc := models.RawRecord{
				"group_id": group["id"],
				"agent_id": agent["id"],
				"start_dt": group["start_dt"],
			}
			assocRow, err := buildRow(assocTable, assoc)
			if err != nil {
				t.logger.Error("Пропуск записи agent_group_associations: %v", err)
				data.Skip(assocTable.Name)
				continue
			}
			data.Add(assocTable.Name, assocRow)
		}
	}
}

// transformScorecards разворачивает опросники: строка scorecards плюс
// строки scorecard_categories и scorecard_points из вложенных списков
func (t *Transformer) transformScorecards(scorecards []models.RawRecord, data *models.TransformedData, keys *models.BaseDictKeys) {
	scorecardsTable := mustTable("scorecards")
	categoriesTable := mustTable("scorecard_categories")
	pointsTable := mustTable("scorecard_points")

	for _, scorecard := range scorecards {
		row, err := buildRow(scorecardsTable, scorecard)
		if err != nil {
			t.logger.Error("Пропуск записи scorecards: %v", err)
			data.Skip(scorecardsTable.Name)
			continue
		}
		data.Add(scorecardsTable.Name, row)
		if id, ok := rawInt64(scorecard, "id"); ok {
			keys.Scorecards[id] = struct{}{}
		}

		for _, category := range rawList(scorecard["categories"]) {
			if category["scorecard_id"] == nil {
				category["scorecard_id"] = scorecard["id"]
			}
			catRow, err := buildRow(categoriesTable, category)
			if err != nil {
				t.logger.Error("Пропуск записи scorecard_categories: %v", err)
				data.Skip(categoriesTable.Name)
				continue
			}
			data.Add(categoriesTable.Name, catRow)

			for _, point := range rawList(category["points"]) {
				if point["scorecard_id"] == nil {
					point["scorecard_id"] = scorecard["id"]
				}
				if point["category_id"] == nil {
					point["category_id"] = category["id"]
				}
				pointRow, err := buildRow(pointsTable, point)
				if err != nil {
					t.logger.Error("Пропуск записи scorecard_points: %v", err)
					data.Skip(pointsTable.Name)
					continue
				}
				data.Add(pointsTable.Name, pointRow)
				if id, ok := rawInt64(point, "id"); ok {
					keys.ScorecardPoints[id] = struct{}{}
				}
			}
		}
	}
}

// transformGroups преобразует справочник команд
func (t *Transformer) transformGroups(groups []models.RawRecord, data *models.TransformedData, keys *models.BaseDictKeys) {
	table := mustTable("groups")
	for _, group := range groups {
		row, err := buildRow(table, group)
		if err != nil {
			t.logger.Error("Пропуск записи groups: %v", err)
			data.Skip(table.Name)
			continue
		}
		data.Add(table.Name, row)
		if id, ok := rawInt64(group, "id"); ok {
			keys.Groups[id] = struct{}{}
		}
	}
}

// transformCategories разворачивает категории: строка categories плюс
// строки category_labels для каждой метки категории
func (t *Transformer) transformCategories(categories []models.RawRecord, data *models.TransformedData, keys *models.BaseDictKeys) {
	categoriesTable := mustTable("categories")
	labelsTable := mustTable("category_labels")

	for _, category := range categories {
		row, err := buildRow(categoriesTable, category)
		if err != nil {
			t.logger.Error("Пропуск записи categories: %v", err)
			data.Skip(categoriesTable.Name)
			continue
		}
		data.Add(categoriesTable.Name, row)
		if id, ok := rawInt64(category, "id"); ok {
			keys.Categories[id] = struct{}{}
		}

		for _, label := range rawList(category["labels"]) {
			assoc := models.RawRecord{
				"category_id": category["id"],
				"label_id":    label["id"],
			}
			assocRow, err := buildRow(labelsTable, assoc)
			if err != nil {
				t.logger.Error("Пропуск записи category_labels: %v", err)
				data.Skip(labelsTable.Name)
				continue
			}
			data.Add(labelsTable.Name, assocRow)
		}
	}
}

// transformLabels преобразует справочник меток
func (t *Transformer) transformLabels(labels []models.RawRecord, data *models.TransformedData) {
	table := mustTable("labels")
	for _, label := range labels {
		row, err := buildRow(table, label)
		if err != nil {
			t.logger.Error("Пропуск записи labels: %v", err)
			data.Skip(table.Name)
			continue
		}
		data.Add(table.Name, row)
	}
}

// transformTags разворачивает теги: строка tags плюс строки tag_labels
func (t *Transformer) transformTags(tags []models.RawRecord, data *models.TransformedData, keys *models.BaseDictKeys) {
	tagsTable := mustTable("tags")
	labelsTable := mustTable("tag_labels")

	for _, tag := range tags {
		row, err := buildRow(tagsTable, tag)
		if err != nil {
			t.logger.Error("Пропуск записи tags: %v", err)
			data.Skip(tagsTable.Name)
			continue
		}
		data.Add(tagsTable.Name, row)
		if id, ok := rawInt64(tag, "id"); ok {
			keys.Tags[id] = struct{}{}
		}

		for _, label := range rawList(tag["labels"]) {
			assoc := models.RawRecord{
				"tag_id":   tag["id"],
				"label_id": label["id"],
			}
			assocRow, err := buildRow(labelsTable, assoc)
			if err != nil {
				t.logger.Error("Пропуск записи tag_labels: %v", err)
				data.Skip(labelsTable.Name)
				continue
			}
			data.Add(labelsTable.Name, assocRow)
		}
	}
}

// transformUsers преобразует справочник пользователей,
// добавляя служебного пользователя ET при его отсутствии в ответе API
func (t *Transformer) transformUsers(users []models.RawRecord, data *models.TransformedData, keys *models.BaseDictKeys) {
	table := mustTable("users")

	hasDefault := false
	for _, user := range users {
		if id, ok := rawInt64(user, "id"); ok && id == 0 {
			hasDefault = true
		}
	}
	if !hasDefault {
		users = append(users, etDefaultUser)
	}

	for _, user := range users {
		row, err := buildRow(table, user)
		if err != nil {
			t.logger.Error("Пропуск записи users: %v", err)
			data.Skip(table.Name)
			continue
		}
		data.Add(table.Name, row)
		if id, ok := rawInt64(user, "id"); ok {
			keys.Users[id] = struct{}{}
		}
	}
}
