package extractors

import (
	"context"
	"fmt"
	"net/url"

	"github.com/LilVoxy/et_dwh_sync/ETL/etclient"
	"github.com/LilVoxy/et_dwh_sync/ETL/models"
	"github.com/LilVoxy/et_dwh_sync/ETL/utils"
)

// BaseDictExtractor извлекает базовые справочники из ET API.
// Справочники меняются редко и выгружаются один раз за запуск
type BaseDictExtractor struct {
	client *etclient.Client
	logger *utils.ETLLogger
}

// NewBaseDictExtractor создает новый экземпляр BaseDictExtractor
func NewBaseDictExtractor(client *etclient.Client, logger *utils.ETLLogger) *BaseDictExtractor {
	return &BaseDictExtractor{client: client, logger: logger}
}

// Extract извлекает все базовые справочники
func (e *BaseDictExtractor) Extract(ctx context.Context) (*models.BaseDicts, error) {
	var dicts models.BaseDicts
	var err error

	// Справочники без пагинации на стороне ET, limit с запасом
	if dicts.Agents, err = e.fetchDict(ctx, "agents", "/agents", "999"); err != nil {
		return nil, err
	}
	if dicts.Categories, err = e.fetchDict(ctx, "categories", "/categories", ""); err != nil {
		return nil, err
	}
	if dicts.Groups, err = e.fetchDict(ctx, "groups", "/agent-groups", ""); err != nil {
		return nil, err
	}
	if dicts.Labels, err = e.fetchDict(ctx, "labels", "/labels", ""); err != nil {
		return nil, err
	}
	if dicts.Scorecards, err = e.fetchDict(ctx, "scorecards", "/scorecards", ""); err != nil {
		return nil, err
	}
	if dicts.Tags, err = e.fetchDict(ctx, "tags", "/tags", "9999"); err != nil {
		return nil, err
	}
	if dicts.Users, err = e.fetchDict(ctx, "users", "/users", "999"); err != nil {
		return nil, err
	}

	return &dicts, nil
}

// fetchDict извлекает один справочник
func (e *BaseDictExtractor) fetchDict(ctx context.Context, name, path, limit string) ([]models.RawRecord, error) {
	e.logger.Info("Извлечение справочника '%s'", name)

	params := url.Values{}
	if limit != "" {
		params.Set("limit", limit)
	}

	var records []models.RawRecord
	if err := e.client.Get(ctx, path, params, &records); err != nil {
		return nil, fmt.Errorf("ошибка извлечения справочника '%s': %w", name, err)
	}

	e.logger.Debug("Справочник '%s': %d записей", name, len(records))
	return records, nil
}
