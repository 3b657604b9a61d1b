package load

import (
	"fmt"
	"strings"

	"github.com/LilVoxy/et_dwh_sync/ETL/config"
	"github.com/LilVoxy/et_dwh_sync/ETL/schema"
)

// UpsertSQL генерирует идемпотентный UPSERT по естественному ключу таблицы.
// Аргументы передаются в порядке объявленных колонок таблицы.
// Повторная загрузка той же строки не создает дубликатов
func UpsertSQL(t schema.Table, dialect config.Dialect) string {
	switch dialect {
	case config.DialectMySQL:
		return mysqlUpsert(t)
	case config.DialectPostgres:
		return postgresUpsert(t)
	case config.DialectSQLServer:
		return sqlserverUpsert(t)
	}
	return ""
}

// RowArgs собирает аргументы запроса в порядке объявленных колонок
func RowArgs(t schema.Table, row map[string]interface{}) []interface{} {
	args := make([]interface{}, len(t.Columns))
	for i, c := range t.Columns {
		args[i] = row[c.Name]
	}
	return args
}

func mysqlUpsert(t schema.Table) string {
	cols := t.ColumnNames()
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ")

	updates := make([]string, 0, len(cols))
	for _, c := range nonKeyColumns(t) {
		q := schema.QuoteIdent(c, config.DialectMySQL)
		updates = append(updates, fmt.Sprintf("%s = VALUES(%s)", q, q))
	}
	if len(updates) == 0 {
		// Таблица состоит из одного ключа, обновлять нечего
		q := schema.QuoteIdent(t.UpsertKey[0], config.DialectMySQL)
		updates = append(updates, fmt.Sprintf("%s = %s", q, q))
	}

	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) ON DUPLICATE KEY UPDATE %s",
		schema.QuoteIdent(t.Name, config.DialectMySQL),
		quoteList(cols, config.DialectMySQL),
		placeholders,
		strings.Join(updates, ", "))
}

func postgresUpsert(t schema.Table) string {
	cols := t.ColumnNames()
	placeholders := make([]string, len(cols))
	for i := range cols {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}

	conflict := fmt.Sprintf("ON CONFLICT (%s) DO NOTHING", quoteList(t.UpsertKey, config.DialectPostgres))
	if nonKey := nonKeyColumns(t); len(nonKey) > 0 {
		updates := make([]string, len(nonKey))
		for i, c := range nonKey {
			q := schema.QuoteIdent(c, config.DialectPostgres)
			updates[i] = fmt.Sprintf("%s = EXCLUDED.%s", q, q)
		}
		conflict = fmt.Sprintf("ON CONFLICT (%s) DO UPDATE SET %s",
			quoteList(t.UpsertKey, config.DialectPostgres), strings.Join(updates, ", "))
	}

	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) %s",
		schema.QuoteIdent(t.Name, config.DialectPostgres),
		quoteList(cols, config.DialectPostgres),
		strings.Join(placeholders, ", "),
		conflict)
}

// sqlserverUpsert генерирует конструкцию IF EXISTS UPDATE ELSE INSERT.
// Именованные параметры @pN переиспользуются в обеих ветках,
// поэтому аргументы передаются один раз в порядке колонок
func sqlserverUpsert(t schema.Table) string {
	dialect := config.DialectSQLServer
	cols := t.ColumnNames()

	params := make(map[string]string, len(cols))
	placeholders := make([]string, len(cols))
	for i, c := range cols {
		params[c] = fmt.Sprintf("@p%d", i+1)
		placeholders[i] = params[c]
	}

	conditions := make([]string, len(t.UpsertKey))
	for i, k := range t.UpsertKey {
		conditions[i] = fmt.Sprintf("%s = %s", schema.QuoteIdent(k, dialect), params[k])
	}
	where := strings.Join(conditions, " AND ")

	tableName := schema.QuoteIdent(t.Name, dialect)
	insert := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		tableName, quoteList(cols, dialect), strings.Join(placeholders, ", "))

	nonKey := nonKeyColumns(t)
	if len(nonKey) == 0 {
		return fmt.Sprintf("IF NOT EXISTS (SELECT 1 FROM %s WHERE %s) %s", tableName, where, insert)
	}

	updates := make([]string, len(nonKey))
	for i, c := range nonKey {
		updates[i] = fmt.Sprintf("%s = %s", schema.QuoteIdent(c, dialect), params[c])
	}
	return fmt.Sprintf("IF EXISTS (SELECT 1 FROM %s WHERE %s) UPDATE %s SET %s WHERE %s ELSE %s",
		tableName, where, tableName, strings.Join(updates, ", "), where, insert)
}

// nonKeyColumns возвращает колонки, не входящие в естественный ключ
func nonKeyColumns(t schema.Table) []string {
	key := make(map[string]struct{}, len(t.UpsertKey))
	for _, k := range t.UpsertKey {
		key[k] = struct{}{}
	}
	var cols []string
	for _, c := range t.Columns {
		if _, isKey := key[c.Name]; !isKey {
			cols = append(cols, c.Name)
		}
	}
	return cols
}

func quoteList(names []string, dialect config.Dialect) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = schema.QuoteIdent(n, dialect)
	}
	return strings.Join(quoted, ", ")
}
