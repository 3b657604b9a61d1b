package schema

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LilVoxy/et_dwh_sync/ETL/config"
)

func TestTablesOrderRespectsForeignKeys(t *testing.T) {
	position := map[string]int{}
	for i, table := range Tables() {
		position[table.Name] = i
	}

	for _, table := range Tables() {
		for _, fk := range table.ForeignKeys {
			refPos, ok := position[fk.RefTable]
			require.True(t, ok, "таблица %s ссылается на необъявленную %s", table.Name, fk.RefTable)
			assert.Less(t, refPos, position[table.Name],
				"%s должна идти после %s", table.Name, fk.RefTable)
		}
	}
}

func TestTablesUpsertKeyColumnsDeclared(t *testing.T) {
	for _, table := range Tables() {
		require.NotEmpty(t, table.UpsertKey, table.Name)
		for _, k := range table.UpsertKey {
			assert.True(t, table.HasColumn(k), "ключ %s.%s не объявлен", table.Name, k)
		}
	}
}

func TestCreateTableSQLMySQL(t *testing.T) {
	table, ok := ByName("agent_group_associations")
	require.True(t, ok)

	ddl := CreateTableSQL(table, config.DialectMySQL)
	assert.True(t, strings.HasPrefix(ddl, "CREATE TABLE IF NOT EXISTS `agent_group_associations`"))
	assert.Contains(t, ddl, "`id` INT NOT NULL AUTO_INCREMENT")
	assert.Contains(t, ddl, "CONSTRAINT `uq_agent_group_associations` UNIQUE (`group_id`, `agent_id`, `start_dt`)")
	assert.Contains(t, ddl, "CONSTRAINT `fk_agent_group_associations_agent_id` FOREIGN KEY (`agent_id`) REFERENCES `agents` (`id`)")
}

func TestCreateTableSQLPostgres(t *testing.T) {
	table, ok := ByName("sessions")
	require.True(t, ok)

	ddl := CreateTableSQL(table, config.DialectPostgres)
	assert.Contains(t, ddl, `"id" UUID NOT NULL`)
	assert.Contains(t, ddl, `"overlaps_data" JSONB`)
	assert.Contains(t, ddl, `PRIMARY KEY ("id")`)
}

func TestCreateTableSQLSQLServer(t *testing.T) {
	table, ok := ByName("groups")
	require.True(t, ok)

	ddl := CreateTableSQL(table, config.DialectSQLServer)
	// В SQL Server нет IF NOT EXISTS для таблиц
	assert.True(t, strings.HasPrefix(ddl, "IF OBJECT_ID(N'groups', N'U') IS NULL CREATE TABLE [groups]"))
	assert.Contains(t, ddl, "[name] NVARCHAR(255)")
}

func TestQuoteIdentReservedNames(t *testing.T) {
	assert.Equal(t, "`groups`", QuoteIdent("groups", config.DialectMySQL))
	assert.Equal(t, `"users"`, QuoteIdent("users", config.DialectPostgres))
	assert.Equal(t, "[groups]", QuoteIdent("groups", config.DialectSQLServer))
}

func TestAutoIDTablesDoNotRedeclareID(t *testing.T) {
	for _, table := range Tables() {
		if table.AutoID {
			assert.False(t, table.HasColumn("id"),
				"таблица %s с суррогатным ключом не должна объявлять id", table.Name)
		} else {
			assert.True(t, table.HasColumn("id"), table.Name)
		}
	}
}
