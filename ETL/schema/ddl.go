package schema

import (
	"fmt"
	"strings"

	"github.com/LilVoxy/et_dwh_sync/ETL/config"
)

// sqlType возвращает тип колонки для указанного диалекта
func sqlType(t ColumnType, dialect config.Dialect) string {
	switch dialect {
	case config.DialectMySQL:
		switch t {
		case TypeInt:
			return "INT"
		case TypeFloat:
			return "DOUBLE"
		case TypeBool:
			return "TINYINT(1)"
		case TypeString:
			return "VARCHAR(255)"
		case TypeText:
			return "TEXT"
		case TypeDateTime:
			return "DATETIME"
		case TypeJSON:
			return "JSON"
		case TypeUUID:
			return "CHAR(36)"
		}
	case config.DialectPostgres:
		switch t {
		case TypeInt:
			return "INTEGER"
		case TypeFloat:
			return "DOUBLE PRECISION"
		case TypeBool:
			return "BOOLEAN"
		case TypeString:
			return "VARCHAR(255)"
		case TypeText:
			return "TEXT"
		case TypeDateTime:
			return "TIMESTAMP"
		case TypeJSON:
			return "JSONB"
		case TypeUUID:
			return "UUID"
		}
	case config.DialectSQLServer:
		switch t {
		case TypeInt:
			return "INT"
		case TypeFloat:
			return "FLOAT"
		case TypeBool:
			return "BIT"
		case TypeString:
			return "NVARCHAR(255)"
		case TypeText:
			return "NVARCHAR(MAX)"
		case TypeDateTime:
			return "DATETIME2"
		case TypeJSON:
			// В SQL Server нет типа JSON, сериализованный объект хранится текстом
			return "NVARCHAR(MAX)"
		case TypeUUID:
			return "UNIQUEIDENTIFIER"
		}
	}
	return "TEXT"
}

// QuoteIdent экранирует идентификатор таблицы или колонки.
// Имена вроде groups и users зарезервированы в части диалектов
func QuoteIdent(name string, dialect config.Dialect) string {
	switch dialect {
	case config.DialectMySQL:
		return "`" + name + "`"
	case config.DialectSQLServer:
		return "[" + name + "]"
	default:
		return `"` + name + `"`
	}
}

// CreateTableSQL генерирует DDL создания таблицы для указанного диалекта.
// Таблица создается только при отсутствии; существующие таблицы
// никогда не изменяются и не удаляются
func CreateTableSQL(t Table, dialect config.Dialect) string {
	var defs []string

	if t.AutoID {
		switch dialect {
		case config.DialectMySQL:
			defs = append(defs, fmt.Sprintf("%s INT NOT NULL AUTO_INCREMENT", QuoteIdent("id", dialect)))
		case config.DialectPostgres:
			defs = append(defs, fmt.Sprintf("%s SERIAL", QuoteIdent("id", dialect)))
		case config.DialectSQLServer:
			defs = append(defs, fmt.Sprintf("%s INT IDENTITY(1,1)", QuoteIdent("id", dialect)))
		}
	}

	for _, c := range t.Columns {
		def := fmt.Sprintf("%s %s", QuoteIdent(c.Name, dialect), sqlType(c.Type, dialect))
		if !c.Nullable {
			def += " NOT NULL"
		}
		defs = append(defs, def)
	}

	// Первичный ключ: суррогатный id либо естественный ключ таблицы
	if t.AutoID {
		defs = append(defs, fmt.Sprintf("PRIMARY KEY (%s)", QuoteIdent("id", dialect)))
		defs = append(defs, fmt.Sprintf("CONSTRAINT %s UNIQUE (%s)",
			QuoteIdent("uq_"+t.Name, dialect), quoteList(t.UpsertKey, dialect)))
	} else {
		defs = append(defs, fmt.Sprintf("PRIMARY KEY (%s)", quoteList(t.UpsertKey, dialect)))
	}

	for _, fk := range t.ForeignKeys {
		defs = append(defs, fmt.Sprintf("CONSTRAINT %s FOREIGN KEY (%s) REFERENCES %s (%s)",
			QuoteIdent(fmt.Sprintf("fk_%s_%s", t.Name, fk.Column), dialect),
			QuoteIdent(fk.Column, dialect),
			QuoteIdent(fk.RefTable, dialect),
			QuoteIdent(fk.RefColumn, dialect)))
	}

	body := fmt.Sprintf("(\n\t%s\n)", strings.Join(defs, ",\n\t"))
	tableName := QuoteIdent(t.Name, dialect)

	switch dialect {
	case config.DialectSQLServer:
		// В SQL Server нет CREATE TABLE IF NOT EXISTS
		return fmt.Sprintf("IF OBJECT_ID(N'%s', N'U') IS NULL CREATE TABLE %s %s", t.Name, tableName, body)
	default:
		return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s %s", tableName, body)
	}
}

func quoteList(names []string, dialect config.Dialect) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = QuoteIdent(n, dialect)
	}
	return strings.Join(quoted, ", ")
}
