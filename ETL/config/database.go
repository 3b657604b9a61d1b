package config

import (
	"database/sql"
	"fmt"
	"net/url"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/microsoft/go-mssqldb"
)

// Dialect определяет SQL-диалект целевой базы данных
type Dialect string

const (
	DialectMySQL     Dialect = "mysql"
	DialectPostgres  Dialect = "postgres"
	DialectSQLServer Dialect = "sqlserver"
)

// DBConnection содержит подключение к целевой базе и ее диалект
type DBConnection struct {
	DB      *sql.DB
	Dialect Dialect
}

// ConnectDatabase устанавливает подключение к целевой БД по DATABASE_URL.
// Поддерживаются схемы mysql://, postgres:// (postgresql://) и sqlserver://
func ConnectDatabase(databaseURL string) (*DBConnection, error) {
	driver, dsn, dialect, err := parseDatabaseURL(databaseURL)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("ошибка подключения к целевой базе данных: %w", err)
	}

	// Настройка пула: синхронизация однопоточная, большой пул не нужен
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("не удалось установить соединение с целевой базой данных: %w", err)
	}

	return &DBConnection{DB: db, Dialect: dialect}, nil
}

// Close закрывает подключение к базе данных
func (c *DBConnection) Close() error {
	if c == nil || c.DB == nil {
		return nil
	}
	return c.DB.Close()
}

// parseDatabaseURL определяет драйвер, DSN и диалект по схеме DATABASE_URL
func parseDatabaseURL(databaseURL string) (driver, dsn string, dialect Dialect, err error) {
	u, err := url.Parse(databaseURL)
	if err != nil {
		return "", "", "", fmt.Errorf("некорректный DATABASE_URL: %w", err)
	}

	switch strings.ToLower(u.Scheme) {
	case "mysql":
		// go-sql-driver принимает собственный формат DSN, а не URL
		password, _ := u.User.Password()
		dsn = fmt.Sprintf("%s:%s@tcp(%s)/%s?parseTime=true",
			u.User.Username(), password, u.Host, strings.TrimPrefix(u.Path, "/"))
		return "mysql", dsn, DialectMySQL, nil
	case "postgres", "postgresql":
		return "pgx", databaseURL, DialectPostgres, nil
	case "sqlserver", "mssql":
		u.Scheme = "sqlserver"
		return "sqlserver", u.String(), DialectSQLServer, nil
	default:
		return "", "", "", fmt.Errorf("неподдерживаемая схема DATABASE_URL: '%s'", u.Scheme)
	}
}

// AnonymizeDatabaseURL скрывает пароль в DATABASE_URL для вывода в лог
func AnonymizeDatabaseURL(databaseURL string) string {
	u, err := url.Parse(databaseURL)
	if err != nil || u.User == nil {
		return databaseURL
	}
	if _, hasPassword := u.User.Password(); hasPassword {
		u.User = url.UserPassword(u.User.Username(), "****")
	}
	return u.String()
}
