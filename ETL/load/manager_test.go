package load

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LilVoxy/et_dwh_sync/ETL/config"
	"github.com/LilVoxy/et_dwh_sync/ETL/models"
	"github.com/LilVoxy/et_dwh_sync/ETL/schema"
	"github.com/LilVoxy/et_dwh_sync/ETL/utils"
)

// memStore хранит выполненные запросы как множества кортежей аргументов:
// повторный UPSERT той же строки не меняет размер множества
type memStore struct {
	rows map[string]map[string]struct{}
}

func (s *memStore) reset() {
	s.rows = make(map[string]map[string]struct{})
}

func (s *memStore) apply(query string, args []driver.Value) {
	if s.rows[query] == nil {
		s.rows[query] = make(map[string]struct{})
	}
	s.rows[query][fmt.Sprint(args)] = struct{}{}
}

// count возвращает количество различных строк запроса с данной подстрокой
func (s *memStore) count(substr string) int {
	for query, set := range s.rows {
		if strings.Contains(query, substr) {
			return len(set)
		}
	}
	return 0
}

type memDriver struct{ store *memStore }

func (d *memDriver) Open(string) (driver.Conn, error) {
	return &memConn{store: d.store}, nil
}

type memConn struct{ store *memStore }

func (c *memConn) Prepare(query string) (driver.Stmt, error) {
	return &memStmt{query: query, store: c.store}, nil
}

func (c *memConn) Close() error              { return nil }
func (c *memConn) Begin() (driver.Tx, error) { return memTx{}, nil }

type memStmt struct {
	query string
	store *memStore
}

func (s *memStmt) Close() error  { return nil }
func (s *memStmt) NumInput() int { return -1 }

func (s *memStmt) Exec(args []driver.Value) (driver.Result, error) {
	s.store.apply(s.query, args)
	return driver.RowsAffected(1), nil
}

func (s *memStmt) Query([]driver.Value) (driver.Rows, error) {
	return nil, fmt.Errorf("запросы чтения не поддерживаются")
}

type memTx struct{}

func (memTx) Commit() error   { return nil }
func (memTx) Rollback() error { return nil }

var memDB = &memStore{rows: make(map[string]map[string]struct{})}

func init() {
	sql.Register("memupsert", &memDriver{store: memDB})
}

func newMemLoader(t *testing.T) *DBLoader {
	memDB.reset()
	db, err := sql.Open("memupsert", "")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	conn := &config.DBConnection{DB: db, Dialect: config.DialectMySQL}
	retry := config.RetryConfig{
		MaxAttempts: 2,
		BaseDelay:   time.Millisecond,
		Multiplier:  2.0,
		MaxDelay:    time.Millisecond,
	}
	return NewDBLoader(conn, utils.NewDiscardLogger(), retry, 250)
}

func agentBatch() *models.TransformedData {
	data := models.NewTransformedData()
	data.Add("agents", models.NormalizedRow{"id": int64(1), "name": "Иванов И."})
	data.Add("agents", models.NormalizedRow{"id": int64(2), "name": "Петров П."})
	return data
}

func TestLoadIdempotentReplay(t *testing.T) {
	loader := newMemLoader(t)
	ctx := context.Background()

	require.NoError(t, loader.Load(ctx, agentBatch()))
	require.NoError(t, loader.Load(ctx, agentBatch()))

	// Повторная загрузка того же окна не создает новых строк
	assert.Equal(t, 2, memDB.count("INSERT INTO `agents`"))
}

func TestLoadFollowsForeignKeySafeOrder(t *testing.T) {
	loader := newMemLoader(t)

	data := agentBatch()
	data.Add("sessions_tags", models.NormalizedRow{
		"session_id": "aaaaaaaa-0000-0000-0000-000000000001",
		"tag_id":     int64(20), "transcript_id": int64(1),
	})
	require.NoError(t, loader.Load(context.Background(), data))

	assert.Equal(t, 2, memDB.count("INSERT INTO `agents`"))
	assert.Equal(t, 1, memDB.count("INSERT INTO `sessions_tags`"))
}

func TestLoadUnknownTableIsWarningNotError(t *testing.T) {
	loader := newMemLoader(t)

	data := models.NewTransformedData()
	data.Add("chats", models.NormalizedRow{"id": int64(1)})

	// Таблица вне схемы приемника не загружается и не считается ошибкой
	require.NoError(t, loader.Load(context.Background(), data))
	assert.Empty(t, memDB.rows)
}

func TestUnknownTables(t *testing.T) {
	tables := map[string][]models.NormalizedRow{
		"agents":   {{"id": int64(1)}},
		"chats":    {{"id": int64(1)}},
		"messages": {{"id": int64(2)}},
	}

	assert.Equal(t, []string{"chats", "messages"}, unknownTables(tables))
}

func TestUnknownColumns(t *testing.T) {
	table, ok := schema.ByName("agents")
	require.True(t, ok)

	row := models.NormalizedRow{"id": int64(1), "name": "Иванов И.", "nickname": "ivn"}
	assert.Equal(t, []string{"nickname"}, unknownColumns(table, row))
}

func TestEnsureSchemaCreatesAllTables(t *testing.T) {
	loader := newMemLoader(t)

	require.NoError(t, loader.EnsureSchema(context.Background()))
	assert.Equal(t, len(schema.Tables()), len(memDB.rows))
}
