package load

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LilVoxy/et_dwh_sync/ETL/models"
	"github.com/LilVoxy/et_dwh_sync/ETL/utils"
)

func sampleData() *models.TransformedData {
	data := models.NewTransformedData()
	data.Add("agents", models.NormalizedRow{"id": int64(1), "name": "Иванов И."})
	data.Add("sessions", models.NormalizedRow{
		"id":       "aaaaaaaa-0000-0000-0000-000000000001",
		"duration": 12.5,
		"start_dt": time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	})
	return data
}

func TestSaveJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dicts.json")
	loader := NewFileLoader(utils.NewDiscardLogger())

	require.NoError(t, loader.SaveJSON(path, sampleData()))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	var tables map[string][]map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &tables))
	require.Len(t, tables["agents"], 1)
	assert.Equal(t, "Иванов И.", tables["agents"][0]["name"])
}

func TestSaveGobRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sessions.gob.sz")
	loader := NewFileLoader(utils.NewDiscardLogger())
	data := sampleData()

	require.NoError(t, loader.SaveGob(path, data))

	tables, err := loader.readGob(path)
	require.NoError(t, err)
	require.Len(t, tables["sessions"], 1)
	assert.Equal(t, data.Tables["sessions"][0]["id"], tables["sessions"][0]["id"])
	assert.Equal(t, data.Tables["sessions"][0]["start_dt"], tables["sessions"][0]["start_dt"])
}

func TestReadGobRejectsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.gob.sz")
	require.NoError(t, os.WriteFile(path, []byte("не snappy"), 0o644))

	_, err := NewFileLoader(utils.NewDiscardLogger()).readGob(path)
	assert.Error(t, err)
}

func TestFileSinkWritesDictsThenSessions(t *testing.T) {
	dir := t.TempDir()
	cwd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(cwd) })

	sink, err := NewFileSink(utils.NewDiscardLogger(), FormatJSON)
	require.NoError(t, err)

	dicts := models.NewTransformedData()
	dicts.Add("agents", models.NormalizedRow{"id": int64(1)})
	require.NoError(t, sink.Load(context.Background(), dicts))

	window1 := models.NewTransformedData()
	window1.Add("sessions", models.NormalizedRow{"id": "a"})
	require.NoError(t, sink.Load(context.Background(), window1))

	window2 := models.NewTransformedData()
	window2.Add("sessions", models.NormalizedRow{"id": "b"})
	require.NoError(t, sink.Load(context.Background(), window2))

	assert.FileExists(t, filepath.Join(dir, "dicts.json"))

	raw, err := os.ReadFile(filepath.Join(dir, "sessions.json"))
	require.NoError(t, err)
	var tables map[string][]map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &tables))
	// Сессии всех окон накапливаются в одном файле
	assert.Len(t, tables["sessions"], 2)
}

func TestNewFileSinkRejectsUnknownFormat(t *testing.T) {
	_, err := NewFileSink(utils.NewDiscardLogger(), "xml")
	assert.Error(t, err)
}
