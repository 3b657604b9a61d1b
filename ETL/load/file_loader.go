package load

import (
	"bytes"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/golang/snappy"

	"github.com/LilVoxy/et_dwh_sync/ETL/models"
	"github.com/LilVoxy/et_dwh_sync/ETL/utils"
)

func init() {
	// Значения дат в строках передаются через interface{}
	gob.Register(time.Time{})
}

// FileLoader выгружает нормализованные строки в локальные файлы
// вместо базы данных: JSON для просмотра, сжатый gob для полного дампа
type FileLoader struct {
	logger *utils.ETLLogger
}

// NewFileLoader создает новый экземпляр FileLoader
func NewFileLoader(logger *utils.ETLLogger) *FileLoader {
	return &FileLoader{logger: logger}
}

// SaveJSON записывает строки по таблицам в JSON-файл: один массив на таблицу
func (l *FileLoader) SaveJSON(path string, data *models.TransformedData) error {
	payload, err := json.MarshalIndent(data.Tables, "", "  ")
	if err != nil {
		return fmt.Errorf("ошибка сериализации данных в JSON: %w", err)
	}
	if err := writeFileAtomic(path, payload); err != nil {
		return fmt.Errorf("ошибка записи файла '%s': %w", path, err)
	}
	l.logger.Info("Выгружено %d строк в файл '%s'", data.Stats.RowsOut, path)
	return nil
}

// SaveGob записывает полный дамп строк в файл в формате gob,
// сжатом snappy. Формат предназначен для обратной загрузки этим же процессом
func (l *FileLoader) SaveGob(path string, data *models.TransformedData) error {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(data.Tables); err != nil {
		return fmt.Errorf("ошибка сериализации данных в gob: %w", err)
	}
	compressed := snappy.Encode(nil, buf.Bytes())
	if err := writeFileAtomic(path, compressed); err != nil {
		return fmt.Errorf("ошибка записи файла '%s': %w", path, err)
	}
	l.logger.Info("Выгружено %d строк в дамп '%s' (%d байт, сжато %d байт)",
		data.Stats.RowsOut, path, buf.Len(), len(compressed))
	return nil
}

// readGob читает дамп, записанный SaveGob
func (l *FileLoader) readGob(path string) (map[string][]models.NormalizedRow, error) {
	compressed, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения файла '%s': %w", path, err)
	}
	raw, err := snappy.Decode(nil, compressed)
	if err != nil {
		return nil, fmt.Errorf("ошибка распаковки файла '%s': %w", path, err)
	}

	var tables map[string][]models.NormalizedRow
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&tables); err != nil {
		return nil, fmt.Errorf("ошибка десериализации файла '%s': %w", path, err)
	}
	return tables, nil
}

// writeFileAtomic записывает файл через временный с переименованием,
// чтобы читатель не увидел частично записанный файл
func writeFileAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
