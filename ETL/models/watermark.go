package models

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// WatermarkStore хранит водяной знак — границу последнего успешно
// синхронизированного окна. Знак читается при планировании и записывается
// только после полной загрузки окна, поэтому прерванный запуск
// повторит незавершенное окно целиком
type WatermarkStore struct {
	path string
}

// NewWatermarkStore создает хранилище водяного знака в указанном файле
func NewWatermarkStore(path string) *WatermarkStore {
	return &WatermarkStore{path: path}
}

// Read возвращает сохраненный водяной знак.
// Если файла нет (первый запуск), возвращается нулевое время без ошибки
func (s *WatermarkStore) Read() (time.Time, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return time.Time{}, nil
		}
		return time.Time{}, fmt.Errorf("ошибка чтения файла водяного знака: %w", err)
	}

	var iso string
	if err := json.Unmarshal(data, &iso); err != nil {
		return time.Time{}, fmt.Errorf("ошибка разбора файла водяного знака: %w", err)
	}

	dt, err := time.Parse(time.RFC3339, iso)
	if err != nil {
		return time.Time{}, fmt.Errorf("некорректная дата в файле водяного знака: %w", err)
	}
	return dt, nil
}

// Write сохраняет водяной знак атомарно, через временный файл
func (s *WatermarkStore) Write(dt time.Time) error {
	data, err := json.Marshal(dt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("ошибка сериализации водяного знака: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("ошибка записи файла водяного знака: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("ошибка замены файла водяного знака: %w", err)
	}
	return nil
}
