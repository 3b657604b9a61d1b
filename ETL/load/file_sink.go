package load

import (
	"context"
	"fmt"

	"github.com/LilVoxy/et_dwh_sync/ETL/models"
	"github.com/LilVoxy/et_dwh_sync/ETL/utils"
)

// Форматы выгрузки в файл
const (
	FormatJSON = "json"
	FormatGob  = "gob"
)

// FileSink направляет результаты трансформации в локальные файлы.
// Первый пакет запуска — справочники (dicts), последующие пакеты сессий
// накапливаются и перезаписываются целиком после каждого окна
type FileSink struct {
	loader   *FileLoader
	format   string
	dictsOut bool
	sessions *models.TransformedData
}

// NewFileSink создает файловый приемник указанного формата
func NewFileSink(logger *utils.ETLLogger, format string) (*FileSink, error) {
	if format != FormatJSON && format != FormatGob {
		return nil, fmt.Errorf("неподдерживаемый формат выгрузки '%s'", format)
	}
	return &FileSink{
		loader:   NewFileLoader(logger),
		format:   format,
		sessions: models.NewTransformedData(),
	}, nil
}

// Load записывает пакет строк в файл справочников либо файл сессий
func (s *FileSink) Load(ctx context.Context, data *models.TransformedData) error {
	if !s.dictsOut {
		s.dictsOut = true
		return s.write("dicts", data)
	}
	s.sessions.Merge(data)
	return s.write("sessions", s.sessions)
}

func (s *FileSink) write(name string, data *models.TransformedData) error {
	if s.format == FormatGob {
		return s.loader.SaveGob(name+".gob.sz", data)
	}
	return s.loader.SaveJSON(name+".json", data)
}
