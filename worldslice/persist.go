package worldslice

import (
	"encoding/gob"
	"fmt"
	"os"

	"github.com/klauspost/compress/zstd"

	"github.com/annel0/gdmc-client/block"
	"github.com/annel0/gdmc-client/internal/logging"
	"github.com/annel0/gdmc-client/vec"
)

const persistVersion = 1

// slicePayload — сериализуемое представление снимка.
type slicePayload struct {
	Version    int
	Box        vec.Box
	Blocks     []block.Block
	Heightmaps map[string][]int32
}

// Save записывает снимок в файл path (gob поверх zstd).
func (s *Slice) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("worldslice: создание файла снимка: %w", err)
	}
	defer f.Close()

	zw, err := zstd.NewWriter(f)
	if err != nil {
		return fmt.Errorf("worldslice: инициализация компрессора: %w", err)
	}

	payload := slicePayload{
		Version:    persistVersion,
		Box:        s.box,
		Blocks:     s.blocks,
		Heightmaps: s.heightmaps,
	}
	if err := gob.NewEncoder(zw).Encode(&payload); err != nil {
		zw.Close()
		return fmt.Errorf("worldslice: сериализация снимка: %w", err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("worldslice: завершение сжатия: %w", err)
	}

	logging.Info("worldslice: снимок региона %s сохранён в %s", s.box, path)
	return nil
}

// LoadFile восстанавливает снимок из файла, созданного Save.
func LoadFile(path string) (*Slice, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("worldslice: открытие файла снимка: %w", err)
	}
	defer f.Close()

	zr, err := zstd.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("worldslice: инициализация декомпрессора: %w", err)
	}
	defer zr.Close()

	var payload slicePayload
	if err := gob.NewDecoder(zr).Decode(&payload); err != nil {
		return nil, fmt.Errorf("worldslice: десериализация снимка: %w", err)
	}
	if payload.Version != persistVersion {
		return nil, fmt.Errorf("worldslice: неподдерживаемая версия снимка %d", payload.Version)
	}
	if len(payload.Blocks) != payload.Box.Volume() {
		return nil, fmt.Errorf("worldslice: повреждённый снимок: %d блоков при объёме %d",
			len(payload.Blocks), payload.Box.Volume())
	}

	return &Slice{
		box:        payload.Box,
		blocks:     payload.Blocks,
		heightmaps: payload.Heightmaps,
	}, nil
}
