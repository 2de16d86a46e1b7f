// Package worldslice реализует снимок мира: плотную копию
// ограниченного региона на момент загрузки плюс карты высот.
// Снимок служит editor'у локальным источником чтения; после загрузки
// он не мутируется — устаревание отдельных позиций отслеживает
// битовая карта распада на стороне editor.
package worldslice

import (
	"context"
	"fmt"

	"github.com/annel0/gdmc-client/block"
	"github.com/annel0/gdmc-client/gdmc"
	"github.com/annel0/gdmc-client/internal/logging"
	"github.com/annel0/gdmc-client/vec"
)

// RegionReader — региональный вариант внешнего примитива чтения.
// Реализуется gdmc.Client; тесты подставляют фальшивку.
type RegionReader interface {
	GetBlocks(ctx context.Context, pos vec.Vec3, size *vec.Vec3) ([]gdmc.PlacedBlock, error)
	GetHeightmap(ctx context.Context, rect vec.Rect, kind string) ([]int32, error)
}

// DefaultHeightmaps — типы карт высот, загружаемые по умолчанию.
var DefaultHeightmaps = []string{
	"WORLD_SURFACE",
	"OCEAN_FLOOR",
	"MOTION_BLOCKING",
	"MOTION_BLOCKING_NO_LEAVES",
}

// Slice — плотный снимок региона мира на момент времени.
type Slice struct {
	box        vec.Box
	blocks     []block.Block      // индекс: x-major, затем y, затем z
	heightmaps map[string][]int32 // по столбцам XZ региона
}

// Load читает регион box и карты высот kinds через региональный
// примитив чтения. kinds=nil загружает DefaultHeightmaps.
func Load(ctx context.Context, r RegionReader, box vec.Box, kinds []string) (*Slice, error) {
	if box.Volume() <= 0 {
		return nil, fmt.Errorf("worldslice: пустой регион %s", box)
	}
	if kinds == nil {
		kinds = DefaultHeightmaps
	}

	size := box.Size
	placed, err := r.GetBlocks(ctx, box.Offset, &size)
	if err != nil {
		return nil, fmt.Errorf("worldslice: загрузка блоков региона: %w", err)
	}

	s := &Slice{
		box:        box,
		blocks:     make([]block.Block, box.Volume()),
		heightmaps: make(map[string][]int32, len(kinds)),
	}
	for _, pb := range placed {
		if i, ok := s.index(pb.Pos); ok {
			s.blocks[i] = pb.Block
		}
	}

	rect := box.ToRect()
	for _, kind := range kinds {
		heights, err := r.GetHeightmap(ctx, rect, kind)
		if err != nil {
			return nil, fmt.Errorf("worldslice: загрузка карты высот %s: %w", kind, err)
		}
		s.heightmaps[kind] = heights
	}

	logging.Debug("worldslice: загружен регион %s (%d блоков, %d карт высот)",
		box, len(s.blocks), len(s.heightmaps))
	return s, nil
}

// Box возвращает границы снимка.
func (s *Slice) Box() vec.Box {
	return s.box
}

// index переводит мировую позицию в индекс плотного массива.
func (s *Slice) index(pos vec.Vec3) (int, bool) {
	if !s.box.Contains(pos) {
		return 0, false
	}
	d := pos.Sub(s.box.Offset)
	return (d.X*s.box.Size.Y+d.Y)*s.box.Size.Z + d.Z, true
}

// Index возвращает индекс позиции в плотном массиве снимка.
// Тот же индекс используется битовой картой распада editor'а.
func (s *Slice) Index(pos vec.Vec3) (int, bool) {
	return s.index(pos)
}

// BlockAt возвращает блок снимка в мировой позиции pos.
// Вторым значением сообщает, входит ли позиция в границы снимка.
func (s *Slice) BlockAt(pos vec.Vec3) (block.Block, bool) {
	i, ok := s.index(pos)
	if !ok {
		return block.Block{}, false
	}
	return s.blocks[i], true
}

// ForEach вызывает fn для каждого блока снимка вместе с его мировой
// позицией, в порядке индексации (x, затем y, затем z).
func (s *Slice) ForEach(fn func(pos vec.Vec3, b block.Block)) {
	size := s.box.Size
	for dx := 0; dx < size.X; dx++ {
		for dy := 0; dy < size.Y; dy++ {
			for dz := 0; dz < size.Z; dz++ {
				pos := s.box.Offset.Add(vec.Vec3{X: dx, Y: dy, Z: dz})
				fn(pos, s.blocks[(dx*size.Y+dy)*size.Z+dz])
			}
		}
	}
}

// HeightAt возвращает высоту столбца (x, z) по карте высот kind.
func (s *Slice) HeightAt(kind string, x, z int) (int32, bool) {
	heights, ok := s.heightmaps[kind]
	if !ok {
		return 0, false
	}
	rect := s.box.ToRect()
	if !rect.Contains(vec.Vec2{X: x, Y: z}) {
		return 0, false
	}
	return heights[(x-rect.Offset.X)*rect.Size.Y+(z-rect.Offset.Y)], true
}

// Heightmaps возвращает имена загруженных карт высот.
func (s *Slice) Heightmaps() []string {
	kinds := make([]string, 0, len(s.heightmaps))
	for k := range s.heightmaps {
		kinds = append(kinds, k)
	}
	return kinds
}
