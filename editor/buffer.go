package editor

import (
	"github.com/annel0/gdmc-client/block"
	"github.com/annel0/gdmc-client/gdmc"
	"github.com/annel0/gdmc-client/vec"
)

// writeBuffer — упорядоченный буфер отложенных записей, индексированный
// по позиции. Повторная запись в ту же позицию перезаписывает блок на
// месте, сохраняя исходный слот в порядке сброса: last-write-wins для
// читателей, стабильный порядок батчей для остальных позиций.
type writeBuffer struct {
	index   map[vec.Vec3]int
	entries []gdmc.Placement
}

func newWriteBuffer(capHint int) *writeBuffer {
	return &writeBuffer{
		index:   make(map[vec.Vec3]int, capHint),
		entries: make([]gdmc.Placement, 0, capHint),
	}
}

// put добавляет запись или перезаписывает уже отложенную на месте.
func (b *writeBuffer) put(p gdmc.Placement) {
	if i, ok := b.index[p.Pos]; ok {
		b.entries[i].Block = p.Block
		return
	}
	b.index[p.Pos] = len(b.entries)
	b.entries = append(b.entries, p)
}

// get возвращает отложенный блок для позиции, если он есть.
func (b *writeBuffer) get(pos vec.Vec3) (block.Block, bool) {
	i, ok := b.index[pos]
	if !ok {
		return block.Block{}, false
	}
	return b.entries[i].Block, true
}

func (b *writeBuffer) len() int {
	return len(b.entries)
}

// snapshot возвращает записи в порядке сброса. Слайс принадлежит
// буферу: до dropPrefix/reset его нельзя модифицировать.
func (b *writeBuffer) snapshot() []gdmc.Placement {
	return b.entries
}

// dropPrefix убирает первые n записей (уже подтверждённые сервером),
// сохраняя остальные и их относительный порядок.
func (b *writeBuffer) dropPrefix(n int) {
	if n <= 0 {
		return
	}
	if n >= len(b.entries) {
		b.reset()
		return
	}
	remaining := make([]gdmc.Placement, len(b.entries)-n)
	copy(remaining, b.entries[n:])
	b.entries = remaining
	b.index = make(map[vec.Vec3]int, len(remaining))
	for i, p := range remaining {
		b.index[p.Pos] = i
	}
}

// replace заменяет содержимое буфера записями entries (в их порядке).
// Используется параллельным сбросом для удержания неудавшихся под-батчей.
func (b *writeBuffer) replace(entries []gdmc.Placement) {
	b.entries = entries
	b.index = make(map[vec.Vec3]int, len(entries))
	for i, p := range entries {
		b.index[p.Pos] = i
	}
}

func (b *writeBuffer) reset() {
	b.entries = b.entries[:0]
	b.index = make(map[vec.Vec3]int)
}
