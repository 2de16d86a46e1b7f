package gdmc

import (
	"github.com/annel0/gdmc-client/block"
	"github.com/annel0/gdmc-client/vec"
)

// Placement — один элемент пакета записи: блок в мировой позиции.
type Placement struct {
	Pos   vec.Vec3
	Block block.Block
}

// PlaceResult — результат размещения одного блока.
// OK=true, Changed=false означает, что блок уже был таким.
type PlaceResult struct {
	OK      bool
	Changed bool
	Message string // текст ошибки сервера при OK=false
}

// PlacedBlock — блок, прочитанный из мира, вместе с его позицией.
type PlacedBlock struct {
	Pos   vec.Vec3
	Block block.Block
}

// CommandResult — результат выполнения одной игровой команды.
type CommandResult struct {
	OK      bool
	Message string
}

// PlaceOptions управляет поведением сервера при размещении блоков.
type PlaceOptions struct {
	DoBlockUpdates bool // рассылать ли block update соседям
	SpawnDrops     bool // выпадает ли дроп из перезаписанных блоков
	CustomFlags    string
}

// DefaultPlaceOptions возвращает поведение по умолчанию: обновления
// включены, дроп выключен.
func DefaultPlaceOptions() PlaceOptions {
	return PlaceOptions{DoBlockUpdates: true}
}

// blockJSON — представление блока в теле запросов/ответов /blocks.
type blockJSON struct {
	X     int               `json:"x"`
	Y     int               `json:"y"`
	Z     int               `json:"z"`
	ID    string            `json:"id,omitempty"`
	State map[string]string `json:"state,omitempty"`
	Data  string            `json:"data,omitempty"`
}

// placeResultJSON — элемент ответа PUT /blocks: либо status, либо message.
type placeResultJSON struct {
	Status  *int   `json:"status,omitempty"`
	Message string `json:"message,omitempty"`
}
