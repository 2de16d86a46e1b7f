// Package block описывает размещаемый блок Minecraft и правила
// преобразования его ориентационных свойств при повороте и отражении.
package block

import (
	"math/rand"
	"sort"
	"strings"

	"github.com/annel0/gdmc-client/vec"
)

// Block представляет собой блок игрового мира.
// States хранит свойства блока (facing, axis, half, ...), Data — SNBT
// данные block entity (сундуки, таблички) в виде готовой строки.
//
// Пустой ID означает «ничего не ставить»: размещение такого блока
// не имеет эффекта.
type Block struct {
	ID     string
	States map[string]string
	Data   string
}

// New создаёт блок с указанным ID и инициализированной картой свойств.
func New(id string) Block {
	return Block{ID: id, States: make(map[string]string)}
}

// WithState возвращает копию блока с установленным свойством.
func (b Block) WithState(key, value string) Block {
	nb := b.Clone()
	if nb.States == nil {
		nb.States = make(map[string]string, 1)
	}
	nb.States[key] = value
	return nb
}

// Clone создаёт глубокую копию блока.
func (b Block) Clone() Block {
	var states map[string]string
	if b.States != nil {
		states = make(map[string]string, len(b.States))
		for k, v := range b.States {
			states[k] = v
		}
	}
	return Block{ID: b.ID, States: states, Data: b.Data}
}

// IsEmpty сообщает, обозначает ли блок отсутствие размещения.
func (b Block) IsEmpty() bool {
	return b.ID == ""
}

// Transformed возвращает копию блока с ориентационными свойствами,
// преобразованными по правилам: сначала отражение, затем поворот.
// Поддерживаются свойства axis, facing, rotation и half; свойства
// с другими именами или значениями вне перечисления не меняются.
//
// Известное ограничение: ориентации, назначаемые сервером по умолчанию
// и отсутствующие в States, задним числом НЕ корректируются.
func (b Block) Transformed(rotation int, flip vec.Vec3b) Block {
	if len(b.States) == 0 {
		return b
	}
	nb := b.Clone()
	if v, ok := nb.States["axis"]; ok {
		nb.States["axis"] = TransformAxis(v, rotation)
	}
	if v, ok := nb.States["facing"]; ok {
		nb.States["facing"] = TransformFacing(v, rotation, flip)
	}
	if v, ok := nb.States["rotation"]; ok {
		nb.States["rotation"] = TransformRotation(v, rotation, flip)
	}
	if v, ok := nb.States["half"]; ok {
		nb.States["half"] = TransformHalf(v, flip)
	}
	return nb
}

// StateString возвращает свойства блока в скобочной записи
// команды setblock, включая внешние скобки. Ключи отсортированы
// для детерминированного вывода.
func (b Block) StateString() string {
	if len(b.States) == 0 {
		return ""
	}
	keys := make([]string, 0, len(b.States))
	for k := range b.States {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	sb.WriteByte('[')
	for i, k := range keys {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(k)
		sb.WriteByte('=')
		sb.WriteString(b.States[k])
	}
	sb.WriteByte(']')
	return sb.String()
}

// String возвращает блок в записи id[state=value,...]{data}.
func (b Block) String() string {
	return b.ID + b.StateString() + b.Data
}

// Palette — палитра блоков для случайного выбора при размещении.
// Позволяет, например, класть стены из смеси камня и булыжника.
type Palette []Block

// Choose возвращает случайный блок палитры. Пустая палитра даёт
// пустой блок (отсутствие размещения).
func (p Palette) Choose() Block {
	if len(p) == 0 {
		return Block{}
	}
	return p[rand.Intn(len(p))]
}
