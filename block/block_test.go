package block

import (
	"testing"

	"github.com/annel0/gdmc-client/vec"
)

func TestTransformFacing(t *testing.T) {
	// Поворот на одну четверть по часовой: north→east→south→west→north
	cases := []struct {
		facing   string
		rotation int
		want     string
	}{
		{"east", 1, "south"},
		{"north", 1, "east"},
		{"south", 1, "west"},
		{"west", 1, "north"},
		{"north", 2, "south"},
		{"east", 3, "north"},
		{"up", 2, "up"},
		{"down", 1, "down"},
	}
	for _, c := range cases {
		if got := TransformFacing(c.facing, c.rotation, vec.Vec3b{}); got != c.want {
			t.Errorf("TransformFacing(%q, %d) = %q, ожидалось %q", c.facing, c.rotation, got, c.want)
		}
	}
}

func TestFlipFacing(t *testing.T) {
	if got := FlipFacing("east", vec.Vec3b{X: true}); got != "west" {
		t.Errorf("Отражение east по X: получено %q", got)
	}
	if got := FlipFacing("north", vec.Vec3b{X: true}); got != "north" {
		t.Errorf("Отражение north по X не должно менять значение, получено %q", got)
	}
	if got := FlipFacing("up", vec.Vec3b{Y: true}); got != "down" {
		t.Errorf("Вертикальное отражение up: получено %q", got)
	}
	if got := FlipFacing("south", vec.Vec3b{Z: true}); got != "north" {
		t.Errorf("Отражение south по Z: получено %q", got)
	}
}

func TestTransformFacingFlipThenRotate(t *testing.T) {
	// Порядок обязан быть: сначала отражение, потом поворот
	got := TransformFacing("east", 1, vec.Vec3b{X: true})
	// flip X: east -> west; поворот на 1: west -> north
	if got != "north" {
		t.Errorf("Ожидалось north, получено %q", got)
	}
}

func TestTransformAxis(t *testing.T) {
	cases := []struct {
		axis     string
		rotation int
		want     string
	}{
		{"x", 1, "z"},
		{"z", 1, "x"},
		{"x", 2, "x"},
		{"z", 3, "x"},
		{"y", 1, "y"},
		{"y", 3, "y"},
	}
	for _, c := range cases {
		if got := TransformAxis(c.axis, c.rotation); got != c.want {
			t.Errorf("TransformAxis(%q, %d) = %q, ожидалось %q", c.axis, c.rotation, got, c.want)
		}
	}
}

func TestTransformRotation(t *testing.T) {
	if got := TransformRotation("0", 1, vec.Vec3b{}); got != "4" {
		t.Errorf("Поворот таблички на четверть: получено %q, ожидалось \"4\"", got)
	}
	if got := TransformRotation("3", 0, vec.Vec3b{X: true}); got != "13" {
		t.Errorf("Отражение таблички по X: получено %q, ожидалось \"13\"", got)
	}
	if got := TransformRotation("3", 0, vec.Vec3b{Z: true}); got != "5" {
		t.Errorf("Отражение таблички по Z: получено %q, ожидалось \"5\"", got)
	}
	// Значение вне перечисления не меняется
	if got := TransformRotation("abc", 1, vec.Vec3b{}); got != "abc" {
		t.Errorf("Недопустимое значение должно остаться без изменений, получено %q", got)
	}
}

func TestTransformHalf(t *testing.T) {
	if got := TransformHalf("top", vec.Vec3b{Y: true}); got != "bottom" {
		t.Errorf("Вертикальное отражение top: получено %q", got)
	}
	if got := TransformHalf("bottom", vec.Vec3b{Y: true}); got != "top" {
		t.Errorf("Вертикальное отражение bottom: получено %q", got)
	}
	if got := TransformHalf("top", vec.Vec3b{X: true}); got != "top" {
		t.Errorf("Горизонтальное отражение не должно менять half, получено %q", got)
	}
	// upper/lower (двери) не трогаем даже при вертикальном отражении
	if got := TransformHalf("upper", vec.Vec3b{Y: true}); got != "upper" {
		t.Errorf("Значение upper должно остаться без изменений, получено %q", got)
	}
}

func TestBlockTransformed(t *testing.T) {
	stairs := New("minecraft:oak_stairs").
		WithState("facing", "east").
		WithState("half", "bottom")

	got := stairs.Transformed(1, vec.Vec3b{})
	if got.States["facing"] != "south" {
		t.Errorf("facing=east при rotation=1 должен стать south, получено %q", got.States["facing"])
	}
	if got.States["half"] != "bottom" {
		t.Errorf("half не должен измениться, получено %q", got.States["half"])
	}

	// Исходный блок не изменён
	if stairs.States["facing"] != "east" {
		t.Error("Transformed не должен модифицировать исходный блок")
	}

	// Блок без ориентационных свойств инвариантен
	stone := New("minecraft:stone")
	if got := stone.Transformed(3, vec.Vec3b{X: true, Y: true}); got.String() != stone.String() {
		t.Errorf("Блок без свойств должен быть инвариантен, получено %s", got)
	}
}

func TestBlockString(t *testing.T) {
	b := New("minecraft:oak_log").WithState("axis", "z")
	if got := b.String(); got != "minecraft:oak_log[axis=z]" {
		t.Errorf("Неверная строковая запись: %q", got)
	}

	b = New("minecraft:chest").WithState("facing", "north")
	b.Data = `{Items:[]}`
	if got := b.String(); got != "minecraft:chest[facing=north]{Items:[]}" {
		t.Errorf("Неверная строковая запись с данными: %q", got)
	}

	// Ключи сортируются для детерминированности
	b = New("minecraft:x").WithState("b", "2").WithState("a", "1")
	if got := b.StateString(); got != "[a=1,b=2]" {
		t.Errorf("Свойства должны быть отсортированы: %q", got)
	}
}

func TestPaletteChoose(t *testing.T) {
	if !(Palette{}).Choose().IsEmpty() {
		t.Error("Пустая палитра должна давать пустой блок")
	}

	p := Palette{New("minecraft:stone"), New("minecraft:cobblestone")}
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		seen[p.Choose().ID] = true
	}
	if !seen["minecraft:stone"] || !seen["minecraft:cobblestone"] {
		t.Errorf("Выбор из палитры должен покрывать все элементы, получено %v", seen)
	}
}
