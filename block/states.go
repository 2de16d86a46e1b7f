package block

import (
	"strconv"

	"github.com/annel0/gdmc-client/vec"
)

// Табличные преобразования ориентационных свойств блока.
// Значения вне перечислений возвращаются без изменений — это
// осознанное поведение, а не ошибка (см. Block.Transformed).

// horizontalFacings — горизонтальные направления в порядке поворота
// по часовой стрелке: каждый шаг поворота сдвигает индекс на один.
var horizontalFacings = [4]string{"north", "east", "south", "west"}

// RotateFacing поворачивает значение свойства "facing" на rotation
// четвертей. Вертикальные значения (up/down) поворот не трогает.
func RotateFacing(facing string, rotation int) string {
	for i, s := range horizontalFacings {
		if s == facing {
			return horizontalFacings[(i+rotation)%4]
		}
	}
	return facing
}

// FlipFacing отражает значение свойства "facing" согласно флагам flip.
func FlipFacing(facing string, flip vec.Vec3b) string {
	if flip.X {
		switch facing {
		case "east":
			return "west"
		case "west":
			return "east"
		}
	}
	if flip.Y {
		switch facing {
		case "up":
			return "down"
		case "down":
			return "up"
		}
	}
	if flip.Z {
		switch facing {
		case "north":
			return "south"
		case "south":
			return "north"
		}
	}
	return facing
}

// TransformFacing преобразует свойство "facing": сначала отражение,
// затем поворот.
func TransformFacing(facing string, rotation int, flip vec.Vec3b) string {
	return RotateFacing(FlipFacing(facing, flip), rotation)
}

// TransformAxis преобразует свойство "axis": нечётные повороты меняют
// местами x и z, ось y не меняется никогда (вертикальное отражение не
// меняет метку оси). Отражения для осей — no-op.
func TransformAxis(axis string, rotation int) string {
	if rotation%2 == 0 {
		return axis
	}
	switch axis {
	case "x":
		return "z"
	case "z":
		return "x"
	}
	return axis
}

// TransformRotation преобразует свойство "rotation" (16 позиций,
// используется табличками и головами): сначала отражение, затем
// поворот. Одна четверть поворота — четыре шага из шестнадцати.
func TransformRotation(value string, rotation int, flip vec.Vec3b) string {
	n, err := strconv.Atoi(value)
	if err != nil || n < 0 || n > 15 {
		return value
	}
	if flip.X {
		n = (16 - n) % 16
	}
	if flip.Z {
		n = (8 - n + 16) % 16
	}
	return strconv.Itoa((n + 4*rotation) % 16)
}

// TransformHalf преобразует свойство "half" (ступени, плиты):
// вертикальное отражение меняет top и bottom местами. Другие значения
// half (upper/lower у дверей) намеренно не трогаем.
func TransformHalf(half string, flip vec.Vec3b) string {
	if !flip.Y {
		return half
	}
	switch half {
	case "top":
		return "bottom"
	case "bottom":
		return "top"
	}
	return half
}
