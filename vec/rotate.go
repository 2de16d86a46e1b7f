package vec

import "errors"

// ErrInvalidRotation возвращается, когда количество четвертей поворота
// выходит за пределы {0,1,2,3}.
var ErrInvalidRotation = errors.New("vec: rotation must be in {0,1,2,3}")

// CheckRotation проверяет допустимость количества четвертей поворота.
func CheckRotation(rotation int) error {
	if rotation < 0 || rotation > 3 {
		return ErrInvalidRotation
	}
	return nil
}

// RotateXZ поворачивает вектор в плоскости XZ на rotation четвертей
// по часовой стрелке (если смотреть сверху). Вертикальная компонента
// не меняется. Один шаг: (x, y, z) -> (-z, y, x); остальные повороты —
// его повторение. От этого точного отображения зависят таблицы
// ориентации блоков, менять его нельзя.
//
// Значение rotation вне {0,1,2,3} — ошибка программиста; валидация
// выполняется на границах API (transform.New, editor), здесь — panic.
func RotateXZ(v Vec3, rotation int) Vec3 {
	switch rotation {
	case 0:
		return v
	case 1:
		return Vec3{X: -v.Z, Y: v.Y, Z: v.X}
	case 2:
		return Vec3{X: -v.X, Y: v.Y, Z: -v.Z}
	case 3:
		return Vec3{X: v.Z, Y: v.Y, Z: -v.X}
	default:
		panic(ErrInvalidRotation)
	}
}

// Таблица знаковой поправки композиции поворота и отражения,
// индекс: [чётность горизонтальных отражений][rotation].
// Нечётное число отражений в плоскости XZ обращает направление
// поворота: r -> (4 - r) mod 4. Таблица вместо формулы — чтобы
// исключить тонкие ошибки знака (проверяется перебором в тестах).
var flipRotationTable = [2][4]int{
	{0, 1, 2, 3},
	{0, 3, 2, 1},
}

// FlipRotation возвращает такой поворот, что применение его после
// отражения flip эквивалентно применению flip после rotation.
func FlipRotation(rotation int, flip Vec3b) int {
	parity := 0
	if flip.X != flip.Z {
		parity = 1
	}
	return flipRotationTable[parity][rotation]
}

// RotateSizeXZ возвращает эффективный размер коробки size после
// поворота на rotation четвертей: при нечётных поворотах X и Z меняются местами.
func RotateSizeXZ(size Vec3, rotation int) Vec3 {
	if rotation == 1 || rotation == 3 {
		return Vec3{X: size.Z, Y: size.Y, Z: size.X}
	}
	return size
}
