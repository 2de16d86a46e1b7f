// Package transform реализует композицию аффинных преобразований мира:
// перенос, поворот на четверти в плоскости XZ и отражения по осям.
// Порядок применения к вектору фиксирован: сначала отражение, затем
// поворот, затем перенос.
package transform

import (
	"fmt"

	"github.com/annel0/gdmc-client/vec"
)

// Transform описывает преобразование пространства.
// Нулевое значение — тождественное преобразование.
//
// Поддерживаются только повороты на 90° в плоскости XZ,
// поэтому Rotation принимает значения {0,1,2,3}.
type Transform struct {
	Translation vec.Vec3
	Rotation    int
	Flip        vec.Vec3b
}

// New создаёт Transform, валидируя количество четвертей поворота.
func New(translation vec.Vec3, rotation int, flip vec.Vec3b) (Transform, error) {
	if err := vec.CheckRotation(rotation); err != nil {
		return Transform{}, err
	}
	return Transform{Translation: translation, Rotation: rotation, Flip: flip}, nil
}

// MustNew — как New, но паникует при недопустимом повороте.
// Удобно для констант и тестов.
func MustNew(translation vec.Vec3, rotation int, flip vec.Vec3b) Transform {
	t, err := New(translation, rotation, flip)
	if err != nil {
		panic(err)
	}
	return t
}

// FromTranslation создаёт чистый перенос.
// Функции, принимающие Transform, очень часто вызываются только с переносом.
func FromTranslation(translation vec.Vec3) Transform {
	return Transform{Translation: translation}
}

// FromRotation создаёт чистый поворот на rotation четвертей.
func FromRotation(rotation int) (Transform, error) {
	return New(vec.Vec3{}, rotation, vec.Vec3b{})
}

// Identity возвращает тождественное преобразование.
func Identity() Transform {
	return Transform{}
}

// IsIdentity проверяет, является ли преобразование тождественным.
func (t Transform) IsIdentity() bool {
	return t.Translation == (vec.Vec3{}) && t.Rotation == 0 && t.Flip == (vec.Vec3b{})
}

// Apply применяет преобразование к вектору:
// перенос(поворот(отражение(v))).
func (t Transform) Apply(v vec.Vec3) vec.Vec3 {
	return vec.RotateXZ(v.Mul(t.Flip.ToScale()), t.Rotation).Add(t.Translation)
}

// InvApply применяет обратное преобразование к вектору.
// Быстрее, чем t.Inverted().Apply(v).
func (t Transform) InvApply(v vec.Vec3) vec.Vec3 {
	return vec.RotateXZ(v.Sub(t.Translation), (4-t.Rotation)%4).Mul(t.Flip.ToScale())
}

// Compose возвращает преобразование, применяющее t после other:
// результат C такой, что C.Apply(v) == t.Apply(other.Apply(v)).
// Композиция ассоциативна, но не коммутативна. Перенос other
// «проносится» через поворот и отражение t, а поворот other
// корректируется на знак отражений t (см. vec.FlipRotation).
func (t Transform) Compose(other Transform) Transform {
	return Transform{
		Translation: t.Apply(other.Translation),
		Rotation:    (t.Rotation + vec.FlipRotation(other.Rotation, t.Flip)) % 4,
		Flip:        t.Flip.Xor(other.Flip),
	}
}

// Inverted возвращает обратное преобразование:
// t.Compose(t.Inverted()) и t.Inverted().Compose(t) тождественны.
func (t Transform) Inverted() Transform {
	flip := t.Flip // отражения самообратны
	rotation := vec.FlipRotation((4-t.Rotation)%4, flip)
	return Transform{
		Translation: vec.RotateXZ(t.Translation.Mul(flip.ToScale()), rotation).Neg(),
		Rotation:    rotation,
		Flip:        flip,
	}
}

// Push добавляет эффект other к t (in-place композиция t @= other).
func (t *Transform) Push(other Transform) {
	t.Translation = t.Translation.Add(vec.RotateXZ(other.Translation.Mul(t.Flip.ToScale()), t.Rotation))
	t.Rotation = (t.Rotation + vec.FlipRotation(other.Rotation, t.Flip)) % 4
	t.Flip = t.Flip.Xor(other.Flip)
}

// Pop — точная инверсия Push: убирает эффект other из t.
func (t *Transform) Pop(other Transform) {
	t.Flip = t.Flip.Xor(other.Flip)
	t.Rotation = (t.Rotation - vec.FlipRotation(other.Rotation, t.Flip) + 4) % 4
	t.Translation = t.Translation.Sub(vec.RotateXZ(other.Translation.Mul(t.Flip.ToScale()), t.Rotation))
}

// String возвращает читаемое представление преобразования
func (t Transform) String() string {
	return fmt.Sprintf("Transform{translation: %s, rotation: %d, flip: %v}", t.Translation, t.Rotation, t.Flip)
}
