package vec

import "fmt"

// Rect — прямоугольник в плоскости XZ, заданный смещением и размером.
type Rect struct {
	Offset Vec2
	Size   Vec2
}

// End возвращает точку за последним углом прямоугольника (offset + size)
func (r Rect) End() Vec2 {
	return r.Offset.Add(r.Size)
}

// Contains проверяет, лежит ли точка внутри прямоугольника
func (r Rect) Contains(v Vec2) bool {
	end := r.End()
	return r.Offset.X <= v.X && v.X < end.X &&
		r.Offset.Y <= v.Y && v.Y < end.Y
}

// Area возвращает площадь прямоугольника
func (r Rect) Area() int {
	return r.Size.X * r.Size.Y
}

// ToBox возвращает коробку с данной проекцией XZ и указанным диапазоном высот
func (r Rect) ToBox(offsetY, sizeY int) Box {
	return Box{
		Offset: Vec3{X: r.Offset.X, Y: offsetY, Z: r.Offset.Y},
		Size:   Vec3{X: r.Size.X, Y: sizeY, Z: r.Size.Y},
	}
}

// String возвращает читаемое представление прямоугольника
func (r Rect) String() string {
	return fmt.Sprintf("Rect{offset: %s, size: %s}", r.Offset, r.Size)
}

// RectBetween возвращает прямоугольник между двумя противоположными
// углами (оба включительно), в любом порядке.
func RectBetween(cornerA, cornerB Vec2) Rect {
	first := Vec2{X: min(cornerA.X, cornerB.X), Y: min(cornerA.Y, cornerB.Y)}
	last := Vec2{X: max(cornerA.X, cornerB.X), Y: max(cornerA.Y, cornerB.Y)}
	return Rect{Offset: first, Size: last.Sub(first).Add(Vec2{X: 1, Y: 1})}
}

// Box — коробка (параллелепипед), заданная смещением и размером.
type Box struct {
	Offset Vec3
	Size   Vec3
}

// End возвращает точку за последним углом коробки (offset + size)
func (b Box) End() Vec3 {
	return b.Offset.Add(b.Size)
}

// Contains проверяет, лежит ли точка внутри коробки
func (b Box) Contains(v Vec3) bool {
	end := b.End()
	return b.Offset.X <= v.X && v.X < end.X &&
		b.Offset.Y <= v.Y && v.Y < end.Y &&
		b.Offset.Z <= v.Z && v.Z < end.Z
}

// Volume возвращает объём коробки
func (b Box) Volume() int {
	return b.Size.X * b.Size.Y * b.Size.Z
}

// ToRect возвращает проекцию коробки на плоскость XZ
func (b Box) ToRect() Rect {
	return Rect{
		Offset: Vec2{X: b.Offset.X, Y: b.Offset.Z},
		Size:   Vec2{X: b.Size.X, Y: b.Size.Z},
	}
}

// String возвращает читаемое представление коробки
func (b Box) String() string {
	return fmt.Sprintf("Box{offset: %s, size: %s}", b.Offset, b.Size)
}

// BoxBetween возвращает коробку между двумя противоположными углами
// (оба включительно), в любом порядке.
func BoxBetween(cornerA, cornerB Vec3) Box {
	first := Vec3{
		X: min(cornerA.X, cornerB.X),
		Y: min(cornerA.Y, cornerB.Y),
		Z: min(cornerA.Z, cornerB.Z),
	}
	last := Vec3{
		X: max(cornerA.X, cornerB.X),
		Y: max(cornerA.Y, cornerB.Y),
		Z: max(cornerA.Z, cornerB.Z),
	}
	return Box{Offset: first, Size: last.Sub(first).Add(Vec3{X: 1, Y: 1, Z: 1})}
}
