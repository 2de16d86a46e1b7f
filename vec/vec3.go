package vec

import "fmt"

// Vec3 представляет трехмерный вектор с целочисленными координатами.
// Используется и как позиция в мире, и как направление/смещение.
type Vec3 struct {
	X int
	Y int
	Z int
}

// Vec3b представляет тройку булевых флагов по осям (например, флаги отражения).
type Vec3b struct {
	X bool
	Y bool
	Z bool
}

// Направления в координатной системе Minecraft: север = -Z, восток = +X.
var (
	Up    = Vec3{0, 1, 0}
	Down  = Vec3{0, -1, 0}
	East  = Vec3{1, 0, 0}
	West  = Vec3{-1, 0, 0}
	North = Vec3{0, 0, -1}
	South = Vec3{0, 0, 1}
)

// Add складывает два вектора
func (v Vec3) Add(other Vec3) Vec3 {
	return Vec3{
		X: v.X + other.X,
		Y: v.Y + other.Y,
		Z: v.Z + other.Z,
	}
}

// Sub вычитает other из вектора
func (v Vec3) Sub(other Vec3) Vec3 {
	return Vec3{
		X: v.X - other.X,
		Y: v.Y - other.Y,
		Z: v.Z - other.Z,
	}
}

// Mul покомпонентно умножает два вектора
func (v Vec3) Mul(other Vec3) Vec3 {
	return Vec3{
		X: v.X * other.X,
		Y: v.Y * other.Y,
		Z: v.Z * other.Z,
	}
}

// Neg возвращает вектор с противоположным знаком
func (v Vec3) Neg() Vec3 {
	return Vec3{X: -v.X, Y: -v.Y, Z: -v.Z}
}

// Equals проверяет равенство векторов
func (v Vec3) Equals(other Vec3) bool {
	return v.X == other.X && v.Y == other.Y && v.Z == other.Z
}

// ToVec2 отбрасывает вертикальную компоненту (проекция на плоскость XZ)
func (v Vec3) ToVec2() Vec2 {
	return Vec2{X: v.X, Y: v.Z}
}

// String возвращает читаемое представление вектора
func (v Vec3) String() string {
	return fmt.Sprintf("(%d, %d, %d)", v.X, v.Y, v.Z)
}

// FromVec2 создаёт Vec3 из проекции XZ и высоты y
func FromVec2(v Vec2, y int) Vec3 {
	return Vec3{X: v.X, Y: y, Z: v.Y}
}

// Xor покомпонентно комбинирует флаги (композиция отражений)
func (f Vec3b) Xor(other Vec3b) Vec3b {
	return Vec3b{
		X: f.X != other.X,
		Y: f.Y != other.Y,
		Z: f.Z != other.Z,
	}
}

// ToScale возвращает вектор масштаба: -1 по осям, где флаг установлен, иначе 1
func (f Vec3b) ToScale() Vec3 {
	s := Vec3{X: 1, Y: 1, Z: 1}
	if f.X {
		s.X = -1
	}
	if f.Y {
		s.Y = -1
	}
	if f.Z {
		s.Z = -1
	}
	return s
}
