package vec

import "fmt"

// Vec2 представляет двумерный вектор с целочисленными координатами.
// В контексте мира Minecraft компонента Y соответствует мировой оси Z.
type Vec2 struct {
	X int
	Y int
}

// Add складывает два вектора
func (v Vec2) Add(other Vec2) Vec2 {
	return Vec2{X: v.X + other.X, Y: v.Y + other.Y}
}

// Sub вычитает other из вектора
func (v Vec2) Sub(other Vec2) Vec2 {
	return Vec2{X: v.X - other.X, Y: v.Y - other.Y}
}

// Equals проверяет равенство векторов
func (v Vec2) Equals(other Vec2) bool {
	return v.X == other.X && v.Y == other.Y
}

// String возвращает читаемое представление вектора
func (v Vec2) String() string {
	return fmt.Sprintf("(%d, %d)", v.X, v.Y)
}
