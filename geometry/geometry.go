// Package geometry размещает геометрические фигуры через сессию
// редактирования: все блоки проходят через Editor.PlaceBlock, так что
// активная трансформация и буферизация применяются как обычно.
// Палитра из нескольких блоков даёт случайную текстуру поверхности.
package geometry

import (
	"context"
	"fmt"

	"github.com/annel0/gdmc-client/block"
	"github.com/annel0/gdmc-client/editor"
	"github.com/annel0/gdmc-client/vec"
)

// Axis — ось вращения цилиндра.
type Axis int

const (
	AxisX Axis = iota
	AxisY
	AxisZ
)

func place(ctx context.Context, e *editor.Editor, pos vec.Vec3, p block.Palette) error {
	if len(p) == 0 {
		return fmt.Errorf("%w: пустая палитра", editor.ErrInvalidArgument)
	}
	return e.PlaceBlock(ctx, pos, p.Choose())
}

// PlaceCuboid заливает прямоугольный параллелепипед между углами
// corner1 и corner2 (оба включительно, в любом порядке).
func PlaceCuboid(ctx context.Context, e *editor.Editor, corner1, corner2 vec.Vec3, p block.Palette) error {
	return PlaceBox(ctx, e, vec.BoxBetween(corner1, corner2), p, false)
}

// PlaceCuboidHollow строит полый параллелепипед: стенки толщиной в один
// блок, внутренность не трогается.
func PlaceCuboidHollow(ctx context.Context, e *editor.Editor, corner1, corner2 vec.Vec3, p block.Palette) error {
	return PlaceBox(ctx, e, vec.BoxBetween(corner1, corner2), p, true)
}

// PlaceBox заливает box; hollow оставляет только оболочку.
func PlaceBox(ctx context.Context, e *editor.Editor, box vec.Box, p block.Palette, hollow bool) error {
	end := box.End()
	for x := box.Offset.X; x < end.X; x++ {
		for y := box.Offset.Y; y < end.Y; y++ {
			for z := box.Offset.Z; z < end.Z; z++ {
				if hollow &&
					x != box.Offset.X && x != end.X-1 &&
					y != box.Offset.Y && y != end.Y-1 &&
					z != box.Offset.Z && z != end.Z-1 {
					continue
				}
				if err := place(ctx, e, vec.Vec3{X: x, Y: y, Z: z}, p); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// PlaceLine проводит воксельную линию между from и to включительно
// (обобщённый Брезенхэм с ведущей осью наибольшей дельты).
func PlaceLine(ctx context.Context, e *editor.Editor, from, to vec.Vec3, p block.Palette) error {
	for _, pos := range LinePoints(from, to) {
		if err := place(ctx, e, pos, p); err != nil {
			return err
		}
	}
	return nil
}

// LinePoints возвращает позиции воксельной линии от from до to.
func LinePoints(from, to vec.Vec3) []vec.Vec3 {
	delta := to.Sub(from)
	adx, ady, adz := abs(delta.X), abs(delta.Y), abs(delta.Z)

	steps := adx
	if ady > steps {
		steps = ady
	}
	if adz > steps {
		steps = adz
	}
	if steps == 0 {
		return []vec.Vec3{from}
	}

	points := make([]vec.Vec3, 0, steps+1)
	for i := 0; i <= steps; i++ {
		points = append(points, vec.Vec3{
			X: from.X + roundDiv(delta.X*i, steps),
			Y: from.Y + roundDiv(delta.Y*i, steps),
			Z: from.Z + roundDiv(delta.Z*i, steps),
		})
	}
	return points
}

// PlaceCylinder заливает цилиндр, вписанный в box, вдоль оси axis.
// hollow оставляет трубу толщиной в один блок (торцы не закрываются).
func PlaceCylinder(ctx context.Context, e *editor.Editor, box vec.Box, axis Axis, p block.Palette, hollow bool) error {
	if box.Volume() <= 0 {
		return fmt.Errorf("%w: пустой регион цилиндра %s", editor.ErrInvalidArgument, box)
	}

	// u, v — оси сечения, w — ось цилиндра
	var uSize, vSize, wSize int
	switch axis {
	case AxisX:
		uSize, vSize, wSize = box.Size.Y, box.Size.Z, box.Size.X
	case AxisY:
		uSize, vSize, wSize = box.Size.X, box.Size.Z, box.Size.Y
	case AxisZ:
		uSize, vSize, wSize = box.Size.X, box.Size.Y, box.Size.Z
	default:
		return fmt.Errorf("%w: ось цилиндра %d", editor.ErrInvalidArgument, axis)
	}

	inside := func(u, v int) bool {
		// Эллипс, вписанный в сечение uSize x vSize: нормированные
		// координаты центров клеток против полуосей.
		du := float64(2*u+1)/float64(uSize) - 1
		dv := float64(2*v+1)/float64(vSize) - 1
		return du*du+dv*dv <= 1
	}

	for u := 0; u < uSize; u++ {
		for v := 0; v < vSize; v++ {
			if !inside(u, v) {
				continue
			}
			// Внутренняя клетка трубы: все четыре соседа существуют
			// и лежат внутри эллипса.
			if hollow &&
				u > 0 && inside(u-1, v) && u < uSize-1 && inside(u+1, v) &&
				v > 0 && inside(u, v-1) && v < vSize-1 && inside(u, v+1) {
				continue
			}
			for w := 0; w < wSize; w++ {
				var pos vec.Vec3
				switch axis {
				case AxisX:
					pos = vec.Vec3{X: w, Y: u, Z: v}
				case AxisY:
					pos = vec.Vec3{X: u, Y: w, Z: v}
				case AxisZ:
					pos = vec.Vec3{X: u, Y: v, Z: w}
				}
				if err := place(ctx, e, box.Offset.Add(pos), p); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// PlaceRectOutline обводит периметр rect на высоте y.
func PlaceRectOutline(ctx context.Context, e *editor.Editor, rect vec.Rect, y int, p block.Palette) error {
	end := rect.End()
	for x := rect.Offset.X; x < end.X; x++ {
		for z := rect.Offset.Y; z < end.Y; z++ {
			if x != rect.Offset.X && x != end.X-1 && z != rect.Offset.Y && z != end.Y-1 {
				continue
			}
			if err := place(ctx, e, vec.Vec3{X: x, Y: y, Z: z}, p); err != nil {
				return err
			}
		}
	}
	return nil
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// roundDiv делит с округлением к ближайшему, симметрично для
// отрицательных чисел (важно для линий в любом октанте).
func roundDiv(a, b int) int {
	if b == 0 {
		return 0
	}
	if (a < 0) != (b < 0) {
		return (a - b/2) / b
	}
	return (a + b/2) / b
}
