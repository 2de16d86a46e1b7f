package vec

import "testing"

func TestRotateXZ(t *testing.T) {
	v := Vec3{X: 2, Y: 5, Z: -1}

	// Один шаг: (x, y, z) -> (-z, y, x)
	r1 := RotateXZ(v, 1)
	if !r1.Equals(Vec3{X: 1, Y: 5, Z: 2}) {
		t.Errorf("Поворот на 1 четверть: ожидалось (1, 5, 2), получено %s", r1)
	}

	// Четыре четверти — тождественное преобразование
	r := v
	for i := 0; i < 4; i++ {
		r = RotateXZ(r, 1)
	}
	if !r.Equals(v) {
		t.Errorf("Четыре поворота должны вернуть исходный вектор, получено %s", r)
	}

	// Поворот на r эквивалентен r последовательным шагам
	for rotation := 0; rotation < 4; rotation++ {
		step := v
		for i := 0; i < rotation; i++ {
			step = RotateXZ(step, 1)
		}
		if got := RotateXZ(v, rotation); !got.Equals(step) {
			t.Errorf("RotateXZ(v, %d) = %s, ожидалось %s", rotation, got, step)
		}
	}
}

func TestRotateXZInvalid(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("Ожидался panic при недопустимом повороте")
		}
	}()
	RotateXZ(Vec3{}, 4)
}

func TestCheckRotation(t *testing.T) {
	for r := 0; r < 4; r++ {
		if err := CheckRotation(r); err != nil {
			t.Errorf("CheckRotation(%d) вернул ошибку: %v", r, err)
		}
	}
	for _, r := range []int{-1, 4, 17} {
		if err := CheckRotation(r); err != ErrInvalidRotation {
			t.Errorf("CheckRotation(%d): ожидался ErrInvalidRotation, получено %v", r, err)
		}
	}
}

func TestFlipToScale(t *testing.T) {
	if s := (Vec3b{}).ToScale(); !s.Equals(Vec3{X: 1, Y: 1, Z: 1}) {
		t.Errorf("Пустой флип должен давать масштаб (1,1,1), получено %s", s)
	}

	// Пример из спецификации: флип по X от (2,0,1) даёт (-2,0,1)
	v := Vec3{X: 2, Y: 0, Z: 1}
	got := v.Mul(Vec3b{X: true}.ToScale())
	if !got.Equals(Vec3{X: -2, Y: 0, Z: 1}) {
		t.Errorf("Флип по X: ожидалось (-2, 0, 1), получено %s", got)
	}
}

func TestFlipRotation(t *testing.T) {
	// Без отражений поправка нулевая
	for r := 0; r < 4; r++ {
		if got := FlipRotation(r, Vec3b{}); got != r {
			t.Errorf("FlipRotation(%d, {}) = %d, ожидалось %d", r, got, r)
		}
	}

	// Нечётное число горизонтальных отражений обращает поворот
	for r := 0; r < 4; r++ {
		want := (4 - r) % 4
		if got := FlipRotation(r, Vec3b{X: true}); got != want {
			t.Errorf("FlipRotation(%d, {X}) = %d, ожидалось %d", r, got, want)
		}
		if got := FlipRotation(r, Vec3b{Z: true}); got != want {
			t.Errorf("FlipRotation(%d, {Z}) = %d, ожидалось %d", r, got, want)
		}
	}

	// Двойное отражение компенсируется; вертикальное не влияет
	for r := 0; r < 4; r++ {
		if got := FlipRotation(r, Vec3b{X: true, Z: true}); got != r {
			t.Errorf("FlipRotation(%d, {X,Z}) = %d, ожидалось %d", r, got, r)
		}
		if got := FlipRotation(r, Vec3b{Y: true}); got != r {
			t.Errorf("FlipRotation(%d, {Y}) = %d, ожидалось %d", r, got, r)
		}
	}
}

func TestRotateSizeXZ(t *testing.T) {
	size := Vec3{X: 3, Y: 10, Z: 7}
	if got := RotateSizeXZ(size, 1); !got.Equals(Vec3{X: 7, Y: 10, Z: 3}) {
		t.Errorf("RotateSizeXZ на 1 четверть: получено %s", got)
	}
	if got := RotateSizeXZ(size, 2); !got.Equals(size) {
		t.Errorf("RotateSizeXZ на 2 четверти не должен менять размер, получено %s", got)
	}
}
