package transform

import (
	"errors"

	"github.com/annel0/gdmc-client/vec"
)

// ErrEmptyStack возвращается при Pop без соответствующего Push.
var ErrEmptyStack = errors.New("transform: pop без соответствующего push")

// Stack управляет эффективным преобразованием сессии по дисциплине
// push/pop. Вместо вычисления обратной композиции при Pop стек хранит
// контрольные точки: Push запоминает предыдущее эффективное значение,
// Pop восстанавливает его напрямую. Это исключает расхождения из-за
// неточной инверсии и снимает нагрузку корректности с вызывающего.
type Stack struct {
	current     Transform
	checkpoints []Transform
}

// NewStack создаёт стек с тождественным эффективным преобразованием.
func NewStack() *Stack {
	return &Stack{}
}

// Cur возвращает текущее эффективное преобразование.
func (s *Stack) Cur() Transform {
	return s.current
}

// Depth возвращает количество незакрытых Push.
func (s *Stack) Depth() int {
	return len(s.checkpoints)
}

// Push компонует t поверх текущего эффективного преобразования
// и запоминает контрольную точку для Pop.
func (s *Stack) Push(t Transform) error {
	if err := checkTransform(t); err != nil {
		return err
	}
	s.checkpoints = append(s.checkpoints, s.current)
	s.current = s.current.Compose(t)
	return nil
}

// Pop восстанавливает эффективное преобразование, каким оно было
// до последнего Push.
func (s *Stack) Pop() error {
	if len(s.checkpoints) == 0 {
		return ErrEmptyStack
	}
	s.current = s.checkpoints[len(s.checkpoints)-1]
	s.checkpoints = s.checkpoints[:len(s.checkpoints)-1]
	return nil
}

// Reset сбрасывает стек к тождественному преобразованию.
func (s *Stack) Reset() {
	s.current = Transform{}
	s.checkpoints = s.checkpoints[:0]
}

func checkTransform(t Transform) error {
	return vec.CheckRotation(t.Rotation)
}
