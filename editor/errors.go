package editor

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidArgument возвращается при недопустимых параметрах
	// сессии или операций (отрицательная ёмкость, поворот вне {0..3}).
	ErrInvalidArgument = errors.New("editor: недопустимый аргумент")

	// ErrClosed возвращается при операциях над закрытой сессией.
	ErrClosed = errors.New("editor: сессия закрыта")

	// ErrNoWorldSlice возвращается при обращении к снимку до его загрузки.
	ErrNoWorldSlice = errors.New("editor: снимок мира не загружен")
)

// PartialFlushError сообщает о частично неудавшемся сбросе буфера.
// Успешно отправленные записи удалены из буфера, неудавшиеся сохранены:
// повторный FlushBuffer дошлёт только остаток.
type PartialFlushError struct {
	Done   int   // записей подтверждено сервером и убрано из буфера
	Failed int   // записей осталось в буфере
	Err    error // ошибка неудавшегося под-батча
}

func (e *PartialFlushError) Error() string {
	return fmt.Sprintf("editor: сброс буфера прерван после %d записей (%d осталось): %v",
		e.Done, e.Failed, e.Err)
}

func (e *PartialFlushError) Unwrap() error {
	return e.Err
}
