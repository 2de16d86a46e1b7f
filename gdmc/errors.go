package gdmc

import (
	"errors"
	"fmt"
)

// Ошибки внешнего интерфейса. Все они означают сбой внешнего примитива
// чтения/записи и пробрасываются вызывающему без повторов сверх
// настроенных в клиенте.
var (
	// ErrBuildAreaNotSet возвращается, если область строительства
	// не задана командой /setbuildarea в игре.
	ErrBuildAreaNotSet = errors.New("gdmc: область строительства не задана (/setbuildarea)")
)

// ConnectionError означает, что HTTP-интерфейс GDMC недоступен.
type ConnectionError struct {
	Host string
	Err  error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("gdmc: не удалось подключиться к %s: %v (запущен ли Minecraft с модом GDMC HTTP?)", e.Host, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// ServerError означает, что интерфейс GDMC вернул ошибку протокола
// (внутренняя ошибка сервера, некорректный запрос, выход за границы мира).
type ServerError struct {
	Status  int
	Message string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("gdmc: сервер вернул ошибку %d: %s", e.Status, e.Message)
}

// IsConnectionError сообщает, вызвана ли ошибка недоступностью интерфейса.
func IsConnectionError(err error) bool {
	var ce *ConnectionError
	return errors.As(err, &ce)
}
