package logging

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// LogLevel определяет уровни логирования
type LogLevel int

const (
	TRACE LogLevel = iota
	DEBUG
	INFO
	WARN
	ERROR
)

// String возвращает строковое представление уровня логирования
func (l LogLevel) String() string {
	switch l {
	case TRACE:
		return "TRACE"
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Logger пишет сообщения в консоль и, опционально, в файл компонента
type Logger struct {
	consoleLogger   *log.Logger
	fileLogger      *log.Logger
	file            *os.File
	minConsoleLevel LogLevel
	minFileLevel    LogLevel
}

var (
	defaultLogger *Logger
	defaultOnce   sync.Once
)

// getDefault возвращает логгер по умолчанию (только консоль)
func getDefault() *Logger {
	defaultOnce.Do(func() {
		defaultLogger = &Logger{
			consoleLogger:   log.New(os.Stdout, "", log.LstdFlags),
			minConsoleLevel: INFO,
			minFileLevel:    ERROR,
		}
	})
	return defaultLogger
}

// InitLogger включает файловое логирование: все уровни пишутся в
// logs/client_<timestamp>.log, в консоль — INFO и выше
func InitLogger() error {
	if err := os.MkdirAll("logs", 0755); err != nil {
		return fmt.Errorf("ошибка создания директории logs: %w", err)
	}

	timestamp := time.Now().Format("2006-01-02_15-04-05")
	filename := filepath.Join("logs", fmt.Sprintf("client_%s.log", timestamp))

	file, err := os.OpenFile(filename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		return fmt.Errorf("ошибка создания файла логов: %w", err)
	}

	l := getDefault()
	l.fileLogger = log.New(file, "", log.LstdFlags)
	l.file = file
	l.minFileLevel = TRACE
	return nil
}

// CloseLogger закрывает файл логов, если он был открыт
func CloseLogger() {
	l := getDefault()
	if l.file != nil {
		l.file.Close()
		l.file = nil
		l.fileLogger = nil
	}
}

// NewLogger создает логгер компонента с префиксом в консоли.
// Если файловое логирование включено (InitLogger), компонент получает
// собственный файл logs/<component>_<timestamp>.log; иначе логгер
// пишет только в консоль и не трогает файловую систему.
func NewLogger(component string) (*Logger, error) {
	l := &Logger{
		consoleLogger:   log.New(os.Stdout, fmt.Sprintf("[%s] ", component), log.LstdFlags),
		minConsoleLevel: INFO,
		minFileLevel:    TRACE,
	}

	if getDefault().file == nil {
		return l, nil
	}

	if err := os.MkdirAll("logs", 0755); err != nil {
		return nil, fmt.Errorf("ошибка создания директории logs: %w", err)
	}

	timestamp := time.Now().Format("2006-01-02_15-04-05")
	filename := filepath.Join("logs", fmt.Sprintf("%s_%s.log", component, timestamp))

	file, err := os.OpenFile(filename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания файла логов: %w", err)
	}

	l.fileLogger = log.New(file, "", log.LstdFlags)
	l.file = file
	return l, nil
}

// Close закрывает файл логгера
func (l *Logger) Close() error {
	if l.file != nil {
		return l.file.Close()
	}
	return nil
}

func (l *Logger) log(level LogLevel, format string, args ...interface{}) {
	message := fmt.Sprintf("[%s] %s", level.String(), fmt.Sprintf(format, args...))

	if l.fileLogger != nil && level >= l.minFileLevel {
		l.fileLogger.Println(message)
	}
	if l.consoleLogger != nil && level >= l.minConsoleLevel {
		l.consoleLogger.Println(message)
	}
}

// Trace логирует сообщение уровня TRACE
func (l *Logger) Trace(format string, args ...interface{}) { l.log(TRACE, format, args...) }

// Debug логирует сообщение уровня DEBUG
func (l *Logger) Debug(format string, args ...interface{}) { l.log(DEBUG, format, args...) }

// Info логирует сообщение уровня INFO
func (l *Logger) Info(format string, args ...interface{}) { l.log(INFO, format, args...) }

// Warn логирует сообщение уровня WARN
func (l *Logger) Warn(format string, args ...interface{}) { l.log(WARN, format, args...) }

// Error логирует сообщение уровня ERROR
func (l *Logger) Error(format string, args ...interface{}) { l.log(ERROR, format, args...) }

// Trace логирует сообщение уровня TRACE через логгер по умолчанию
func Trace(format string, args ...interface{}) { getDefault().log(TRACE, format, args...) }

// Debug логирует сообщение уровня DEBUG через логгер по умолчанию
func Debug(format string, args ...interface{}) { getDefault().log(DEBUG, format, args...) }

// Info логирует сообщение уровня INFO через логгер по умолчанию
func Info(format string, args ...interface{}) { getDefault().log(INFO, format, args...) }

// Warn логирует сообщение уровня WARN через логгер по умолчанию
func Warn(format string, args ...interface{}) { getDefault().log(WARN, format, args...) }

// Error логирует сообщение уровня ERROR через логгер по умолчанию
func Error(format string, args ...interface{}) { getDefault().log(ERROR, format, args...) }
