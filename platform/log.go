package platform

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Hook copies every entry into <logPath>/<date>/<fileName>.log, switching
// files when the day changes.
type Hook struct {
	mu       sync.Mutex
	writer   *os.File
	logPath  string
	fileName string
	fileDate string
}

func (h *Hook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (h *Hook) Fire(entry *logrus.Entry) error {
	line, err := entry.Bytes()
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	today := entry.Time.Format("2006-01-02")
	if h.writer == nil || h.fileDate != today {
		if err := h.rotate(today); err != nil {
			return err
		}
	}
	_, err = h.writer.Write(line)
	return err
}

func (h *Hook) rotate(date string) error {
	if h.writer != nil {
		_ = h.writer.Close()
		h.writer = nil
	}
	dir := filepath.Join(h.logPath, date)
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return err
	}
	w, err := os.OpenFile(filepath.Join(dir, h.fileName+".log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0666)
	if err != nil {
		return err
	}
	h.writer = w
	h.fileDate = date
	return nil
}

type LogFormatter struct {
}

func (m *LogFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	var b *bytes.Buffer
	if entry.Buffer != nil {
		b = entry.Buffer
	} else {
		b = &bytes.Buffer{}
	}

	timestamp := entry.Time.Format("2006-01-02 15:04:05.000")
	b.WriteString(fmt.Sprintf("[%s] [%s] %s\n", timestamp, entry.Level, entry.Message))
	return b.Bytes(), nil
}

// Logger is the process logger. It writes to stderr until InitAppLogger
// attaches the file hook.
var Logger = newLogger()

func newLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(&LogFormatter{})
	logger.SetOutput(os.Stderr)
	return logger
}

// InitAppLogger sets the level and starts copying entries into dated files
// under logPath.
func InitAppLogger(logPath string, fileName string, level string) error {
	if level != "" {
		lvl, err := logrus.ParseLevel(level)
		if err != nil {
			return fmt.Errorf("invalid log level %q: %w", level, err)
		}
		Logger.SetLevel(lvl)
	}
	if logPath == "" {
		return nil
	}

	hook := &Hook{logPath: logPath, fileName: fileName}
	if err := hook.rotate(time.Now().Format("2006-01-02")); err != nil {
		return err
	}
	Logger.AddHook(hook)
	return nil
}
