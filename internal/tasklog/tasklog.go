package tasklog

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/slok/tierd/internal/conventions"
	"github.com/slok/tierd/internal/log"
	"github.com/slok/tierd/internal/model"
)

// FactoryConfig is the configuration for the task logger factory.
type FactoryConfig struct {
	// Dir is the logs directory, task logs are stored in its tasks subdirectory.
	Dir    string
	Logger log.Logger
}

func (c *FactoryConfig) defaults() error {
	if c.Dir == "" {
		return fmt.Errorf("logs dir is required")
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	return nil
}

// Factory creates the loggers of task executions.
type Factory struct {
	dir    string
	logger log.Logger
}

// NewFactory returns a new task logger factory.
func NewFactory(cfg FactoryConfig) (*Factory, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Factory{dir: cfg.Dir, logger: cfg.Logger}, nil
}

// For returns the logger of a task execution. It always logs on the process
// logger and, if the task stores its logs, on the task log file too.
func (f *Factory) For(t model.Task) *Logger {
	return &Logger{
		process: f.logger.WithValues(log.Kv{"task_id": t.ID, "task_type": t.Type}),
		store:   t.Options.StoreLogs,
		path:    conventions.TaskLogPath(f.dir, t.ID),
	}
}

// Logger is a task execution logger. The file is opened on the first write.
type Logger struct {
	process log.Logger
	store   bool
	path    string

	mu      sync.Mutex
	file    *os.File
	fileLog *logrus.Logger
	openErr error
}

func (l *Logger) Debugf(format string, args ...any) {
	l.process.Debugf(format, args...)
	l.write(logrus.DebugLevel, format, args...)
}

func (l *Logger) Infof(format string, args ...any) {
	l.process.Infof(format, args...)
	l.write(logrus.InfoLevel, format, args...)
}

func (l *Logger) Warningf(format string, args ...any) {
	l.process.Warningf(format, args...)
	l.write(logrus.WarnLevel, format, args...)
}

func (l *Logger) Errorf(format string, args ...any) {
	l.process.Errorf(format, args...)
	l.write(logrus.ErrorLevel, format, args...)
}

// Close closes the task log file if it was opened.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	l.fileLog = nil

	return err
}

func (l *Logger) write(level logrus.Level, format string, args ...any) {
	if !l.store {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.fileLog == nil {
		// Don't retry after a failure, one error is enough.
		if l.openErr != nil {
			return
		}
		if err := l.open(); err != nil {
			l.openErr = err
			l.process.Errorf("Could not open task log file: %s", err)
			return
		}
	}

	l.fileLog.Logf(level, format, args...)
}

func (l *Logger) open() error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		return fmt.Errorf("could not create task logs directory: %w", err)
	}

	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("could not open %s: %w", l.path, err)
	}

	fl := logrus.New()
	fl.SetOutput(f)
	fl.SetLevel(logrus.DebugLevel)
	fl.SetFormatter(lineFormatter{})

	l.file = f
	l.fileLog = fl

	return nil
}

// lineFormatter formats entries as `[<RFC3339 nano UTC>] [LEVEL] <message>`.
type lineFormatter struct{}

func (lineFormatter) Format(e *logrus.Entry) ([]byte, error) {
	level := "INFO"
	switch e.Level {
	case logrus.DebugLevel, logrus.TraceLevel:
		level = "DEBUG"
	case logrus.WarnLevel:
		level = "WARN"
	case logrus.ErrorLevel, logrus.FatalLevel, logrus.PanicLevel:
		level = "ERROR"
	}

	msg := strings.TrimRight(e.Message, "\n")
	return []byte(fmt.Sprintf("[%s] [%s] %s\n", e.Time.UTC().Format(time.RFC3339Nano), level, msg)), nil
}

// ReadLogs returns the stored logs of a task.
func ReadLogs(dir, taskID string) (string, error) {
	data, err := os.ReadFile(conventions.TaskLogPath(dir, taskID))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("logs of task %s: %w", taskID, model.ErrNotFound)
		}
		return "", fmt.Errorf("could not read task logs: %w", err)
	}

	return string(data), nil
}
