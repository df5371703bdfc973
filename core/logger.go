package core

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// StandardLogger is the default Logger implementation: structured JSON
// lines to stderr, level-filtered, safe for concurrent use. Hosts with
// their own logging plug a different Logger in instead.
type StandardLogger struct {
	level  int
	output io.Writer
	mu     sync.Mutex
}

const (
	levelDebug = iota
	levelInfo
	levelWarn
	levelError
)

func parseLevel(level string) int {
	switch strings.ToLower(level) {
	case "debug":
		return levelDebug
	case "warn", "warning":
		return levelWarn
	case "error":
		return levelError
	default:
		return levelInfo
	}
}

// NewStandardLogger creates a logger writing to stderr at the given level
func NewStandardLogger(level string) *StandardLogger {
	return &StandardLogger{
		level:  parseLevel(level),
		output: os.Stderr,
	}
}

// NewStandardLoggerWithOutput creates a logger writing to the given writer
func NewStandardLoggerWithOutput(level string, output io.Writer) *StandardLogger {
	return &StandardLogger{
		level:  parseLevel(level),
		output: output,
	}
}

func (l *StandardLogger) log(level int, name, msg string, fields map[string]interface{}) {
	if level < l.level {
		return
	}

	entry := make(map[string]interface{}, len(fields)+3)
	for k, v := range fields {
		entry[k] = v
	}
	entry["time"] = time.Now().Format(time.RFC3339Nano)
	entry["level"] = name
	entry["message"] = msg

	data, err := json.Marshal(entry)
	if err != nil {
		data = []byte(fmt.Sprintf(`{"level":%q,"message":%q}`, name, msg))
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	_, _ = l.output.Write(append(data, '\n'))
}

func (l *StandardLogger) Debug(msg string, fields map[string]interface{}) {
	l.log(levelDebug, "debug", msg, fields)
}

func (l *StandardLogger) Info(msg string, fields map[string]interface{}) {
	l.log(levelInfo, "info", msg, fields)
}

func (l *StandardLogger) Warn(msg string, fields map[string]interface{}) {
	l.log(levelWarn, "warn", msg, fields)
}

func (l *StandardLogger) Error(msg string, fields map[string]interface{}) {
	l.log(levelError, "error", msg, fields)
}
