package dvd

import (
	"fmt"
	"io"
)

// Level classifies an advisory message from the DVD reader.
type Level int

const (
	LevelInfo Level = iota
	LevelWarn
	LevelError
	LevelDebug
)

func (l Level) String() string {
	switch l {
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	case LevelDebug:
		return "DEBUG"
	default:
		return "unknown"
	}
}

// LogSink receives advisory, non-fatal messages from the navigation
// reader. Messages are informational only; the reader signals real
// failures through its error returns.
type LogSink interface {
	Log(level Level, message string)
}

type logMessage struct {
	level Level
	text  string
}

// MessageLog collects advisory messages for replay after the run. The
// driver reports the collected messages on its diagnostic stream unless
// the run completed successfully and called Disable.
type MessageLog struct {
	messages []logMessage
	disabled bool
}

func NewMessageLog() *MessageLog {
	return &MessageLog{}
}

func (m *MessageLog) Log(level Level, message string) {
	m.messages = append(m.messages, logMessage{level: level, text: message})
}

func (m *MessageLog) Logf(level Level, format string, args ...any) {
	m.Log(level, fmt.Sprintf(format, args...))
}

// Disable suppresses any future Report. Called once the run is known to
// have produced its output.
func (m *MessageLog) Disable() {
	m.disabled = true
}

// Report writes the collected messages to w, one per line. It is a
// no-op when nothing was collected or when Disable was called.
func (m *MessageLog) Report(w io.Writer) {
	if m.disabled || len(m.messages) == 0 {
		return
	}
	fmt.Fprintln(w, "Messages reported by the DVD reader:")
	for _, msg := range m.messages {
		fmt.Fprintf(w, "[%s] %s\n", msg.level, msg.text)
	}
}
