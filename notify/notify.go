// Package notify is the operator-facing notification layer (the terminal's toasts).
package notify

import (
	"fmt"
	"io"
	"log/slog"
	"sync"
)

// Level is the severity of a notification
type Level string

const (
	Success Level = "success"
	Info    Level = "info"
	Warning Level = "warning"
	Error   Level = "error"
)

// Notifier receives non-blocking messages for the operator
type Notifier interface {
	Notify(level Level, msg string)
}

// Func adapts a plain function to Notifier
type Func func(level Level, msg string)

// Notify calls f
func (f Func) Notify(level Level, msg string) { f(level, msg) }

// Discard drops every notification
var Discard Notifier = Func(func(Level, string) {})

// OrDiscard returns n, or Discard when n is nil
func OrDiscard(n Notifier) Notifier {
	if n == nil {
		return Discard
	}
	return n
}

var prefixes = map[Level]string{
	Success: "✔",
	Info:    "i",
	Warning: "!",
	Error:   "✘",
}

// Writer prints notifications as single lines to W
type Writer struct {
	mu sync.Mutex
	W  io.Writer
}

// NewWriter returns a Writer printing to w
func NewWriter(w io.Writer) *Writer {
	return &Writer{W: w}
}

// Notify implements Notifier
func (n *Writer) Notify(level Level, msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	fmt.Fprintf(n.W, "[%s] %s\n", prefixes[level], msg)
}

// Log routes notifications to slog so they land in the structured log as well
type Log struct {
	Logger *slog.Logger
}

// Notify implements Notifier
func (n Log) Notify(level Level, msg string) {
	l := n.Logger
	if l == nil {
		l = slog.Default()
	}
	switch level {
	case Error:
		l.Error(msg, "notification", string(level))
	case Warning:
		l.Warn(msg, "notification", string(level))
	default:
		l.Debug(msg, "notification", string(level))
	}
}

// Multi fans a notification out to every notifier
type Multi []Notifier

// Notify implements Notifier
func (m Multi) Notify(level Level, msg string) {
	for _, n := range m {
		n.Notify(level, msg)
	}
}

// Message is a recorded notification
type Message struct {
	Level Level
	Text  string
}

// Recorder keeps every notification in memory
type Recorder struct {
	mu       sync.Mutex
	Messages []Message
}

// Notify implements Notifier
func (r *Recorder) Notify(level Level, msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Messages = append(r.Messages, Message{Level: level, Text: msg})
}

// Last returns the most recent notification, if any
func (r *Recorder) Last() (Message, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.Messages) == 0 {
		return Message{}, false
	}
	return r.Messages[len(r.Messages)-1], true
}

// Count returns how many notifications of level were recorded
func (r *Recorder) Count(level Level) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, m := range r.Messages {
		if m.Level == level {
			n++
		}
	}
	return n
}

// Reset forgets all recorded notifications
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Messages = nil
}
