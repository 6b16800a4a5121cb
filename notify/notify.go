// Package notify carries user-facing notices out of the inbox: failed
// fetches, rejected submissions and stream errors.
package notify

import (
	"fmt"
	"io"
	"sync"

	"go.uber.org/zap"
)

// Level is the severity of a notice.
type Level string

const (
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notice is one message for the operator.
type Notice struct {
	Level       Level
	Title       string
	Description string
}

// Notifier delivers notices. Implementations must be safe for concurrent use.
type Notifier interface {
	Notify(n Notice)
}

// Func adapts a plain function to Notifier.
type Func func(Notice)

func (f Func) Notify(n Notice) { f(n) }

// Nop discards notices.
var Nop Notifier = Func(func(Notice) {})

// Error builds an error notice.
func Error(title, description string) Notice {
	return Notice{Level: LevelError, Title: title, Description: description}
}

// Info builds an info notice.
func Info(title, description string) Notice {
	return Notice{Level: LevelInfo, Title: title, Description: description}
}

// =============================================================================
// LogNotifier
// =============================================================================

// LogNotifier writes notices to a zap logger at the matching level.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier creates a zap-backed notifier.
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogNotifier{logger: logger.With(zap.String("component", "notify"))}
}

func (l *LogNotifier) Notify(n Notice) {
	fields := []zap.Field{zap.String("title", n.Title), zap.String("description", n.Description)}
	switch n.Level {
	case LevelError:
		l.logger.Error("notice", fields...)
	case LevelWarning:
		l.logger.Warn("notice", fields...)
	default:
		l.logger.Info("notice", fields...)
	}
}

// =============================================================================
// WriterNotifier
// =============================================================================

// WriterNotifier prints notices as lines, for terminals.
type WriterNotifier struct {
	mu sync.Mutex
	w  io.Writer
}

func NewWriterNotifier(w io.Writer) *WriterNotifier {
	return &WriterNotifier{w: w}
}

func (p *WriterNotifier) Notify(n Notice) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if n.Description == "" {
		fmt.Fprintf(p.w, "[%s] %s\n", n.Level, n.Title)
		return
	}
	fmt.Fprintf(p.w, "[%s] %s: %s\n", n.Level, n.Title, n.Description)
}

// =============================================================================
// Recorder
// =============================================================================

// Recorder keeps every notice in memory.
type Recorder struct {
	mu      sync.Mutex
	notices []Notice
}

func (r *Recorder) Notify(n Notice) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, n)
}

// Notices returns a copy of what was recorded.
func (r *Recorder) Notices() []Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Notice, len(r.notices))
	copy(out, r.notices)
	return out
}

// Last returns the most recent notice.
func (r *Recorder) Last() (Notice, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.notices) == 0 {
		return Notice{}, false
	}
	return r.notices[len(r.notices)-1], true
}

// Multi fans a notice out to several notifiers.
func Multi(notifiers ...Notifier) Notifier {
	return Func(func(n Notice) {
		for _, nt := range notifiers {
			if nt != nil {
				nt.Notify(n)
			}
		}
	})
}
