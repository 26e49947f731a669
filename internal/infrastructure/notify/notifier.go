// Package notify carries user-facing notifications out of the application
// layer. Validation failures surface as warnings, remote write failures as
// errors; parse failures never reach the user.
package notify

import (
	"sync"

	"github.com/moyeostudy/moyeo-hub/pkg/logger"
)

// Severity of a user-facing notification.
type Severity string

const (
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Notification is one message for the user.
type Notification struct {
	Severity Severity
	Message  string
}

// Notifier receives user-facing notifications. The UI registers its own
// implementation; the default logs.
type Notifier interface {
	// Warn surfaces a user-visible warning (validation failures).
	Warn(message string)

	// Error surfaces a user-visible error (remote write failures).
	Error(message string)
}

// LogNotifier writes notifications to the structured log. Used as the
// default sink and in headless runs.
type LogNotifier struct {
	log *logger.Logger
}

// NewLogNotifier creates a notifier writing through the given logger.
func NewLogNotifier(log *logger.Logger) *LogNotifier {
	if log == nil {
		log = logger.Default()
	}
	return &LogNotifier{log: log.With(logger.Component("notify"))}
}

func (n *LogNotifier) Warn(message string) {
	n.log.Warn("user notification", logger.String("severity", string(SeverityWarning)), logger.String("message", message))
}

func (n *LogNotifier) Error(message string) {
	n.log.Error("user notification", logger.String("severity", string(SeverityError)), logger.String("message", message))
}

// Recorder collects notifications in memory. Useful for tests and for UI
// layers that drain messages on their own cadence.
type Recorder struct {
	mu       sync.Mutex
	messages []Notification
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Warn(message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, Notification{Severity: SeverityWarning, Message: message})
}

func (r *Recorder) Error(message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, Notification{Severity: SeverityError, Message: message})
}

// Drain returns and clears the collected notifications.
func (r *Recorder) Drain() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.messages
	r.messages = nil
	return out
}
