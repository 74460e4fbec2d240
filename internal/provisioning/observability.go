package provisioning

import (
	"fmt"
	"maps"
	"sort"
	"time"

	"github.com/go-logr/logr"

	"github.com/imamik/wsctl/internal/cloud"
)

// Logger is the minimal printf-style logging interface.
type Logger interface {
	Printf(format string, v ...any)
}

// Observer receives structured progress events from an operation.
type Observer interface {
	Logger

	// Event emits a structured event.
	Event(event Event)

	// WithFields returns an Observer that adds fields to every event.
	WithFields(fields map[string]string) Observer
}

// Event represents a structured provisioning event.
type Event struct {
	Type      EventType
	Progress  StepProgress
	Step      string     // Step label
	Kind      cloud.Kind // Resource kind if applicable
	Resource  string     // Resource name if applicable
	Message   string
	Err       error
	Timestamp time.Time
	Fields    map[string]string
}

// EventType represents the type of provisioning event.
type EventType string

const (
	EventStepStarted   EventType = "step.started"
	EventStepCompleted EventType = "step.completed"
	EventStepFailed    EventType = "step.failed"

	EventResourceExists   EventType = "resource.exists"
	EventResourceCreating EventType = "resource.creating"
	EventResourceCreated  EventType = "resource.created"
	EventResourceDeleting EventType = "resource.deleting"
	EventResourceDeleted  EventType = "resource.deleted"
	// EventResourceSkipped is emitted when a resource is left alone because
	// the workspace does not own it, or it is already gone.
	EventResourceSkipped EventType = "resource.skipped"

	// EventWaitExhausted is emitted when a bounded wait loop gives up.
	EventWaitExhausted EventType = "wait.exhausted"

	EventValidationWarning EventType = "validation.warning"
)

// ConsoleObserver writes events to a logr.Logger.
type ConsoleObserver struct {
	log           logr.Logger
	contextFields map[string]string
}

// NewConsoleObserver creates an observer that logs through logger.
func NewConsoleObserver(logger logr.Logger) *ConsoleObserver {
	return &ConsoleObserver{
		log:           logger,
		contextFields: make(map[string]string),
	}
}

func (o *ConsoleObserver) Printf(format string, v ...any) {
	o.log.Info(fmt.Sprintf(format, v...), o.keysAndValues(nil)...)
}

func (o *ConsoleObserver) Event(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	kv := []any{"event", string(event.Type)}
	if event.Progress.Total > 0 {
		kv = append(kv, "step", event.Progress.Current, "total", event.Progress.Total)
	}
	if event.Kind != "" {
		kv = append(kv, "kind", string(event.Kind))
	}
	if event.Resource != "" {
		kv = append(kv, "resource", event.Resource)
	}
	kv = append(kv, o.keysAndValues(event.Fields)...)

	msg := formatEvent(event)
	switch event.Type {
	case EventStepFailed:
		o.log.Error(event.Err, msg, kv...)
	case EventResourceExists, EventResourceSkipped:
		o.log.V(1).Info(msg, kv...)
	default:
		o.log.Info(msg, kv...)
	}
}

func (o *ConsoleObserver) WithFields(fields map[string]string) Observer {
	newFields := maps.Clone(o.contextFields)
	maps.Copy(newFields, fields)
	return &ConsoleObserver{log: o.log, contextFields: newFields}
}

// keysAndValues merges context fields with event fields in a stable order.
func (o *ConsoleObserver) keysAndValues(fields map[string]string) []any {
	merged := maps.Clone(o.contextFields)
	maps.Copy(merged, fields)

	keys := make([]string, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	kv := make([]any, 0, 2*len(keys))
	for _, k := range keys {
		kv = append(kv, k, merged[k])
	}
	return kv
}

// formatEvent renders the human-readable part, e.g. "step 3/6: Creating security group".
func formatEvent(event Event) string {
	switch event.Type {
	case EventStepStarted:
		return fmt.Sprintf("step %s: %s", event.Progress, event.Step)
	case EventStepCompleted:
		return fmt.Sprintf("step %s: %s done", event.Progress, event.Step)
	case EventStepFailed:
		return fmt.Sprintf("step %s: %s failed", event.Progress, event.Step)
	}
	if event.Message != "" {
		return event.Message
	}
	return string(event.Type)
}

// NopObserver discards everything.
type NopObserver struct{}

func (NopObserver) Printf(string, ...any) {}

func (NopObserver) Event(Event) {}

func (n NopObserver) WithFields(map[string]string) Observer { return n }

// LogStepStart logs a step start event.
func LogStepStart(observer Observer, progress StepProgress, label string) {
	observer.Event(Event{Type: EventStepStarted, Progress: progress, Step: label})
}

// LogStepComplete logs a step completion event.
func LogStepComplete(observer Observer, progress StepProgress, label string, duration time.Duration) {
	observer.Event(Event{
		Type:     EventStepCompleted,
		Progress: progress,
		Step:     label,
		Fields:   map[string]string{"duration": duration.Round(time.Millisecond).String()},
	})
}

// LogStepFailed logs a step failure event.
func LogStepFailed(observer Observer, progress StepProgress, label string, err error) {
	observer.Event(Event{Type: EventStepFailed, Progress: progress, Step: label, Err: err})
}

// LogResourceExists logs that a resource was found and creation is skipped.
func LogResourceExists(observer Observer, kind cloud.Kind, name, id string) {
	observer.Event(Event{
		Type:     EventResourceExists,
		Kind:     kind,
		Resource: name,
		Message:  fmt.Sprintf("%s %s already exists", kind, name),
		Fields:   map[string]string{"id": id},
	})
}

// LogResourceCreating logs a resource creation start event.
func LogResourceCreating(observer Observer, kind cloud.Kind, name string) {
	observer.Event(Event{
		Type:     EventResourceCreating,
		Kind:     kind,
		Resource: name,
		Message:  fmt.Sprintf("creating %s %s", kind, name),
	})
}

// LogResourceCreated logs a resource creation success event.
func LogResourceCreated(observer Observer, kind cloud.Kind, name, id string) {
	observer.Event(Event{
		Type:     EventResourceCreated,
		Kind:     kind,
		Resource: name,
		Message:  fmt.Sprintf("created %s %s", kind, name),
		Fields:   map[string]string{"id": id},
	})
}

// LogResourceDeleting logs a resource deletion start event.
func LogResourceDeleting(observer Observer, kind cloud.Kind, name string) {
	observer.Event(Event{
		Type:     EventResourceDeleting,
		Kind:     kind,
		Resource: name,
		Message:  fmt.Sprintf("deleting %s %s", kind, name),
	})
}

// LogResourceDeleted logs a resource deletion success event.
func LogResourceDeleted(observer Observer, kind cloud.Kind, name string) {
	observer.Event(Event{
		Type:     EventResourceDeleted,
		Kind:     kind,
		Resource: name,
		Message:  fmt.Sprintf("deleted %s %s", kind, name),
	})
}

// LogResourceSkipped logs that a resource was deliberately left in place.
func LogResourceSkipped(observer Observer, kind cloud.Kind, name, reason string) {
	observer.Event(Event{
		Type:     EventResourceSkipped,
		Kind:     kind,
		Resource: name,
		Message:  fmt.Sprintf("skipping %s %s: %s", kind, name, reason),
	})
}

// LogWaitExhausted logs that a bounded wait gave up after attempts tries.
func LogWaitExhausted(observer Observer, kind cloud.Kind, name, condition string, attempts int) {
	observer.Event(Event{
		Type:     EventWaitExhausted,
		Kind:     kind,
		Resource: name,
		Message:  fmt.Sprintf("%s %s not %s after %d attempts", kind, name, condition, attempts),
		Fields:   map[string]string{"attempts": fmt.Sprint(attempts)},
	})
}
