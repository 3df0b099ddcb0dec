package replay

import "time"

// Commit is one action acknowledged by the server during a cycle
type Commit struct {
	LocalID  string
	ServerID string
}

// Report is the outcome of one drain cycle
type Report struct {
	Started   time.Time
	Finished  time.Time
	Err       error    // Err ошибка, остановившая цикл (transient, storage, offline)
	Retry     string   // Retry localId действия, ожидающего повтора
	Committed []Commit // Committed доставленные действия в порядке отправки
	Failed    []string // Failed действия, перенесенные в карантин
	Remaining int      // Remaining длина очереди после цикла
	// Interrupted is set when the cycle stopped early because the device went
	// offline or the engine was stopped
	Interrupted bool
}

// Drained reports whether the cycle left the queue empty
func (r *Report) Drained() bool {
	return r.Remaining == 0 && r.Err == nil
}

// EventType identifies an engine event
type EventType int

const (
	EventCommitted EventType = iota
	EventRetryScheduled
	EventFailed
	EventCycleFinished
)

func (t EventType) String() string {
	switch t {
	case EventCommitted:
		return "committed"
	case EventRetryScheduled:
		return "retry_scheduled"
	case EventFailed:
		return "failed"
	case EventCycleFinished:
		return "cycle_finished"
	default:
		return "unknown"
	}
}

// Event is emitted to subscribers as actions change state
type Event struct {
	Err      error
	Report   *Report // только для EventCycleFinished
	LocalID  string
	ServerID string
	RetryIn  time.Duration
	Type     EventType
}
