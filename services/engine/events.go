package engine

// EventType labels one entry in the simulation event log.
type EventType int

const (
	EventInstrumentSkipped EventType = iota
	EventEntryScheduled
	EventEntryFill
	EventStopHit
	EventTakeProfitHit
	EventTimeExit
)

func (t EventType) String() string {
	switch t {
	case EventInstrumentSkipped:
		return "instrument_skipped"
	case EventEntryScheduled:
		return "entry_scheduled"
	case EventEntryFill:
		return "entry_fill"
	case EventStopHit:
		return "stop_hit"
	case EventTakeProfitHit:
		return "take_profit_hit"
	case EventTimeExit:
		return "time_exit"
	default:
		return "unknown"
	}
}

// Event is one timestamped occurrence during a walk.
type Event struct {
	Ts         int64
	Type       EventType
	Instrument string
	Details    map[string]string
}

// EventLog accumulates events in walk order. Not safe for concurrent use;
// each walker keeps its own log and the runner merges them afterwards.
type EventLog struct {
	Events []Event
}

func (l *EventLog) Append(e Event) { l.Events = append(l.Events, e) }
