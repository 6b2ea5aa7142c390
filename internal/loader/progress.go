package loader

import "time"

// Stage describes one step of loading a module.
type Stage string

const (
	// StageResolve is the search-path lookup.
	StageResolve Stage = "resolve"
	// StageOpen is the platform open, including the "./" retry.
	StageOpen Stage = "open"
	// StageInit is the initializer call.
	StageInit Stage = "init"
	// StageDone is reported once per load request.
	StageDone Stage = "done"
)

// Status captures progress state within a stage.
type Status string

const (
	StatusWorking Status = "working"
	StatusDone    Status = "done"
	// StatusCached marks a request satisfied by an already loaded module.
	StatusCached Status = "cached"
	StatusError  Status = "error"
)

// Event reports a module moving through a stage.
type Event struct {
	Module  string
	Stage   Stage
	Status  Status
	Err     error
	Elapsed time.Duration
}

// ProgressSink receives load events.
type ProgressSink interface {
	OnEvent(Event)
}

// ChannelSink forwards events into a channel.
type ChannelSink struct {
	Ch chan<- Event
}

func (s ChannelSink) OnEvent(evt Event) {
	if s.Ch == nil {
		return
	}
	s.Ch <- evt
}
