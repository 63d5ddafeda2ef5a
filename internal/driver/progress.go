package driver

import "time"

// Stage is the part of a unit check a progress event refers to.
type Stage uint8

const (
	StageLoad Stage = iota
	StageRegister
	StageResolve
	StageValidate
	StageDone
)

func (s Stage) String() string {
	switch s {
	case StageLoad:
		return "load"
	case StageRegister:
		return "register"
	case StageResolve:
		return "resolve"
	case StageValidate:
		return "validate"
	case StageDone:
		return "done"
	default:
		return "stage?"
	}
}

// ProgressEvent describes one step of one unit. Done and Total count
// functions inside the current round for StageResolve.
type ProgressEvent struct {
	Unit    string
	Stage   Stage
	Round   int
	Done    int
	Total   int
	Errors  int
	Elapsed time.Duration
	Err     error
}

// ProgressSink receives events from any worker goroutine.
type ProgressSink interface {
	OnProgress(ProgressEvent)
}

// ProgressFunc adapts a function to ProgressSink.
type ProgressFunc func(ProgressEvent)

func (f ProgressFunc) OnProgress(ev ProgressEvent) { f(ev) }

// ChannelSink forwards events into a channel.
type ChannelSink struct {
	Ch chan<- ProgressEvent
}

func (s ChannelSink) OnProgress(ev ProgressEvent) {
	if s.Ch == nil {
		return
	}
	s.Ch <- ev
}
