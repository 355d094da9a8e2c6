package app

import "time"

// Recorder observes pull loop activity, typically for metrics.
// Calls are made synchronously from the pull loop.
type Recorder interface {
	OnMessage(bytes int)
	OnAck()
	OnDecodeError()
	OnFlush(f Flush, duration time.Duration)
	OnFlushError(f Flush, err error)
}

type noopRecorder struct{}

func (noopRecorder) OnMessage(int)                {}
func (noopRecorder) OnAck()                       {}
func (noopRecorder) OnDecodeError()               {}
func (noopRecorder) OnFlush(Flush, time.Duration) {}
func (noopRecorder) OnFlushError(Flush, error)    {}
