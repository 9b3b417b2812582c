package alohareader

import (
	"time"
)

// Event is a callback invocation in serializable form, for monitoring.
type Event struct {
	Kind     string        `json:"kind"` // status, sample, stream-sample or time
	Status   string        `json:"status,omitempty"`
	Error    string        `json:"error,omitempty"`
	Output   int           `json:"output"`
	Stream   int           `json:"stream,omitempty"`
	PTS      time.Duration `json:"pts"`
	Duration time.Duration `json:"duration,omitempty"`
	Flags    string        `json:"flags,omitempty"`
	Size     int           `json:"size,omitempty"`
}

// Tee returns a callback that reports every invocation to sink before
// forwarding it to cb. The result implements AdvancedCallback if cb does.
// sink runs on the delivery goroutine and must not block.
func Tee(cb Callback, sink func(Event)) Callback {
	t := &tee{cb: cb, sink: sink}
	if adv, ok := cb.(AdvancedCallback); ok {
		return &advancedTee{tee: t, adv: adv}
	}
	return t
}

type tee struct {
	cb   Callback
	sink func(Event)
}

func (t *tee) OnStatus(status Status, err error, userData interface{}) {
	e := Event{Kind: "status", Status: status.String(), Output: -1}
	if err != nil {
		e.Error = err.Error()
	}
	t.sink(e)
	t.cb.OnStatus(status, err, userData)
}

func (t *tee) OnSample(output int, pts, duration time.Duration, flags SampleFlags, buf Buffer, userData interface{}) {
	t.sink(Event{
		Kind:     "sample",
		Output:   output,
		Stream:   output + 1,
		PTS:      pts,
		Duration: duration,
		Flags:    flags.String(),
		Size:     buf.Len(),
	})
	t.cb.OnSample(output, pts, duration, flags, buf, userData)
}

type advancedTee struct {
	*tee
	adv AdvancedCallback
}

func (t *advancedTee) OnStreamSample(stream int, pts, duration time.Duration, flags SampleFlags, buf Buffer, userData interface{}) {
	t.sink(Event{
		Kind:     "stream-sample",
		Output:   stream - 1,
		Stream:   stream,
		PTS:      pts,
		Duration: duration,
		Flags:    flags.String(),
		Size:     buf.Len(),
	})
	t.adv.OnStreamSample(stream, pts, duration, flags, buf, userData)
}

func (t *advancedTee) OnTime(pts time.Duration, userData interface{}) {
	t.sink(Event{Kind: "time", Output: -1, PTS: pts})
	t.adv.OnTime(pts, userData)
}

func (t *advancedTee) AllocateForStream(stream, size int, userData interface{}) (Buffer, error) {
	return t.adv.AllocateForStream(stream, size, userData)
}

func (t *advancedTee) AllocateForOutput(output, size int, userData interface{}) (Buffer, error) {
	return t.adv.AllocateForOutput(output, size, userData)
}
