package alohareader

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/lanikai/alohareader/internal/syncreader"
)

// A puller fetches samples of one stream from the sample source, one at a
// time, whenever the scheduler asks for the next one. All fields are guarded
// by the reader's lock.
type puller struct {
	r      *Reader
	stream int // 1-based
	cond   *sync.Cond

	requested bool

	// errPending while a fetch is outstanding, nil with a sample, or the
	// error that ended the stream.
	result error
	sample *syncreader.Sample
}

func newPuller(r *Reader, stream int) *puller {
	return &puller{
		r:      r,
		stream: stream,
		cond:   sync.NewCond(&r.mu),
		result: ErrNoMoreSamples,
	}
}

// request discards any held sample and asks for the next one.
func (p *puller) request() {
	p.drop()
	p.result = errPending
	p.requested = true
	p.cond.Signal()
}

// take hands the held sample over to the caller.
func (p *puller) take() *syncreader.Sample {
	s := p.sample
	p.sample = nil
	return s
}

func (p *puller) drop() {
	if p.sample != nil {
		p.sample.Buffer.Release()
		p.sample = nil
	}
}

func (p *puller) output() int {
	return p.stream - 1
}

func (p *puller) run() {
	r := p.r
	defer r.pullerWG.Done()

	r.mu.Lock()
	defer r.mu.Unlock()
	for {
		for r.running && (!p.requested || r.seeking) {
			p.cond.Wait()
		}
		if !r.running {
			return
		}
		p.requested = false

		r.fetching++
		r.mu.Unlock()
		sample, err := r.source.NextSample(p.stream)
		r.mu.Lock()
		r.fetching--
		if r.seeking {
			r.cond.Broadcast()
		}

		// Superseded by a newer request, a seek or shutdown.
		if p.requested || r.seeking || !r.running {
			if sample != nil {
				sample.Buffer.Release()
			}
			continue
		}

		if err != nil && errors.Cause(err) != ErrNoMoreSamples {
			log.Warn("Stream %d failed: %v", p.stream, err)
		}
		if err != nil {
			err = ErrNoMoreSamples
		}
		p.sample, p.result = sample, err
		r.sampleReady = true
		r.cond.Broadcast()
	}
}
