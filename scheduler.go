package alohareader

import (
	"time"
)

// run is the delivery goroutine. It executes queued commands in order and
// delivers samples in presentation order between them.
func (r *Reader) run(done chan struct{}) {
	defer close(done)

	r.mu.Lock()
	defer r.mu.Unlock()
	for r.running {
		if c, ok := r.popLocked(); ok {
			log.Debug("Executing %v", c.kind)
			r.execute(c)
			continue
		}

		if r.sampleReady && r.started {
			r.sampleReady = false
			r.deliverSamples()
			continue
		}

		// Nothing left to deliver, but a DeliverTime still needs an answer.
		if r.started && r.eos && r.clock.user && r.clock.pending {
			r.sendOnTime()
			continue
		}

		r.cond.Wait()
	}
	r.shutdown()
}

func (r *Reader) execute(c command) {
	switch c.kind {
	case cmdOpenFile, cmdOpenStream:
		r.openSource(c)
	case cmdStart:
		r.startDelivery(c)
	case cmdStop:
		if !r.everStarted {
			r.status(StatusStopped, ErrInvalidRequest)
			return
		}
		r.started = false
		r.status(StatusStopped, nil)
	case cmdClose:
		r.status(StatusClosed, nil)
		r.closeEmitted = true
		r.running = false
	}
}

func (r *Reader) openSource(c command) {
	adv, userData := r.adv, r.userData

	r.mu.Unlock()
	var err error
	if c.kind == cmdOpenFile {
		err = r.source.Open(c.path)
	} else {
		err = r.source.OpenStream(c.stream, c.format)
	}
	var types []MediaType
	if err == nil {
		types, err = r.attachSource(adv, userData)
		if err != nil {
			r.source.Close()
		}
	}
	r.mu.Lock()

	if err != nil {
		log.Error("Open failed: %v", err)
		r.running = false
		r.status(StatusOpened, err)
		return
	}

	r.outputs = make([]*output, len(types))
	r.selection = make([]Selection, len(types))
	for i, t := range types {
		r.outputs[i] = newOutput(i, t)
		r.selection[i] = SelectionOn
		p := newPuller(r, i+1)
		r.streams = append(r.streams, p)
		r.pullerWG.Add(1)
		go p.run()
	}
	r.opened = true
	r.everStarted = false

	if cfg := r.pending; cfg != nil {
		r.pending = nil
		r.mu.Unlock()
		if err := r.applyConfig(cfg); err != nil {
			log.Warn("Ignoring configuration: %v", err)
		}
		r.mu.Lock()
	}

	log.Info("Opened %d streams", len(types))
	r.status(StatusOpened, nil)
}

// attachSource routes every allocation of the freshly opened source through
// the engine allocator and returns the stream types.
func (r *Reader) attachSource(adv AdvancedCallback, userData interface{}) ([]MediaType, error) {
	n := r.source.StreamCount()
	r.alloc.reset(n, adv, userData)

	types := make([]MediaType, n)
	for i := 0; i < n; i++ {
		t, err := r.source.StreamType(i + 1)
		if err != nil {
			return nil, err
		}
		types[i] = t
		if err := r.source.SetAllocateForStream(i+1, r.alloc); err != nil {
			return nil, err
		}
		if err := r.source.SetAllocateForOutput(i, r.alloc); err != nil {
			return nil, err
		}
	}
	return types, nil
}

func (r *Reader) startDelivery(c command) {
	r.userData = c.userData
	r.alloc.setUserData(c.userData)

	// Keep pullers out of the sample source while it seeks.
	r.seeking = true
	for r.fetching > 0 {
		r.cond.Wait()
	}
	r.mu.Unlock()
	err := r.source.SetRange(c.start, c.duration)
	r.mu.Lock()
	r.seeking = false

	if err != nil {
		// The source kept its position. Fetches discarded during the
		// seek are issued again so a running session carries on.
		for _, p := range r.streams {
			if p.result == errPending {
				p.requested = true
			}
			p.cond.Signal()
		}
		r.status(StatusStarted, err)
		return
	}

	r.clock.start(c.start, c.rate)
	r.started = true
	r.everStarted = true
	r.eos = false
	for _, p := range r.streams {
		p.request()
	}
	r.sampleReady = true
	r.status(StatusStarted, nil)
}

// shutdown stops the pullers and workers and closes the sample source. Called
// with r.mu held on the way out of run.
func (r *Reader) shutdown() {
	r.running = false
	r.started = false
	for _, p := range r.streams {
		p.cond.Signal()
	}

	r.mu.Unlock()
	r.pullerWG.Wait()
	r.mu.Lock()

	r.stopWorkers()
	for _, p := range r.streams {
		p.drop()
	}
	r.streams = nil
	if n := len(r.commands); n > 0 {
		log.Debug("Discarding %d queued commands", n)
		r.commands = nil
	}

	if r.opened {
		r.opened = false
		r.mu.Unlock()
		if err := r.source.Close(); err != nil {
			log.Warn("Close failed: %v", err)
		}
		r.mu.Lock()
	}
}

// busy reports whether delivery must yield to a command or has been stopped.
func (r *Reader) busy() bool {
	return !r.running || !r.started || len(r.commands) > 0
}

// selectNextStream picks the selected stream whose sample is due first.
func (r *Reader) selectNextStream() (*puller, time.Duration, error) {
	for i, p := range r.streams {
		if r.selection[i] != SelectionOff && p.result == errPending {
			return nil, 0, errPending
		}
	}

	var (
		best    *puller
		bestKey time.Duration
	)
	for i, p := range r.streams {
		if r.selection[i] == SelectionOff || p.sample == nil {
			continue
		}
		key := p.sample.PTS - r.outputs[i].early()
		if best == nil || key < bestKey {
			best, bestKey = p, key
		}
	}
	if best == nil {
		return nil, 0, ErrNoMoreSamples
	}
	return best, bestKey, nil
}

func (r *Reader) deliverSamples() {
	for !r.busy() {
		p, key, err := r.selectNextStream()
		if err == errPending {
			return
		} else if err == ErrNoMoreSamples {
			if !r.eos {
				r.endOfStream()
			}
			return
		}

		sample := p.take()
		p.request()
		if r.waitForPresentation(p.output(), key) {
			r.dispatch(sample)
		} else {
			log.Trace(2, "Dropping sample of stream %d at %v", sample.Stream, sample.PTS)
			sample.Buffer.Release()
		}
	}
}

// waitForPresentation blocks until the clock reaches key. It returns false if
// delivery was interrupted by a command.
func (r *Reader) waitForPresentation(output int, key time.Duration) bool {
	for !r.busy() {
		if r.outputs[output].deliverOnReceive {
			return true
		}

		if r.clock.user {
			if r.clock.reached(key) {
				return true
			}
			if r.clock.pending {
				r.sendOnTime()
				continue
			}
			r.cond.Wait()
			continue
		}

		d := r.clock.until(key)
		if d <= 0 {
			return true
		}
		r.timedWait(d)
	}
	return false
}

// timedWait waits on the scheduler cond for at most d.
func (r *Reader) timedWait(d time.Duration) {
	t := time.AfterFunc(d, func() {
		r.mu.Lock()
		r.cond.Broadcast()
		r.mu.Unlock()
	})
	r.cond.Wait()
	t.Stop()
}

func (r *Reader) endOfStream() {
	r.eos = true
	r.status(StatusEndOfStreaming, nil)
	r.status(StatusEOF, nil)
	if r.clock.user {
		r.sendOnTime()
	}
}

// sendOnTime reports the last user-provided time once every sample before it
// has been delivered.
func (r *Reader) sendOnTime() {
	t := r.clock.userTime
	r.clock.pending = false
	r.flushWorkers()
	if r.adv == nil {
		return
	}
	adv, userData := r.adv, r.userData
	r.mu.Unlock()
	adv.OnTime(t, userData)
	r.mu.Lock()
}

// status notifies the client, after everything already dispatched.
func (r *Reader) status(s Status, err error) {
	r.flushWorkers()
	cb, userData := r.cb, r.userData
	if err != nil {
		log.Debug("Status %v: %v", s, err)
	} else {
		log.Debug("Status %v", s)
	}
	r.mu.Unlock()
	cb.OnStatus(s, err, userData)
	r.mu.Lock()
}
