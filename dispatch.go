package alohareader

import (
	"sync"

	"github.com/lanikai/alohareader/internal/syncreader"
)

// A worker runs the sample callbacks of one output on its own goroutine, in
// submission order.
type worker struct {
	output int
	jobs   chan func()
	wg     sync.WaitGroup
	done   chan struct{}
}

func newWorker(output int) *worker {
	w := &worker{
		output: output,
		jobs:   make(chan func(), 8),
		done:   make(chan struct{}),
	}
	go w.run()
	return w
}

func (w *worker) run() {
	defer close(w.done)
	log.Debug("Delivery worker for output %d started", w.output)
	for job := range w.jobs {
		job()
		w.wg.Done()
	}
	log.Debug("Delivery worker for output %d stopped", w.output)
}

func (w *worker) submit(job func()) {
	w.wg.Add(1)
	w.jobs <- job
}

// flush waits until every submitted job has run.
func (w *worker) flush() {
	w.wg.Wait()
}

func (w *worker) stop() {
	close(w.jobs)
	<-w.done
}

// workerFor returns the output's worker, starting it on first use.
func (r *Reader) workerFor(out *output) *worker {
	if out.worker == nil {
		out.worker = newWorker(out.index)
	}
	return out.worker
}

func (r *Reader) activeWorkers() []*worker {
	var workers []*worker
	for _, out := range r.outputs {
		if out.worker != nil {
			workers = append(workers, out.worker)
		}
	}
	return workers
}

// flushWorkers waits, with r.mu released, for all outputs to go idle.
func (r *Reader) flushWorkers() {
	workers := r.activeWorkers()
	if len(workers) == 0 {
		return
	}
	r.mu.Unlock()
	for _, w := range workers {
		w.flush()
	}
	r.mu.Lock()
}

// stopWorkers drains and stops all workers.
func (r *Reader) stopWorkers() {
	workers := r.activeWorkers()
	for _, out := range r.outputs {
		out.worker = nil
	}
	if len(workers) == 0 {
		return
	}
	r.mu.Unlock()
	for _, w := range workers {
		w.stop()
	}
	r.mu.Lock()
}

// dispatch hands a sample to the client and drops the reader's reference.
func (r *Reader) dispatch(s *syncreader.Sample) {
	out := r.outputs[s.Output()]
	duration := s.Duration
	if out.typ.Major == MajorVideo && !out.videoSampleDurations {
		duration = 0
	}
	cb, adv, userData := r.cb, r.adv, r.userData
	compressed := adv != nil && out.receiveStream && s.Compressed

	deliver := func() {
		if compressed {
			adv.OnStreamSample(s.Stream, s.PTS, duration, s.Flags, s.Buffer, userData)
		} else {
			cb.OnSample(s.Output(), s.PTS, duration, s.Flags, s.Buffer, userData)
		}
		s.Buffer.Release()
	}

	if out.dedicated {
		w := r.workerFor(out)
		r.mu.Unlock()
		w.submit(deliver)
		r.mu.Lock()
		return
	}

	// The output may have had a worker before; keep its order.
	if out.worker != nil {
		w := out.worker
		r.mu.Unlock()
		w.flush()
		r.mu.Lock()
	}
	r.mu.Unlock()
	deliver()
	r.mu.Lock()
}
