package main

import (
	"context"
	"fmt"
	"math"
	"os"
	"os/signal"
	"sort"
	"sync"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/pkg/errors"
	flag "github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/lanikai/alohareader"
	"github.com/lanikai/alohareader/internal/logging"
	"github.com/lanikai/alohareader/internal/monitor"
)

var log = logging.DefaultLogger.WithTag("alohaplay")

func main() {
	flag.Parse()

	if flagHelp {
		help()
		os.Exit(0)
	}
	if flagVersion {
		version()
		os.Exit(0)
	}
	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "alohaplay: expected one FILE, see --help")
		os.Exit(2)
	}

	if flagNoColor {
		logging.DisableColor()
	}
	if flagLogLevel != "" {
		if err := logging.Configure(flagLogLevel); err != nil {
			fmt.Fprintln(os.Stderr, "alohaplay:", err)
			os.Exit(2)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		<-sig
		log.Info("Interrupted")
		cancel()
	}()

	if err := run(ctx, flag.Arg(0)); err != nil && err != context.Canceled {
		log.Error("%v", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, path string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)

	p := newPlayer()
	var cb alohareader.Callback = p
	if flagListen != "" {
		hub := monitor.NewHub()
		server := monitor.NewServer(flagListen, hub)
		cb = alohareader.Tee(p, func(e alohareader.Event) {
			if err := hub.Publish(e); err != nil {
				log.Debug("Dropping event: %v", err)
			}
		})

		g.Go(server.ListenAndServe)
		g.Go(func() error {
			<-ctx.Done()
			hub.Close()
			shutdownCtx, done := context.WithTimeout(context.Background(), time.Second)
			defer done()
			return server.Shutdown(shutdownCtx)
		})
	}

	g.Go(func() error {
		// Stops the monitor once playback is over.
		defer cancel()
		return play(ctx, path, cb, p)
	})
	return g.Wait()
}

// Passed to DeliverTime when the presentation has no known end.
const deliverAll = time.Duration(math.MaxInt64)

// endOfPlay is the user clock time that releases everything from start on.
// Containers without an index report a zero duration.
func endOfPlay(start, duration time.Duration) time.Duration {
	if duration <= 0 {
		return deliverAll
	}
	return start + duration
}

func play(ctx context.Context, path string, cb alohareader.Callback, p *player) error {
	r := alohareader.New()

	if flagConfig != "" {
		c, err := alohareader.LoadConfig(flagConfig)
		if err != nil {
			return errors.Wrapf(err, "load %s", flagConfig)
		}
		if err := r.ApplyConfig(c); err != nil {
			return err
		}
	}
	if err := r.Open(path, cb, nil); err != nil {
		return err
	}
	defer r.Close()
	if err := p.wait(ctx, alohareader.StatusOpened); err != nil {
		return errors.Wrapf(err, "open %s", path)
	}
	if flagUserClock {
		if err := r.SetUserProvidedClock(true); err != nil {
			return err
		}
	}

	if err := configure(r); err != nil {
		return err
	}
	describe(r)

	if err := r.Start(flagStart, flagDuration, flagRate, nil); err != nil {
		return err
	}
	if err := p.wait(ctx, alohareader.StatusStarted); err != nil {
		return errors.Wrap(err, "start")
	}

	if r.UserProvidedClock() {
		d, err := r.Duration()
		if err != nil {
			return err
		}
		if err := r.DeliverTime(endOfPlay(flagStart, d)); err != nil {
			return err
		}
	}

	if err := p.wait(ctx, alohareader.StatusEOF); err != nil {
		return err
	}
	p.summary()
	return nil
}

// configure applies the stream and output flags.
func configure(r *alohareader.Reader) error {
	for _, n := range flagDeselect {
		if err := r.SetStreamsSelected([]int{n}, []alohareader.Selection{alohareader.SelectionOff}); err != nil {
			return errors.Wrapf(err, "deselect stream %d", n)
		}
	}
	for _, n := range flagCompressed {
		if err := r.SetReceiveStreamSamples(n, true); err != nil {
			return errors.Wrapf(err, "stream %d", n)
		}
	}
	if flagDedicated {
		for i := 0; i < r.OutputCount(); i++ {
			if err := r.SetOutputSetting(i, alohareader.SettingDedicatedDeliveryThread, true); err != nil {
				return errors.Wrapf(err, "output %d", i)
			}
		}
	}
	return nil
}

func describe(r *alohareader.Reader) {
	d, _ := r.Duration()
	fmt.Printf("Duration %v, %d streams\n", d, r.OutputCount())
	for n := 1; n <= r.OutputCount(); n++ {
		in, _ := r.StreamType(n)
		out, _ := r.OutputProps(n - 1)
		sel, _ := r.StreamSelected(n)
		fmt.Printf("  Stream %d: %v -> %v (%v)\n", n, in, out, sel)
	}
}

var outputColors = []*color.Color{
	color.New(color.FgCyan),
	color.New(color.FgYellow),
	color.New(color.FgMagenta),
	color.New(color.FgGreen),
}

type status struct {
	status alohareader.Status
	err    error
}

// player prints what the reader delivers.
type player struct {
	statuses chan status

	// Outputs with dedicated goroutines print concurrently.
	mu      sync.Mutex
	samples map[int]int
	bytes   map[int]int
}

func newPlayer() *player {
	return &player{
		statuses: make(chan status, 16),
		samples:  make(map[int]int),
		bytes:    make(map[int]int),
	}
}

func (p *player) OnStatus(s alohareader.Status, err error, userData interface{}) {
	log.Debug("Status %v (%v)", s, err)
	p.statuses <- status{s, err}
}

func (p *player) print(kind string, n int, pts, duration time.Duration, flags alohareader.SampleFlags, buf alohareader.Buffer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.samples[n]++
	p.bytes[n] += buf.Len()
	if flagQuiet {
		return
	}
	c := outputColors[n%len(outputColors)]
	c.Printf("%s %d  %12v  %10v  %6d bytes  %v\n", kind, n, pts, duration, buf.Len(), flags)
}

func (p *player) OnSample(output int, pts, duration time.Duration, flags alohareader.SampleFlags, buf alohareader.Buffer, userData interface{}) {
	p.print("output", output, pts, duration, flags, buf)
}

func (p *player) OnStreamSample(stream int, pts, duration time.Duration, flags alohareader.SampleFlags, buf alohareader.Buffer, userData interface{}) {
	p.print("stream", stream-1, pts, duration, flags, buf)
}

func (p *player) OnTime(t time.Duration, userData interface{}) {
	log.Debug("Clock reached %v", t)
}

func (p *player) AllocateForStream(stream, size int, userData interface{}) (alohareader.Buffer, error) {
	return alohareader.NewBuffer(size), nil
}

func (p *player) AllocateForOutput(output, size int, userData interface{}) (alohareader.Buffer, error) {
	return alohareader.NewBuffer(size), nil
}

// wait blocks until the given status arrives, returning its error.
func (p *player) wait(ctx context.Context, want alohareader.Status) error {
	for {
		select {
		case s := <-p.statuses:
			if s.status == want {
				return s.err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (p *player) summary() {
	p.mu.Lock()
	defer p.mu.Unlock()
	var outputs []int
	for n := range p.samples {
		outputs = append(outputs, n)
	}
	sort.Ints(outputs)
	for _, n := range outputs {
		fmt.Printf("Output %d: %d samples, %d bytes\n", n, p.samples[n], p.bytes[n])
	}
}
