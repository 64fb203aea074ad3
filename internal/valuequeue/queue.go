// Package valuequeue implements the bounded raw-frame queue and the
// distributor that fans each frame out to independent parser and logger
// queues without ever blocking a producer. Overflow at any point drops the
// frame and increments a counter rather than applying backpressure.
package valuequeue

import (
	"sync/atomic"
	"time"

	"github.com/modbusd/modbusd/internal/modbuslog"
)

// RawFrame is a transient record of one successful register read. Raw
// carries the unscaled registers exactly as the poller read them; the
// parser, not the poller, is responsible for turning them into an
// engineering value.
type RawFrame struct {
	DeviceID  int64
	TagID     int64
	TagName   string
	Datatype  string
	ByteOrder string
	WordOrder string
	Scale     float64
	Offset    float64
	Unit      string
	Raw       []uint16
	BoolValue *bool // set instead of Raw for coil/discrete-input reads
	Timestamp time.Time
}

// Stats is a point-in-time snapshot of drop counters, exposed for
// operator visibility and prometheus gauges.
type Stats struct {
	RawEnqueued   uint64
	RawDropped    uint64
	ParserDropped uint64
	LoggerDropped uint64
}

// Distributor owns the raw queue and fans each frame to a parser queue and
// a logger queue. A single goroutine runs Run; producers call Push from any
// number of goroutines.
type Distributor struct {
	rawQ    chan RawFrame
	parserQ chan RawFrame
	loggerQ chan RawFrame

	rawEnqueued   atomic.Uint64
	rawDropped    atomic.Uint64
	parserDropped atomic.Uint64
	loggerDropped atomic.Uint64

	done chan struct{}
}

// New creates a distributor with the given queue capacities. Defaults per
// spec: raw 10000, parser 5000, logger 5000.
func New(rawCap, parserCap, loggerCap int) *Distributor {
	return &Distributor{
		rawQ:    make(chan RawFrame, rawCap),
		parserQ: make(chan RawFrame, parserCap),
		loggerQ: make(chan RawFrame, loggerCap),
		done:    make(chan struct{}),
	}
}

// Push enqueues a frame without blocking. On overflow the frame is dropped
// and RawDropped is incremented; the caller is never blocked.
func (d *Distributor) Push(f RawFrame) {
	select {
	case d.rawQ <- f:
		d.rawEnqueued.Add(1)
	default:
		d.rawDropped.Add(1)
		modbuslog.Debugf("valuequeue: raw queue full, dropping frame for tag %d", f.TagID)
	}
}

// ParserQueue returns the channel the parser consumer reads from.
func (d *Distributor) ParserQueue() <-chan RawFrame { return d.parserQ }

// LoggerQueue returns the channel the data logger consumer reads from.
func (d *Distributor) LoggerQueue() <-chan RawFrame { return d.loggerQ }

// QueueDepths reports the current buffered length of each internal
// channel, for the raw/parser/logger queue-depth gauges internal/metrics
// exposes; a depth near capacity is the leading indicator of the drop
// counters about to climb.
func (d *Distributor) QueueDepths() (raw, parserQ, loggerQ int) {
	return len(d.rawQ), len(d.parserQ), len(d.loggerQ)
}

// Run drains the raw queue and fans each frame to both downstream queues
// independently: an overflow on one queue does not prevent delivery to the
// other. Run returns when Stop is called and the raw queue has drained.
func (d *Distributor) Run() {
	for {
		select {
		case f, ok := <-d.rawQ:
			if !ok {
				return
			}
			d.fanOut(f)
		case <-d.done:
			d.drainRemaining()
			return
		}
	}
}

func (d *Distributor) fanOut(f RawFrame) {
	select {
	case d.parserQ <- f:
	default:
		d.parserDropped.Add(1)
		modbuslog.Debugf("valuequeue: parser queue full, dropping frame for tag %d", f.TagID)
	}

	select {
	case d.loggerQ <- f:
	default:
		d.loggerDropped.Add(1)
		modbuslog.Debugf("valuequeue: logger queue full, dropping frame for tag %d", f.TagID)
	}
}

func (d *Distributor) drainRemaining() {
	for {
		select {
		case f := <-d.rawQ:
			d.fanOut(f)
		default:
			return
		}
	}
}

// Stop signals Run to drain whatever is already buffered and return.
func (d *Distributor) Stop() {
	close(d.done)
}

// Stats returns a snapshot of the drop counters.
func (d *Distributor) Stats() Stats {
	return Stats{
		RawEnqueued:   d.rawEnqueued.Load(),
		RawDropped:    d.rawDropped.Load(),
		ParserDropped: d.parserDropped.Load(),
		LoggerDropped: d.loggerDropped.Load(),
	}
}
