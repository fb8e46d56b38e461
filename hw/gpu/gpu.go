// Package gpu implements a FIFO consumer for the command processor. It does
// not render anything: it walks the FIFO in gather pipe sized blocks, hands
// each block to an optional handler, and keeps the read pointer, distance and
// interrupt conditions up to date the way the GPU does.
package gpu

import (
	"context"
	"sync"
	"sync/atomic"

	"cpemu/emu/log"
	"cpemu/hw/cp"
	"cpemu/hw/hwdefs"
)

// Memory is where the FIFO data lives.
type Memory interface {
	ReadBlock(addr uint32, dst []byte)
}

// Handler processes one block of FIFO data, read at addr. Errors are logged,
// the block is consumed anyway.
type Handler func(addr uint32, block []byte) error

type Config struct {
	DualCore      bool
	Deterministic bool // only meaningful on dual core
	Budget        int  // max blocks per RunGpu call on single core (0: no limit)
}

type Runner struct {
	cp  *cp.CommandProcessor
	cfg Config

	mem     Memory
	handler Handler
	buf     [cp.GatherPipeSize]byte

	drainMu   sync.Mutex
	processed atomic.Uint64

	// single core
	running bool
	pending bool

	// dual core
	wake    chan struct{}
	mu      sync.Mutex
	idle    *sync.Cond
	busy    bool
	started bool
}

func NewRunner(c *cp.CommandProcessor, cfg Config) *Runner {
	r := &Runner{
		cp:   c,
		cfg:  cfg,
		wake: make(chan struct{}, 1),
	}
	r.idle = sync.NewCond(&r.mu)
	return r
}

// SetHandler makes the runner read each block from mem and pass it to h.
func (r *Runner) SetHandler(mem Memory, h Handler) {
	r.mem = mem
	r.handler = h
}

// Processed returns the number of blocks consumed so far.
func (r *Runner) Processed() uint64 {
	return r.processed.Load()
}

// AtBreakpoint reports whether the read pointer sits on the enabled FIFO
// breakpoint.
func (r *Runner) AtBreakpoint() bool {
	return r.cp.Fifo.AtBreakpoint()
}

func (r *Runner) UseDeterministicGPUThread() bool {
	return r.cfg.DualCore && r.cfg.Deterministic
}

// hasWork reports whether there's something to consume.
func (r *Runner) hasWork() bool {
	f := &r.cp.Fifo
	return f.ReadEnable.Load() && f.Distance.Load() > 0 && !f.AtBreakpoint()
}

// drain consumes up to max blocks (no limit if max <= 0) and returns the
// number of blocks consumed.
func (r *Runner) drain(max int) int {
	r.drainMu.Lock()
	defer r.drainMu.Unlock()

	f := &r.cp.Fifo
	n := 0
	for (max <= 0 || n < max) && r.hasWork() {
		rp := f.ReadPointer.Load()
		if r.handler != nil {
			r.mem.ReadBlock(rp, r.buf[:])
			if err := r.handler(rp, r.buf[:]); err != nil {
				log.ModGPU.ErrorZ("block handler failed").
					Hex32("rp", rp).
					Error("err", err).
					End()
			}
		}
		// Distance must drop before the read pointer moves: the CPU thread
		// reads wp == rp with a nonzero distance as a full FIFO.
		f.Consume(cp.GatherPipeSize)
		f.AdvanceReadPointer(cp.GatherPipeSize)
		r.processed.Add(1)
		n++

		r.cp.SetStatusFromGPU()
	}

	if n > 0 {
		log.ModGPU.DebugZ("drained").
			Int("blocks", n).
			Hex32("rp", f.ReadPointer.Load()).
			Uint32("dist", f.Distance.Load()).
			Bool("bp", f.AtBreakpoint()).
			End()
	}
	return n
}

// RunGpu lets the GPU process the FIFO. On single core, blocks are consumed
// right away; on dual core the GPU goroutine is woken up.
func (r *Runner) RunGpu() {
	if r.cfg.DualCore {
		select {
		case r.wake <- struct{}{}:
		default:
		}
		return
	}
	r.runSync(r.cfg.Budget)
}

func (r *Runner) runSync(budget int) {
	// Consuming a block may apply an interrupt, which runs the GPU again.
	if r.running {
		r.pending = true
		return
	}
	r.running = true
	defer func() { r.running = false }()

	for {
		r.pending = false
		n := r.drain(budget)
		if budget > 0 {
			if budget -= n; budget <= 0 {
				return
			}
		}
		if !r.pending {
			return
		}
	}
}

// FlushGpu returns once the GPU has consumed everything it can.
func (r *Runner) FlushGpu() {
	if !r.cfg.DualCore {
		if !r.running {
			r.runSync(0)
		}
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for r.busy || r.hasWork() {
		if !r.started {
			r.mu.Unlock()
			r.drain(0)
			r.mu.Lock()
			continue
		}
		if !r.busy {
			select {
			case r.wake <- struct{}{}:
			default:
			}
		}
		r.idle.Wait()
	}
}

// SyncGPU makes the GPU catch up with the CPU. Only the deterministic GPU
// thread needs it, the other modes are always allowed to run ahead.
func (r *Runner) SyncGPU(reason hwdefs.SyncReason) {
	log.ModGPU.DebugZ("sync").Stringer("reason", reason).End()
	if r.UseDeterministicGPUThread() {
		r.FlushGpu()
	}
}

// Run is the GPU goroutine, on dual core. It returns when ctx is done.
func (r *Runner) Run(ctx context.Context) error {
	if !r.cfg.DualCore {
		return nil
	}

	r.mu.Lock()
	r.started = true
	r.mu.Unlock()
	log.ModGPU.InfoZ("gpu thread started").End()

	defer func() {
		r.mu.Lock()
		r.started = false
		r.idle.Broadcast()
		r.mu.Unlock()
		log.ModGPU.InfoZ("gpu thread stopped").End()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-r.wake:
		}

		r.mu.Lock()
		r.busy = true
		r.mu.Unlock()

		r.drain(0)

		r.mu.Lock()
		r.busy = false
		r.idle.Broadcast()
		r.mu.Unlock()
	}
}
