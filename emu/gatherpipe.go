package emu

import (
	"cpemu/emu/log"
	"cpemu/hw/cp"
	"cpemu/hw/hwio"
	"cpemu/hw/pi"
)

// gatherPipeCapacity is the size of the gather pipe buffer. Writes accumulate
// there until a full burst can be sent.
const gatherPipeCapacity = 4 * cp.GatherPipeSize

// GatherPipe is the CPU write-gathering buffer. Every full burst is copied to
// memory at the processor interface FIFO write pointer, which then moves
// forward, and reported to the command processor.
type GatherPipe struct {
	buf   [gatherPipeCapacity]byte
	count int

	ram   *hwio.Mem
	pi    *pi.Interface
	room  func() error
	burst func() error
}

func (gp *GatherPipe) Reset() {
	gp.count = 0
}

// Count returns the number of bytes waiting for a full burst.
func (gp *GatherPipe) Count() int {
	return gp.count
}

func (gp *GatherPipe) Write8(val uint8) error {
	gp.buf[gp.count] = val
	gp.count++
	return gp.check()
}

func (gp *GatherPipe) Write16(val uint16) error {
	gp.buf[gp.count] = uint8(val >> 8)
	gp.buf[gp.count+1] = uint8(val)
	gp.count += 2
	return gp.check()
}

func (gp *GatherPipe) Write32(val uint32) error {
	gp.buf[gp.count] = uint8(val >> 24)
	gp.buf[gp.count+1] = uint8(val >> 16)
	gp.buf[gp.count+2] = uint8(val >> 8)
	gp.buf[gp.count+3] = uint8(val)
	gp.count += 4
	return gp.check()
}

func (gp *GatherPipe) check() error {
	for gp.count >= cp.GatherPipeSize {
		// A rejected burst stays in the buffer, and memory is left untouched.
		if gp.room != nil {
			if err := gp.room(); err != nil {
				return err
			}
		}
		wp := gp.pi.WritePointer.Load()
		gp.ram.WriteBlock(wp, gp.buf[:cp.GatherPipeSize])

		wp += cp.GatherPipeSize
		if wp >= gp.pi.End.Load() {
			wp = gp.pi.Base.Load()
		}
		gp.pi.WritePointer.Store(wp)

		gp.count -= cp.GatherPipeSize
		copy(gp.buf[:], gp.buf[cp.GatherPipeSize:cp.GatherPipeSize+gp.count])

		log.ModEmu.DebugZ("gather pipe burst").Hex32("wp", wp).End()
		if err := gp.burst(); err != nil {
			return err
		}
	}
	return nil
}
