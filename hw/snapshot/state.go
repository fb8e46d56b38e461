package snapshot

// Version of the snapshot format. Snapshots of any other version are
// rejected.
const Version = 1

type Machine struct {
	Version int
	CP      CP
	PI      PI
}

type CP struct {
	Status uint16
	Ctrl   uint16
	Clear  uint16

	BBoxLeft   uint16
	BBoxTop    uint16
	BBoxRight  uint16
	BBoxBottom uint16

	Token uint16

	Fifo Fifo

	InterruptSet     bool
	InterruptWaiting bool
}

type Fifo struct {
	Base            uint32
	End             uint32
	HiWatermark     uint32
	LoWatermark     uint32
	Distance        uint32
	WritePointer    uint32
	ReadPointer     uint32
	Breakpoint      uint32
	SafeReadPointer uint32

	LinkEnable bool
	ReadEnable bool
	BPEnable   bool
	BPInt      bool
	BPHit      bool

	LoWatermarkInt bool
	HiWatermarkInt bool

	LoWatermarkHit bool
	HiWatermarkHit bool
}

type PI struct {
	Cause uint32
	Mask  uint32

	FifoBase         uint32
	FifoEnd          uint32
	FifoWritePointer uint32
}
