package hwdefs

import "strings"

// InterruptCause is a bit in the processor interface interrupt cause
// register.
type InterruptCause uint32

const (
	IntCausePIError  InterruptCause = 0x1
	IntCauseRSW      InterruptCause = 0x2
	IntCauseDI       InterruptCause = 0x4
	IntCauseSI       InterruptCause = 0x8
	IntCauseEXI      InterruptCause = 0x10
	IntCauseAI       InterruptCause = 0x20
	IntCauseDSP      InterruptCause = 0x40
	IntCauseMEM      InterruptCause = 0x80
	IntCauseVI       InterruptCause = 0x100
	IntCausePEToken  InterruptCause = 0x200
	IntCausePEFinish InterruptCause = 0x400
	IntCauseCP       InterruptCause = 0x800
	IntCauseDebug    InterruptCause = 0x1000
	IntCauseHSP      InterruptCause = 0x2000
	IntCauseReset    InterruptCause = 0x10000

	numCauses = 17
)

var causeNames = [numCauses]string{
	"pierr", "rsw", "di", "si", "exi", "ai", "dsp", "mem",
	"vi", "petoken", "pefinish", "cp", "debug", "hsp",
	"", "", "reset",
}

func (c InterruptCause) String() string {
	var names []string
	for i := range numCauses {
		if c&(1<<i) != 0 && causeNames[i] != "" {
			names = append(names, causeNames[i])
		}
	}
	return strings.Join(names, "|")
}

// SyncReason tells the GPU thread why the CPU thread needs it to catch up.
type SyncReason uint8

//go:generate go tool stringer -type=SyncReason -trimprefix=Sync

const (
	SyncOther SyncReason = iota
	SyncWraparound
	SyncEFBPoke
	SyncPerfQuery
	SyncBBox
	SyncSwap
	SyncAuxSpace
)

const (
	SoftReset = true
	HardReset = false
)
