package cp

import (
	"fmt"
	"strings"

	"github.com/go-faster/errors"

	"cpemu/emu/log"
)

// ErrUnknownOpcode reports a command the GPU does not know. It usually means
// the GPU got desynced from the CPU, or the command stream is corrupted.
var ErrUnknownOpcode = errors.New("unknown opcode")

// Dump renders the whole FIFO state, for diagnostics.
func (cp *CommandProcessor) Dump() string {
	var sb strings.Builder
	sb.WriteString(cp.Fifo.String())
	fmt.Fprintf(&sb, "Ctrl: %v\n", cp.Ctrl())
	fmt.Fprintf(&sb, "Status: %v\n", cp.Status())
	fmt.Fprintf(&sb, "InterruptSet: %t\n", cp.interruptSet.Load())
	fmt.Fprintf(&sb, "InterruptWaiting: %t\n", cp.interruptWaiting.Load())
	return sb.String()
}

// HandleUnknownOpcode reports an unknown command found by the GPU, along with
// the FIFO state. The caller decides whether to go on.
func (cp *CommandProcessor) HandleUnknownOpcode(cmd uint8, preprocess bool) error {
	log.ModCP.ErrorZ("unknown opcode").
		Hex16("cmd", uint16(cmd)).
		Bool("preprocess", preprocess).
		End()
	log.ModCP.Errorf("fifo state:\n%s", cp.Dump())
	return errors.Wrapf(ErrUnknownOpcode, "opcode 0x%02x (preprocess=%t)", cmd, preprocess)
}
