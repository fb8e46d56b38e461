package snapshot

import (
	"strings"
	"testing"

	"github.com/go-faster/errors"
	"github.com/google/go-cmp/cmp"
)

func testMachine() *Machine {
	return &Machine{
		Version: Version,
		CP: CP{
			Status:     0x000C,
			Ctrl:       0x0031,
			Clear:      0x0003,
			BBoxLeft:   1,
			BBoxTop:    2,
			BBoxRight:  640,
			BBoxBottom: 480,
			Token:      0xBEEF,
			Fifo: Fifo{
				Base:            0x00100000,
				End:             0x00200000,
				HiWatermark:     0x000F0000,
				LoWatermark:     0x00004000,
				Distance:        0x00001000,
				WritePointer:    0x00101000,
				ReadPointer:     0x00100000,
				Breakpoint:      0x00180000,
				SafeReadPointer: 0x00100000,
				LinkEnable:      true,
				ReadEnable:      true,
				BPEnable:        true,
				LoWatermarkInt:  true,
				LoWatermarkHit:  true,
			},
			InterruptSet: true,
		},
		PI: PI{
			Cause:            0x800,
			Mask:             0xFFFF,
			FifoBase:         0x00100000,
			FifoEnd:          0x00200000,
			FifoWritePointer: 0x00101000,
		},
	}
}

func TestRoundTrip(t *testing.T) {
	want := testMachine()
	buf := Marshal(want)

	var got Machine
	if err := Unmarshal(buf, &got); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(want, &got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestFieldOrderIsStable(t *testing.T) {
	buf := string(Marshal(testMachine()))

	keys := []string{`"version"`, `"cp"`, `"status"`, `"ctrl"`, `"clear"`, `"bbox_left"`,
		`"token"`, `"fifo"`, `"base"`, `"safe_read_pointer"`, `"hi_watermark_hit"`,
		`"interrupt_set"`, `"interrupt_waiting"`, `"pi"`, `"fifo_write_pointer"`}
	last := -1
	for _, k := range keys {
		idx := strings.Index(buf[last+1:], k)
		if idx < 0 {
			t.Fatalf("key %s not found after offset %d in %s", k, last, buf)
		}
		last += idx + 1
	}
}

func TestUnmarshalErrors(t *testing.T) {
	tests := []struct {
		name string
		buf  string
		want error
	}{
		{"version", strings.Replace(string(Marshal(testMachine())), `"version":1`, `"version":7`, 1), ErrVersion},
		{"order", `{"cp":{},"version":1}`, ErrFieldOrder},
		{"missing", `{"version":1}`, ErrFieldOrder},
		{"unknown", strings.Replace(string(Marshal(testMachine())), `}}`, `},"foo":1}`, 1), ErrFieldOrder},
		{"syntax", `{"version":`, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var m Machine
			err := Unmarshal([]byte(tt.buf), &m)
			if err == nil {
				t.Fatal("Unmarshal should fail")
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Errorf("Unmarshal error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestCPRoundTrip(t *testing.T) {
	want := testMachine().CP
	var got CP
	if err := UnmarshalCP(MarshalCP(&want), &got); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}
