package cp

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name string
		in   condInput
		want condOutput
	}{
		{
			name: "idle",
			in:   condInput{readEnable: true},
			want: condOutput{},
		},
		{
			name: "breakpoint reached",
			in:   condInput{readPointer: 0x1800, breakpoint: 0x1800, bpEnable: true, bpInt: true, readEnable: true},
			want: condOutput{bpHit: true, interrupt: true},
		},
		{
			name: "breakpoint left",
			in:   condInput{readPointer: 0x1820, breakpoint: 0x1800, bpEnable: true, bpInt: true, readEnable: true, bpHit: true},
			want: condOutput{},
		},
		{
			name: "breakpoint disabled while hit",
			in:   condInput{readPointer: 0x1800, breakpoint: 0x1800, bpInt: true, readEnable: true, bpHit: true},
			want: condOutput{},
		},
		{
			name: "breakpoint stays hit",
			in:   condInput{readPointer: 0x1800, breakpoint: 0x1800, bpEnable: true, bpHit: true},
			want: condOutput{bpHit: true},
		},
		{
			name: "breakpoint gated by read enable",
			in:   condInput{readPointer: 0x1800, breakpoint: 0x1800, bpEnable: true, bpInt: true},
			want: condOutput{bpHit: true},
		},
		{
			name: "overflow",
			in:   condInput{distance: 150, hiWatermark: 100, hiInt: true, readEnable: true},
			want: condOutput{hiHit: true, interrupt: true},
		},
		{
			name: "at high watermark",
			in:   condInput{distance: 100, hiWatermark: 100, hiInt: true, readEnable: true},
			want: condOutput{},
		},
		{
			name: "underflow",
			in:   condInput{distance: 40, hiWatermark: 100, loWatermark: 50, hiInt: true, loInt: true, readEnable: true},
			want: condOutput{loHit: true, interrupt: true},
		},
		{
			name: "underflow masked",
			in:   condInput{distance: 40, hiWatermark: 100, loWatermark: 50, hiInt: true, readEnable: true},
			want: condOutput{loHit: true},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := evaluate(tt.in)
			if diff := cmp.Diff(tt.want, got, cmp.AllowUnexported(condOutput{})); diff != "" {
				t.Errorf("evaluate() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
