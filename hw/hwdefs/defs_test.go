package hwdefs

import "testing"

func TestInterruptCauseString(t *testing.T) {
	tests := []struct {
		c    InterruptCause
		want string
	}{
		{0, ""},
		{IntCauseCP, "cp"},
		{IntCauseCP | IntCausePEToken, "petoken|cp"},
		{IntCauseReset | IntCausePIError, "pierr|reset"},
	}
	for _, tt := range tests {
		if got := tt.c.String(); got != tt.want {
			t.Errorf("InterruptCause(%#x).String() = %q, want %q", uint32(tt.c), got, tt.want)
		}
	}
}

func TestSyncReasonString(t *testing.T) {
	if got := SyncOther.String(); got != "Other" {
		t.Errorf("SyncOther = %q", got)
	}
	if got := SyncAuxSpace.String(); got != "AuxSpace" {
		t.Errorf("SyncAuxSpace = %q", got)
	}
	if got := SyncReason(42).String(); got != "SyncReason(42)" {
		t.Errorf("SyncReason(42) = %q", got)
	}
}
