package bit

import "testing"

func TestCombine(t *testing.T) {
	if got := Combine(0x12, 0x34); got != 0x1234 {
		t.Errorf("Combine(0x12, 0x34) = 0x%04X; want 0x1234", got)
	}
}

func TestHighLow(t *testing.T) {
	if got := High(0xABCD); got != 0xAB {
		t.Errorf("High(0xABCD) = 0x%02X; want 0xAB", got)
	}
	if got := Low(0xABCD); got != 0xCD {
		t.Errorf("Low(0xABCD) = 0x%02X; want 0xCD", got)
	}
}

func TestSetClearIsSet(t *testing.T) {
	v := uint8(0)
	v = Set(3, v)
	if !IsSet(3, v) {
		t.Error("bit 3 should be set")
	}
	if IsSet(2, v) {
		t.Error("bit 2 should not be set")
	}
	v = Clear(3, v)
	if v != 0 {
		t.Errorf("Clear left 0x%02X; want 0", v)
	}
}

func TestIsSet16(t *testing.T) {
	if !IsSet16(12, 0x1000) {
		t.Error("bit 12 of 0x1000 should be set")
	}
	if IsSet16(12, 0x0800) {
		t.Error("bit 12 of 0x0800 should not be set")
	}
}
