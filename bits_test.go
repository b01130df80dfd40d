package beepbox

import "testing"

func TestLongTailRoundTrip(t *testing.T) {
	cases := []struct{ minValue, minBits int }{
		{1, 0}, {1, 2}, {1, 3}, {0, 0}, {0, 4}, {5, 1},
	}
	for _, c := range cases {
		for offset := 0; offset < 300; offset++ {
			value := c.minValue + offset
			w := &BitWriter{}
			w.WriteLongTail(c.minValue, c.minBits, value)
			encoded := w.Encode(nil)
			r, err := NewBitReader(encoded)
			if err != nil {
				t.Fatalf("NewBitReader: %v", err)
			}
			got := r.ReadLongTail(c.minValue, c.minBits)
			if got != value {
				t.Fatalf("long tail (%d,%d) value %d decoded as %d", c.minValue, c.minBits, value, got)
			}
			if r.Position() != w.BitCount() {
				t.Fatalf("long tail (%d,%d) value %d: reader at bit %d, writer wrote %d bits", c.minValue, c.minBits, value, r.Position(), w.BitCount())
			}
			if r.Err() != nil {
				t.Fatalf("unexpected reader error: %v", r.Err())
			}
		}
	}
}

func TestBitFieldRoundTrip(t *testing.T) {
	for k := 1; k <= 16; k++ {
		for _, v := range []int{0, 1, 5, 100, 12345, 1<<16 - 1} {
			w := &BitWriter{}
			w.Write(k, v)
			r, err := NewBitReader(w.Encode(nil))
			if err != nil {
				t.Fatalf("NewBitReader: %v", err)
			}
			want := v & ((1 << k) - 1)
			if got := r.Read(k); got != want {
				t.Fatalf("wrote %d bits of %d, read back %d, expected %d", k, v, got, want)
			}
		}
	}
}

func TestPitchIntervalRoundTrip(t *testing.T) {
	for _, value := range []int{1, -1, 2, -2, 7, -7, 12, -12, 48, -48, 84, -84} {
		w := &BitWriter{}
		w.WritePitchInterval(value)
		r, err := NewBitReader(w.Encode(nil))
		if err != nil {
			t.Fatalf("NewBitReader: %v", err)
		}
		if got := r.ReadPitchInterval(); got != value {
			t.Fatalf("pitch interval %d decoded as %d", value, got)
		}
	}
}

func TestPartDurationCodes(t *testing.T) {
	for value := 1; value <= 384; value++ {
		w := &BitWriter{}
		w.WritePartDuration(value)
		w.WriteLegacyPartDuration(value)
		w.WritePinCount(value)
		r, err := NewBitReader(w.Encode(nil))
		if err != nil {
			t.Fatalf("NewBitReader: %v", err)
		}
		if got := r.ReadPartDuration(); got != value {
			t.Fatalf("part duration %d decoded as %d", value, got)
		}
		if got := r.ReadLegacyPartDuration(); got != value {
			t.Fatalf("legacy part duration %d decoded as %d", value, got)
		}
		if got := r.ReadPinCount(); got != value {
			t.Fatalf("pin count %d decoded as %d", value, got)
		}
	}
}

func TestBase64LegacyDotAlias(t *testing.T) {
	dash, err := Base64Decode('-')
	if err != nil {
		t.Fatalf("decoding '-': %v", err)
	}
	dot, err := Base64Decode('.')
	if err != nil {
		t.Fatalf("decoding '.': %v", err)
	}
	if dash != dot {
		t.Fatalf("'.' decodes to %d, '-' to %d; they should alias", dot, dash)
	}
	if _, err := Base64Decode('!'); err == nil {
		t.Fatal("expected an error for a character outside the alphabet")
	}
}

func TestBitReaderShortStream(t *testing.T) {
	r, err := NewBitReader([]byte("0"))
	if err != nil {
		t.Fatalf("NewBitReader: %v", err)
	}
	r.Read(6)
	if r.Err() != nil {
		t.Fatalf("reading available bits should not error: %v", r.Err())
	}
	r.Read(1)
	if r.Err() == nil {
		t.Fatal("reading past the end should set the error")
	}
}
