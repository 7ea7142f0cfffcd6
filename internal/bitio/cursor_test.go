package bitio

import "testing"

func TestReadAlignedWordBigEndian(t *testing.T) {
	c := NewCursor()
	c.Feed([]byte{0xC1, 0xFC, 0x1F, 0xC1})
	v, ok := c.ReadAlignedWord(4, false)
	if !ok {
		t.Fatal("expected ok")
	}
	if v != 0xC1FC1FC1 {
		t.Fatalf("got %#x", v)
	}
	if c.BitOffset() != 32 {
		t.Fatalf("bit offset = %d", c.BitOffset())
	}
}

func TestReadAlignedWordLittleEndian(t *testing.T) {
	c := NewCursor()
	c.Feed([]byte{0x01, 0x02, 0x03, 0x04})
	v, ok := c.ReadAlignedWord(4, true)
	if !ok {
		t.Fatal("expected ok")
	}
	if v != 0x04030201 {
		t.Fatalf("got %#x", v)
	}
}

func TestReadBitsNeedsMoreDataLeavesCursorUnchanged(t *testing.T) {
	c := NewCursor()
	c.Feed([]byte{0xFF})
	if _, ok := c.ReadBits(16); ok {
		t.Fatal("expected need more data")
	}
	if c.BitOffset() != 0 {
		t.Fatalf("cursor should not have advanced, offset=%d", c.BitOffset())
	}
	c.Feed([]byte{0xFF})
	v, ok := c.ReadBits(16)
	if !ok || v != 0xFFFF {
		t.Fatalf("got v=%#x ok=%v", v, ok)
	}
}

func TestReadBitsSubByteExtraction(t *testing.T) {
	c := NewCursor()
	// 0b1011_0000 -> top 4 bits = 0b1011 = 11, next 4 bits = 0
	c.Feed([]byte{0xB0})
	v, ok := c.ReadBits(4)
	if !ok || v != 0b1011 {
		t.Fatalf("got v=%#x ok=%v", v, ok)
	}
	v, ok = c.ReadBits(4)
	if !ok || v != 0 {
		t.Fatalf("got v=%#x ok=%v", v, ok)
	}
}

func TestAlignAdvancesToNextBoundary(t *testing.T) {
	c := NewCursor()
	c.Feed([]byte{0xFF, 0xFF, 0xFF, 0xFF})
	if _, ok := c.ReadBits(3); !ok {
		t.Fatal("expected ok")
	}
	if !c.Align(8) {
		t.Fatal("expected align to succeed")
	}
	if c.BitOffset() != 8 {
		t.Fatalf("offset = %d", c.BitOffset())
	}
}

func TestReadVlUIntSeedValue(t *testing.T) {
	c := NewCursor()
	c.Feed([]byte{0xE5, 0x8E, 0x26})
	v, n, ok, err := c.ReadVlUInt()
	if err != nil || !ok {
		t.Fatalf("err=%v ok=%v", err, ok)
	}
	if v != 624485 {
		t.Fatalf("got %d", v)
	}
	if n != 3 {
		t.Fatalf("consumed %d bytes", n)
	}
}

func TestReadVlUIntNeedsMoreData(t *testing.T) {
	c := NewCursor()
	c.Feed([]byte{0x8E}) // continuation bit set, no terminating byte yet
	_, _, ok, err := c.ReadVlUInt()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatal("expected need more data")
	}
}

func TestReadVlUIntTooLong(t *testing.T) {
	c := NewCursor()
	buf := make([]byte, 9)
	for i := range buf {
		buf[i] = 0x80
	}
	c.Feed(buf)
	_, _, _, err := c.ReadVlUInt()
	if err != ErrInvalidVarInt {
		t.Fatalf("expected ErrInvalidVarInt, got %v", err)
	}
}

func TestReadVlSIntSignExtends(t *testing.T) {
	c := NewCursor()
	// -123456 encoded per LEB128 signed form.
	c.Feed([]byte{0xC0, 0xBB, 0x78})
	v, _, ok, err := c.ReadVlSInt()
	if err != nil || !ok {
		t.Fatalf("err=%v ok=%v", err, ok)
	}
	if v != -123456 {
		t.Fatalf("got %d", v)
	}
}

func TestReadBytesRequiresByteAlignment(t *testing.T) {
	c := NewCursor()
	c.Feed([]byte{0xFF})
	if _, ok := c.ReadBits(3); !ok {
		t.Fatal("expected ok")
	}
	if _, ok := c.ReadBytes(1); ok {
		t.Fatal("expected byte read to fail when not byte-aligned")
	}
}

func TestScanZeroFindsTerminator(t *testing.T) {
	c := NewCursor()
	c.Feed([]byte("hello\x00world"))
	idx, found := c.ScanZero()
	if !found || idx != 5 {
		t.Fatalf("idx=%d found=%v", idx, found)
	}
}
