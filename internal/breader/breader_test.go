package breader_test

import (
	"bytes"
	"encoding/binary"
	"math"
	"testing"

	"github.com/ossyrian/ipftools/internal/breader"
)

func TestReadPrimitives(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteByte(0xFE)                               // u8 -> -2 as i8
	binary.Write(&buf, binary.LittleEndian, uint16(0xBEEF))
	binary.Write(&buf, binary.LittleEndian, uint32(0xDEADBEEF))
	binary.Write(&buf, binary.LittleEndian, math.Float32bits(3.5))

	r := breader.NewMemory(buf.Bytes())

	i8, err := r.ReadI8()
	if err != nil || i8 != -2 {
		t.Fatalf("ReadI8() = %v, %v, want -2, nil", i8, err)
	}
	u16, err := r.ReadU16()
	if err != nil || u16 != 0xBEEF {
		t.Fatalf("ReadU16() = %v, %v, want 0xBEEF, nil", u16, err)
	}
	u32, err := r.ReadU32()
	if err != nil || u32 != 0xDEADBEEF {
		t.Fatalf("ReadU32() = %v, %v, want 0xDEADBEEF, nil", u32, err)
	}
	f32, err := r.ReadF32()
	if err != nil || f32 != 3.5 {
		t.Fatalf("ReadF32() = %v, %v, want 3.5, nil", f32, err)
	}
}

func TestReadExactAndPosition(t *testing.T) {
	r := breader.NewMemory([]byte("hello world"))

	got, err := r.ReadExact(5)
	if err != nil || string(got) != "hello" {
		t.Fatalf("ReadExact(5) = %q, %v", got, err)
	}

	pos, err := r.Position()
	if err != nil || pos != 5 {
		t.Fatalf("Position() = %d, %v, want 5", pos, err)
	}

	length, err := r.Len()
	if err != nil || length != 11 {
		t.Fatalf("Len() = %d, %v, want 11", length, err)
	}

	// Len must not disturb the cursor.
	pos, err = r.Position()
	if err != nil || pos != 5 {
		t.Fatalf("Position() after Len() = %d, %v, want 5", pos, err)
	}
}

func TestReadExactTruncated(t *testing.T) {
	r := breader.NewMemory([]byte{0x01, 0x02})
	if _, err := r.ReadExact(10); err == nil {
		t.Fatal("ReadExact(10) over a 2-byte source succeeded unexpectedly")
	}
}

func TestSeeking(t *testing.T) {
	r := breader.NewMemory([]byte("0123456789"))

	if err := r.SeekFromEnd(-3); err != nil {
		t.Fatalf("SeekFromEnd(-3): %v", err)
	}
	got, err := r.ReadExact(3)
	if err != nil || string(got) != "789" {
		t.Fatalf("ReadExact after SeekFromEnd(-3) = %q, %v", got, err)
	}

	if err := r.SeekFromStart(2); err != nil {
		t.Fatalf("SeekFromStart(2): %v", err)
	}
	if err := r.SeekRelative(2); err != nil {
		t.Fatalf("SeekRelative(2): %v", err)
	}
	got, err = r.ReadExact(1)
	if err != nil || string(got) != "4" {
		t.Fatalf("ReadExact after seeks = %q, %v, want %q", got, err, "4")
	}
}
