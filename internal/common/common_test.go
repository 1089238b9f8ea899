package common_test

import (
	"bytes"
	"encoding/binary"
	"math"
	"testing"

	"github.com/ossyrian/ipftools/internal/breader"
	"github.com/ossyrian/ipftools/internal/common"
)

func f32le(buf *bytes.Buffer, v float32) {
	binary.Write(buf, binary.LittleEndian, math.Float32bits(v))
}

func TestReadVec3(t *testing.T) {
	var buf bytes.Buffer
	f32le(&buf, 1.5)
	f32le(&buf, -2.5)
	f32le(&buf, 0)

	v, err := common.ReadVec3(breader.NewMemory(buf.Bytes()))
	if err != nil {
		t.Fatalf("ReadVec3: %v", err)
	}
	want := common.Vec3{X: 1.5, Y: -2.5, Z: 0}
	if v != want {
		t.Errorf("ReadVec3() = %+v, want %+v", v, want)
	}
}

func TestReadQuat(t *testing.T) {
	var buf bytes.Buffer
	f32le(&buf, 0)
	f32le(&buf, 0)
	f32le(&buf, 0)
	f32le(&buf, 1)

	q, err := common.ReadQuat(breader.NewMemory(buf.Bytes()))
	if err != nil {
		t.Fatalf("ReadQuat: %v", err)
	}
	want := common.Quat{X: 0, Y: 0, Z: 0, W: 1}
	if q != want {
		t.Errorf("ReadQuat() = %+v, want %+v", q, want)
	}
}

func TestReadLengthPrefixedString(t *testing.T) {
	var buf bytes.Buffer
	binary.Write(&buf, binary.LittleEndian, uint32(5))
	buf.WriteString("hello")

	s, err := common.ReadLengthPrefixedString(breader.NewMemory(buf.Bytes()))
	if err != nil || s != "hello" {
		t.Fatalf("ReadLengthPrefixedString() = %q, %v, want %q, nil", s, err, "hello")
	}
}

func TestReadChunkHeader(t *testing.T) {
	var buf bytes.Buffer
	binary.Write(&buf, binary.LittleEndian, uint32(7))
	binary.Write(&buf, binary.LittleEndian, uint32(128))
	binary.Write(&buf, binary.LittleEndian, uint32(1))

	ch, err := common.ReadChunkHeader(breader.NewMemory(buf.Bytes()))
	if err != nil {
		t.Fatalf("ReadChunkHeader: %v", err)
	}
	want := common.ChunkHeader{TypeID: 7, Length: 128, Version: 1}
	if ch != want {
		t.Errorf("ReadChunkHeader() = %+v, want %+v", ch, want)
	}
}

func TestUnknownChunk(t *testing.T) {
	c := &common.UnknownChunk{TypeID: 99, Version: 1, Raw: []byte{1, 2, 3}}

	if c.ChunkType() != common.ChunkUnknown {
		t.Errorf("ChunkType() = %v, want ChunkUnknown", c.ChunkType())
	}
	if c.RawTypeID() != 99 {
		t.Errorf("RawTypeID() = %d, want 99", c.RawTypeID())
	}

	var _ common.Chunk = c
}

func TestKnownChunk(t *testing.T) {
	c := &common.KnownChunk{
		Type: common.ChunkXACMesh, TypeID: 3, Version: 1,
		Value: common.Vec3{X: 1, Y: 2, Z: 3},
	}

	if c.ChunkType() != common.ChunkXACMesh {
		t.Errorf("ChunkType() = %v, want ChunkXACMesh", c.ChunkType())
	}
	if c.RawTypeID() != 3 {
		t.Errorf("RawTypeID() = %d, want 3", c.RawTypeID())
	}
	if c.RawVersion() != 1 {
		t.Errorf("RawVersion() = %d, want 1", c.RawVersion())
	}
	if v, ok := c.Value.(common.Vec3); !ok || v.X != 1 {
		t.Errorf("Value = %+v, want common.Vec3{X:1,...}", c.Value)
	}

	var _ common.Chunk = c
}

func TestChunkTypeString(t *testing.T) {
	if got := common.ChunkXACMesh.String(); got != "XACMesh" {
		t.Errorf("ChunkXACMesh.String() = %q, want %q", got, "XACMesh")
	}
	if got := common.ChunkUnknown.String(); got != "Unknown" {
		t.Errorf("ChunkUnknown.String() = %q, want %q", got, "Unknown")
	}
}
