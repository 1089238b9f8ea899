package xac_test

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/ossyrian/ipftools/internal/common"
	"github.com/ossyrian/ipftools/internal/xac"
)

func writeChunk(buf *bytes.Buffer, typeID, version uint32, payload []byte) {
	binary.Write(buf, binary.LittleEndian, typeID)
	binary.Write(buf, binary.LittleEndian, uint32(len(payload)))
	binary.Write(buf, binary.LittleEndian, version)
	buf.Write(payload)
}

func writeXACString(buf *bytes.Buffer, s string) {
	binary.Write(buf, binary.LittleEndian, int32(len(s)))
	buf.WriteString(s)
}

func buildHeader(major, minor, bigEndian, multiplyOrder byte) []byte {
	return []byte{'X', 'A', 'C', ' ', major, minor, bigEndian, multiplyOrder}
}

func TestParseRejectsBadMagic(t *testing.T) {
	data := append([]byte{'N', 'O', 'P', 'E'}, buildHeader(1, 0, 0, 0)[4:]...)
	if _, err := xac.ParseMemory(data); err == nil {
		t.Error("ParseMemory with bad magic succeeded unexpectedly")
	}
}

func TestParseRejectsBigEndian(t *testing.T) {
	data := buildHeader(1, 0, 1, 0)
	if _, err := xac.ParseMemory(data); err == nil {
		t.Error("ParseMemory with big_endian=1 succeeded unexpectedly")
	}
}

func TestParseMaterialTotalsAndUnknownChunkResync(t *testing.T) {
	var buf bytes.Buffer
	buf.Write(buildHeader(1, 0, 0, 0))

	var mtPayload bytes.Buffer
	binary.Write(&mtPayload, binary.LittleEndian, uint32(5)) // num_total_materials
	binary.Write(&mtPayload, binary.LittleEndian, uint32(3)) // num_standard_materials
	binary.Write(&mtPayload, binary.LittleEndian, uint32(2)) // num_fx_materials
	writeChunk(&buf, 13, 1, mtPayload.Bytes())

	// An unrecognized chunk type: all 8 declared payload bytes,
	// trailing zeroes included, must be kept as raw bytes and parsing
	// must resume at the chunk's declared end.
	unknownPayload := []byte{0xAA, 0xBB, 0xCC, 0xDD, 0x00, 0x00, 0x00, 0x00}
	writeChunk(&buf, 9999, 1, unknownPayload)

	f, err := xac.ParseMemory(buf.Bytes())
	if err != nil {
		t.Fatalf("ParseMemory: %v", err)
	}

	if f.MaterialTotals.NumTotalMaterials != 5 || f.MaterialTotals.NumFxMaterials != 2 {
		t.Errorf("MaterialTotals = %+v", f.MaterialTotals)
	}

	if len(f.Unknown) != 1 {
		t.Fatalf("len(Unknown) = %d, want 1", len(f.Unknown))
	}
	if f.Unknown[0].TypeID != 9999 {
		t.Errorf("Unknown[0].TypeID = %d, want 9999", f.Unknown[0].TypeID)
	}
	if !bytes.Equal(f.Unknown[0].Raw, unknownPayload) {
		t.Errorf("Unknown[0].Raw = %v, want %v", f.Unknown[0].Raw, unknownPayload)
	}

	if len(f.Chunks) != 2 {
		t.Fatalf("len(Chunks) = %d, want 2", len(f.Chunks))
	}
	if f.Chunks[0].ChunkType() != common.ChunkXACMaterialTotals {
		t.Errorf("Chunks[0].ChunkType() = %v, want ChunkXACMaterialTotals", f.Chunks[0].ChunkType())
	}
	if f.Chunks[1].ChunkType() != common.ChunkUnknown || f.Chunks[1].RawTypeID() != 9999 {
		t.Errorf("Chunks[1] = %+v, want unknown chunk 9999", f.Chunks[1])
	}
}

func TestParseResyncsPastFailedChunk(t *testing.T) {
	var buf bytes.Buffer
	buf.Write(buildHeader(1, 0, 0, 0))

	// A metadata chunk whose source_app string claims an absurd length
	// that overruns the buffer; readMetadata must fail, but the outer
	// loop should still resync via the chunk's declared byte_length
	// and keep parsing later chunks.
	var badPayload bytes.Buffer
	binary.Write(&badPayload, binary.LittleEndian, int32(0)) // reposition_mask
	binary.Write(&badPayload, binary.LittleEndian, int32(0)) // repositioning_node
	badPayload.WriteByte(1)                                  // exporter major
	badPayload.WriteByte(0)                                  // exporter minor
	badPayload.WriteByte(0)                                  // padding
	badPayload.WriteByte(0)                                  // padding
	binary.Write(&badPayload, binary.LittleEndian, float32(0))
	binary.Write(&badPayload, binary.LittleEndian, int32(0x7FFFFFFF)) // source_app length
	writeChunk(&buf, 7, 1, badPayload.Bytes())

	var mtPayload bytes.Buffer
	binary.Write(&mtPayload, binary.LittleEndian, uint32(1))
	binary.Write(&mtPayload, binary.LittleEndian, uint32(1))
	binary.Write(&mtPayload, binary.LittleEndian, uint32(0))
	writeChunk(&buf, 13, 1, mtPayload.Bytes())

	f, err := xac.ParseMemory(buf.Bytes())
	if err != nil {
		t.Fatalf("ParseMemory: %v", err)
	}
	if len(f.Warnings) != 1 {
		t.Fatalf("len(Warnings) = %d, want 1", len(f.Warnings))
	}
	if f.MaterialTotals.NumTotalMaterials != 1 {
		t.Errorf("MaterialTotals = %+v, want the chunk after the failed one decoded", f.MaterialTotals)
	}
}

func TestParseMetadataVersionWarning(t *testing.T) {
	var buf bytes.Buffer
	buf.Write(buildHeader(2, 0, 0, 0)) // unsupported version

	var payload bytes.Buffer
	binary.Write(&payload, binary.LittleEndian, int32(0)) // reposition_mask
	binary.Write(&payload, binary.LittleEndian, int32(-1)) // repositioning_node
	payload.WriteByte(1)                                   // exporter major
	payload.WriteByte(0)                                   // exporter minor
	payload.WriteByte(0)                                   // padding
	payload.WriteByte(0)                                   // padding
	binary.Write(&payload, binary.LittleEndian, float32(0))
	writeXACString(&payload, "3ds Max")
	writeXACString(&payload, "actor.max")
	writeXACString(&payload, "2024-01-01")
	writeXACString(&payload, "Hero")
	writeChunk(&buf, 7, 1, payload.Bytes())

	f, err := xac.ParseMemory(buf.Bytes())
	if err != nil {
		t.Fatalf("ParseMemory: %v", err)
	}
	if len(f.Warnings) != 1 {
		t.Fatalf("len(Warnings) = %d, want 1", len(f.Warnings))
	}
	if f.Metadata.SourceApp != "3ds Max" || f.Metadata.ActorName != "Hero" {
		t.Errorf("Metadata = %+v", f.Metadata)
	}
}
