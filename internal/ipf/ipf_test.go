package ipf

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/klauspost/compress/flate"
)

// encryptForTest is the forward half of the rolling cipher: it mirrors
// decryptInPlace but feeds the key schedule the plaintext byte before
// overwriting it, producing ciphertext that decryptInPlace reverses
// exactly. Production code never needs an encrypt direction since
// every archive arrives already encrypted.
func encryptForTest(buf []byte) {
	if len(buf) == 0 {
		return
	}
	keys := generateKeys()
	steps := (len(buf)-1)/2 + 1
	for i := 0; i < steps; i++ {
		idx := i * 2
		if idx >= len(buf) {
			continue
		}
		v := (keys[2] & 0xFFFD) | 2
		orig := buf[idx]
		buf[idx] = orig ^ byte((v*(v^1))>>8)
		updateKeys(&keys, orig)
	}
}

func deflateRaw(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	fw, err := flate.NewWriter(&buf, flate.DefaultCompression)
	if err != nil {
		t.Fatalf("flate.NewWriter: %v", err)
	}
	if _, err := fw.Write(data); err != nil {
		t.Fatalf("flate write: %v", err)
	}
	if err := fw.Close(); err != nil {
		t.Fatalf("flate close: %v", err)
	}
	return buf.Bytes()
}

func TestDecryptInPlaceRoundTrip(t *testing.T) {
	plaintext := []byte("the quick brown fox jumps over the lazy dog, 1234567890")
	ciphertext := make([]byte, len(plaintext))
	copy(ciphertext, plaintext)
	encryptForTest(ciphertext)

	if bytes.Equal(ciphertext, plaintext) {
		t.Fatal("encryptForTest left the buffer unchanged")
	}

	decryptInPlace(ciphertext)
	if !bytes.Equal(ciphertext, plaintext) {
		t.Fatalf("round trip = %q, want %q", ciphertext, plaintext)
	}
}

func TestDecryptInPlaceEmpty(t *testing.T) {
	buf := []byte{}
	decryptInPlace(buf) // must not panic
}

func TestGenerateKeysDeterministic(t *testing.T) {
	if generateKeys() != generateKeys() {
		t.Error("generateKeys() is not deterministic")
	}
}

// writeEntry appends one file-table record in the on-disk layout
// readEntry expects.
func writeEntry(buf *bytes.Buffer, e Entry) {
	binary.Write(buf, binary.LittleEndian, uint16(len(e.DirectoryName)))
	binary.Write(buf, binary.LittleEndian, e.CRC32)
	binary.Write(buf, binary.LittleEndian, e.CompressedSize)
	binary.Write(buf, binary.LittleEndian, e.UncompressedSize)
	binary.Write(buf, binary.LittleEndian, e.DataOffset)
	binary.Write(buf, binary.LittleEndian, uint16(len(e.ContainerName)))
	buf.WriteString(e.ContainerName)
	buf.WriteString(e.DirectoryName)
}

func buildTestArchive(t *testing.T) ([]byte, []byte, []byte) {
	t.Helper()

	plainA := []byte("hello ipf world, this is a compressed and encrypted entry")
	dataA := deflateRaw(t, plainA)
	encryptForTest(dataA)

	dataB := []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F'}

	var body bytes.Buffer
	body.Write(dataA)
	offsetB := uint32(body.Len())
	body.Write(dataB)

	var table bytes.Buffer
	writeEntry(&table, Entry{
		DirectoryName:    "readme.txt",
		CompressedSize:   uint32(len(dataA)),
		UncompressedSize: uint32(len(plainA)),
		DataOffset:       0,
		ContainerName:    "data.ipf",
	})
	writeEntry(&table, Entry{
		DirectoryName:    "icon.jpg",
		CompressedSize:   uint32(len(dataB)),
		UncompressedSize: uint32(len(dataB)),
		DataOffset:       offsetB,
		ContainerName:    "data.ipf",
	})

	fileTablePointer := uint32(body.Len())

	var archive bytes.Buffer
	archive.Write(body.Bytes())
	archive.Write(table.Bytes())

	binary.Write(&archive, binary.LittleEndian, uint16(2))              // file_count
	binary.Write(&archive, binary.LittleEndian, fileTablePointer)       // file_table_pointer
	binary.Write(&archive, binary.LittleEndian, uint16(0))              // padding
	binary.Write(&archive, binary.LittleEndian, fileTablePointer)       // header_pointer
	binary.Write(&archive, binary.LittleEndian, MagicNumber)            // magic
	binary.Write(&archive, binary.LittleEndian, uint32(1))              // version_to_patch
	binary.Write(&archive, binary.LittleEndian, uint32(11001))          // new_version: >= 11000, entries are encrypted

	return archive.Bytes(), plainA, dataB
}

func TestOpenMemoryAndExtract(t *testing.T) {
	raw, plainA, dataB := buildTestArchive(t)

	a, err := OpenMemory(raw)
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	if a.Header.FileCount != 2 {
		t.Fatalf("FileCount = %d, want 2", a.Header.FileCount)
	}
	if len(a.Entries) != 2 {
		t.Fatalf("len(Entries) = %d, want 2", len(a.Entries))
	}
	if a.Entries[0].DirectoryName != "readme.txt" {
		t.Errorf("Entries[0].DirectoryName = %q", a.Entries[0].DirectoryName)
	}

	got, err := a.Extract(0)
	if err != nil {
		t.Fatalf("Extract(0): %v", err)
	}
	if !bytes.Equal(got, plainA) {
		t.Errorf("Extract(0) = %q, want %q", got, plainA)
	}

	got, err = a.Extract(1)
	if err != nil {
		t.Fatalf("Extract(1): %v", err)
	}
	if !bytes.Equal(got, dataB) {
		t.Errorf("Extract(1) = %v, want %v (skip-decompression entry)", got, dataB)
	}

	if _, err := a.Extract(5); err == nil {
		t.Error("Extract(5) succeeded unexpectedly, want ErrEntryOutOfRange")
	}
}

// TestExtractCompressedUnencrypted covers spec.md's scenario 2: an
// entry that is deflate-compressed but not encrypted, distinguished
// from an encrypted entry purely by the archive's new_version. If the
// decrypt gate incorrectly runs for every non-allowlisted entry, this
// plaintext DEFLATE stream gets corrupted by decryptInPlace before
// inflateRaw ever sees it.
func TestExtractCompressedUnencrypted(t *testing.T) {
	plain := []byte("hello\n")
	compressed := deflateRaw(t, plain)

	var table bytes.Buffer
	writeEntry(&table, Entry{
		DirectoryName:    "plain.txt",
		CompressedSize:   uint32(len(compressed)),
		UncompressedSize: uint32(len(plain)),
		DataOffset:       0,
		ContainerName:    "data.ipf",
	})

	fileTablePointer := uint32(len(compressed))

	var archive bytes.Buffer
	archive.Write(compressed)
	archive.Write(table.Bytes())

	binary.Write(&archive, binary.LittleEndian, uint16(1))        // file_count
	binary.Write(&archive, binary.LittleEndian, fileTablePointer) // file_table_pointer
	binary.Write(&archive, binary.LittleEndian, uint16(0))        // padding
	binary.Write(&archive, binary.LittleEndian, fileTablePointer) // header_pointer
	binary.Write(&archive, binary.LittleEndian, MagicNumber)      // magic
	binary.Write(&archive, binary.LittleEndian, uint32(1))        // version_to_patch
	binary.Write(&archive, binary.LittleEndian, uint32(10000))    // new_version: below the decrypt threshold

	a, err := OpenMemory(archive.Bytes())
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}

	got, err := a.Extract(0)
	if err != nil {
		t.Fatalf("Extract(0): %v", err)
	}
	if !bytes.Equal(got, plain) {
		t.Errorf("Extract(0) = %q, want %q", got, plain)
	}
}

func TestOpenMemoryInvalidMagic(t *testing.T) {
	raw, _, _ := buildTestArchive(t)
	// Corrupt the magic field, 12 bytes before EOF.
	raw[len(raw)-12] ^= 0xFF

	if _, err := OpenMemory(raw); err == nil {
		t.Error("OpenMemory with corrupted magic succeeded unexpectedly")
	}
}

func TestComputeStats(t *testing.T) {
	entries := []Entry{
		{CompressedSize: 10, UncompressedSize: 20},
		{CompressedSize: 30, UncompressedSize: 60},
	}
	stats := ComputeStats(entries)
	if stats.Count != 2 {
		t.Errorf("Count = %d, want 2", stats.Count)
	}
	if stats.CompressedLowest != 10 || stats.CompressedHighest != 30 {
		t.Errorf("Compressed lowest/highest = %d/%d, want 10/30", stats.CompressedLowest, stats.CompressedHighest)
	}
	if stats.CompressedAvg != 20 {
		t.Errorf("CompressedAvg = %d, want 20", stats.CompressedAvg)
	}
}

func TestComputeStatsEmpty(t *testing.T) {
	if got := ComputeStats(nil); got != (Stats{}) {
		t.Errorf("ComputeStats(nil) = %+v, want zero value", got)
	}
}
