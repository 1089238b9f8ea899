// Package ipf decodes IPF game archive files: a footer-anchored file
// table over entries that are individually rolling-cipher encrypted
// and raw-DEFLATE compressed.
package ipf

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"github.com/ossyrian/ipftools/internal/breader"
)

var (
	ErrInvalidMagic          = errors.New("ipf: invalid footer magic")
	ErrNoReader              = errors.New("ipf: archive has no backing reader")
	ErrEntryOutOfRange       = errors.New("ipf: entry index out of range")
	ErrTruncatedArchive      = errors.New("ipf: truncated archive")
	ErrDecompressionMismatch = errors.New("ipf: decompressed size did not match uncompressed_size")
)

// Header is the 24-byte footer anchoring an IPF archive.
type Header struct {
	FileCount       uint16
	FileTablePointer uint32
	Padding         uint16
	HeaderPointer   uint32
	Magic           uint32
	VersionToPatch  uint32
	NewVersion      uint32
}

// Entry describes one file table record.
type Entry struct {
	DirectoryNameLength uint16
	CRC32               uint32
	CompressedSize      uint32
	UncompressedSize    uint32
	DataOffset          uint32
	ContainerNameLength uint16
	ContainerName       string
	DirectoryName       string
}

// QualifiedName prefixes DirectoryName with the container's file
// stem, matching how the original tooling groups entries by their
// source .ipf container without mutating the raw field (whose length
// must keep agreeing with DirectoryNameLength).
func (e Entry) QualifiedName() string {
	stem := strings.TrimSuffix(path.Base(e.ContainerName), path.Ext(e.ContainerName))
	return stem + "/" + e.DirectoryName
}

func (e Entry) extension() string {
	idx := strings.LastIndex(e.DirectoryName, ".")
	if idx < 0 {
		return ""
	}
	return "." + strings.ToLower(e.DirectoryName[idx+1:])
}

// skipDecompression reports whether this entry is stored neither
// encrypted nor compressed, per the archive's extension allowlist.
func (e Entry) skipDecompression() bool {
	return unencryptedExtensions[e.extension()]
}

// shouldDecrypt reports whether entries in an archive with the given
// footer new_version were encrypted after compression, and so must be
// decrypted before they are inflated. Grounded on
// ipf_parser.rs::ipf_decompress's version gate, independent of the
// per-entry extension allowlist that governs skipDecompression.
func shouldDecrypt(newVersion uint32) bool {
	return newVersion >= 11000 || newVersion == 0
}

// Archive is a parsed IPF file table, optionally backed by a live
// reader for on-demand extraction.
type Archive struct {
	Header  Header
	Entries []Entry

	src io.ReadSeeker
}

// Open reads an IPF archive from disk, keeping the file open so
// Extract can be called later.
func Open(path string) (*Archive, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("ipf: open %s: %w", path, err)
	}
	return readArchive(f)
}

// OpenMemory parses an in-memory IPF archive. Extract is still
// available since the returned Archive retains a reader over data.
func OpenMemory(data []byte) (*Archive, error) {
	return readArchive(bytes.NewReader(data))
}

func readArchive(src io.ReadSeeker) (*Archive, error) {
	r := breader.New(src)

	if err := r.SeekFromEnd(HeaderLocation); err != nil {
		return nil, fmt.Errorf("ipf: seek to footer: %w", err)
	}

	header, err := readHeader(r)
	if err != nil {
		return nil, err
	}

	if err := r.SeekFromStart(int64(header.FileTablePointer)); err != nil {
		return nil, fmt.Errorf("ipf: seek to file table: %w", err)
	}

	entries := make([]Entry, 0, header.FileCount)
	for i := uint16(0); i < header.FileCount; i++ {
		entry, err := readEntry(r)
		if err != nil {
			return nil, fmt.Errorf("ipf: read entry %d: %w", i, err)
		}
		entries = append(entries, entry)
	}

	return &Archive{Header: header, Entries: entries, src: src}, nil
}

func readHeader(r *breader.Reader) (Header, error) {
	var h Header
	var err error

	if h.FileCount, err = r.ReadU16(); err != nil {
		return h, fmt.Errorf("ipf: read file_count: %w", err)
	}
	if h.FileTablePointer, err = r.ReadU32(); err != nil {
		return h, fmt.Errorf("ipf: read file_table_pointer: %w", err)
	}
	if h.Padding, err = r.ReadU16(); err != nil {
		return h, fmt.Errorf("ipf: read padding: %w", err)
	}
	if h.HeaderPointer, err = r.ReadU32(); err != nil {
		return h, fmt.Errorf("ipf: read header_pointer: %w", err)
	}
	if h.Magic, err = r.ReadU32(); err != nil {
		return h, fmt.Errorf("ipf: read magic: %w", err)
	}
	if h.Magic != MagicNumber {
		return h, fmt.Errorf("%w: got 0x%08X", ErrInvalidMagic, h.Magic)
	}
	if h.VersionToPatch, err = r.ReadU32(); err != nil {
		return h, fmt.Errorf("ipf: read version_to_patch: %w", err)
	}
	if h.NewVersion, err = r.ReadU32(); err != nil {
		return h, fmt.Errorf("ipf: read new_version: %w", err)
	}
	return h, nil
}

func readEntry(r *breader.Reader) (Entry, error) {
	var e Entry
	var err error

	if e.DirectoryNameLength, err = r.ReadU16(); err != nil {
		return e, err
	}
	if e.CRC32, err = r.ReadU32(); err != nil {
		return e, err
	}
	if e.CompressedSize, err = r.ReadU32(); err != nil {
		return e, err
	}
	if e.UncompressedSize, err = r.ReadU32(); err != nil {
		return e, err
	}
	if e.DataOffset, err = r.ReadU32(); err != nil {
		return e, err
	}
	if e.ContainerNameLength, err = r.ReadU16(); err != nil {
		return e, err
	}
	containerBytes, err := r.ReadExact(int(e.ContainerNameLength))
	if err != nil {
		return e, err
	}
	e.ContainerName = string(containerBytes)

	dirBytes, err := r.ReadExact(int(e.DirectoryNameLength))
	if err != nil {
		return e, err
	}
	e.DirectoryName = string(dirBytes)

	return e, nil
}

// Extract returns the decoded contents of the entry at index. Entries
// whose extension is in the unencrypted allowlist are returned as-is.
// Everything else is raw-DEFLATE inflated, decrypted first only if the
// archive's footer new_version marks its entries as encrypted.
func (a *Archive) Extract(index int) ([]byte, error) {
	if a.src == nil {
		return nil, ErrNoReader
	}
	if index < 0 || index >= len(a.Entries) {
		return nil, fmt.Errorf("%w: %d", ErrEntryOutOfRange, index)
	}
	entry := a.Entries[index]

	r := breader.New(a.src)
	if err := r.SeekFromStart(int64(entry.DataOffset)); err != nil {
		return nil, fmt.Errorf("ipf: seek to entry %d data: %w", index, err)
	}

	buf, err := r.ReadExact(int(entry.CompressedSize))
	if err != nil {
		return nil, fmt.Errorf("%w: entry %d: %v", ErrTruncatedArchive, index, err)
	}

	if entry.skipDecompression() {
		return buf, nil
	}

	if shouldDecrypt(a.Header.NewVersion) {
		decryptInPlace(buf)
	}

	out, err := inflateRaw(buf, entry.UncompressedSize)
	if err != nil {
		return nil, fmt.Errorf("ipf: entry %d: %w", index, err)
	}
	if uint32(len(out)) != entry.UncompressedSize {
		return nil, fmt.Errorf("%w: entry %d: got %d want %d",
			ErrDecompressionMismatch, index, len(out), entry.UncompressedSize)
	}
	return out, nil
}

// Stats summarizes compressed/uncompressed sizes across an archive's
// file table.
type Stats struct {
	Count               uint32
	CompressedLowest    uint32
	CompressedHighest   uint32
	CompressedAvg       uint32
	UncompressedLowest  uint32
	UncompressedHighest uint32
	UncompressedAvg     uint32
}

// ComputeStats aggregates size statistics over entries. Grounded on
// the original tooling's fleet-wide duplicate/size report, scoped
// here to a single archive's file table.
func ComputeStats(entries []Entry) Stats {
	if len(entries) == 0 {
		return Stats{}
	}

	var compressedSum, uncompressedSum uint64
	compressedLowest, uncompressedLowest := ^uint32(0), ^uint32(0)
	var compressedHighest, uncompressedHighest uint32

	for _, e := range entries {
		compressedSum += uint64(e.CompressedSize)
		uncompressedSum += uint64(e.UncompressedSize)

		if e.CompressedSize < compressedLowest {
			compressedLowest = e.CompressedSize
		}
		if e.CompressedSize > compressedHighest {
			compressedHighest = e.CompressedSize
		}
		if e.UncompressedSize < uncompressedLowest {
			uncompressedLowest = e.UncompressedSize
		}
		if e.UncompressedSize > uncompressedHighest {
			uncompressedHighest = e.UncompressedSize
		}
	}

	count := uint64(len(entries))
	return Stats{
		Count:               uint32(count),
		CompressedLowest:    compressedLowest,
		CompressedHighest:   compressedHighest,
		CompressedAvg:       uint32(compressedSum / count),
		UncompressedLowest:  uncompressedLowest,
		UncompressedHighest: uncompressedHighest,
		UncompressedAvg:     uint32(uncompressedSum / count),
	}
}
