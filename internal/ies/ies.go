// Package ies decodes IES tabular asset files: a fixed 156-byte
// header, a column table, and a variable-length row stream.
package ies

import (
	"fmt"
	"os"

	"github.com/ossyrian/ipftools/internal/breader"
)

// xorKey obfuscates column/cell strings. It is not a secret, just a
// single-byte scramble applied uniformly across the format.
const xorKey = 0x01

// Column describes one field in the table. ColumnRaw and NameRaw are
// the on-disk bytes for Column and Name, before XOR or trimming: the
// decoded strings are lossy (arbitrary padding bytes can collapse to
// the same trimmed string), so the raw bytes are kept alongside them.
type Column struct {
	Column     string
	ColumnRaw  []byte
	Name       string
	NameRaw    []byte
	TypeCode   uint16
	AccessCode uint16
	SyncCode   uint16
	DeclIndex  uint16
}

// RowText is a length-prefixed, XOR-obfuscated string cell. Raw holds
// the on-disk bytes before XOR or trimming.
type RowText struct {
	TextLength uint16
	Text       string
	Raw        []byte
}

// Row is one record in the data section: a primary text cell, a
// block of float cells, a block of string cells, and per-string-cell
// scope-flag padding bytes.
type Row struct {
	Index       int32
	PrimaryText RowText
	Floats      []float32
	Texts       []RowText
	Padding     []int8
}

// File is a fully decoded IES table.
type File struct {
	IDSpace         string
	KeySpace        string
	Version         uint16
	InfoSize        uint32
	DataSize        uint32
	TotalSize       uint32
	UseClassID      uint8
	NumField        uint16
	NumColumn       uint16
	NumColumnNumber uint16
	NumColumnString uint16

	Columns []Column
	Rows    []Row
}

// deobfuscate XORs every byte with xorKey, then trims trailing bytes
// that are neither printable nor whitespace, before ever decoding as
// a string: padding bytes are arbitrary and routinely invalid UTF-8,
// so the trim must run byte-by-byte, not rune-by-rune.
func deobfuscate(raw []byte) string {
	out := make([]byte, len(raw))
	for i, b := range raw {
		out[i] = b ^ xorKey
	}
	return trimNonPrintable(out)
}

// trimPadding decodes a fixed-width field with no XOR, trimming the
// same trailing non-printable run as deobfuscate.
func trimPadding(raw []byte) string {
	return trimNonPrintable(raw)
}

// trimNonPrintable trims trailing bytes that are neither
// ASCII-graphic (0x21-0x7E) nor ASCII whitespace (tab, LF, CR,
// space), then converts the remainder to a string. Operating on
// bytes rather than decoded runes matters: invalid UTF-8 (routine
// after XORing arbitrary binary padding) decodes to U+FFFD, which
// unicode.IsGraphic reports as printable, silently defeating the
// trim.
func trimNonPrintable(raw []byte) string {
	end := len(raw)
	for end > 0 && !isKeepableByte(raw[end-1]) {
		end--
	}
	return string(raw[:end])
}

func isKeepableByte(b byte) bool {
	switch b {
	case 0x09, 0x0A, 0x0D, 0x20:
		return true
	}
	return b >= 0x21 && b <= 0x7E
}

// Open reads an IES file from disk.
func Open(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("ies: open %s: %w", path, err)
	}
	defer f.Close()
	return Parse(breader.New(f))
}

// ParseMemory decodes an in-memory IES buffer.
func ParseMemory(data []byte) (*File, error) {
	return Parse(breader.NewMemory(data))
}

// Parse decodes an IES table from any positioned breader.Reader.
func Parse(r *breader.Reader) (*File, error) {
	file := &File{}

	idspaceRaw, err := r.ReadExact(64)
	if err != nil {
		return nil, fmt.Errorf("ies: read idspace: %w", err)
	}
	file.IDSpace = trimPadding(idspaceRaw)

	keyspaceRaw, err := r.ReadExact(64)
	if err != nil {
		return nil, fmt.Errorf("ies: read keyspace: %w", err)
	}
	file.KeySpace = trimPadding(keyspaceRaw)

	if file.Version, err = r.ReadU16(); err != nil {
		return nil, fmt.Errorf("ies: read version: %w", err)
	}
	if _, err = r.ReadU16(); err != nil { // padding
		return nil, fmt.Errorf("ies: read padding: %w", err)
	}
	if file.InfoSize, err = r.ReadU32(); err != nil {
		return nil, fmt.Errorf("ies: read info_size: %w", err)
	}
	if file.DataSize, err = r.ReadU32(); err != nil {
		return nil, fmt.Errorf("ies: read data_size: %w", err)
	}
	if file.TotalSize, err = r.ReadU32(); err != nil {
		return nil, fmt.Errorf("ies: read total_size: %w", err)
	}
	if file.UseClassID, err = r.ReadU8(); err != nil {
		return nil, fmt.Errorf("ies: read use_class_id: %w", err)
	}
	if _, err = r.ReadU8(); err != nil { // padding2
		return nil, fmt.Errorf("ies: read padding2: %w", err)
	}
	if file.NumField, err = r.ReadU16(); err != nil {
		return nil, fmt.Errorf("ies: read num_field: %w", err)
	}
	if file.NumColumn, err = r.ReadU16(); err != nil {
		return nil, fmt.Errorf("ies: read num_column: %w", err)
	}
	if file.NumColumnNumber, err = r.ReadU16(); err != nil {
		return nil, fmt.Errorf("ies: read num_column_number: %w", err)
	}
	if file.NumColumnString, err = r.ReadU16(); err != nil {
		return nil, fmt.Errorf("ies: read num_column_string: %w", err)
	}
	if _, err = r.ReadU16(); err != nil { // padding3
		return nil, fmt.Errorf("ies: read padding3: %w", err)
	}

	file.Columns = make([]Column, 0, file.NumColumn)
	for i := uint16(0); i < file.NumColumn; i++ {
		col, err := readColumn(r)
		if err != nil {
			return nil, fmt.Errorf("ies: read column %d: %w", i, err)
		}
		file.Columns = append(file.Columns, col)
	}

	file.Rows = make([]Row, 0, file.NumField)
	for i := uint16(0); i < file.NumField; i++ {
		row, err := readRow(r, file.NumColumnNumber, file.NumColumnString)
		if err != nil {
			return nil, fmt.Errorf("ies: read row %d: %w", i, err)
		}
		file.Rows = append(file.Rows, row)
	}

	return file, nil
}

func readColumn(r *breader.Reader) (Column, error) {
	var c Column

	columnRaw, err := r.ReadExact(64)
	if err != nil {
		return c, err
	}
	c.Column = deobfuscate(columnRaw)
	c.ColumnRaw = columnRaw

	nameRaw, err := r.ReadExact(64)
	if err != nil {
		return c, err
	}
	c.Name = deobfuscate(nameRaw)
	c.NameRaw = nameRaw

	if c.TypeCode, err = r.ReadU16(); err != nil {
		return c, err
	}
	if c.AccessCode, err = r.ReadU16(); err != nil {
		return c, err
	}
	if c.SyncCode, err = r.ReadU16(); err != nil {
		return c, err
	}
	if c.DeclIndex, err = r.ReadU16(); err != nil {
		return c, err
	}
	return c, nil
}

func readRowText(r *breader.Reader) (RowText, error) {
	var t RowText
	length, err := r.ReadU16()
	if err != nil {
		return t, err
	}
	raw, err := r.ReadExact(int(length))
	if err != nil {
		return t, err
	}
	return RowText{TextLength: length, Text: deobfuscate(raw), Raw: raw}, nil
}

func readRow(r *breader.Reader, numFloats, numStrings uint16) (Row, error) {
	var row Row

	index, err := r.ReadI32()
	if err != nil {
		return row, err
	}
	row.Index = index

	primary, err := readRowText(r)
	if err != nil {
		return row, fmt.Errorf("primary text: %w", err)
	}
	row.PrimaryText = primary

	row.Floats = make([]float32, 0, numFloats)
	for i := uint16(0); i < numFloats; i++ {
		v, err := r.ReadF32()
		if err != nil {
			return row, fmt.Errorf("float cell %d: %w", i, err)
		}
		row.Floats = append(row.Floats, v)
	}

	row.Texts = make([]RowText, 0, numStrings)
	for i := uint16(0); i < numStrings; i++ {
		t, err := readRowText(r)
		if err != nil {
			return row, fmt.Errorf("string cell %d: %w", i, err)
		}
		row.Texts = append(row.Texts, t)
	}

	row.Padding = make([]int8, 0, numStrings)
	for i := uint16(0); i < numStrings; i++ {
		b, err := r.ReadI8()
		if err != nil {
			return row, fmt.Errorf("scope padding %d: %w", i, err)
		}
		row.Padding = append(row.Padding, b)
	}

	return row, nil
}
