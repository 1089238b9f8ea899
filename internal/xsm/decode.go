package xsm

import (
	"errors"
	"fmt"
	"os"

	"github.com/ossyrian/ipftools/internal/breader"
	"github.com/ossyrian/ipftools/internal/common"
)

var (
	ErrInvalidMagic         = errors.New("xsm: invalid header magic")
	ErrBigEndianUnsupported = errors.New("xsm: big-endian files are not supported")
)

// Open reads a .xsm file from disk.
func Open(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("xsm: open %s: %w", path, err)
	}
	defer f.Close()
	return Parse(breader.New(f))
}

// ParseMemory decodes an in-memory .xsm buffer.
func ParseMemory(data []byte) (*File, error) {
	return Parse(breader.NewMemory(data))
}

// Parse decodes a XSM file from any positioned breader.Reader.
func Parse(r *breader.Reader) (*File, error) {
	file := &File{}

	header, err := readHeader(r)
	if err != nil {
		return nil, err
	}
	file.Header = header

	if header.MajorVersion != 1 || header.MinorVersion != 0 {
		file.Warnings = append(file.Warnings, fmt.Sprintf(
			"xsm: unsupported version %d.%d, expected 1.0; parsing best-effort",
			header.MajorVersion, header.MinorVersion))
	}

	length, err := r.Len()
	if err != nil {
		return nil, fmt.Errorf("xsm: determine length: %w", err)
	}

	for {
		pos, err := r.Position()
		if err != nil {
			return nil, fmt.Errorf("xsm: position: %w", err)
		}
		if pos >= length {
			break
		}

		ch, err := common.ReadChunkHeader(r)
		if err != nil {
			return nil, fmt.Errorf("xsm: read chunk header at %d: %w", pos, err)
		}
		payloadStart, err := r.Position()
		if err != nil {
			return nil, fmt.Errorf("xsm: position: %w", err)
		}

		dispatchErr := dispatchChunk(r, file, ch)

		if err := r.SeekFromStart(payloadStart + int64(ch.Length)); err != nil {
			return nil, fmt.Errorf("xsm: resync after chunk type %d: %w", ch.TypeID, err)
		}

		if dispatchErr != nil {
			file.Warnings = append(file.Warnings, fmt.Sprintf(
				"xsm: chunk type %d at %d failed to decode, skipped: %v", ch.TypeID, pos, dispatchErr))
		}
	}

	return file, nil
}

func readHeader(r *breader.Reader) (Header, error) {
	var h Header

	magic, err := r.ReadExact(4)
	if err != nil {
		return h, fmt.Errorf("xsm: read magic: %w", err)
	}
	copy(h.Magic[:], magic)
	if string(magic) != "XSM " {
		return h, fmt.Errorf("%w: got %q", ErrInvalidMagic, magic)
	}

	if h.MajorVersion, err = r.ReadU8(); err != nil {
		return h, fmt.Errorf("xsm: read major_version: %w", err)
	}
	if h.MinorVersion, err = r.ReadU8(); err != nil {
		return h, fmt.Errorf("xsm: read minor_version: %w", err)
	}
	beByte, err := r.ReadU8()
	if err != nil {
		return h, fmt.Errorf("xsm: read big_endian: %w", err)
	}
	h.BigEndian = beByte != 0
	if _, err = r.ReadU8(); err != nil { // padding
		return h, fmt.Errorf("xsm: read header padding: %w", err)
	}
	if h.BigEndian {
		return h, ErrBigEndianUnsupported
	}
	return h, nil
}

func dispatchChunk(r *breader.Reader, file *File, ch common.ChunkHeader) error {
	known := func(t common.ChunkType, value any) {
		file.Chunks = append(file.Chunks, &common.KnownChunk{
			Type: t, TypeID: ch.TypeID, Version: ch.Version, Value: value,
		})
	}

	switch ch.TypeID {
	case chunkMetadata:
		md, err := readMetadata(r)
		if err != nil {
			return err
		}
		file.Metadata = md
		known(common.ChunkXSMMetadata, md)
	case chunkBoneAnimation:
		ba, err := readBoneAnimation(r)
		if err != nil {
			return err
		}
		file.BoneAnimation = ba
		known(common.ChunkXSMBoneAnimation, ba)
	default:
		raw, err := r.ReadExact(int(ch.Length))
		if err != nil {
			return err
		}
		u := &common.UnknownChunk{TypeID: ch.TypeID, Version: ch.Version, Raw: raw}
		file.Unknown = append(file.Unknown, u)
		file.Chunks = append(file.Chunks, u)
	}
	return nil
}

func readString(r *breader.Reader) (string, error) {
	n, err := r.ReadI32()
	if err != nil {
		return "", err
	}
	if n <= 0 {
		return "", nil
	}
	buf, err := r.ReadExact(int(n))
	if err != nil {
		return "", err
	}
	return string(buf), nil
}

// quaternion16Scale converts a signed 16-bit component in [-32767,
// 32767] to a normalized float in [-1, 1], matching the compressed
// quaternion encoding used throughout the bone-animation chunk.
const quaternion16Scale = 1.0 / 32767.0

// readQuaternion16 reads the compressed 8-byte on-disk quaternion
// representation (4 consecutive i16 components) and expands it to a
// common.Quat of normalized f32 components. Grounded on
// xsm_util.rs::xsm_read_quaternion16 and xsm_parser.rs's
// XsmQuaternion16, which is distinct from the plain 12-byte f32 Vec3
// read by xsm_read_vec3d used for positions and scales.
func readQuaternion16(r *breader.Reader) (common.Quat, error) {
	x, err := r.ReadI16()
	if err != nil {
		return common.Quat{}, err
	}
	y, err := r.ReadI16()
	if err != nil {
		return common.Quat{}, err
	}
	z, err := r.ReadI16()
	if err != nil {
		return common.Quat{}, err
	}
	w, err := r.ReadI16()
	if err != nil {
		return common.Quat{}, err
	}
	return common.Quat{
		X: float32(x) * quaternion16Scale,
		Y: float32(y) * quaternion16Scale,
		Z: float32(z) * quaternion16Scale,
		W: float32(w) * quaternion16Scale,
	}, nil
}

func readMetadata(r *breader.Reader) (Metadata, error) {
	var m Metadata
	var err error
	if m.Unused, err = r.ReadF32(); err != nil {
		return m, err
	}
	if m.MaxAcceptableError, err = r.ReadF32(); err != nil {
		return m, err
	}
	if m.FPS, err = r.ReadI32(); err != nil {
		return m, err
	}
	if m.ExporterMajorVersion, err = r.ReadU8(); err != nil {
		return m, err
	}
	if m.ExporterMinorVersion, err = r.ReadU8(); err != nil {
		return m, err
	}
	if _, err = r.ReadU8(); err != nil { // padding
		return m, err
	}
	if _, err = r.ReadU8(); err != nil { // padding
		return m, err
	}
	if m.SourceApp, err = readString(r); err != nil {
		return m, err
	}
	if m.OriginalFilename, err = readString(r); err != nil {
		return m, err
	}
	if m.ExportDate, err = readString(r); err != nil {
		return m, err
	}
	if m.MotionName, err = readString(r); err != nil {
		return m, err
	}
	return m, nil
}

func readBoneAnimation(r *breader.Reader) (BoneAnimation, error) {
	var ba BoneAnimation
	var err error
	if ba.NumSubMotions, err = r.ReadI32(); err != nil {
		return ba, err
	}

	for i := int32(0); i < ba.NumSubMotions; i++ {
		sm, err := readSubMotion(r)
		if err != nil {
			return ba, fmt.Errorf("submotion %d: %w", i, err)
		}
		ba.SubMotions = append(ba.SubMotions, sm)
	}
	return ba, nil
}

func readSubMotion(r *breader.Reader) (SubMotion, error) {
	var sm SubMotion
	var err error

	if sm.PoseRotation, err = readQuaternion16(r); err != nil {
		return sm, err
	}
	if sm.BindPoseRotation, err = readQuaternion16(r); err != nil {
		return sm, err
	}
	if sm.PoseScaleRotation, err = readQuaternion16(r); err != nil {
		return sm, err
	}
	if sm.BindPoseScaleRotation, err = readQuaternion16(r); err != nil {
		return sm, err
	}
	if sm.PosePosition, err = common.ReadVec3(r); err != nil {
		return sm, err
	}
	if sm.PoseScale, err = common.ReadVec3(r); err != nil {
		return sm, err
	}
	if sm.BindPosePosition, err = common.ReadVec3(r); err != nil {
		return sm, err
	}
	if sm.BindPoseScalePosition, err = common.ReadVec3(r); err != nil {
		return sm, err
	}
	if sm.NumPosKeys, err = r.ReadI32(); err != nil {
		return sm, err
	}
	if sm.NumRotKeys, err = r.ReadI32(); err != nil {
		return sm, err
	}
	if sm.NumScaleKeys, err = r.ReadI32(); err != nil {
		return sm, err
	}
	if sm.NumScaleRotKeys, err = r.ReadI32(); err != nil {
		return sm, err
	}
	if sm.MaxError, err = r.ReadF32(); err != nil {
		return sm, err
	}
	if sm.NodeName, err = readString(r); err != nil {
		return sm, err
	}

	for i := int32(0); i < sm.NumPosKeys; i++ {
		pos, err := common.ReadVec3(r)
		if err != nil {
			return sm, fmt.Errorf("pos key %d: %w", i, err)
		}
		t, err := r.ReadF32()
		if err != nil {
			return sm, fmt.Errorf("pos key %d: %w", i, err)
		}
		sm.PosKeys = append(sm.PosKeys, PosKey{Pos: pos, Time: t})
	}

	for i := int32(0); i < sm.NumRotKeys; i++ {
		rot, err := readQuaternion16(r)
		if err != nil {
			return sm, fmt.Errorf("rot key %d: %w", i, err)
		}
		t, err := r.ReadF32()
		if err != nil {
			return sm, fmt.Errorf("rot key %d: %w", i, err)
		}
		sm.RotKeys = append(sm.RotKeys, RotKey{Rot: rot, Time: t})
	}

	for i := int32(0); i < sm.NumScaleKeys; i++ {
		scale, err := common.ReadVec3(r)
		if err != nil {
			return sm, fmt.Errorf("scale key %d: %w", i, err)
		}
		t, err := r.ReadF32()
		if err != nil {
			return sm, fmt.Errorf("scale key %d: %w", i, err)
		}
		sm.ScaleKeys = append(sm.ScaleKeys, ScaleKey{Scale: scale, Time: t})
	}

	for i := int32(0); i < sm.NumScaleRotKeys; i++ {
		rot, err := readQuaternion16(r)
		if err != nil {
			return sm, fmt.Errorf("scale rot key %d: %w", i, err)
		}
		t, err := r.ReadF32()
		if err != nil {
			return sm, fmt.Errorf("scale rot key %d: %w", i, err)
		}
		sm.ScaleRotKeys = append(sm.ScaleRotKeys, ScaleRotKey{Rot: rot, Time: t})
	}

	return sm, nil
}
