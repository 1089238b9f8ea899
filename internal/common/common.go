// Package common holds the small geometry and chunk primitives shared
// by the XAC and XSM decoders.
package common

import "github.com/ossyrian/ipftools/internal/breader"

// Vec3 is a plain 3-component float32 vector. No unit-length or
// orthogonality validation is performed by any decoder.
type Vec3 struct {
	X, Y, Z float32
}

// Quat is a plain 4-component float32 quaternion, (x, y, z, w).
type Quat struct {
	X, Y, Z, W float32
}

// ReadVec3 reads three consecutive little-endian float32s.
func ReadVec3(r *breader.Reader) (Vec3, error) {
	x, err := r.ReadF32()
	if err != nil {
		return Vec3{}, err
	}
	y, err := r.ReadF32()
	if err != nil {
		return Vec3{}, err
	}
	z, err := r.ReadF32()
	if err != nil {
		return Vec3{}, err
	}
	return Vec3{X: x, Y: y, Z: z}, nil
}

// ReadQuat reads four consecutive little-endian float32s.
func ReadQuat(r *breader.Reader) (Quat, error) {
	x, err := r.ReadF32()
	if err != nil {
		return Quat{}, err
	}
	y, err := r.ReadF32()
	if err != nil {
		return Quat{}, err
	}
	z, err := r.ReadF32()
	if err != nil {
		return Quat{}, err
	}
	w, err := r.ReadF32()
	if err != nil {
		return Quat{}, err
	}
	return Quat{X: x, Y: y, Z: z, W: w}, nil
}

// ReadLengthPrefixedString reads a u32 byte count followed by that
// many raw bytes. XAC and XSM strings are never null-terminated.
func ReadLengthPrefixedString(r *breader.Reader) (string, error) {
	n, err := r.ReadU32()
	if err != nil {
		return "", err
	}
	buf, err := r.ReadExact(int(n))
	if err != nil {
		return "", err
	}
	return string(buf), nil
}

// ChunkType identifies the decoded variant carried by a Chunk.
type ChunkType int

const (
	ChunkUnknown ChunkType = iota
	ChunkXACMetadata
	ChunkXACNodeHierarchy
	ChunkXACMaterialTotals
	ChunkXACMaterialDefinition
	ChunkXACShaderMaterial
	ChunkXACMesh
	ChunkXACSkinning
	ChunkXSMMetadata
	ChunkXSMBoneAnimation
)

func (t ChunkType) String() string {
	switch t {
	case ChunkXACMetadata:
		return "XACMetadata"
	case ChunkXACNodeHierarchy:
		return "XACNodeHierarchy"
	case ChunkXACMaterialTotals:
		return "XACMaterialTotals"
	case ChunkXACMaterialDefinition:
		return "XACMaterialDefinition"
	case ChunkXACShaderMaterial:
		return "XACShaderMaterial"
	case ChunkXACMesh:
		return "XACMesh"
	case ChunkXACSkinning:
		return "XACSkinning"
	case ChunkXSMMetadata:
		return "XSMMetadata"
	case ChunkXSMBoneAnimation:
		return "XSMBoneAnimation"
	default:
		return "Unknown"
	}
}

// Chunk is the tagged-variant interface every decoded XAC/XSM chunk
// satisfies, including the catch-all UnknownChunk.
type Chunk interface {
	ChunkType() ChunkType
	RawTypeID() uint32
	RawVersion() uint32
}

// ChunkHeader is the common 12-byte framing preceding every chunk's
// payload, shared by XAC and XSM.
type ChunkHeader struct {
	TypeID  uint32
	Length  uint32
	Version uint32
}

// ReadChunkHeader reads the 12-byte {type_id, byte_length, version}
// framing common to XAC and XSM chunk loops.
func ReadChunkHeader(r *breader.Reader) (ChunkHeader, error) {
	typeID, err := r.ReadU32()
	if err != nil {
		return ChunkHeader{}, err
	}
	length, err := r.ReadU32()
	if err != nil {
		return ChunkHeader{}, err
	}
	version, err := r.ReadU32()
	if err != nil {
		return ChunkHeader{}, err
	}
	return ChunkHeader{TypeID: typeID, Length: length, Version: version}, nil
}

// UnknownChunk preserves a chunk whose type_id this decoder does not
// recognize, so downstream tools can inspect it without losing data.
type UnknownChunk struct {
	TypeID  uint32
	Version uint32
	Raw     []byte
}

func (c *UnknownChunk) ChunkType() ChunkType { return ChunkUnknown }
func (c *UnknownChunk) RawTypeID() uint32    { return c.TypeID }
func (c *UnknownChunk) RawVersion() uint32   { return c.Version }

// KnownChunk wraps a decoded chunk of a recognized type together with
// its on-disk type_id/version tag, so it can sit in the same ordered
// []Chunk list as UnknownChunk. Value holds the concrete decoded
// struct (Metadata, Mesh, BoneAnimation, ...); callers that already
// know the format can type-assert it, mirroring the tagged-union
// dispatch the teacher's WzProperty types used for its own variants.
type KnownChunk struct {
	Type    ChunkType
	TypeID  uint32
	Version uint32
	Value   any
}

func (c *KnownChunk) ChunkType() ChunkType { return c.Type }
func (c *KnownChunk) RawTypeID() uint32    { return c.TypeID }
func (c *KnownChunk) RawVersion() uint32   { return c.Version }
