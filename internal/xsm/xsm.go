// Package xsm decodes XSM chunk-structured skeletal animation files:
// per-bone submotions with pose/bind-pose transforms and four
// keyframe tracks each.
package xsm

import "github.com/ossyrian/ipftools/internal/common"

// Header is the 8-byte file header: 4-byte magic, major and minor
// version bytes, a big-endian flag byte, and 1 padding byte.
type Header struct {
	Magic        [4]byte
	MajorVersion uint8
	MinorVersion uint8
	BigEndian    bool
}

// Metadata is the MetadataId=201 chunk.
type Metadata struct {
	Unused               float32
	MaxAcceptableError   float32
	FPS                  int32
	ExporterMajorVersion uint8
	ExporterMinorVersion uint8
	SourceApp            string
	OriginalFilename     string
	ExportDate           string
	MotionName           string
}

// PosKey, RotKey, ScaleKey and ScaleRotKey are the four keyframe
// track element types, each a sample plus a time stamp. Rot is stored
// on disk as a compressed 16-bit-per-component quaternion (see
// readQuaternion16) and expanded to common.Quat's f32 components on
// decode; Pos and Scale are plain on-disk f32 vectors.
type PosKey struct {
	Pos  common.Vec3
	Time float32
}

type RotKey struct {
	Rot  common.Quat
	Time float32
}

type ScaleKey struct {
	Scale common.Vec3
	Time  float32
}

type ScaleRotKey struct {
	Rot  common.Quat
	Time float32
}

// SubMotion is one bone's animation data within a BoneAnimation chunk.
// The four rotation fields are stored on disk as compressed 16-bit
// quaternions, not plain f32 quaternions; see readQuaternion16.
type SubMotion struct {
	PoseRotation         common.Quat
	BindPoseRotation     common.Quat
	PoseScaleRotation    common.Quat
	BindPoseScaleRotation common.Quat
	PosePosition         common.Vec3
	PoseScale            common.Vec3
	BindPosePosition     common.Vec3
	BindPoseScalePosition common.Vec3
	NumPosKeys           int32
	NumRotKeys           int32
	NumScaleKeys         int32
	NumScaleRotKeys      int32
	MaxError             float32
	NodeName             string
	PosKeys              []PosKey
	RotKeys              []RotKey
	ScaleKeys            []ScaleKey
	ScaleRotKeys         []ScaleRotKey
}

// BoneAnimation is the BoneAnimationId=202 chunk.
type BoneAnimation struct {
	NumSubMotions int32
	SubMotions    []SubMotion
}

const (
	chunkMetadata      = 201
	chunkBoneAnimation = 202
)

// File is the fully decoded contents of one .xsm file.
type File struct {
	Header        Header
	Metadata      Metadata
	BoneAnimation BoneAnimation
	Unknown       []*common.UnknownChunk
	// Chunks preserves the on-disk chunk order as a tagged-variant list
	// (common.KnownChunk for recognized types, *common.UnknownChunk for
	// the rest); Metadata/BoneAnimation above are a convenience
	// projection of the same data.
	Chunks   []common.Chunk
	Warnings []string
}
