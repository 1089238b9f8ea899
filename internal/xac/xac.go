// Package xac decodes XAC chunk-structured skeletal mesh files:
// nodes, materials, shader properties, meshes and skinning weights.
package xac

import "github.com/ossyrian/ipftools/internal/common"

// Vec2 is a plain 2-component float32 vector, used only for UV
// coordinates.
type Vec2 struct {
	X, Y float32
}

// Vec4 is a plain 4-component float32 vector, used for colors and
// matrix rows/columns that are not quaternions.
type Vec4 struct {
	X, Y, Z, W float32
}

// Color8 is a packed 8-bit-per-channel RGB color.
type Color8 struct {
	R, G, B uint8
}

// Matrix44 is stored as three axis rows plus a translation row, each
// a Vec4 — not a conventional 4x4 layout.
type Matrix44 struct {
	Axis1, Axis2, Axis3, Pos Vec4
}

// Header is the 8-byte file header.
type Header struct {
	Magic          [4]byte
	MajorVersion   uint8
	MinorVersion   uint8
	BigEndian      bool
	MultiplyOrder  uint8
}

// Metadata is the MetadataId=7 chunk.
type Metadata struct {
	RepositionMask       int32
	RepositioningNode    int32
	ExporterMajorVersion uint8
	ExporterMinorVersion uint8
	RetargetRootOffset   float32
	SourceApp            string
	OriginalFilename     string
	ExportDate           string
	ActorName            string
}

// Node is one entry in the NodeHierarchy chunk.
type Node struct {
	Rotation            common.Quat
	ScaleRotation       common.Quat
	Position            common.Vec3
	Scale               common.Vec3
	ParentNodeID        int32
	NumChildren         uint32
	IncludeInboundsCalc int32
	Transform           Matrix44
	ImportanceFactor    float32
	Name                string
}

// NodeHierarchy is the NodeHierarchyId=11 chunk.
type NodeHierarchy struct {
	NumNodes     uint32
	NumRootNodes uint32
	Nodes        []Node
}

// MaterialTotals is the MaterialTotalId=13 chunk.
type MaterialTotals struct {
	NumTotalMaterials    uint32
	NumStandardMaterials uint32
	NumFxMaterials       uint32
}

// MaterialLayer is one texture layer within a MaterialDefinition.
type MaterialLayer struct {
	Amount            float32
	UOffset           float32
	VOffset           float32
	UTiling           float32
	VTiling           float32
	RotationInRadians float32
	MaterialID        int16
	MapType           uint8
	Name              string
}

// MaterialDefinition is the MaterialDefinitionId=3 chunk.
type MaterialDefinition struct {
	AmbientColor  Vec4
	DiffuseColor  Vec4
	SpecularColor Vec4
	EmissiveColor Vec4
	Shine         float32
	ShineStrength float32
	Opacity       float32
	IOR           float32
	DoubleSided   bool
	Wireframe     bool
	NumLayers     uint8
	Name          string
	Layers        []MaterialLayer
}

// IntProperty, FloatProperty, BoolProperty and StringProperty are the
// shader material's named property blocks.
type IntProperty struct {
	Name  string
	Value int32
}

type FloatProperty struct {
	Name  string
	Value float32
}

type BoolProperty struct {
	Name  string
	Value uint8
}

type StringProperty struct {
	Name  string
	Value string
}

// ShaderMaterial is one ShaderMaterialId=5 chunk.
type ShaderMaterial struct {
	NumInt         uint32
	NumFloat       uint32
	NumBool        uint32
	Flag           uint32
	NumString      uint32
	NameMaterial   string
	NameShader     string
	IntProperties  []IntProperty
	FloatProperties []FloatProperty
	BoolProperties []BoolProperty
	StringProperties []StringProperty
}

// VerticesAttribute is one attribute layer within a mesh: exactly one
// of the slices below is populated, selected by TypeID.
type VerticesAttribute struct {
	TypeID        uint32
	AttributeSize uint32
	KeepOriginal  bool
	ScaleFactor   bool

	Positions   []common.Vec3
	Normals     []common.Vec3
	Tangents    []Vec4
	BiTangents  []Vec4
	UVs         []Vec2
	Colors32    []Color8
	Colors128   []common.Vec3
	Influences  []uint32
}

// SubMesh is one material-grouped index/bone range within a Mesh.
type SubMesh struct {
	NumIndices       uint32
	NumVertices      uint32
	MaterialID       int32
	NumBones         uint32
	RelativeIndices  []uint32
	BoneIDs          []uint32
}

// Mesh is one MeshId=1 chunk.
type Mesh struct {
	NodeID             int32
	NumInfluenceRanges uint32
	NumVertices        uint32
	NumIndices         uint32
	NumSubMeshes       uint32
	NumAttributeLayers uint32
	CollisionMesh      bool
	AttributeLayers    []VerticesAttribute
	SubMeshes          []SubMesh
}

// InfluenceData and InfluenceRange make up the Skinning chunk's
// weight tables.
type InfluenceData struct {
	Weight float32
	BoneID int32
}

type InfluenceRange struct {
	FirstInfluenceIndex int32
	NumInfluences       uint32
}

// Skinning is the SkinningId=2 chunk. Its influence range count is
// taken from the last Mesh chunk parsed before it, per the format's
// chunk-ordering convention.
type Skinning struct {
	NodeID          int32
	NumLocalBones   uint32
	NumInfluences   uint32
	CollisionMesh   bool
	InfluenceData   []InfluenceData
	InfluenceRanges []InfluenceRange
}

// vertex attribute type IDs, matching spec.md's XacVerticesAttributeType.
const (
	attrPosition       = 0
	attrNormal         = 1
	attrTangent        = 2
	attrUVCoord        = 3
	attrColor32        = 4
	attrInfluenceRange = 5
	attrColor128       = 6
)

// chunk type IDs.
const (
	chunkMesh                = 1
	chunkSkinning            = 2
	chunkMaterialDefinition  = 3
	chunkShaderMaterial      = 5
	chunkMetadata            = 7
	chunkNodeHierarchy       = 11
	chunkMorphTarget         = 12
	chunkMaterialTotal       = 13
)

// File is the fully decoded contents of one .xac file.
type File struct {
	Header              Header
	Metadata            Metadata
	NodeHierarchy       NodeHierarchy
	MaterialTotals      MaterialTotals
	MaterialDefinition  MaterialDefinition
	ShaderMaterials     []ShaderMaterial
	Meshes              []Mesh
	Skinning            Skinning
	Unknown             []*common.UnknownChunk
	// Chunks preserves the on-disk chunk order and interleaving as a
	// tagged-variant list (common.KnownChunk for recognized types,
	// *common.UnknownChunk for the rest); the named fields above are a
	// convenience projection of the same data for callers who only
	// care about one chunk type. Morph target chunks and chunks that
	// fail to decode are not added (they are reported in Warnings).
	Chunks              []common.Chunk
	Warnings            []string
}
