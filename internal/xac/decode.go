package xac

import (
	"errors"
	"fmt"
	"os"

	"github.com/ossyrian/ipftools/internal/breader"
	"github.com/ossyrian/ipftools/internal/common"
)

var (
	ErrInvalidMagic       = errors.New("xac: invalid header magic")
	ErrBigEndianUnsupported = errors.New("xac: big-endian files are not supported")
)

// Open reads a .xac file from disk.
func Open(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("xac: open %s: %w", path, err)
	}
	defer f.Close()
	return Parse(breader.New(f))
}

// ParseMemory decodes an in-memory .xac buffer.
func ParseMemory(data []byte) (*File, error) {
	return Parse(breader.NewMemory(data))
}

// Parse decodes a XAC file from any positioned breader.Reader.
func Parse(r *breader.Reader) (*File, error) {
	file := &File{}

	header, err := readHeader(r)
	if err != nil {
		return nil, err
	}
	file.Header = header

	if header.MajorVersion != 1 || header.MinorVersion != 0 {
		file.Warnings = append(file.Warnings, fmt.Sprintf(
			"xac: unsupported version %d.%d, expected 1.0; parsing best-effort",
			header.MajorVersion, header.MinorVersion))
	}

	length, err := r.Len()
	if err != nil {
		return nil, fmt.Errorf("xac: determine length: %w", err)
	}

	for {
		pos, err := r.Position()
		if err != nil {
			return nil, fmt.Errorf("xac: position: %w", err)
		}
		if pos >= length {
			break
		}

		ch, err := common.ReadChunkHeader(r)
		if err != nil {
			return nil, fmt.Errorf("xac: read chunk header at %d: %w", pos, err)
		}
		payloadStart, err := r.Position()
		if err != nil {
			return nil, fmt.Errorf("xac: position: %w", err)
		}

		dispatchErr := dispatchChunk(r, file, ch)

		if err := r.SeekFromStart(payloadStart + int64(ch.Length)); err != nil {
			return nil, fmt.Errorf("xac: resync after chunk type %d: %w", ch.TypeID, err)
		}

		if dispatchErr != nil {
			file.Warnings = append(file.Warnings, fmt.Sprintf(
				"xac: chunk type %d at %d failed to decode, skipped: %v", ch.TypeID, pos, dispatchErr))
		}
	}

	return file, nil
}

func readHeader(r *breader.Reader) (Header, error) {
	var h Header

	magic, err := r.ReadExact(4)
	if err != nil {
		return h, fmt.Errorf("xac: read magic: %w", err)
	}
	copy(h.Magic[:], magic)
	if string(magic) != "XAC " {
		return h, fmt.Errorf("%w: got %q", ErrInvalidMagic, magic)
	}

	if h.MajorVersion, err = r.ReadU8(); err != nil {
		return h, fmt.Errorf("xac: read major_version: %w", err)
	}
	if h.MinorVersion, err = r.ReadU8(); err != nil {
		return h, fmt.Errorf("xac: read minor_version: %w", err)
	}
	beByte, err := r.ReadU8()
	if err != nil {
		return h, fmt.Errorf("xac: read big_endian: %w", err)
	}
	h.BigEndian = beByte != 0
	if h.BigEndian {
		return h, ErrBigEndianUnsupported
	}
	if h.MultiplyOrder, err = r.ReadU8(); err != nil {
		return h, fmt.Errorf("xac: read multiply_order: %w", err)
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
	case chunkMesh:
		mesh, err := readMesh(r)
		if err != nil {
			return err
		}
		file.Meshes = append(file.Meshes, mesh)
		known(common.ChunkXACMesh, mesh)
	case chunkSkinning:
		skinning, err := readSkinning(r, file)
		if err != nil {
			return err
		}
		file.Skinning = skinning
		known(common.ChunkXACSkinning, skinning)
	case chunkMaterialDefinition:
		md, err := readMaterialDefinition(r)
		if err != nil {
			return err
		}
		file.MaterialDefinition = md
		known(common.ChunkXACMaterialDefinition, md)
	case chunkShaderMaterial:
		sm, err := readShaderMaterial(r)
		if err != nil {
			return err
		}
		file.ShaderMaterials = append(file.ShaderMaterials, sm)
		known(common.ChunkXACShaderMaterial, sm)
	case chunkMetadata:
		md, err := readMetadata(r)
		if err != nil {
			return err
		}
		file.Metadata = md
		known(common.ChunkXACMetadata, md)
	case chunkNodeHierarchy:
		nh, err := readNodeHierarchy(r)
		if err != nil {
			return err
		}
		file.NodeHierarchy = nh
		known(common.ChunkXACNodeHierarchy, nh)
	case chunkMorphTarget:
		file.Warnings = append(file.Warnings, "xac: morph target chunk present but not decoded")
	case chunkMaterialTotal:
		mt, err := readMaterialTotals(r)
		if err != nil {
			return err
		}
		file.MaterialTotals = mt
		known(common.ChunkXACMaterialTotals, mt)
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

func readBool(r *breader.Reader) (bool, error) {
	b, err := r.ReadU8()
	return b != 0, err
}

func readVec2(r *breader.Reader) (Vec2, error) {
	x, err := r.ReadF32()
	if err != nil {
		return Vec2{}, err
	}
	y, err := r.ReadF32()
	if err != nil {
		return Vec2{}, err
	}
	return Vec2{X: x, Y: y}, nil
}

func readVec4(r *breader.Reader) (Vec4, error) {
	x, err := r.ReadF32()
	if err != nil {
		return Vec4{}, err
	}
	y, err := r.ReadF32()
	if err != nil {
		return Vec4{}, err
	}
	z, err := r.ReadF32()
	if err != nil {
		return Vec4{}, err
	}
	w, err := r.ReadF32()
	if err != nil {
		return Vec4{}, err
	}
	return Vec4{X: x, Y: y, Z: z, W: w}, nil
}

func readColor8(r *breader.Reader) (Color8, error) {
	rr, err := r.ReadU8()
	if err != nil {
		return Color8{}, err
	}
	g, err := r.ReadU8()
	if err != nil {
		return Color8{}, err
	}
	b, err := r.ReadU8()
	if err != nil {
		return Color8{}, err
	}
	return Color8{R: rr, G: g, B: b}, nil
}

func readMatrix44(r *breader.Reader) (Matrix44, error) {
	var m Matrix44
	var err error
	if m.Axis1, err = readVec4(r); err != nil {
		return m, err
	}
	if m.Axis2, err = readVec4(r); err != nil {
		return m, err
	}
	if m.Axis3, err = readVec4(r); err != nil {
		return m, err
	}
	if m.Pos, err = readVec4(r); err != nil {
		return m, err
	}
	return m, nil
}

func readMetadata(r *breader.Reader) (Metadata, error) {
	var m Metadata
	var err error
	if m.RepositionMask, err = r.ReadI32(); err != nil {
		return m, err
	}
	if m.RepositioningNode, err = r.ReadI32(); err != nil {
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
	if m.RetargetRootOffset, err = r.ReadF32(); err != nil {
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
	if m.ActorName, err = readString(r); err != nil {
		return m, err
	}
	return m, nil
}

func readNodeHierarchy(r *breader.Reader) (NodeHierarchy, error) {
	var nh NodeHierarchy
	var err error
	if nh.NumNodes, err = r.ReadU32(); err != nil {
		return nh, err
	}
	if nh.NumRootNodes, err = r.ReadU32(); err != nil {
		return nh, err
	}

	nh.Nodes = make([]Node, 0, nh.NumNodes)
	for i := uint32(0); i < nh.NumNodes; i++ {
		var n Node
		if n.Rotation, err = common.ReadQuat(r); err != nil {
			return nh, fmt.Errorf("node %d: %w", i, err)
		}
		if n.ScaleRotation, err = common.ReadQuat(r); err != nil {
			return nh, fmt.Errorf("node %d: %w", i, err)
		}
		if n.Position, err = common.ReadVec3(r); err != nil {
			return nh, fmt.Errorf("node %d: %w", i, err)
		}
		if n.Scale, err = common.ReadVec3(r); err != nil {
			return nh, fmt.Errorf("node %d: %w", i, err)
		}
		for p := 0; p < 5; p++ {
			if _, err = r.ReadI32(); err != nil { // padding
				return nh, fmt.Errorf("node %d padding: %w", i, err)
			}
		}
		if n.ParentNodeID, err = r.ReadI32(); err != nil {
			return nh, fmt.Errorf("node %d: %w", i, err)
		}
		if n.NumChildren, err = r.ReadU32(); err != nil {
			return nh, fmt.Errorf("node %d: %w", i, err)
		}
		if n.IncludeInboundsCalc, err = r.ReadI32(); err != nil {
			return nh, fmt.Errorf("node %d: %w", i, err)
		}
		if n.Transform, err = readMatrix44(r); err != nil {
			return nh, fmt.Errorf("node %d: %w", i, err)
		}
		if n.ImportanceFactor, err = r.ReadF32(); err != nil {
			return nh, fmt.Errorf("node %d: %w", i, err)
		}
		if n.Name, err = readString(r); err != nil {
			return nh, fmt.Errorf("node %d: %w", i, err)
		}
		nh.Nodes = append(nh.Nodes, n)
	}
	return nh, nil
}

func readMaterialTotals(r *breader.Reader) (MaterialTotals, error) {
	var mt MaterialTotals
	var err error
	if mt.NumTotalMaterials, err = r.ReadU32(); err != nil {
		return mt, err
	}
	if mt.NumStandardMaterials, err = r.ReadU32(); err != nil {
		return mt, err
	}
	if mt.NumFxMaterials, err = r.ReadU32(); err != nil {
		return mt, err
	}
	return mt, nil
}

func readMaterialDefinition(r *breader.Reader) (MaterialDefinition, error) {
	var md MaterialDefinition
	var err error
	if md.AmbientColor, err = readVec4(r); err != nil {
		return md, err
	}
	if md.DiffuseColor, err = readVec4(r); err != nil {
		return md, err
	}
	if md.SpecularColor, err = readVec4(r); err != nil {
		return md, err
	}
	if md.EmissiveColor, err = readVec4(r); err != nil {
		return md, err
	}
	if md.Shine, err = r.ReadF32(); err != nil {
		return md, err
	}
	if md.ShineStrength, err = r.ReadF32(); err != nil {
		return md, err
	}
	if md.Opacity, err = r.ReadF32(); err != nil {
		return md, err
	}
	if md.IOR, err = r.ReadF32(); err != nil {
		return md, err
	}
	if md.DoubleSided, err = readBool(r); err != nil {
		return md, err
	}
	if md.Wireframe, err = readBool(r); err != nil {
		return md, err
	}
	if _, err = r.ReadU8(); err != nil { // padding
		return md, err
	}
	if md.NumLayers, err = r.ReadU8(); err != nil {
		return md, err
	}
	if md.Name, err = readString(r); err != nil {
		return md, err
	}

	md.Layers = make([]MaterialLayer, 0, md.NumLayers)
	for i := uint8(0); i < md.NumLayers; i++ {
		var l MaterialLayer
		if l.Amount, err = r.ReadF32(); err != nil {
			return md, fmt.Errorf("layer %d: %w", i, err)
		}
		if l.UOffset, err = r.ReadF32(); err != nil {
			return md, fmt.Errorf("layer %d: %w", i, err)
		}
		if l.VOffset, err = r.ReadF32(); err != nil {
			return md, fmt.Errorf("layer %d: %w", i, err)
		}
		if l.UTiling, err = r.ReadF32(); err != nil {
			return md, fmt.Errorf("layer %d: %w", i, err)
		}
		if l.VTiling, err = r.ReadF32(); err != nil {
			return md, fmt.Errorf("layer %d: %w", i, err)
		}
		if l.RotationInRadians, err = r.ReadF32(); err != nil {
			return md, fmt.Errorf("layer %d: %w", i, err)
		}
		id, err2 := r.ReadI16()
		if err2 != nil {
			return md, fmt.Errorf("layer %d: %w", i, err2)
		}
		l.MaterialID = id
		if l.MapType, err = r.ReadU8(); err != nil {
			return md, fmt.Errorf("layer %d: %w", i, err)
		}
		if _, err = r.ReadU8(); err != nil { // padding
			return md, fmt.Errorf("layer %d padding: %w", i, err)
		}
		if l.Name, err = readString(r); err != nil {
			return md, fmt.Errorf("layer %d: %w", i, err)
		}
		md.Layers = append(md.Layers, l)
	}
	return md, nil
}

func readShaderMaterial(r *breader.Reader) (ShaderMaterial, error) {
	var sm ShaderMaterial
	var err error
	if sm.NumInt, err = r.ReadU32(); err != nil {
		return sm, err
	}
	if sm.NumFloat, err = r.ReadU32(); err != nil {
		return sm, err
	}
	if _, err = r.ReadU32(); err != nil { // padding
		return sm, err
	}
	if sm.NumBool, err = r.ReadU32(); err != nil {
		return sm, err
	}
	if sm.Flag, err = r.ReadU32(); err != nil {
		return sm, err
	}
	if sm.NumString, err = r.ReadU32(); err != nil {
		return sm, err
	}
	if sm.NameMaterial, err = readString(r); err != nil {
		return sm, err
	}
	if sm.NameShader, err = readString(r); err != nil {
		return sm, err
	}

	for i := uint32(0); i < sm.NumInt; i++ {
		name, err := readString(r)
		if err != nil {
			return sm, fmt.Errorf("int property %d: %w", i, err)
		}
		v, err := r.ReadI32()
		if err != nil {
			return sm, fmt.Errorf("int property %d: %w", i, err)
		}
		sm.IntProperties = append(sm.IntProperties, IntProperty{Name: name, Value: v})
	}

	for i := uint32(0); i < sm.NumFloat; i++ {
		name, err := readString(r)
		if err != nil {
			return sm, fmt.Errorf("float property %d: %w", i, err)
		}
		v, err := r.ReadF32()
		if err != nil {
			return sm, fmt.Errorf("float property %d: %w", i, err)
		}
		sm.FloatProperties = append(sm.FloatProperties, FloatProperty{Name: name, Value: v})
	}

	for i := uint32(0); i < sm.NumBool; i++ {
		name, err := readString(r)
		if err != nil {
			return sm, fmt.Errorf("bool property %d: %w", i, err)
		}
		v, err := r.ReadU8()
		if err != nil {
			return sm, fmt.Errorf("bool property %d: %w", i, err)
		}
		sm.BoolProperties = append(sm.BoolProperties, BoolProperty{Name: name, Value: v})
	}

	skip, err := r.ReadI32()
	if err != nil {
		return sm, fmt.Errorf("string property skip block: %w", err)
	}
	if skip > 0 {
		if _, err := r.ReadExact(int(skip)); err != nil {
			return sm, fmt.Errorf("string property skip block: %w", err)
		}
	}

	for i := uint32(0); i < sm.NumString; i++ {
		name, err := readString(r)
		if err != nil {
			return sm, fmt.Errorf("string property %d: %w", i, err)
		}
		value, err := readString(r)
		if err != nil {
			return sm, fmt.Errorf("string property %d: %w", i, err)
		}
		sm.StringProperties = append(sm.StringProperties, StringProperty{Name: name, Value: value})
	}

	return sm, nil
}

func readMesh(r *breader.Reader) (Mesh, error) {
	var m Mesh
	var err error
	if m.NodeID, err = r.ReadI32(); err != nil {
		return m, err
	}
	if m.NumInfluenceRanges, err = r.ReadU32(); err != nil {
		return m, err
	}
	if m.NumVertices, err = r.ReadU32(); err != nil {
		return m, err
	}
	if m.NumIndices, err = r.ReadU32(); err != nil {
		return m, err
	}
	if m.NumSubMeshes, err = r.ReadU32(); err != nil {
		return m, err
	}
	if m.NumAttributeLayers, err = r.ReadU32(); err != nil {
		return m, err
	}
	if m.CollisionMesh, err = readBool(r); err != nil {
		return m, err
	}
	for i := 0; i < 3; i++ {
		if _, err = r.ReadU8(); err != nil { // padding
			return m, err
		}
	}

	haveTangents := false
	for i := uint32(0); i < m.NumAttributeLayers; i++ {
		attr, err := readVerticesAttribute(r, m.NumVertices, haveTangents)
		if err != nil {
			return m, fmt.Errorf("attribute layer %d: %w", i, err)
		}
		if len(attr.Tangents) > 0 {
			haveTangents = true
		}
		m.AttributeLayers = append(m.AttributeLayers, attr)
	}

	for i := uint32(0); i < m.NumSubMeshes; i++ {
		sub, err := readSubMesh(r)
		if err != nil {
			return m, fmt.Errorf("sub mesh %d: %w", i, err)
		}
		m.SubMeshes = append(m.SubMeshes, sub)
	}

	return m, nil
}

func readVerticesAttribute(r *breader.Reader, numVertices uint32, haveTangents bool) (VerticesAttribute, error) {
	var a VerticesAttribute
	var err error
	if a.TypeID, err = r.ReadU32(); err != nil {
		return a, err
	}
	if a.AttributeSize, err = r.ReadU32(); err != nil {
		return a, err
	}
	if a.KeepOriginal, err = readBool(r); err != nil {
		return a, err
	}
	if a.ScaleFactor, err = readBool(r); err != nil {
		return a, err
	}
	for i := 0; i < 2; i++ {
		if _, err = r.ReadU8(); err != nil { // padding
			return a, err
		}
	}

	switch a.TypeID {
	case attrPosition:
		for i := uint32(0); i < numVertices; i++ {
			v, err := common.ReadVec3(r)
			if err != nil {
				return a, err
			}
			a.Positions = append(a.Positions, v)
		}
	case attrNormal:
		for i := uint32(0); i < numVertices; i++ {
			v, err := common.ReadVec3(r)
			if err != nil {
				return a, err
			}
			a.Normals = append(a.Normals, v)
		}
	case attrTangent:
		if !haveTangents {
			for i := uint32(0); i < numVertices; i++ {
				v, err := readVec4(r)
				if err != nil {
					return a, err
				}
				a.Tangents = append(a.Tangents, v)
			}
		} else {
			for i := uint32(0); i < numVertices; i++ {
				v, err := readVec4(r)
				if err != nil {
					return a, err
				}
				a.BiTangents = append(a.BiTangents, v)
			}
		}
	case attrUVCoord:
		for i := uint32(0); i < numVertices; i++ {
			v, err := readVec2(r)
			if err != nil {
				return a, err
			}
			a.UVs = append(a.UVs, v)
		}
	case attrColor32:
		for i := uint32(0); i < numVertices; i++ {
			v, err := readColor8(r)
			if err != nil {
				return a, err
			}
			a.Colors32 = append(a.Colors32, v)
		}
	case attrInfluenceRange:
		for i := uint32(0); i < numVertices; i++ {
			v, err := r.ReadU32()
			if err != nil {
				return a, err
			}
			a.Influences = append(a.Influences, v)
		}
	case attrColor128:
		for i := uint32(0); i < numVertices; i++ {
			v, err := common.ReadVec3(r)
			if err != nil {
				return a, err
			}
			a.Colors128 = append(a.Colors128, v)
		}
	}

	return a, nil
}

func readSubMesh(r *breader.Reader) (SubMesh, error) {
	var s SubMesh
	var err error
	if s.NumIndices, err = r.ReadU32(); err != nil {
		return s, err
	}
	if s.NumVertices, err = r.ReadU32(); err != nil {
		return s, err
	}
	if s.MaterialID, err = r.ReadI32(); err != nil {
		return s, err
	}
	if s.NumBones, err = r.ReadU32(); err != nil {
		return s, err
	}
	for i := uint32(0); i < s.NumIndices; i++ {
		v, err := r.ReadU32()
		if err != nil {
			return s, fmt.Errorf("relative index %d: %w", i, err)
		}
		s.RelativeIndices = append(s.RelativeIndices, v)
	}
	for i := uint32(0); i < s.NumBones; i++ {
		v, err := r.ReadU32()
		if err != nil {
			return s, fmt.Errorf("bone id %d: %w", i, err)
		}
		s.BoneIDs = append(s.BoneIDs, v)
	}
	return s, nil
}

func readSkinning(r *breader.Reader, file *File) (Skinning, error) {
	var s Skinning
	var err error
	if s.NodeID, err = r.ReadI32(); err != nil {
		return s, err
	}
	if s.NumLocalBones, err = r.ReadU32(); err != nil {
		return s, err
	}
	if s.NumInfluences, err = r.ReadU32(); err != nil {
		return s, err
	}
	if s.CollisionMesh, err = readBool(r); err != nil {
		return s, err
	}
	for i := 0; i < 3; i++ {
		if _, err = r.ReadU8(); err != nil { // padding
			return s, err
		}
	}

	for i := uint32(0); i < s.NumInfluences; i++ {
		weight, err := r.ReadF32()
		if err != nil {
			return s, fmt.Errorf("influence %d: %w", i, err)
		}
		boneID, err := r.ReadI32()
		if err != nil {
			return s, fmt.Errorf("influence %d: %w", i, err)
		}
		s.InfluenceData = append(s.InfluenceData, InfluenceData{Weight: weight, BoneID: boneID})
	}

	var numRanges uint32
	if len(file.Meshes) > 0 {
		numRanges = file.Meshes[len(file.Meshes)-1].NumInfluenceRanges
	}
	for i := uint32(0); i < numRanges; i++ {
		first, err := r.ReadI32()
		if err != nil {
			return s, fmt.Errorf("influence range %d: %w", i, err)
		}
		count, err := r.ReadU32()
		if err != nil {
			return s, fmt.Errorf("influence range %d: %w", i, err)
		}
		s.InfluenceRanges = append(s.InfluenceRanges, InfluenceRange{
			FirstInfluenceIndex: first, NumInfluences: count,
		})
	}

	return s, nil
}
