package importer

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
)

// decodeGLTF reads a .gltf or .glb document.
// Each primitive becomes one mesh. Texture coordinates are converted to a
// bottom-left origin so that FlipUVs treats every format alike.
func decodeGLTF(path string) (*Scene, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return sceneFromGLTF(doc, name)
}

func sceneFromGLTF(doc *gltf.Document, name string) (*Scene, error) {
	scene := &Scene{}
	g := &gltfReader{doc: doc, scene: scene, imageRefs: make(map[int]string)}

	for i, gm := range doc.Materials {
		scene.Materials = append(scene.Materials, g.material(i, gm))
	}

	// meshPrims[i] lists the scene mesh indices built from glTF mesh i
	meshPrims := make([][]int, len(doc.Meshes))
	for mi, gm := range doc.Meshes {
		for pi, prim := range gm.Primitives {
			if prim == nil {
				continue
			}
			m, err := g.primitive(gm.Name, pi, prim)
			if err != nil {
				return nil, fmt.Errorf("mesh %d primitive %d: %w", mi, pi, err)
			}
			meshPrims[mi] = append(meshPrims[mi], len(scene.Meshes))
			scene.Meshes = append(scene.Meshes, m)
		}
	}

	scene.Root = &Node{Name: name}
	for _, idx := range g.rootNodes() {
		if n := g.node(idx, meshPrims, make(map[int]bool)); n != nil {
			scene.Root.AddChild(n)
		}
	}
	return scene, nil
}

type gltfReader struct {
	doc   *gltf.Document
	scene *Scene
	// imageRefs caches the material reference produced for each image index
	imageRefs map[int]string
}

func (g *gltfReader) material(idx int, gm *gltf.Material) *Material {
	if gm == nil {
		return NewMaterial(fmt.Sprintf("material_%d", idx))
	}
	mat := NewMaterial(gm.Name)
	if pbr := gm.PBRMetallicRoughness; pbr != nil && pbr.BaseColorTexture != nil {
		if ref, ok := g.textureRef(pbr.BaseColorTexture.Index); ok {
			mat.AddTexture(TextureBaseColor, ref)
		}
	}
	if gm.NormalTexture != nil && gm.NormalTexture.Index != nil {
		if ref, ok := g.textureRef(*gm.NormalTexture.Index); ok {
			mat.AddTexture(TextureNormal, ref)
		}
	}
	if gm.EmissiveTexture != nil {
		if ref, ok := g.textureRef(gm.EmissiveTexture.Index); ok {
			mat.AddTexture(TextureEmissive, ref)
		}
	}
	return mat
}

// textureRef returns the material reference for a glTF texture: the image URI
// for external files, or "*N" for images stored in the document.
func (g *gltfReader) textureRef(texIdx int) (string, bool) {
	if texIdx < 0 || texIdx >= len(g.doc.Textures) {
		return "", false
	}
	tex := g.doc.Textures[texIdx]
	if tex == nil || tex.Source == nil || *tex.Source < 0 || *tex.Source >= len(g.doc.Images) {
		return "", false
	}
	imgIdx := *tex.Source
	if ref, ok := g.imageRefs[imgIdx]; ok {
		return ref, true
	}

	img := g.doc.Images[imgIdx]
	if img == nil {
		return "", false
	}

	var ref string
	switch {
	case img.BufferView != nil:
		bv, err := g.bufferView(*img.BufferView)
		if err != nil {
			return "", false
		}
		data, err := modeler.ReadBufferView(g.doc, bv)
		if err != nil {
			return "", false
		}
		ref = g.embed(img, data)
	case img.IsEmbeddedResource():
		data, err := img.MarshalData()
		if err != nil {
			return "", false
		}
		ref = g.embed(img, data)
	case img.URI != "":
		ref = img.URI
		if unescaped, err := url.PathUnescape(img.URI); err == nil {
			ref = unescaped
		}
	default:
		return "", false
	}

	g.imageRefs[imgIdx] = ref
	return ref, true
}

func (g *gltfReader) embed(img *gltf.Image, data []byte) string {
	idx := len(g.scene.Textures)
	g.scene.Textures = append(g.scene.Textures, EmbeddedTexture{
		Name:     img.Name,
		MimeType: img.MimeType,
		Data:     data,
	})
	return EmbeddedRef(idx)
}

func (g *gltfReader) primitive(meshName string, primIdx int, prim *gltf.Primitive) (*Mesh, error) {
	acr, err := g.attribute(prim, "POSITION")
	if err != nil {
		return nil, fmt.Errorf("positions: %w", err)
	}
	positions, err := modeler.ReadPosition(g.doc, acr, nil)
	if err != nil {
		return nil, fmt.Errorf("positions: %w", err)
	}

	m := &Mesh{
		Name:          fmt.Sprintf("%s_p%d", meshName, primIdx),
		Positions:     positions,
		MaterialIndex: -1,
	}
	if prim.Material != nil && *prim.Material >= 0 && *prim.Material < len(g.scene.Materials) {
		m.MaterialIndex = *prim.Material
	}

	// Broken optional attributes are dropped rather than failing the mesh
	if acr, err := g.attribute(prim, "NORMAL"); err == nil {
		normals, err := modeler.ReadNormal(g.doc, acr, nil)
		if err == nil && len(normals) == len(positions) {
			m.Normals = normals
		}
	}
	if acr, err := g.attribute(prim, "TEXCOORD_0"); err == nil {
		uvs, err := modeler.ReadTextureCoord(g.doc, acr, nil)
		if err == nil && len(uvs) == len(positions) {
			for i := range uvs {
				uvs[i][1] = 1 - uvs[i][1]
			}
			m.TexCoords = uvs
		}
	}

	var indices []uint32
	if prim.Indices != nil {
		acr, err := g.accessor(*prim.Indices)
		if err != nil {
			return nil, fmt.Errorf("indices: %w", err)
		}
		indices, err = modeler.ReadIndices(g.doc, acr, nil)
		if err != nil {
			return nil, fmt.Errorf("indices: %w", err)
		}
	} else {
		indices = make([]uint32, len(positions))
		for i := range indices {
			indices[i] = uint32(i)
		}
	}

	m.Faces = primitiveFaces(prim.Mode, indices)
	return m, nil
}

func (g *gltfReader) attribute(prim *gltf.Primitive, name string) (*gltf.Accessor, error) {
	idx, ok := prim.Attributes[name]
	if !ok {
		return nil, fmt.Errorf("no %s attribute", name)
	}
	return g.accessor(idx)
}

// accessor returns accessor idx after checking that every index and offset
// the reader will follow stays inside the document.
func (g *gltfReader) accessor(idx int) (*gltf.Accessor, error) {
	if idx < 0 || idx >= len(g.doc.Accessors) || g.doc.Accessors[idx] == nil {
		return nil, fmt.Errorf("accessor %d out of range", idx)
	}
	acr := g.doc.Accessors[idx]
	if acr.ByteOffset < 0 {
		return nil, fmt.Errorf("accessor %d: negative byte offset", idx)
	}
	if acr.BufferView != nil {
		bv, err := g.bufferView(*acr.BufferView)
		if err != nil {
			return nil, fmt.Errorf("accessor %d: %w", idx, err)
		}
		if acr.ByteOffset > bv.ByteLength {
			return nil, fmt.Errorf("accessor %d: byte offset %d past buffer view end", idx, acr.ByteOffset)
		}
	}
	if sp := acr.Sparse; sp != nil {
		for _, view := range []int{sp.Indices.BufferView, sp.Values.BufferView} {
			if _, err := g.bufferView(view); err != nil {
				return nil, fmt.Errorf("accessor %d sparse: %w", idx, err)
			}
		}
	}
	return acr, nil
}

func (g *gltfReader) bufferView(idx int) (*gltf.BufferView, error) {
	if idx < 0 || idx >= len(g.doc.BufferViews) || g.doc.BufferViews[idx] == nil {
		return nil, fmt.Errorf("buffer view %d out of range", idx)
	}
	bv := g.doc.BufferViews[idx]
	if bv.ByteOffset < 0 || bv.ByteLength < 0 {
		return nil, fmt.Errorf("buffer view %d: negative range", idx)
	}
	return bv, nil
}

// primitiveFaces turns a glTF index stream into faces according to its mode.
func primitiveFaces(mode gltf.PrimitiveMode, idx []uint32) []Face {
	var faces []Face
	switch mode {
	case gltf.PrimitivePoints:
		for _, i := range idx {
			faces = append(faces, Face{i})
		}
	case gltf.PrimitiveLines:
		for i := 0; i+1 < len(idx); i += 2 {
			faces = append(faces, Face{idx[i], idx[i+1]})
		}
	case gltf.PrimitiveTriangleStrip:
		for i := 0; i+2 < len(idx); i++ {
			if i%2 == 0 {
				faces = append(faces, Face{idx[i], idx[i+1], idx[i+2]})
			} else {
				faces = append(faces, Face{idx[i+1], idx[i], idx[i+2]})
			}
		}
	case gltf.PrimitiveTriangleFan:
		for i := 1; i+1 < len(idx); i++ {
			faces = append(faces, Face{idx[0], idx[i], idx[i+1]})
		}
	default:
		for i := 0; i+2 < len(idx); i += 3 {
			faces = append(faces, Face{idx[i], idx[i+1], idx[i+2]})
		}
	}
	return faces
}

// rootNodes returns the top-level node indices: the default scene's nodes, or
// every node that no other node lists as a child.
func (g *gltfReader) rootNodes() []int {
	doc := g.doc
	if doc.Scene != nil && *doc.Scene >= 0 && *doc.Scene < len(doc.Scenes) && doc.Scenes[*doc.Scene] != nil {
		return doc.Scenes[*doc.Scene].Nodes
	}
	hasParent := make([]bool, len(doc.Nodes))
	for _, n := range doc.Nodes {
		if n == nil {
			continue
		}
		for _, c := range n.Children {
			if c >= 0 && c < len(hasParent) {
				hasParent[c] = true
			}
		}
	}
	var roots []int
	for i := range doc.Nodes {
		if !hasParent[i] {
			roots = append(roots, i)
		}
	}
	return roots
}

// node converts glTF node idx and its subtree. onPath guards against cycles
// in malformed documents.
func (g *gltfReader) node(idx int, meshPrims [][]int, onPath map[int]bool) *Node {
	if idx < 0 || idx >= len(g.doc.Nodes) || onPath[idx] || g.doc.Nodes[idx] == nil {
		return nil
	}
	onPath[idx] = true
	defer delete(onPath, idx)

	gn := g.doc.Nodes[idx]
	n := &Node{Name: gn.Name}
	if n.Name == "" {
		n.Name = fmt.Sprintf("node_%d", idx)
	}
	if gn.Mesh != nil && *gn.Mesh >= 0 && *gn.Mesh < len(meshPrims) {
		n.Meshes = append(n.Meshes, meshPrims[*gn.Mesh]...)
	}
	for _, c := range gn.Children {
		if child := g.node(c, meshPrims, onPath); child != nil {
			n.AddChild(child)
		}
	}
	return n
}
