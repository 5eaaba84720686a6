package models

import (
	"fmt"
	"math"
	"strings"

	"github.com/GlenKelley/go-collada"
	glm "github.com/Jragonmiris/mathgl"
)

// Room is one scoring region of the house floor plan, as an XY polygon in
// world meters.
type Room struct {
	Name    string
	Polygon [][2]float64
}

// LoadFloorPlan reads a COLLADA floor plan and returns one polygon per scene
// node whose name starts with "ROOM", in document order. Room meshes are
// authored as axis-aligned floor slabs, so each polygon is the rectangle of
// the slab's XY bounds after node transforms and up-axis conversion.
func LoadFloorPlan(filename string) ([]Room, error) {
	doc, err := collada.LoadDocument(filename)
	if err != nil {
		return nil, fmt.Errorf("floorplan: load %s: %w", filename, err)
	}
	index, err := newFloorPlanIndex(doc)
	if err != nil {
		return nil, fmt.Errorf("floorplan: index %s: %w", filename, err)
	}

	base := glm.Ident4d()
	switch doc.Asset.UpAxis {
	case collada.Xup:
		base = glm.HomogRotate3DZd(-90)
	case collada.Yup:
		base = glm.HomogRotate3DXd(90)
	case collada.Zup:
	}
	unit := doc.Asset.Unit.Meter
	if unit == 0 {
		unit = 1
	}

	var rooms []Room
	if index.visualScene == nil {
		return rooms, nil
	}
	for _, node := range index.visualScene.Node {
		collectRooms(index, node, base, unit, &rooms)
	}
	return rooms, nil
}

func collectRooms(index *floorPlanIndex, node *collada.Node, parent glm.Mat4d, unit float64, rooms *[]Room) {
	transform := parent.Mul4(nodeTransform(node))
	if strings.HasPrefix(strings.ToUpper(node.Name), "ROOM") {
		if poly, ok := roomBounds(index, node, transform, unit); ok {
			*rooms = append(*rooms, Room{Name: node.Name, Polygon: poly})
		}
	}
	for _, child := range node.Node {
		collectRooms(index, child, transform, unit, rooms)
	}
}

func roomBounds(index *floorPlanIndex, node *collada.Node, transform glm.Mat4d, unit float64) ([][2]float64, bool) {
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	found := false
	for _, inst := range node.InstanceGeometry {
		id, ok := inst.Url.Id()
		if !ok {
			continue
		}
		for i := 0; i+2 < len(index.positions[id]); i += 3 {
			p := index.positions[id]
			v := transform.Mul4x1(glm.Vec4d{p[i], p[i+1], p[i+2], 1})
			x, y := v[0]*unit, v[1]*unit
			minX, minY = math.Min(minX, x), math.Min(minY, y)
			maxX, maxY = math.Max(maxX, x), math.Max(maxY, y)
			found = true
		}
	}
	if !found {
		return nil, false
	}
	return [][2]float64{{minX, minY}, {maxX, minY}, {maxX, maxY}, {minX, maxY}}, true
}

func nodeTransform(node *collada.Node) glm.Mat4d {
	transform := glm.Ident4d()
	for _, matrix := range node.Matrix {
		v := matrix.F()
		transform = transform.Mul4(glm.Mat4d{
			v[0], v[1], v[2], v[3],
			v[4], v[5], v[6], v[7],
			v[8], v[9], v[10], v[11],
			v[12], v[13], v[14], v[15],
		}.Transpose())
	}
	for _, translate := range node.Translate {
		v := translate.F()
		transform = transform.Mul4(glm.Translate3Dd(v[0], v[1], v[2]))
	}
	for _, rotation := range node.Rotate {
		v := rotation.F()
		transform = transform.Mul4(glm.HomogRotate3Dd(v[3]*math.Pi/180, glm.Vec3d{v[0], v[1], v[2]}))
	}
	for _, scale := range node.Scale {
		v := scale.F()
		transform = transform.Mul4(glm.Scale3Dd(v[0], v[1], v[2]))
	}
	return transform
}

type floorPlanIndex struct {
	ids         map[collada.Id]interface{}
	positions   map[collada.Id][]float64 // geometry id -> POSITION floats
	visualScene *collada.VisualScene
}

func newFloorPlanIndex(doc *collada.Collada) (*floorPlanIndex, error) {
	index := &floorPlanIndex{
		ids:       map[collada.Id]interface{}{},
		positions: map[collada.Id][]float64{},
	}

	for _, lib := range doc.LibraryVisualScenes {
		for _, vs := range lib.VisualScene {
			if len(vs.Id) != 0 {
				index.ids[vs.Id] = vs
			}
		}
	}
	for _, lib := range doc.LibraryGeometries {
		for _, g := range lib.Geometry {
			if len(g.Id) == 0 || g.Mesh == nil {
				continue
			}
			data := map[collada.Id][]float64{}
			for _, source := range g.Mesh.Source {
				data[source.Id] = source.FloatArray.F()
			}
			for _, input := range g.Mesh.Vertices.Input {
				if input.Semantic != "POSITION" {
					continue
				}
				if id, ok := input.Source.Id(); ok {
					index.positions[g.Id] = data[id]
				}
			}
		}
	}

	ivs := doc.Scene.InstanceVisualScene
	if ivs == nil {
		return index, nil
	}
	id, ok := ivs.Url.Id()
	if !ok {
		return index, nil
	}
	vs, ok := index.ids[id].(*collada.VisualScene)
	if !ok {
		return nil, fmt.Errorf("visual scene %q not found", id)
	}
	index.visualScene = vs
	return index, nil
}
