package models

import "github.com/ianremmler/ode"

// WallSpec is an axis-aligned static wall box, sizes and center in meters.
type WallSpec struct {
	Center []float64
	Size   []float64
}

// Arena owns the static collision geometry: the ground plane and the house
// walls. Pads and rooms are scoring regions only and carry no geometry.
type Arena struct {
	ground ode.Geom
	walls  []ode.Geom
}

// NewArena ...
func NewArena(ctx *Context, walls []WallSpec) *Arena {
	a := &Arena{ground: ctx.Space.NewPlane(ode.V4(0, 0, 1, 0))}
	for _, w := range walls {
		geom := ctx.Space.NewBox(ode.V3(w.Size[0], w.Size[1], w.Size[2]))
		geom.SetPosition(ode.V3(w.Center[0], w.Center[1], w.Center[2]))
		a.walls = append(a.walls, geom)
	}
	return a
}

// Ground ...
func (a *Arena) Ground() ode.Geom {
	return a.ground
}
