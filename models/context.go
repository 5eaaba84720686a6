package models

import (
	"sync"
	"time"

	"github.com/ianremmler/ode"
)

func init() {
	ode.Init(0, ode.AllAFlag)
}

// Plugin is the physics-plugin hook contract. Init runs once at
// registration, before any robot exists. Step runs before every world step
// and must re-resolve anything it tracks. Collide is consulted per candidate
// geom pair; a nonzero return means the plugin handled the pair and no
// default contact is created. Cleanup runs once at teardown.
type Plugin interface {
	Init(ctx *Context)
	Step(ctx *Context)
	Collide(g1, g2 ode.Geom) int
	Cleanup(ctx *Context)
}

type defEntry struct {
	body  ode.Body
	world ode.World
}

// Context ...
type Context struct {
	sync.Mutex
	ode.World
	Space      ode.HashSpace
	JointGroup ode.JointGroup

	defMu   sync.RWMutex
	defs    map[string]defEntry
	plugins []Plugin
}

// NewContext ...
func NewContext() *Context {
	return &Context{
		World:      ode.NewWorld(),
		Space:      ode.NilSpace().NewHashSpace(),
		JointGroup: ode.NewJointGroup(10000),
		defs:       map[string]defEntry{},
	}
}

// RegisterPlugin adds a plugin and runs its Init hook.
func (ctx *Context) RegisterPlugin(p Plugin) {
	ctx.plugins = append(ctx.plugins, p)
	p.Init(ctx)
}

// ClosePlugins runs every plugin's Cleanup hook.
func (ctx *Context) ClosePlugins() {
	for _, p := range ctx.plugins {
		p.Cleanup(ctx)
	}
}

// RegisterDEF binds a definition name to a body owned by this context's
// world. Re-registering a name replaces the previous binding.
func (ctx *Context) RegisterDEF(name string, body ode.Body) {
	ctx.defMu.Lock()
	defer ctx.defMu.Unlock()
	ctx.defs[name] = defEntry{body: body, world: ctx.World}
}

// UnregisterDEF ...
func (ctx *Context) UnregisterDEF(name string) {
	ctx.defMu.Lock()
	defer ctx.defMu.Unlock()
	delete(ctx.defs, name)
}

// BodyFromDEF returns the body bound to name and its owning world.
// Both are zero when the name is unbound.
func (ctx *Context) BodyFromDEF(name string) (ode.Body, ode.World) {
	ctx.defMu.RLock()
	defer ctx.defMu.RUnlock()
	e := ctx.defs[name]
	return e.body, e.world
}

// PluginCollide offers a geom pair to each plugin in registration order;
// the first nonzero return wins.
func (ctx *Context) PluginCollide(g1, g2 ode.Geom) int {
	for _, p := range ctx.plugins {
		if n := p.Collide(g1, g2); n != 0 {
			return n
		}
	}
	return 0
}

// Iter advances the simulation by step: plugin step hooks, collision
// detection, one quick step, then contact cleanup.
func (ctx *Context) Iter(step time.Duration, callback ode.NearCallback) {
	ctx.Lock()
	defer ctx.Unlock()
	for _, p := range ctx.plugins {
		p.Step(ctx)
	}
	ctx.Space.Collide(ctx, callback)
	ctx.World.QuickStep(float64(step) / float64(time.Second))
	ctx.JointGroup.Empty()
}
