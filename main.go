package main

import (
	"flag"
	"fmt"
	"net"
	"net/http"
	"net/rpc"
	"net/rpc/jsonrpc"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/ianremmler/ode"
	"go.uber.org/zap"
	"golang.org/x/net/websocket"

	"github.com/smart-home-league/simulation/config"
	"github.com/smart-home-league/simulation/dashboard"
	"github.com/smart-home-league/simulation/models"
	"github.com/smart-home-league/simulation/plane2d"
	"github.com/smart-home-league/simulation/protocol"
	"github.com/smart-home-league/simulation/supervisor"
)

// World is the JSON-RPC service robot controllers talk to over the
// websocket endpoint.
type World struct {
	sup     *supervisor.Supervisor
	profile config.Profile
	log     *zap.Logger

	mu          sync.Mutex
	controllers map[string]*time.Timer
}

// Join ...
func (w *World) Join(name string, rep *protocol.Profile) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.controllers[name] != nil {
		return fmt.Errorf("duplicated name: %s", name)
	}
	w.controllers[name] = time.AfterFunc(5*time.Second, func() {
		w.gc(name)
	})
	*rep = protocol.Profile{
		World: protocol.WorldProfile{
			Gravity:    w.profile.Gravity,
			TimeStepMs: w.profile.TimeStepMs,
			Mu:         w.profile.Mu,
		},
		Robot:     w.profile.Robot,
		Subleague: w.profile.Subleague,
	}
	w.log.Info("controller joined", zap.String("name", name))
	return nil
}

func (w *World) gc(name string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if tm := w.controllers[name]; tm != nil {
		tm.Stop()
	}
	delete(w.controllers, name)
	w.sup.WithRobot(func(robot *models.Robot) {
		robot.SetVelocities(0, 0)
	})
}

// Bye ...
func (w *World) Bye(name string, rep *string) error {
	w.gc(name)
	return nil
}

// Update applies one controller tick and returns the robot's sensor frame.
func (w *World) Update(req *protocol.Input, rep *protocol.Output) error {
	w.mu.Lock()
	if tm := w.controllers[req.Name]; tm != nil {
		tm.Reset(5 * time.Second)
	}
	w.mu.Unlock()

	rep.Running = w.sup.Running()
	rep.Remaining = w.sup.Remaining()
	rep.Battery = w.sup.Battery()

	// WithRobot holds the physics lock across the whole exchange, so the
	// step loop cannot destroy the robot out from under us mid-frame.
	w.sup.WithRobot(func(robot *models.Robot) {
		robot.SetVelocities(req.LeftVelocity, req.RightVelocity)
		robot.SetLED(req.LED)
		if req.CustomData != "" {
			robot.SetCustomData(req.CustomData)
		}
		left, right := robot.Encoders()
		bumperLeft, bumperRight := robot.Bumpers()
		rep.Pose = protocol.Pose{Position: robot.Position(), Yaw: robot.Yaw()}
		rep.Sensors = protocol.Sensors{
			LeftEncoder:  left,
			RightEncoder: right,
			BumperLeft:   bumperLeft,
			BumperRight:  bumperRight,
		}
		rep.CustomData = robot.CustomData()
	})
	return nil
}

func (w *World) handle(ws *websocket.Conn) {
	w.log.Info("connect", zap.String("addr", ws.Request().RemoteAddr))
	defer w.log.Info("disconnect", zap.String("addr", ws.Request().RemoteAddr))
	jsonrpc.ServeConn(ws)
}

func (w *World) callback(data interface{}, obj1, obj2 ode.Geom) {
	ctx := data.(*models.Context)
	body1, body2 := obj1.Body(), obj2.Body()
	if body1 != 0 && body2 != 0 && body1.Connected(body2) {
		return
	}
	if ctx.PluginCollide(obj1, obj2) != 0 {
		return
	}
	cts := obj1.Collide(obj2, 1, 0)
	if len(cts) == 0 {
		return
	}
	if robot := w.sup.Robot(); robot != nil {
		rb := robot.Body()
		if body1 == rb || body2 == rb {
			robot.MarkContact(cts[0].Pos)
		}
	}
	contact := ode.NewContact()
	contact.Surface.Mode = 0
	contact.Surface.Mu = w.profile.Mu
	contact.Surface.Mu2 = 0
	contact.Geom = cts[0]
	ct := ctx.World.NewContactJoint(ctx.JointGroup, contact)
	ct.Attach(body1, body2)
}

func wallSpecs(walls []config.Wall) []models.WallSpec {
	specs := make([]models.WallSpec, 0, len(walls))
	for _, w := range walls {
		specs = append(specs, models.WallSpec{Center: w.Center, Size: w.Size})
	}
	return specs
}

func main() {
	addr := flag.String("addr", "0.0.0.0:8080", "listen address")
	profilePath := flag.String("profile", "world.yaml", "world profile path")
	assets := flag.String("assets", "assets", "dashboard assets directory")
	flag.Parse()

	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	defer logger.Sync()

	profile, err := config.Load(*profilePath)
	if err != nil {
		logger.Warn("profile not loaded, using defaults", zap.Error(err))
	}

	l, err := net.Listen("tcp", *addr)
	if err != nil {
		logger.Fatal("listen", zap.Error(err))
	}

	ctx := models.NewContext()
	ctx.World.SetGravity(ode.V3(0, 0, profile.Gravity))
	ctx.World.SetAutoDisable(false)
	models.NewArena(ctx, wallSpecs(profile.Walls))

	dash := dashboard.NewState()
	sup, err := supervisor.New(ctx, profile, dash, logger.Named("supervisor"))
	if err != nil {
		logger.Fatal("supervisor", zap.Error(err))
	}
	ctx.RegisterPlugin(plane2d.NewHandler())

	world := &World{
		sup:         sup,
		profile:     profile,
		log:         logger,
		controllers: map[string]*time.Timer{},
	}

	if watcher, err := config.NewWatcher(*profilePath); err != nil {
		logger.Warn("profile watch disabled", zap.Error(err))
	} else {
		go func() {
			for path := range watcher.Events {
				next, err := config.Load(path)
				if err != nil {
					logger.Warn("profile reload failed", zap.Error(err))
					continue
				}
				sup.SetProfile(next)
			}
		}()
	}

	step := time.Duration(profile.TimeStepMs) * time.Millisecond
	go func() {
		for {
			time.Sleep(step)
			ctx.Iter(step, world.callback)
			sup.Step(step.Seconds())
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sig
		ctx.ClosePlugins()
		os.Exit(0)
	}()

	rpc.Register(world)
	http.Handle("/ws", websocket.Handler(world.handle))
	http.Handle("/dashboard/ws", dashboard.NewServer(dash, logger.Named("dashboard")).Handler())
	http.Handle("/", http.FileServer(http.Dir(*assets)))
	logger.Info("listening", zap.String("addr", *addr))
	if err := http.Serve(l, nil); err != nil {
		logger.Fatal("serve", zap.Error(err))
	}
}
