package contactsim

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/oomph-ac/contactsim/contact"
	"github.com/oomph-ac/contactsim/oerror"
	"github.com/oomph-ac/contactsim/settings"
	"github.com/oomph-ac/contactsim/worker"
	"github.com/oomph-ac/contactsim/world"
	"github.com/sirupsen/logrus"
)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.Level = logrus.PanicLevel
	return log
}

func shortSettings() settings.Settings {
	s := settings.DefaultSettings()
	s.Simulation.Steps = 120
	s.Force.Start, s.Force.End = 60, 80
	return s
}

func TestNewSceneBuildsReferenceScene(t *testing.T) {
	sc, err := NewScene(shortSettings(), quietLogger())
	if err != nil {
		t.Fatal(err)
	}
	defer sc.Close()

	bodies := sc.World().Bodies()
	if len(bodies) != 3 {
		t.Fatalf("expected 3 bodies, got %d", len(bodies))
	}
	if sc.Plane().ID() != bodies[0].ID() || sc.BoxA().ID() != bodies[1].ID() || sc.BoxB().ID() != bodies[2].ID() {
		t.Fatalf("unexpected body order %v", bodies)
	}
	if sc.Debugger() != nil {
		t.Fatalf("debugger must be disabled by default")
	}
}

func TestNewSceneRejectsInvalidSettings(t *testing.T) {
	s := shortSettings()
	s.Material.Restitution = 2
	if _, err := NewScene(s, quietLogger()); !errors.Is(err, oerror.ErrResourceCreation) {
		t.Fatalf("expected resource creation error, got %v", err)
	}

	s = shortSettings()
	s.Scene.BoxHalfExtents = []float32{1, 0, 1}
	if _, err := NewScene(s, quietLogger()); !errors.Is(err, oerror.ErrResourceCreation) {
		t.Fatalf("expected resource creation error, got %v", err)
	}
}

func TestSceneRun(t *testing.T) {
	sc, err := NewScene(shortSettings(), quietLogger())
	if err != nil {
		t.Fatal(err)
	}
	defer sc.Close()

	var out bytes.Buffer
	startX := sc.BoxA().Position().X()
	res, err := sc.Run(context.Background(), &out)
	if err != nil {
		t.Fatal(err)
	}
	if res.Steps != 120 || res.Contacts == 0 {
		t.Fatalf("unexpected result %+v", res)
	}
	if n := strings.Count(out.String(), "Contact! Impulse: "); uint64(n) != res.Contacts {
		t.Fatalf("expected %d reported contacts, got %d", res.Contacts, n)
	}
	if x := sc.BoxA().Position().X(); x <= startX {
		t.Fatalf("box A was not pushed: %v -> %v", startX, x)
	}
}

func TestDebuggerDoesNotAffectResults(t *testing.T) {
	run := func(debugger bool) uint64 {
		s := shortSettings()
		s.Debugger.Enabled = debugger
		// Nothing listens on the discard port.
		s.Debugger.Address = "127.0.0.1:9"
		sc, err := NewScene(s, quietLogger())
		if err != nil {
			t.Fatal(err)
		}
		defer sc.Close()
		res, err := sc.Run(context.Background(), nil)
		if err != nil {
			t.Fatal(err)
		}
		return res.Digest
	}
	if with, without := run(true), run(false); with != without {
		t.Fatalf("debugger changed the simulation: %x != %x", with, without)
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	sc, err := NewScene(shortSettings(), quietLogger())
	if err != nil {
		t.Fatal(err)
	}
	sc.Close()
	sc.Close()
	if len(sc.World().Bodies()) != 0 {
		t.Fatalf("expected bodies to be released")
	}
}

type blockingHandler struct {
	release chan struct{}
}

func (h blockingHandler) OnContact(contact.Batch) {
	<-h.release
}

func TestCloseAfterFetchTimeout(t *testing.T) {
	s := shortSettings()
	s.Simulation.FetchTimeout = "20ms"
	sc, err := NewScene(s, quietLogger())
	if err != nil {
		t.Fatal(err)
	}
	sc.Close()

	// Rebuild the world of the scene around a handler that never returns.
	release := make(chan struct{})
	defer close(release)
	pool, err := worker.New(1)
	if err != nil {
		t.Fatal(err)
	}
	w, err := world.Config{Gravity: mgl32.Vec3{0, -0.5, 0}, Pool: pool, Handler: blockingHandler{release: release}, Log: quietLogger()}.New()
	if err != nil {
		t.Fatal(err)
	}
	mat, _ := world.NewMaterial(0.5, 0.5, 0)
	box, _ := world.NewBox(mgl32.Vec3{1, 1, 1})
	plane, _ := w.AddBody(world.BodyDesc{Kind: world.Static, Shape: world.Plane{}, Material: mat})
	boxA, _ := w.AddBody(world.BodyDesc{Kind: world.Dynamic, Shape: box, Pose: world.PoseAt(mgl32.Vec3{0, 1, 0}), Material: mat})
	sc = &Scene{settings: s, log: quietLogger(), pool: pool, sink: contact.NewSink(0), world: w, plane: plane, boxA: boxA}

	if _, err := sc.Run(context.Background(), nil); !errors.Is(err, oerror.ErrSyncTimeout) {
		t.Fatalf("expected a synchronization timeout, got %v", err)
	}
	closed := make(chan struct{})
	go func() {
		sc.Close()
		close(closed)
	}()
	select {
	case <-closed:
	case <-time.After(5 * time.Second):
		t.Fatalf("close blocked on the abandoned step")
	}
}
