package settings

import (
	"errors"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/oomph-ac/contactsim/oerror"
	"github.com/pelletier/go-toml"
)

// Settings contains everything that can be configured for a simulation run.
type Settings struct {
	Simulation struct {
		// Steps is the amount of fixed steps performed.
		Steps uint64
		// TimeStep is the duration of a step in seconds.
		TimeStep float32
		// Workers is the amount of worker goroutines contact generation is spread across.
		Workers int
		Gravity []float32
		// FetchTimeout is the maximum duration of a single step, e.g. "5s". An empty string disables
		// the deadline.
		FetchTimeout     string
		SolverIterations int
		DisableSleeping  bool
	}
	Material struct {
		StaticFriction  float32
		DynamicFriction float32
		Restitution     float32
	}
	Scene struct {
		BoxHalfExtents []float32
		Density        float32
		BoxA           []float32
		BoxB           []float32
	}
	// Force is a force applied to box A for an inclusive range of steps.
	Force struct {
		Enabled bool
		Start   uint64
		End     uint64
		Vector  []float32
	}
	Contacts struct {
		// MaxPerStep is the amount of contact points kept per step. Zero keeps every point.
		MaxPerStep int
		// Report writes the impulse of every contact point to the console.
		Report bool
	}
	Debugger struct {
		Enabled    bool
		Address    string
		ServerName string
		Insecure   bool
	}
}

// DefaultSettings returns the settings of the reference scene: two unit boxes resting 10 units apart on
// a ground plane, the first of which is pushed along +X halfway through the run.
func DefaultSettings() Settings {
	s := Settings{}
	s.Simulation.Steps = 20000
	s.Simulation.TimeStep = 1.0 / 60.0
	s.Simulation.Workers = 2
	s.Simulation.Gravity = []float32{0, -0.5, 0}
	s.Simulation.FetchTimeout = "10s"
	s.Simulation.SolverIterations = 8

	s.Material.StaticFriction = 0.5
	s.Material.DynamicFriction = 0.5
	s.Material.Restitution = 0.6

	s.Scene.BoxHalfExtents = []float32{1, 1, 1}
	s.Scene.Density = 1
	s.Scene.BoxA = []float32{0, 1, 0}
	s.Scene.BoxB = []float32{10, 1, 0}

	s.Force.Enabled = true
	s.Force.Start = 10000
	s.Force.End = 10020
	s.Force.Vector = []float32{10, 0, 0}

	s.Contacts.Report = true

	s.Debugger.Address = "127.0.0.1:5425"
	s.Debugger.ServerName = "contactsim-pvd"
	return s
}

// Validate checks the settings for values a scene cannot be built from.
func (s Settings) Validate() error {
	sim := s.Simulation
	if sim.TimeStep <= 0 || math.IsInf(float64(sim.TimeStep), 0) || math.IsNaN(float64(sim.TimeStep)) {
		return invalid("time step must be positive, got %v", sim.TimeStep)
	}
	if sim.Workers <= 0 {
		return invalid("worker count must be positive, got %d", sim.Workers)
	}
	if _, err := s.FetchTimeout(); err != nil {
		return err
	}
	for name, v := range map[string][]float32{
		"gravity":          sim.Gravity,
		"box half extents": s.Scene.BoxHalfExtents,
		"box A position":   s.Scene.BoxA,
		"box B position":   s.Scene.BoxB,
	} {
		if _, err := Vec3(v); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	if s.Force.Enabled {
		if s.Force.Start > s.Force.End {
			return invalid("force window starts at step %d after it ends at step %d", s.Force.Start, s.Force.End)
		}
		if _, err := Vec3(s.Force.Vector); err != nil {
			return fmt.Errorf("force vector: %w", err)
		}
	}
	if s.Contacts.MaxPerStep < 0 {
		return invalid("max contacts per step must not be negative, got %d", s.Contacts.MaxPerStep)
	}
	if s.Debugger.Enabled && s.Debugger.Address == "" {
		return invalid("debugger enabled without an address")
	}
	return nil
}

// FetchTimeout parses the fetch timeout of the settings. Zero is returned if no timeout is set.
func (s Settings) FetchTimeout() (time.Duration, error) {
	if s.Simulation.FetchTimeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s.Simulation.FetchTimeout)
	if err != nil {
		return 0, invalid("invalid fetch timeout %q: %v", s.Simulation.FetchTimeout, err)
	}
	if d < 0 {
		return 0, invalid("fetch timeout must not be negative, got %v", d)
	}
	return d, nil
}

// Vec3 converts a list of three finite numbers into a vector.
func Vec3(v []float32) (mgl32.Vec3, error) {
	if len(v) != 3 {
		return mgl32.Vec3{}, invalid("expected 3 components, got %d", len(v))
	}
	for _, f := range v {
		if math.IsInf(float64(f), 0) || math.IsNaN(float64(f)) {
			return mgl32.Vec3{}, invalid("component %v is not finite", f)
		}
	}
	return mgl32.Vec3{v[0], v[1], v[2]}, nil
}

func invalid(format string, args ...any) error {
	return oerror.New(oerror.ErrResourceCreation, "invalid settings: "+format, args...)
}

// SaveDefault will create and save the default settings file. If the file already exists, it will return an error.
func SaveDefault(path string) error {
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		return errors.New("settings file already exists")
	}
	data, err := toml.Marshal(DefaultSettings())
	if err != nil {
		return fmt.Errorf("failed encoding default settings: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed creating settings file: %w", err)
	}
	return nil
}

// Load will load the settings from your settings file, and return an error if the file does not exist
// or holds invalid settings.
func Load(path string) (Settings, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return Settings{}, errors.New("settings file doesn't exist")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("error reading config: %w", err)
	}

	settings := DefaultSettings()
	if err = toml.Unmarshal(data, &settings); err != nil {
		return Settings{}, fmt.Errorf("error decoding config: %w", err)
	}
	return settings, settings.Validate()
}
