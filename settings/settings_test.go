package settings

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/oomph-ac/contactsim/oerror"
)

func TestDefaultSettingsRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := SaveDefault(path); err != nil {
		t.Fatal(err)
	}
	if err := SaveDefault(path); err == nil {
		t.Fatalf("expected second save to fail")
	}
	s, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(s, DefaultSettings()) {
		t.Fatalf("loaded settings differ from defaults:\n%+v\n%+v", s, DefaultSettings())
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Fatalf("expected error loading missing file")
	}
}

func TestLoadRejectsInvalidSettings(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[Simulation]\nWorkers = 0\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); !errors.Is(err, oerror.ErrResourceCreation) {
		t.Fatalf("expected invalid settings error, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	for name, tc := range map[string]func(s *Settings){
		"zero time step":      func(s *Settings) { s.Simulation.TimeStep = 0 },
		"no workers":          func(s *Settings) { s.Simulation.Workers = 0 },
		"short gravity":       func(s *Settings) { s.Simulation.Gravity = []float32{0, -1} },
		"bad timeout":         func(s *Settings) { s.Simulation.FetchTimeout = "soon" },
		"negative timeout":    func(s *Settings) { s.Simulation.FetchTimeout = "-1s" },
		"inverted window":     func(s *Settings) { s.Force.Start, s.Force.End = 10, 9 },
		"negative max":        func(s *Settings) { s.Contacts.MaxPerStep = -1 },
		"debugger no address": func(s *Settings) { s.Debugger.Enabled, s.Debugger.Address = true, "" },
	} {
		s := DefaultSettings()
		tc(&s)
		if err := s.Validate(); !errors.Is(err, oerror.ErrResourceCreation) {
			t.Errorf("%s: expected invalid settings error, got %v", name, err)
		}
	}
	if err := DefaultSettings().Validate(); err != nil {
		t.Fatalf("default settings are invalid: %v", err)
	}
}

func TestFetchTimeout(t *testing.T) {
	s := DefaultSettings()
	if d, err := s.FetchTimeout(); err != nil || d != 10*time.Second {
		t.Fatalf("expected 10s, got %v (%v)", d, err)
	}
	s.Simulation.FetchTimeout = ""
	if d, err := s.FetchTimeout(); err != nil || d != 0 {
		t.Fatalf("expected no timeout, got %v (%v)", d, err)
	}
}
