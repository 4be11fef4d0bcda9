package simulation

import (
	"bytes"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/oomph-ac/contactsim/contact"
)

func TestConsoleReporterFormat(t *testing.T) {
	var buf bytes.Buffer
	r := ConsoleReporter{W: &buf}
	err := r.Report(3, []contact.Event{
		{Step: 3, Impulse: mgl32.Vec3{0, 0.0166667, 0}},
		{Step: 3, Impulse: mgl32.Vec3{1, -2, 0.5}},
	})
	if err != nil {
		t.Fatal(err)
	}
	want := "Contact! Impulse: <0.000000, 0.016667, 0.000000>\n" +
		"Contact! Impulse: <1.000000, -2.000000, 0.500000>\n\n"
	if got := buf.String(); got != want {
		t.Fatalf("unexpected output:\n%q\nwant:\n%q", got, want)
	}
}
