package simulation

import (
	"io"
	"strings"

	"github.com/oomph-ac/contactsim/contact"
	"github.com/oomph-ac/contactsim/omath"
)

// Reporter receives the contact events of every step that produced at least one.
type Reporter interface {
	Report(step uint64, events []contact.Event) error
}

// ConsoleReporter writes the impulse of every event on its own line, followed by a blank line.
type ConsoleReporter struct {
	W io.Writer
}

// Report ...
func (r ConsoleReporter) Report(_ uint64, events []contact.Event) error {
	var sb strings.Builder
	for _, ev := range events {
		sb.WriteString("Contact! Impulse: ")
		sb.WriteString(omath.FormatVec32(ev.Impulse))
		sb.WriteByte('\n')
	}
	sb.WriteByte('\n')
	_, err := io.WriteString(r.W, sb.String())
	return err
}

// NopReporter discards every report.
type NopReporter struct{}

// Report ...
func (NopReporter) Report(uint64, []contact.Event) error {
	return nil
}
