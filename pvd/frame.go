package pvd

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/klauspost/compress/s2"
	"github.com/oomph-ac/contactsim/contact"
	"github.com/oomph-ac/contactsim/internal"
	"github.com/oomph-ac/contactsim/world"
)

// FrameVersion is written at the start of every frame. It is bumped whenever the layout changes.
const FrameVersion uint16 = 1

// BodyState is the pose of a body in a frame.
type BodyState struct {
	ID          uint32
	Position    mgl32.Vec3
	Orientation mgl32.Quat
}

// Frame is the state of a world after a single step.
type Frame struct {
	Step     uint64
	Bodies   []BodyState
	Contacts []contact.Event
}

type wireBody struct {
	ID          uint32
	Position    [3]float32
	Orientation [4]float32
}

type wireContact struct {
	A, B       uint32
	Position   [3]float32
	Impulse    [3]float32
	Separation float32
}

// EncodeFrame encodes the state of the bodies and the contacts of a step into a compressed frame.
func EncodeFrame(step uint64, bodies []*world.Body, events []contact.Event) []byte {
	buf := internal.Buffer()
	defer internal.ReleaseBuffer(buf)

	binary.Write(buf, binary.LittleEndian, FrameVersion)
	binary.Write(buf, binary.LittleEndian, step)
	binary.Write(buf, binary.LittleEndian, uint32(len(bodies)))
	for _, b := range bodies {
		pose := b.Pose()
		binary.Write(buf, binary.LittleEndian, wireBody{
			ID:          uint32(b.ID()),
			Position:    pose.Position,
			Orientation: [4]float32{pose.Orientation.V[0], pose.Orientation.V[1], pose.Orientation.V[2], pose.Orientation.W},
		})
	}
	binary.Write(buf, binary.LittleEndian, uint32(len(events)))
	for _, ev := range events {
		binary.Write(buf, binary.LittleEndian, wireContact{A: ev.A, B: ev.B, Position: ev.Position, Impulse: ev.Impulse, Separation: ev.Separation})
	}
	return s2.Encode(nil, buf.Bytes())
}

// DecodeFrame decodes a frame produced by EncodeFrame.
func DecodeFrame(dat []byte) (Frame, error) {
	raw, err := s2.Decode(nil, dat)
	if err != nil {
		return Frame{}, fmt.Errorf("decompress frame: %w", err)
	}
	r := bytes.NewReader(raw)

	var (
		version uint16
		f       Frame
		n       uint32
	)
	if err := binary.Read(r, binary.LittleEndian, &version); err != nil {
		return Frame{}, fmt.Errorf("read frame version: %w", err)
	}
	if version != FrameVersion {
		return Frame{}, fmt.Errorf("unsupported frame version %d", version)
	}
	if err := binary.Read(r, binary.LittleEndian, &f.Step); err != nil {
		return Frame{}, fmt.Errorf("read step: %w", err)
	}

	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return Frame{}, fmt.Errorf("read body count: %w", err)
	}
	f.Bodies = make([]BodyState, 0, min(int(n), r.Len()))
	for i := uint32(0); i < n; i++ {
		var b wireBody
		if err := binary.Read(r, binary.LittleEndian, &b); err != nil {
			return Frame{}, fmt.Errorf("read body %d: %w", i, err)
		}
		f.Bodies = append(f.Bodies, BodyState{
			ID:          b.ID,
			Position:    b.Position,
			Orientation: mgl32.Quat{W: b.Orientation[3], V: mgl32.Vec3{b.Orientation[0], b.Orientation[1], b.Orientation[2]}},
		})
	}

	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return Frame{}, fmt.Errorf("read contact count: %w", err)
	}
	f.Contacts = make([]contact.Event, 0, min(int(n), r.Len()))
	for i := uint32(0); i < n; i++ {
		var c wireContact
		if err := binary.Read(r, binary.LittleEndian, &c); err != nil {
			return Frame{}, fmt.Errorf("read contact %d: %w", i, err)
		}
		f.Contacts = append(f.Contacts, contact.Event{Step: f.Step, A: c.A, B: c.B, Position: c.Position, Impulse: c.Impulse, Separation: c.Separation})
	}
	if r.Len() != 0 {
		return Frame{}, fmt.Errorf("%d trailing bytes in frame", r.Len())
	}
	return f, nil
}
