package main

import (
	"fmt"
	"io"

	"github.com/matt0x6f/driftwood/internal/state"
)

// termFrontend is a deliberately plain renderer: it streams new lines of
// the active buffer to the terminal and rings the BEL on highlights.
// Anything fancier belongs behind the same app.Frontend interface.
type termFrontend struct {
	out     io.Writer
	key     state.BufferKey
	printed int
}

func newTermFrontend(out io.Writer) *termFrontend {
	return &termFrontend{out: out}
}

func (f *termFrontend) Render(s *state.Session) {
	buf := s.Buffers[s.Active]
	if buf == nil {
		return
	}
	if f.key != s.Active {
		f.key = s.Active
		f.printed = 0
		fmt.Fprintf(f.out, "--- %s ---\n", bufferLabel(s, s.Active))
	}
	// Eviction trims the head, so the watermark can run past the slice.
	if f.printed > len(buf.Messages) {
		f.printed = len(buf.Messages)
	}
	for _, m := range buf.Messages[f.printed:] {
		fmt.Fprintf(f.out, "[%s] %s %s\n", m.Timestamp, m.Sender, m.Text)
	}
	f.printed = len(buf.Messages)
}

func (f *termFrontend) Bell() {
	fmt.Fprint(f.out, "\a")
}

func bufferLabel(s *state.Session, key state.BufferKey) string {
	name := fmt.Sprintf("server %d", key.ServerID)
	if srv := s.Server(key.ServerID); srv != nil {
		name = srv.Name
	}
	switch key.Kind {
	case state.KindHighlights:
		return "highlights"
	case state.KindStatus:
		return name
	default:
		return fmt.Sprintf("%s/%s", name, key.Target)
	}
}
