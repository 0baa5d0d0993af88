package server

import (
	"fmt"

	"golang.org/x/text/encoding"
)

// Control bytes consumed by the decoder as out-of-band signals.  Both
// release the owning session's execution gate; neither ever appears in
// decoded line text.
const (
	ctrlEOT byte = 0x04 // Ctrl-D: end of transmission
	ctrlCAN byte = 0x18 // Ctrl-X: cancel
)

// LineDecodeState is the decoder's two-value state.
type LineDecodeState int

const (
	// ReadChar accumulates bytes of the current line.
	ReadChar LineDecodeState = iota
	// ReadEOL means a line terminator was just seen; the next step
	// emits the buffered line and returns to ReadChar.
	ReadEOL
)

func (s LineDecodeState) String() string {
	switch s {
	case ReadChar:
		return "READ_CHAR"
	case ReadEOL:
		return "READ_EOL"
	default:
		return fmt.Sprintf("LineDecodeState(%d)", int(s))
	}
}

// LineDecoder converts one connection's byte stream into discrete text
// lines.  It owns a growable line buffer and the decode state; it is
// pure with respect to I/O, so it can be driven with arbitrary chunk
// boundaries and must produce identical output.
//
// Not safe for concurrent use; each connection's read loop owns one.
type LineDecoder struct {
	state   LineDecodeState
	buf     []byte // bytes of the line currently being assembled
	chunk   int    // growth quantum
	charset encoding.Encoding
}

// NewLineDecoder returns a decoder whose line buffer starts at one
// chunk and grows linearly by one chunk per overflow.  Lines are
// decoded as text with the given charset at emit time.
func NewLineDecoder(chunk int, charset encoding.Encoding) *LineDecoder {
	return &LineDecoder{
		state:   ReadChar,
		buf:     make([]byte, 0, chunk),
		chunk:   chunk,
		charset: charset,
	}
}

// State returns the current decode state.
func (d *LineDecoder) State() LineDecodeState { return d.state }

// Scan runs the state machine over p.  emit receives each completed,
// charset-decoded line (terminator and any preceding '\r' stripped);
// control receives each control byte the moment it is seen, before any
// buffering, so a control byte can never survive into line text across
// chunk boundaries.
func (d *LineDecoder) Scan(p []byte, emit func(line string), control func(b byte)) error {
	for i := 0; i < len(p); {
		switch d.state {
		case ReadChar:
			b := p[i]
			i++
			switch {
			case b == '\n':
				d.state = ReadEOL
			case b == ctrlEOT || b == ctrlCAN:
				control(b)
			case b == '\r':
				// line-ending normalisation
			default:
				d.put(b)
			}

		case ReadEOL:
			// The byte at p[i] is not consumed here; it is
			// re-examined in ReadChar on the next pass.
			line, err := d.takeLine()
			if err != nil {
				return err
			}
			emit(line)
			d.state = ReadChar
		}
	}

	// A terminator at the end of the chunk still ends the line now;
	// emission never waits for the next read.
	if d.state == ReadEOL {
		line, err := d.takeLine()
		if err != nil {
			return err
		}
		emit(line)
		d.state = ReadChar
	}
	return nil
}

// put appends b to the line buffer, growing linearly: on overflow a new
// buffer of capacity old+chunk is allocated and the content copied.
// Linear rather than exponential growth bounds over-allocation on
// unusually long lines.
func (d *LineDecoder) put(b byte) {
	if len(d.buf) == cap(d.buf) {
		grown := make([]byte, len(d.buf), cap(d.buf)+d.chunk)
		copy(grown, d.buf)
		d.buf = grown
	}
	d.buf = append(d.buf, b)
}

// takeLine decodes the buffered bytes with the session charset and
// drains the buffer, keeping its capacity.
func (d *LineDecoder) takeLine() (string, error) {
	decoded, err := d.charset.NewDecoder().Bytes(d.buf)
	d.buf = d.buf[:0]
	if err != nil {
		return "", fmt.Errorf("decode line: %w", err)
	}
	return string(decoded), nil
}
