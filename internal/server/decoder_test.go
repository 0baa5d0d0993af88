package server

import (
	"math/rand"
	"reflect"
	"strings"
	"testing"

	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/unicode"
)

// feed drives a decoder over input with the given chunk sizes and
// collects emitted lines and control bytes.
func feed(t *testing.T, d *LineDecoder, input []byte, chunks []int) (lines []string, ctrls []byte) {
	t.Helper()
	off := 0
	for _, n := range chunks {
		end := off + n
		if end > len(input) {
			end = len(input)
		}
		err := d.Scan(input[off:end],
			func(line string) { lines = append(lines, line) },
			func(b byte) { ctrls = append(ctrls, b) })
		if err != nil {
			t.Fatalf("Scan: %v", err)
		}
		off = end
	}
	if off < len(input) {
		t.Fatalf("chunks covered %d of %d input bytes", off, len(input))
	}
	return lines, ctrls
}

func wholeChunk(n int) []int { return []int{n} }

func byteChunks(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = 1
	}
	return out
}

func randomChunks(n int, rng *rand.Rand) []int {
	var out []int
	for n > 0 {
		c := 1 + rng.Intn(7)
		if c > n {
			c = n
		}
		out = append(out, c)
		n -= c
	}
	return out
}

func TestDecoderSimpleLine(t *testing.T) {
	d := NewLineDecoder(16, unicode.UTF8)
	lines, ctrls := feed(t, d, []byte("ls -l\r\n"), wholeChunk(7))

	if want := []string{"ls -l"}; !reflect.DeepEqual(lines, want) {
		t.Errorf("lines = %q, want %q", lines, want)
	}
	if len(ctrls) != 0 {
		t.Errorf("unexpected control bytes: %v", ctrls)
	}
	if d.State() != ReadChar {
		t.Errorf("state = %v, want READ_CHAR", d.State())
	}
}

func TestDecoderMultipleLinesOneChunk(t *testing.T) {
	d := NewLineDecoder(16, unicode.UTF8)
	lines, _ := feed(t, d, []byte("one\ntwo\r\n\nthree\n"), wholeChunk(16))

	want := []string{"one", "two", "", "three"}
	if !reflect.DeepEqual(lines, want) {
		t.Errorf("lines = %q, want %q", lines, want)
	}
}

func TestDecoderChunkBoundaryIndependence(t *testing.T) {
	input := []byte("first\nsec\x04ond\r\nth\x18ird line\n\npartial")
	rng := rand.New(rand.NewSource(7))

	var runs [][]string
	var ctrlRuns [][]byte
	plans := [][]int{
		wholeChunk(len(input)),
		byteChunks(len(input)),
		randomChunks(len(input), rng),
		randomChunks(len(input), rng),
	}
	for _, plan := range plans {
		d := NewLineDecoder(8, unicode.UTF8)
		lines, ctrls := feed(t, d, input, plan)
		runs = append(runs, lines)
		ctrlRuns = append(ctrlRuns, ctrls)
	}

	want := []string{"first", "second", "third line", ""}
	for i, lines := range runs {
		if !reflect.DeepEqual(lines, want) {
			t.Errorf("plan %d: lines = %q, want %q", i, lines, want)
		}
		if !reflect.DeepEqual(ctrlRuns[i], []byte{0x04, 0x18}) {
			t.Errorf("plan %d: ctrls = %v, want [0x04 0x18]", i, ctrlRuns[i])
		}
	}
}

func TestDecoderLongLineGrowth(t *testing.T) {
	// Chunk of 8 forces many linear reallocations for a 1000-byte line.
	long := strings.Repeat("abcdefghij", 100)
	d := NewLineDecoder(8, unicode.UTF8)
	lines, _ := feed(t, d, []byte(long+"\n"), byteChunks(len(long)+1))

	if len(lines) != 1 {
		t.Fatalf("got %d lines, want 1", len(lines))
	}
	if lines[0] != long {
		t.Errorf("long line corrupted: got %d bytes, want %d", len(lines[0]), len(long))
	}
}

func TestDecoderControlAcrossChunks(t *testing.T) {
	// The control byte arrives as the first byte of a later chunk,
	// mid-line.  It must fire the callback and never reach line text.
	d := NewLineDecoder(8, unicode.UTF8)
	var lines []string
	var ctrls []byte
	emit := func(l string) { lines = append(lines, l) }
	ctrl := func(b byte) { ctrls = append(ctrls, b) }

	if err := d.Scan([]byte("hel"), emit, ctrl); err != nil {
		t.Fatal(err)
	}
	if err := d.Scan([]byte{0x18}, emit, ctrl); err != nil {
		t.Fatal(err)
	}
	if err := d.Scan([]byte("lo\n"), emit, ctrl); err != nil {
		t.Fatal(err)
	}

	if want := []string{"hello"}; !reflect.DeepEqual(lines, want) {
		t.Errorf("lines = %q, want %q", lines, want)
	}
	if !reflect.DeepEqual(ctrls, []byte{0x18}) {
		t.Errorf("ctrls = %v, want [0x18]", ctrls)
	}
}

func TestDecoderTerminatorAtChunkEnd(t *testing.T) {
	// A '\n' as the final byte of a chunk must emit immediately, not
	// wait for the next read.
	d := NewLineDecoder(8, unicode.UTF8)
	var lines []string
	if err := d.Scan([]byte("ping\n"), func(l string) { lines = append(lines, l) }, func(byte) {}); err != nil {
		t.Fatal(err)
	}
	if want := []string{"ping"}; !reflect.DeepEqual(lines, want) {
		t.Errorf("lines = %q, want %q", lines, want)
	}
	if d.State() != ReadChar {
		t.Errorf("state = %v, want READ_CHAR", d.State())
	}
}

func TestDecoderCharsetGBK(t *testing.T) {
	text := "你好, greys"
	raw, err := simplifiedchinese.GBK.NewEncoder().Bytes([]byte(text))
	if err != nil {
		t.Fatal(err)
	}

	d := NewLineDecoder(4, simplifiedchinese.GBK)
	lines, _ := feed(t, d, append(raw, '\n'), byteChunks(len(raw)+1))

	if len(lines) != 1 || lines[0] != text {
		t.Errorf("lines = %q, want [%q]", lines, text)
	}
}

func TestDecoderStateString(t *testing.T) {
	if ReadChar.String() != "READ_CHAR" || ReadEOL.String() != "READ_EOL" {
		t.Errorf("unexpected state names: %v %v", ReadChar, ReadEOL)
	}
}
