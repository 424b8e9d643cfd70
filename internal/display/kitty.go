package display

import (
	"encoding/base64"
	"fmt"
	"io"
	"strings"
)

const (
	escapeStart = "\x1b_G"
	escapeEnd   = "\x1b\\"
	chunkSize   = 4096
)

// Placement sizes the image in terminal cells. Zero keeps the natural size.
// KeepCursor leaves the cursor where the image starts, for callers that lay
// out text around it themselves.
type Placement struct {
	Columns    int
	Rows       int
	KeepCursor bool
}

func (p Placement) params() string {
	var b strings.Builder
	if p.Columns > 0 {
		fmt.Fprintf(&b, ",c=%d", p.Columns)
	}
	if p.Rows > 0 {
		fmt.Fprintf(&b, ",r=%d", p.Rows)
	}
	if p.KeepCursor {
		b.WriteString(",C=1")
	}
	return b.String()
}

// KittyEncoder writes PNG data using the Kitty graphics protocol.
type KittyEncoder struct {
	out       io.Writer
	placement Placement
}

func NewKittyEncoder(out io.Writer, placement Placement) *KittyEncoder {
	return &KittyEncoder{out: out, placement: placement}
}

func (e *KittyEncoder) Encode(png []byte) error {
	if len(png) == 0 {
		return nil
	}

	encoded := base64.StdEncoding.EncodeToString(png)
	header := "a=T,f=100,q=2" + e.placement.params()

	chunks := splitIntoChunks(encoded, chunkSize)
	if len(chunks) == 1 {
		return e.write(header, chunks[0])
	}

	for i, chunk := range chunks {
		var params string
		switch i {
		case 0:
			params = header + ",m=1"
		case len(chunks) - 1:
			params = "m=0"
		default:
			params = "m=1"
		}
		if err := e.write(params, chunk); err != nil {
			return err
		}
	}
	return nil
}

// clearSequence deletes every image currently placed on screen.
const clearSequence = escapeStart + "a=d,d=A,q=2" + escapeEnd

func (e *KittyEncoder) Clear() error {
	_, err := io.WriteString(e.out, clearSequence)
	return err
}

func (e *KittyEncoder) write(params, payload string) error {
	_, err := fmt.Fprintf(e.out, "%s%s;%s%s", escapeStart, params, payload, escapeEnd)
	return err
}

func splitIntoChunks(s string, size int) []string {
	var chunks []string
	for len(s) > 0 {
		n := min(size, len(s))
		chunks = append(chunks, s[:n])
		s = s[n:]
	}
	return chunks
}
