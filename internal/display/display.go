// Package display shows the image under rating inline in terminals that
// speak the Kitty graphics protocol.
package display

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"io"
	"os"
	"slices"
	"strings"
)

var ErrUnsupportedTerminal = errors.New("terminal does not support inline images")

var pngSignature = []byte("\x89PNG\r\n\x1a\n")

type Displayer struct {
	out       io.Writer
	placement Placement
	supported bool
}

type Option func(*Displayer)

func WithPlacement(p Placement) Option {
	return func(d *Displayer) {
		d.placement = p
	}
}

// WithSupport overrides terminal detection.
func WithSupport(supported bool) Option {
	return func(d *Displayer) {
		d.supported = supported
	}
}

func New(out io.Writer, opts ...Option) *Displayer {
	d := &Displayer{
		out:       out,
		supported: IsTerminalSupported(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *Displayer) Supported() bool {
	return d.supported
}

// Show replaces whatever image is on screen with the file at path.
func (d *Displayer) Show(path string) error {
	seq, err := d.Render(path)
	if err != nil {
		return err
	}
	if _, err := io.WriteString(d.out, seq); err != nil {
		return err
	}
	fmt.Fprintln(d.out)
	return nil
}

// Render returns the escape sequence Show would write, for callers such as
// the full-screen interface that own the terminal output.
func (d *Displayer) Render(path string) (string, error) {
	if !d.supported {
		return "", ErrUnsupportedTerminal
	}

	data, err := LoadPNG(path)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	enc := NewKittyEncoder(&b, d.placement)
	if err := enc.Clear(); err != nil {
		return "", err
	}
	if err := enc.Encode(data); err != nil {
		return "", fmt.Errorf("failed to encode image: %w", err)
	}
	return b.String(), nil
}

// ClearSequence returns the escape sequence that removes every image from
// the screen, or "" when images are not supported.
func (d *Displayer) ClearSequence() string {
	if !d.supported {
		return ""
	}
	return clearSequence
}

func (d *Displayer) Clear() error {
	if !d.supported {
		return nil
	}
	return NewKittyEncoder(d.out, d.placement).Clear()
}

// LoadPNG reads an image file and returns it as PNG bytes, transcoding JPEG
// and GIF input.
func LoadPNG(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	if bytes.HasPrefix(data, pngSignature) {
		return data, nil
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image %s: %w", path, err)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to transcode image %s: %w", path, err)
	}
	return buf.Bytes(), nil
}

func IsTerminalSupported() bool {
	termProgram := strings.ToLower(os.Getenv("TERM_PROGRAM"))
	if slices.Contains([]string{"kitty", "ghostty", "iterm.app", "wezterm"}, termProgram) {
		return true
	}

	if os.Getenv("KITTY_WINDOW_ID") != "" {
		return true
	}

	if os.Getenv("ITERM_SESSION_ID") != "" {
		return true
	}

	term := strings.ToLower(os.Getenv("TERM"))
	return strings.Contains(term, "kitty") || strings.Contains(term, "ghostty")
}
