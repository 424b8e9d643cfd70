package repl

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/manash/imgrate/internal/rating"
	"github.com/manash/imgrate/internal/session"
	"github.com/manash/imgrate/pkg/models"
)

type testHarness struct {
	repl    *REPL
	out     *bytes.Buffer
	errBuf  *bytes.Buffer
	session   *session.Session
	adapter   *session.Adapter
	snapshots *session.SnapshotStore
	machine   *rating.Machine
}

func testREPL(t *testing.T, input string, images ...string) *testHarness {
	t.Helper()
	root := t.TempDir()
	imagesDir := filepath.Join(root, "images")
	outputDir := filepath.Join(root, "out")
	for _, dir := range []string{imagesDir, outputDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			t.Fatal(err)
		}
	}
	if len(images) == 0 {
		images = []string{"a.png", "b.png"}
	}
	for _, name := range images {
		if err := os.WriteFile(filepath.Join(imagesDir, name), []byte("img"), 0644); err != nil {
			t.Fatal(err)
		}
	}

	adapter, err := session.NewAdapter(session.Config{
		DataDir: filepath.Join(root, "data"),
		Shuffle: session.SeededShuffler(1),
	})
	if err != nil {
		t.Fatalf("NewAdapter() error = %v", err)
	}
	sess, err := adapter.Start(context.Background(), session.StartOptions{
		Rater: "tester", ImagesDir: imagesDir, OutputDir: outputDir,
	})
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	m, err := rating.NewMachine(sess.Ratings, sess)
	if err != nil {
		t.Fatalf("NewMachine() error = %v", err)
	}

	h := &testHarness{
		out:       &bytes.Buffer{},
		errBuf:    &bytes.Buffer{},
		session:   sess,
		adapter:   adapter,
		snapshots: session.NewSnapshotStore(filepath.Join(root, "data")),
		machine:   m,
	}
	h.repl = New(&Config{
		In:         strings.NewReader(input),
		Out:        h.out,
		Err:        h.errBuf,
		Session:    sess,
		Dispatcher: rating.NewDispatcher(m, rating.WithAutosave(sess.Save)),
	})
	return h
}

func TestREPL_CommandsRegistered(t *testing.T) {
	h := testREPL(t, "")

	for _, name := range []string{"rate", "r", "next", "n", "prev", "previous", "p", "b", "show", "status", "help", "?", "quit", "exit", "q"} {
		if _, ok := h.repl.commands[name]; !ok {
			t.Errorf("command %q not registered", name)
		}
	}
}

func TestREPL_Run_RateToCompletion(t *testing.T) {
	input := strings.Repeat("1\n2\n3\n4\n5\nnext\n", 2)
	h := testREPL(t, input)

	if err := h.repl.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if !h.machine.Completed() {
		t.Fatal("machine should be completed")
	}
	if !strings.Contains(h.out.String(), "Done! Ratings exported to "+h.session.ExportPath) {
		t.Errorf("output missing completion line:\n%s", h.out.String())
	}
	if _, err := os.Stat(h.session.ExportPath); err != nil {
		t.Errorf("export missing: %v", err)
	}
	if h.snapshots.Exists(h.session.Key) {
		t.Error("snapshot should be removed after export")
	}
	if h.errBuf.Len() != 0 {
		t.Errorf("unexpected errors: %s", h.errBuf.String())
	}
}

func TestREPL_Run_QuitSavesProgress(t *testing.T) {
	h := testREPL(t, "rate q2 4\n5\nquit\n")

	if err := h.repl.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	ratings, err := h.snapshots.Load(h.session.Key)
	if err != nil {
		t.Fatalf("snapshot not saved: %v", err)
	}
	want := models.Answers{models.R5, models.R4}
	if got := ratings[0].Answers(); got != want {
		t.Errorf("saved answers = %v, want %v", got, want)
	}
	if !strings.Contains(h.out.String(), "Goodbye!") || !strings.Contains(h.out.String(), "Progress saved") {
		t.Errorf("output = %s", h.out.String())
	}
}

func TestREPL_Run_EOFSavesProgress(t *testing.T) {
	h := testREPL(t, "3\n")

	h.repl.Run(context.Background())

	ratings, err := h.snapshots.Load(h.session.Key)
	if err != nil {
		t.Fatalf("snapshot not saved: %v", err)
	}
	if ratings[0].Q1Rating != models.R3 {
		t.Errorf("Q1 = %v, want r3", ratings[0].Q1Rating)
	}
}

func TestREPL_Run_NextBlockedUntilAnswered(t *testing.T) {
	h := testREPL(t, "next\nprev\nquit\n")

	h.repl.Run(context.Background())

	errs := h.errBuf.String()
	if !strings.Contains(errs, rating.ErrCannotAdvance.Error()) {
		t.Errorf("expected advance error, got %q", errs)
	}
	if !strings.Contains(errs, rating.ErrAtFirstImage.Error()) {
		t.Errorf("expected first-image error, got %q", errs)
	}
	if h.machine.Index() != 0 {
		t.Errorf("index = %d, want 0", h.machine.Index())
	}
}

func TestREPL_Run_PrevRestoresAnswers(t *testing.T) {
	h := testREPL(t, "1\n2\n3\n4\n5\nn\n4\nb\nquit\n")

	h.repl.Run(context.Background())

	if h.machine.Index() != 0 {
		t.Fatalf("index = %d, want 0", h.machine.Index())
	}
	want := models.Answers{models.R1, models.R2, models.R3, models.R4, models.R5}
	if got := h.machine.Answers(); got != want {
		t.Errorf("answers after prev = %v, want %v", got, want)
	}
	ratings := h.machine.Ratings()
	if ratings[1].Q1Rating != models.R4 {
		t.Errorf("second image Q1 = %v, want r4 flushed on retreat", ratings[1].Q1Rating)
	}
}

func TestREPL_Run_Help(t *testing.T) {
	h := testREPL(t, "help\nquit\n")

	h.repl.Run(context.Background())

	output := h.out.String()
	for _, want := range []string{"Available commands:", "rate", "next", "prev", "status", "quit"} {
		if !strings.Contains(output, want) {
			t.Errorf("help output missing %q", want)
		}
	}
}

func TestREPL_Run_Status(t *testing.T) {
	h := testREPL(t, "status\nquit\n")

	h.repl.Run(context.Background())

	output := h.out.String()
	if !strings.Contains(output, "Rater:     tester") || !strings.Contains(output, "Image:     1 of 2") {
		t.Errorf("status output = %s", output)
	}
}

func TestREPL_Run_QuestionLabels(t *testing.T) {
	h := testREPL(t, "quit\n")
	h.repl.Run(context.Background())

	output := h.out.String()
	if strings.Contains(output, "Q1 Q1") {
		t.Errorf("unlabelled questions should show once:\n%s", output)
	}

	h = testREPL(t, "quit\n")
	h.repl.labels = func(i int) string { return []string{"Sharpness", "", "", "", ""}[i] }
	h.repl.Run(context.Background())

	output = h.out.String()
	if !strings.Contains(output, "> Q1 Sharpness") {
		t.Errorf("labelled question missing:\n%s", output)
	}
}

func TestREPL_Run_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"unknown command", "bogus\n", "unknown command"},
		{"rate usage", "rate q1\n", "usage: rate"},
		{"bad question", "rate q9 3\n", "invalid question"},
		{"bad rating", "rate q1 7\n", "invalid rating"},
		{"out of range digit", "6\n", "unknown command"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := testREPL(t, tt.input)
			h.repl.Run(context.Background())
			if !strings.Contains(h.errBuf.String(), tt.want) {
				t.Errorf("errors = %q, want %q", h.errBuf.String(), tt.want)
			}
		})
	}
}

func TestREPL_Run_EmptyLine(t *testing.T) {
	h := testREPL(t, "\n\nquit\n")

	if err := h.repl.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if h.errBuf.Len() != 0 {
		t.Errorf("empty lines should be ignored, got %q", h.errBuf.String())
	}
}

func TestREPL_Stop(t *testing.T) {
	h := testREPL(t, "")
	h.repl.running = true
	h.repl.Stop()
	if h.repl.running {
		t.Error("Stop() should set running to false")
	}
}

func TestParseCommand(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"simple command", "rate q1 3", []string{"rate", "q1", "3"}},
		{"double quotes", `rate "q1" 3`, []string{"rate", "q1", "3"}},
		{"single quotes", `show 'a b'`, []string{"show", "a b"}},
		{"extra spaces", "  next   ", []string{"next"}},
		{"empty input", "", nil},
		{"whitespace only", "   ", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseCommand(tt.input)
			if len(got) != len(tt.want) {
				t.Fatalf("parseCommand(%q) = %v, want %v", tt.input, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("parseCommand(%q)[%d] = %q, want %q", tt.input, i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestCommand_Interface(t *testing.T) {
	for _, cmd := range allCommands() {
		if cmd.Name() == "" || cmd.Description() == "" || cmd.Usage() == "" {
			t.Errorf("command %T has empty metadata", cmd)
		}
	}
}

// watchWriter collects output and closes seen once it contains want.
type watchWriter struct {
	mu   sync.Mutex
	buf  bytes.Buffer
	want string
	seen chan struct{}
	once sync.Once
}

func newWatchWriter(want string) *watchWriter {
	return &watchWriter{want: want, seen: make(chan struct{})}
}

func (w *watchWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	n, err := w.buf.Write(p)
	if strings.Contains(w.buf.String(), w.want) {
		w.once.Do(func() { close(w.seen) })
	}
	return n, err
}

func (w *watchWriter) String() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.buf.String()
}

func TestREPL_Run_CancelWhileWaitingForInput(t *testing.T) {
	h := testREPL(t, "")
	pr, pw := io.Pipe()
	defer pw.Close()
	out := newWatchWriter("Q4]> ")
	h.repl.in = pr
	h.repl.out = out

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- h.repl.Run(ctx) }()

	if _, err := io.WriteString(pw, "1\n2\n3\n"); err != nil {
		t.Fatalf("write input: %v", err)
	}
	select {
	case <-out.seen:
	case <-time.After(5 * time.Second):
		t.Fatalf("answers not processed:\n%s", out.String())
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run() did not return after cancel")
	}

	ratings, err := h.snapshots.Load(h.session.Key)
	if err != nil {
		t.Fatalf("snapshot not saved: %v", err)
	}
	want := models.Answers{models.R1, models.R2, models.R3}
	if got := ratings[0].Answers(); got != want {
		t.Errorf("saved answers = %v, want %v", got, want)
	}
	if !strings.Contains(out.String(), "Progress saved") {
		t.Errorf("output = %s", out.String())
	}
}
