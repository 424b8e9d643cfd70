// Package repl is the line-oriented rating interface used when stdout is not
// a terminal or when --plain is given.
package repl

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/manash/imgrate/internal/display"
	"github.com/manash/imgrate/internal/rating"
	"github.com/manash/imgrate/internal/session"
	"github.com/manash/imgrate/pkg/models"
)

type REPL struct {
	in         io.Reader
	out        io.Writer
	err        io.Writer
	session    *session.Session
	dispatcher *rating.Dispatcher
	displayer  *display.Displayer
	labels     func(i int) string
	logger     *zap.Logger
	commands   map[string]Command
	running    bool
}

type Config struct {
	In         io.Reader
	Out        io.Writer
	Err        io.Writer
	Session    *session.Session
	Dispatcher *rating.Dispatcher
	// Displayer is optional; without it images are only named.
	Displayer *display.Displayer
	// Labels names each question by index. Without it only Q1..Q5 show.
	Labels func(i int) string
	Logger *zap.Logger
}

func New(cfg *Config) *REPL {
	r := &REPL{
		in:         cfg.In,
		out:        cfg.Out,
		err:        cfg.Err,
		session:    cfg.Session,
		dispatcher: cfg.Dispatcher,
		displayer:  cfg.Displayer,
		labels:     cfg.Labels,
		logger:     cfg.Logger,
		commands:   make(map[string]Command),
	}
	if r.labels == nil {
		r.labels = func(int) string { return "" }
	}
	if r.logger == nil {
		r.logger = zap.NewNop()
	}
	r.registerCommands()
	return r
}

func (r *REPL) machine() *rating.Machine {
	return r.dispatcher.Machine()
}

// Run reads commands until the session completes, the rater quits, input
// ends or ctx is cancelled. Unless the session completed, progress is
// snapshotted on the way out.
func (r *REPL) Run(ctx context.Context) error {
	if err := r.machine().Start(); err != nil {
		return err
	}
	r.running = true
	r.printWelcome()
	r.printImage()

	readCtx, stopReading := context.WithCancel(ctx)
	defer stopReading()
	lines, scanErr := r.readLines(readCtx)
	defer r.close()

	for r.running {
		r.printPrompt()

		var line string
		select {
		case <-ctx.Done():
			fmt.Fprintln(r.out)
			r.logger.Info("rating interrupted", zap.Error(context.Cause(ctx)))
			return nil
		case l, ok := <-lines:
			if !ok {
				return <-scanErr
			}
			line = strings.TrimSpace(l)
		}
		if line == "" {
			continue
		}

		if err := r.execute(ctx, line); err != nil {
			fmt.Fprintf(r.err, "Error: %v\n", err)
		}
	}
	return nil
}

// readLines scans input on its own goroutine so a blocked read never delays
// cancellation. The line channel is closed at end of input, after the scan
// error has been sent.
func (r *REPL) readLines(ctx context.Context) (<-chan string, <-chan error) {
	lines := make(chan string)
	errc := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r.in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				errc <- nil
				return
			}
		}
		errc <- scanner.Err()
	}()
	return lines, errc
}

func (r *REPL) execute(ctx context.Context, line string) error {
	parts := parseCommand(line)
	if len(parts) == 0 {
		return nil
	}

	cmdName := strings.ToLower(parts[0])
	args := parts[1:]

	if cmd, ok := r.commands[cmdName]; ok {
		return cmd.Execute(ctx, r, args)
	}
	if len(args) == 0 && rating.IsBound(cmdName) {
		return r.apply(r.dispatcher.HandleKey(cmdName))
	}
	return fmt.Errorf("unknown command: %s (type 'help' for available commands)", cmdName)
}

// apply renders the result of a dispatched event.
func (r *REPL) apply(outcome rating.Outcome, err error) error {
	if err != nil {
		return err
	}
	switch outcome {
	case rating.OutcomeRated:
		r.printAnswers()
	case rating.OutcomeMoved:
		r.printImage()
	case rating.OutcomeCompleted:
		fmt.Fprintf(r.out, "Done! Ratings exported to %s\n", r.session.ExportPath)
		r.Stop()
	}
	return nil
}

func (r *REPL) Stop() {
	r.running = false
}

func (r *REPL) close() {
	if r.machine().Completed() {
		return
	}
	if err := r.session.Close(r.machine().Ratings()); err != nil {
		fmt.Fprintf(r.err, "Warning: failed to save progress: %v\n", err)
		return
	}
	fmt.Fprintf(r.out, "Progress saved to %s\n", r.session.SnapshotPath())
}

func (r *REPL) printWelcome() {
	fmt.Fprintf(r.out, "imgrate: rating %d images as %s\n", r.machine().Len(), r.session.Rater)
	if r.session.Resumed {
		fmt.Fprintf(r.out, "Resumed session (%d of %d complete)\n",
			models.CountComplete(r.machine().Ratings()), r.machine().Len())
	}
	fmt.Fprintln(r.out, "Type 1-5 to rate, 'next'/'prev' to move, 'help' for all commands.")
	fmt.Fprintln(r.out)
}

func (r *REPL) printPrompt() {
	m := r.machine()
	fmt.Fprintf(r.out, "imgrate [%d/%d %s]> ", m.Index()+1, m.Len(), m.CurrentQuestion().Label())
}

func (r *REPL) printImage() {
	m := r.machine()
	ir, ok := m.Current()
	if !ok {
		return
	}
	fmt.Fprintf(r.out, "Image %d/%d: %s\n", m.Index()+1, m.Len(), ir.ImageName)
	fmt.Fprintf(r.out, "  %s\n", ir.ImagePath)
	if r.displayer != nil && r.displayer.Supported() {
		if err := r.displayer.Show(ir.ImagePath); err != nil {
			r.logger.Warn("failed to display image", zap.String("path", ir.ImagePath), zap.Error(err))
		}
	}
	r.printAnswers()
}

func (r *REPL) printAnswers() {
	m := r.machine()
	answers := m.Answers()
	current := m.CurrentQuestion()
	for i, q := range models.AllQuestions() {
		marker := " "
		if q == current && !answers.AllAnswered() {
			marker = ">"
		}
		fmt.Fprintf(r.out, " %s %-28s %s\n", marker, q.Title(r.labels(i)), answers[i])
	}
	fmt.Fprintf(r.out, "  [prev: %s] [next: %s]\n", enabled(m.CanRetreat()), enabled(m.CanAdvance()))
}

func enabled(ok bool) string {
	if ok {
		return "on"
	}
	return "off"
}

func parseCommand(line string) []string {
	var parts []string
	var current strings.Builder
	inQuotes := false
	quoteChar := rune(0)

	for _, ch := range line {
		switch {
		case ch == '"' || ch == '\'':
			if inQuotes && ch == quoteChar {
				inQuotes = false
				quoteChar = 0
			} else if !inQuotes {
				inQuotes = true
				quoteChar = ch
			} else {
				current.WriteRune(ch)
			}
		case ch == ' ' && !inQuotes:
			if current.Len() > 0 {
				parts = append(parts, current.String())
				current.Reset()
			}
		default:
			current.WriteRune(ch)
		}
	}

	if current.Len() > 0 {
		parts = append(parts, current.String())
	}

	return parts
}
