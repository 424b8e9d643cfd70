package repl

import (
	"context"
	"fmt"
	"strings"

	"github.com/manash/imgrate/internal/rating"
	"github.com/manash/imgrate/pkg/models"
)

type Command interface {
	Name() string
	Aliases() []string
	Description() string
	Usage() string
	Execute(ctx context.Context, r *REPL, args []string) error
}

func allCommands() []Command {
	return []Command{
		&RateCommand{},
		&NextCommand{},
		&PrevCommand{},
		&ShowCommand{},
		&StatusCommand{},
		&HelpCommand{},
		&QuitCommand{},
	}
}

func (r *REPL) registerCommands() {
	for _, cmd := range allCommands() {
		r.commands[cmd.Name()] = cmd
		for _, alias := range cmd.Aliases() {
			r.commands[alias] = cmd
		}
	}
}

// RateCommand answers a specific question of the current image
type RateCommand struct{}

func (c *RateCommand) Name() string        { return "rate" }
func (c *RateCommand) Aliases() []string   { return []string{"r"} }
func (c *RateCommand) Description() string { return "Rate a question (a bare 1-5 rates the current one)" }
func (c *RateCommand) Usage() string       { return "rate <q1-q5> <1-5>" }

func (c *RateCommand) Execute(_ context.Context, r *REPL, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: %s", c.Usage())
	}
	q, err := models.ParseQuestion(args[0])
	if err != nil {
		return err
	}
	rt, err := models.ParseRating(args[1])
	if err != nil {
		return err
	}
	return r.apply(r.dispatcher.Dispatch(rating.RateEvent(q, rt)))
}

type NextCommand struct{}

func (c *NextCommand) Name() string        { return "next" }
func (c *NextCommand) Aliases() []string   { return []string{"n"} }
func (c *NextCommand) Description() string { return "Move to the next image, finishing after the last" }
func (c *NextCommand) Usage() string       { return "next" }

func (c *NextCommand) Execute(_ context.Context, r *REPL, _ []string) error {
	return r.apply(r.dispatcher.Dispatch(rating.Event{Kind: rating.EventNext}))
}

type PrevCommand struct{}

func (c *PrevCommand) Name() string        { return "prev" }
func (c *PrevCommand) Aliases() []string   { return []string{"previous", "p", "b"} }
func (c *PrevCommand) Description() string { return "Go back to the previous image" }
func (c *PrevCommand) Usage() string       { return "prev" }

func (c *PrevCommand) Execute(_ context.Context, r *REPL, _ []string) error {
	return r.apply(r.dispatcher.Dispatch(rating.Event{Kind: rating.EventPrevious}))
}

// ShowCommand displays the current image inline
type ShowCommand struct{}

func (c *ShowCommand) Name() string        { return "show" }
func (c *ShowCommand) Aliases() []string   { return []string{"display", "view"} }
func (c *ShowCommand) Description() string { return "Display the current image" }
func (c *ShowCommand) Usage() string       { return "show" }

func (c *ShowCommand) Execute(_ context.Context, r *REPL, _ []string) error {
	ir, ok := r.machine().Current()
	if !ok {
		return fmt.Errorf("no current image to display")
	}
	if r.displayer == nil {
		fmt.Fprintln(r.out, ir.ImagePath)
		return nil
	}
	return r.displayer.Show(ir.ImagePath)
}

type StatusCommand struct{}

func (c *StatusCommand) Name() string        { return "status" }
func (c *StatusCommand) Aliases() []string   { return []string{"s"} }
func (c *StatusCommand) Description() string { return "Show session progress" }
func (c *StatusCommand) Usage() string       { return "status" }

func (c *StatusCommand) Execute(_ context.Context, r *REPL, _ []string) error {
	m := r.machine()
	ratings := m.Ratings()
	fmt.Fprintf(r.out, "Rater:     %s\n", r.session.Rater)
	fmt.Fprintf(r.out, "Session:   %s\n", r.session.ID)
	fmt.Fprintf(r.out, "Image:     %d of %d\n", m.Index()+1, m.Len())
	fmt.Fprintf(r.out, "Complete:  %d of %d\n", models.CountComplete(ratings), len(ratings))
	fmt.Fprintf(r.out, "Snapshot:  %s\n", r.session.SnapshotPath())
	return nil
}

// HelpCommand shows available commands
type HelpCommand struct{}

func (c *HelpCommand) Name() string        { return "help" }
func (c *HelpCommand) Aliases() []string   { return []string{"?"} }
func (c *HelpCommand) Description() string { return "Show available commands" }
func (c *HelpCommand) Usage() string       { return "help" }

func (c *HelpCommand) Execute(_ context.Context, r *REPL, _ []string) error {
	fmt.Fprintln(r.out, "Available commands:")
	fmt.Fprintln(r.out)

	for _, cmd := range allCommands() {
		aliases := ""
		if len(cmd.Aliases()) > 0 {
			aliases = fmt.Sprintf(" (%s)", strings.Join(cmd.Aliases(), ", "))
		}
		fmt.Fprintf(r.out, "  %-22s%s\n", cmd.Name()+aliases, cmd.Description())
		fmt.Fprintf(r.out, "                        Usage: %s\n", cmd.Usage())
	}

	return nil
}

// QuitCommand saves progress and exits
type QuitCommand struct{}

func (c *QuitCommand) Name() string        { return "quit" }
func (c *QuitCommand) Aliases() []string   { return []string{"exit", "q"} }
func (c *QuitCommand) Description() string { return "Save progress and exit" }
func (c *QuitCommand) Usage() string       { return "quit" }

func (c *QuitCommand) Execute(_ context.Context, r *REPL, _ []string) error {
	fmt.Fprintln(r.out, "Goodbye!")
	r.Stop()
	return nil
}
