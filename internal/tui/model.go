// Package tui is the full-screen rating interface built on bubbletea.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/manash/imgrate/internal/rating"
	"github.com/manash/imgrate/internal/session"
	"github.com/manash/imgrate/pkg/models"
)

// noFocus means digits rate the first unanswered question.
const noFocus = -1

// ImageRenderer turns an image file into terminal escape sequences that the
// view embeds above the questions.
type ImageRenderer interface {
	Render(path string) (string, error)
	ClearSequence() string
}

type Config struct {
	Session    *session.Session
	Dispatcher *rating.Dispatcher
	// Labels names each question by index. Without it only Q1..Q5 show.
	Labels func(i int) string
	// Images is optional; without it only the image name and path show.
	Images ImageRenderer
	// ImageRows is the height reserved for the image, in terminal rows.
	ImageRows int
	Logger    *zap.Logger
}

// imageMsg carries a rendered image back from the loading command.
type imageMsg struct {
	path string
	seq  string
	err  error
}

type Model struct {
	session    *session.Session
	dispatcher *rating.Dispatcher
	labels     func(i int) string
	images     ImageRenderer
	imageRows  int
	logger     *zap.Logger

	keys     keyMap
	help     help.Model
	progress progress.Model
	styles   Styles

	image    string
	focus    int
	hint     string
	err      error
	done     bool
	quitting bool
}

// New starts the machine and returns the model positioned on the first
// incomplete image.
func New(cfg Config) (Model, error) {
	if err := cfg.Dispatcher.Machine().Start(); err != nil {
		return Model{}, err
	}
	m := Model{
		session:    cfg.Session,
		dispatcher: cfg.Dispatcher,
		labels:     cfg.Labels,
		images:     cfg.Images,
		imageRows:  cfg.ImageRows,
		logger:     cfg.Logger,
		keys:       defaultKeyMap(),
		help:       help.New(),
		progress:   progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage()),
		styles:     DefaultStyles(),
		focus:      noFocus,
	}
	if m.labels == nil {
		m.labels = func(int) string { return "" }
	}
	if m.logger == nil {
		m.logger = zap.NewNop()
	}
	m.progress.Width = 40
	return m, nil
}

func (m Model) machine() *rating.Machine {
	return m.dispatcher.Machine()
}

// Completed reports whether the session was exported.
func (m Model) Completed() bool {
	return m.machine().Completed()
}

// Ratings is the current list with in-progress answers flushed.
func (m Model) Ratings() []models.ImageRating {
	return m.machine().Ratings()
}

func (m Model) Init() tea.Cmd {
	return m.loadImage()
}

// loadImage renders the current image off the update loop. It returns nil
// when no renderer is configured.
func (m Model) loadImage() tea.Cmd {
	if m.images == nil {
		return nil
	}
	ir, ok := m.machine().Current()
	if !ok {
		return nil
	}
	images := m.images
	return func() tea.Msg {
		seq, err := images.Render(ir.ImagePath)
		return imageMsg{path: ir.ImagePath, seq: seq, err: err}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.progress.Width = max(10, min(msg.Width-4, 60))
		m.help.Width = msg.Width
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case imageMsg:
		ir, ok := m.machine().Current()
		if !ok || ir.ImagePath != msg.path {
			return m, nil
		}
		if msg.err != nil {
			m.logger.Warn("failed to display image", zap.String("path", msg.path), zap.Error(msg.err))
			m.image = ""
			return m, nil
		}
		m.image = msg.seq
		return m, nil
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.done {
		m.quitting = true
		return m, tea.Quit
	}

	m.hint = ""
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll

	case key.Matches(msg, m.keys.Up):
		if m.focus == noFocus {
			m.focus = m.machine().CurrentQuestion().Index()
		}
		m.focus = max(0, m.focus-1)

	case key.Matches(msg, m.keys.Down):
		if m.focus == noFocus {
			m.focus = m.machine().CurrentQuestion().Index()
		}
		m.focus = min(models.NumQuestions-1, m.focus+1)

	case key.Matches(msg, m.keys.Rate):
		if m.focus == noFocus {
			return m.apply(m.dispatcher.HandleKey(msg.String()))
		}
		r, err := models.ParseRating(msg.String())
		if err != nil {
			return m, nil
		}
		q := models.AllQuestions()[m.focus]
		m.focus = noFocus
		return m.apply(m.dispatcher.Dispatch(rating.RateEvent(q, r)))

	case key.Matches(msg, m.keys.Next):
		return m.apply(m.dispatcher.Dispatch(rating.Event{Kind: rating.EventNext}))

	case key.Matches(msg, m.keys.Prev):
		return m.apply(m.dispatcher.Dispatch(rating.Event{Kind: rating.EventPrevious}))
	}
	return m, nil
}

func (m Model) apply(outcome rating.Outcome, err error) (tea.Model, tea.Cmd) {
	if err != nil {
		if rating.IsNavigationHint(err) {
			m.hint = err.Error()
			return m, nil
		}
		m.logger.Error("rating action failed", zap.Error(err))
		m.err = err
		return m, nil
	}
	m.err = nil
	switch outcome {
	case rating.OutcomeMoved:
		m.focus = noFocus
		m.image = ""
		return m, m.loadImage()
	case rating.OutcomeCompleted:
		m.done = true
	}
	return m, nil
}

func (m Model) View() string {
	if m.done {
		return m.clearImage() + m.doneView()
	}
	if m.quitting {
		return m.clearImage()
	}

	mc := m.machine()
	ir, ok := mc.Current()
	if !ok {
		return ""
	}

	var b strings.Builder

	if m.images != nil {
		if m.image != "" {
			b.WriteString(m.image)
		} else {
			b.WriteString(m.clearImage())
		}
		b.WriteString(strings.Repeat("\n", m.imageRows))
	}

	title := m.styles.Title.Render(fmt.Sprintf("Image %d of %d: %s", mc.Index()+1, mc.Len(), ir.ImageName))
	rater := m.styles.Path.Render("rater " + m.session.Rater)
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, title, "   ", rater))
	b.WriteString("\n")
	b.WriteString(m.styles.Path.Render(ir.ImagePath))
	b.WriteString("\n\n")

	complete := models.CountComplete(mc.Ratings())
	b.WriteString(m.progress.ViewAs(float64(complete) / float64(mc.Len())))
	b.WriteString(fmt.Sprintf(" %d/%d rated\n\n", complete, mc.Len()))

	b.WriteString(m.styles.Box.Render(m.questionsView()))
	b.WriteString("\n\n")

	b.WriteString(m.navView())
	b.WriteString("\n")

	switch {
	case m.err != nil:
		b.WriteString(m.styles.Error.Render("Error: " + m.err.Error()))
	case m.hint != "":
		b.WriteString(m.styles.Hint.Render(m.hint))
	}
	b.WriteString("\n")

	b.WriteString(m.help.View(m.keys))
	return b.String()
}

func (m Model) clearImage() string {
	if m.images == nil {
		return ""
	}
	return m.images.ClearSequence()
}

func (m Model) questionsView() string {
	answers := m.machine().Answers()
	active := m.focus
	if active == noFocus && !answers.AllAnswered() {
		active = m.machine().CurrentQuestion().Index()
	}

	rows := make([]string, 0, models.NumQuestions)
	for i, q := range models.AllQuestions() {
		marker := "  "
		label := m.styles.Label
		if i == active {
			marker = "> "
			label = m.styles.Focused
		}

		buttons := make([]string, 0, len(models.AllRatings()))
		for _, r := range models.AllRatings() {
			buttons = append(buttons, m.styles.RatingButton(r, answers.Get(q)))
		}
		rows = append(rows, marker+label.Render(q.Title(m.labels(i)))+
			lipgloss.JoinHorizontal(lipgloss.Top, buttons...))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func (m Model) navView() string {
	mc := m.machine()
	prev := m.styles.Disabled.Render("◀ Previous")
	if mc.CanRetreat() {
		prev = m.styles.Enabled.Render("◀ Previous")
	}

	nextLabel := "Next ▶"
	if mc.Index() == mc.Len()-1 {
		nextLabel = "Finish ▶"
	}
	next := m.styles.Disabled.Render(nextLabel)
	if mc.CanAdvance() {
		next = m.styles.Enabled.Render(nextLabel)
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, prev, "  ", next)
}

func (m Model) doneView() string {
	var b strings.Builder
	b.WriteString(m.styles.Done.Render("Done!"))
	b.WriteString("\n\n")
	b.WriteString(fmt.Sprintf("Rated %d images. Ratings exported to\n", m.machine().Len()))
	b.WriteString(m.styles.Title.Render(m.session.ExportPath))
	b.WriteString("\n\n")
	b.WriteString(m.styles.Path.Render("Press any key to exit."))
	b.WriteString("\n")
	return b.String()
}

// Run drives the model until the rater finishes, quits or ctx is cancelled,
// then snapshots unfinished progress.
func Run(ctx context.Context, cfg Config, opts ...tea.ProgramOption) error {
	model, err := New(cfg)
	if err != nil {
		return err
	}

	opts = append([]tea.ProgramOption{tea.WithAltScreen(), tea.WithContext(ctx)}, opts...)
	final, runErr := tea.NewProgram(model, opts...).Run()

	last, ok := final.(Model)
	if !ok {
		last = model
	}
	if !last.Completed() {
		if err := cfg.Session.Close(last.Ratings()); err != nil {
			return fmt.Errorf("failed to save progress: %w", err)
		}
	}
	if errors.Is(runErr, tea.ErrProgramKilled) && ctx.Err() != nil {
		model.logger.Info("rating interrupted", zap.Error(context.Cause(ctx)))
		return nil
	}
	return runErr
}
