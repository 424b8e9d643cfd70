// Package rating implements the navigation and rating state machine that
// drives a rating session, plus the dispatcher that maps UI input onto it.
package rating

import (
	"errors"
	"fmt"

	"github.com/manash/imgrate/pkg/models"
)

var (
	ErrNoImages      = errors.New("no images to rate")
	ErrCannotAdvance = errors.New("answer all questions before moving on")
	ErrAtFirstImage  = errors.New("already at first image")
	ErrCompleted     = errors.New("rating session already completed")
	ErrNotStarted    = errors.New("rating session not started")
)

type State int

const (
	StateIdle State = iota
	StateActive
	StateCompleted
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateActive:
		return "active"
	case StateCompleted:
		return "completed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Policy decides whether the last image may be completed with unanswered
// questions.
type Policy int

const (
	PolicyRequireAll Policy = iota
	PolicyAllowIncompleteLast
)

// Completer receives the final, fully flushed list when the rater advances
// past the last image. A non-nil error keeps the machine on the last image.
type Completer interface {
	Complete(ratings []models.ImageRating) error
}

type CompleterFunc func(ratings []models.ImageRating) error

func (f CompleterFunc) Complete(ratings []models.ImageRating) error {
	return f(ratings)
}

type Option func(*Machine)

func WithPolicy(p Policy) Option {
	return func(m *Machine) {
		m.policy = p
	}
}

type Machine struct {
	ratings   []models.ImageRating
	index     int
	answers   models.Answers
	state     State
	policy    Policy
	completer Completer
}

func NewMachine(ratings []models.ImageRating, completer Completer, opts ...Option) (*Machine, error) {
	if len(ratings) == 0 {
		return nil, ErrNoImages
	}
	m := &Machine{
		ratings:   append([]models.ImageRating(nil), ratings...),
		index:     -1,
		state:     StateIdle,
		completer: completer,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Start positions the machine on the first image that still has unanswered
// questions, or on the last image when every image is fully rated.
func (m *Machine) Start() error {
	switch m.state {
	case StateCompleted:
		return ErrCompleted
	case StateActive:
		return nil
	}

	target := len(m.ratings) - 1
	for i, ir := range m.ratings {
		if !ir.IsComplete() {
			target = i
			break
		}
	}
	m.state = StateActive
	m.moveTo(target)
	return nil
}

func (m *Machine) State() State {
	return m.state
}

func (m *Machine) Completed() bool {
	return m.state == StateCompleted
}

// Index returns the current position. It is -1 before Start and Len() after
// completion.
func (m *Machine) Index() int {
	return m.index
}

func (m *Machine) Len() int {
	return len(m.ratings)
}

// Current returns the image at the current position with the in-progress
// answers applied.
func (m *Machine) Current() (models.ImageRating, bool) {
	if !m.inBounds(m.index) {
		return models.ImageRating{}, false
	}
	ir := m.ratings[m.index]
	ir.SetAnswers(m.answers)
	return ir, true
}

func (m *Machine) Answers() models.Answers {
	return m.answers
}

func (m *Machine) CurrentQuestion() models.Question {
	return m.answers.CurrentQuestion()
}

func (m *Machine) RecordAnswer(q models.Question, r models.Rating) error {
	switch m.state {
	case StateIdle:
		return ErrNotStarted
	case StateCompleted:
		return ErrCompleted
	}
	return m.answers.Set(q, r)
}

func (m *Machine) CanAdvance() bool {
	if m.state != StateActive || !m.inBounds(m.index) {
		return false
	}
	if m.index == len(m.ratings)-1 && m.policy == PolicyAllowIncompleteLast {
		return true
	}
	return m.answers.AllAnswered()
}

func (m *Machine) CanRetreat() bool {
	return m.state == StateActive && m.index > 0
}

// Advance moves to the next image. Advancing from the last image hands the
// flushed list to the Completer and, if it succeeds, completes the session.
func (m *Machine) Advance() error {
	switch m.state {
	case StateIdle:
		return ErrNotStarted
	case StateCompleted:
		return ErrCompleted
	}
	if !m.CanAdvance() {
		return ErrCannotAdvance
	}

	next := m.index + 1
	if m.inBounds(next) {
		m.moveTo(next)
		return nil
	}

	m.flush()
	if m.completer != nil {
		if err := m.completer.Complete(m.Ratings()); err != nil {
			return err
		}
	}
	m.index = len(m.ratings)
	m.answers = models.Answers{}
	m.state = StateCompleted
	return nil
}

func (m *Machine) Retreat() error {
	switch m.state {
	case StateIdle:
		return ErrNotStarted
	case StateCompleted:
		return ErrCompleted
	}
	if !m.CanRetreat() {
		return ErrAtFirstImage
	}
	m.moveTo(m.index - 1)
	return nil
}

// Ratings returns a copy of the full list with the in-progress answers
// flushed into the current image.
func (m *Machine) Ratings() []models.ImageRating {
	out := append([]models.ImageRating(nil), m.ratings...)
	if m.inBounds(m.index) {
		out[m.index].SetAnswers(m.answers)
	}
	return out
}

// moveTo flushes the current answers before loading the target's, so a
// position change can never drop in-progress answers.
func (m *Machine) moveTo(target int) {
	m.flush()
	m.index = target
	m.answers = m.ratings[target].Answers()
}

func (m *Machine) flush() {
	if m.inBounds(m.index) {
		m.ratings[m.index].SetAnswers(m.answers)
	}
}

func (m *Machine) inBounds(i int) bool {
	return i >= 0 && i < len(m.ratings)
}
