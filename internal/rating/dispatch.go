package rating

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/manash/imgrate/pkg/models"
)

var ErrUnboundKey = errors.New("key is not bound")

type EventKind int

const (
	EventRate EventKind = iota
	EventNext
	EventPrevious
	EventKey
)

func (k EventKind) String() string {
	switch k {
	case EventRate:
		return "rate"
	case EventNext:
		return "next"
	case EventPrevious:
		return "previous"
	case EventKey:
		return "key"
	default:
		return fmt.Sprintf("EventKind(%d)", int(k))
	}
}

// Event is a framework-independent UI input.
type Event struct {
	Kind     EventKind
	Question models.Question
	Rating   models.Rating
	Key      string
}

func RateEvent(q models.Question, r models.Rating) Event {
	return Event{Kind: EventRate, Question: q, Rating: r}
}

func KeyEvent(key string) Event {
	return Event{Kind: EventKey, Key: key}
}

type Outcome int

const (
	OutcomeIgnored Outcome = iota
	OutcomeRated
	OutcomeMoved
	OutcomeCompleted
)

func (o Outcome) String() string {
	switch o {
	case OutcomeIgnored:
		return "ignored"
	case OutcomeRated:
		return "rated"
	case OutcomeMoved:
		return "moved"
	case OutcomeCompleted:
		return "completed"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

type action int

const (
	actionNone action = iota
	actionRate
	actionNext
	actionPrevious
)

var keyMap = map[string]action{
	"1":     actionRate,
	"2":     actionRate,
	"3":     actionRate,
	"4":     actionRate,
	"5":     actionRate,
	"enter": actionNext,
	"space": actionNext,
	" ":     actionNext,
	"right": actionNext,
	"n":     actionNext,
	"left":  actionPrevious,
	"b":     actionPrevious,
	"p":     actionPrevious,
}

// IsBound reports whether key triggers a rating or navigation action.
func IsBound(key string) bool {
	_, ok := keyMap[normalizeKey(key)]
	return ok
}

func normalizeKey(key string) string {
	if key == " " {
		return key
	}
	return strings.ToLower(strings.TrimSpace(key))
}

// SaveFunc persists the flushed list after navigation.
type SaveFunc func(ratings []models.ImageRating) error

type DispatcherOption func(*Dispatcher)

func WithAutosave(save SaveFunc) DispatcherOption {
	return func(d *Dispatcher) {
		d.autosave = save
	}
}

func WithLogger(logger *zap.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

// Dispatcher is the single entry point the UI layers use to drive a
// Machine.
type Dispatcher struct {
	machine  *Machine
	autosave SaveFunc
	logger   *zap.Logger
}

func NewDispatcher(m *Machine, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		machine: m,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *Dispatcher) Machine() *Machine {
	return d.machine
}

func (d *Dispatcher) Dispatch(ev Event) (Outcome, error) {
	switch ev.Kind {
	case EventRate:
		return d.rate(ev.Question, ev.Rating)
	case EventNext:
		return d.next()
	case EventPrevious:
		return d.previous()
	case EventKey:
		return d.key(ev.Key)
	default:
		return OutcomeIgnored, fmt.Errorf("unknown event kind: %s", ev.Kind)
	}
}

func (d *Dispatcher) HandleKey(key string) (Outcome, error) {
	return d.Dispatch(KeyEvent(key))
}

func (d *Dispatcher) key(raw string) (Outcome, error) {
	key := normalizeKey(raw)
	switch keyMap[key] {
	case actionRate:
		r, err := models.ParseRating(key)
		if err != nil {
			return OutcomeIgnored, err
		}
		return d.rate(d.machine.CurrentQuestion(), r)
	case actionNext:
		return d.next()
	case actionPrevious:
		return d.previous()
	default:
		return OutcomeIgnored, fmt.Errorf("%w: %q", ErrUnboundKey, raw)
	}
}

func (d *Dispatcher) rate(q models.Question, r models.Rating) (Outcome, error) {
	if err := d.machine.RecordAnswer(q, r); err != nil {
		return OutcomeIgnored, err
	}
	d.logger.Debug("answer recorded",
		zap.Int("index", d.machine.Index()),
		zap.String("question", string(q)),
		zap.String("rating", string(r)))
	return OutcomeRated, nil
}

func (d *Dispatcher) next() (Outcome, error) {
	if err := d.machine.Advance(); err != nil {
		return OutcomeIgnored, err
	}
	if d.machine.Completed() {
		d.logger.Info("rating session completed", zap.Int("images", d.machine.Len()))
		return OutcomeCompleted, nil
	}
	d.save()
	return OutcomeMoved, nil
}

func (d *Dispatcher) previous() (Outcome, error) {
	if err := d.machine.Retreat(); err != nil {
		return OutcomeIgnored, err
	}
	d.save()
	return OutcomeMoved, nil
}

func (d *Dispatcher) save() {
	if d.autosave == nil {
		return
	}
	if err := d.autosave(d.machine.Ratings()); err != nil {
		d.logger.Warn("autosave failed", zap.Error(err))
	}
}

// IsNavigationHint reports whether err only means a navigation button is
// currently disabled.
func IsNavigationHint(err error) bool {
	return errors.Is(err, ErrCannotAdvance) || errors.Is(err, ErrAtFirstImage) || errors.Is(err, ErrUnboundKey)
}
