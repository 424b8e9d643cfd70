package rating

import (
	"errors"
	"testing"

	"github.com/manash/imgrate/pkg/models"
)

func newTestDispatcher(t *testing.T, opts ...DispatcherOption) *Dispatcher {
	t.Helper()
	m := startedMachine(t, nil)
	return NewDispatcher(m, opts...)
}

func TestDispatcher_DigitKeysRateCurrentQuestion(t *testing.T) {
	d := newTestDispatcher(t)

	keys := []string{"3", "1", "5"}
	for _, k := range keys {
		out, err := d.HandleKey(k)
		if err != nil {
			t.Fatalf("HandleKey(%q) error = %v", k, err)
		}
		if out != OutcomeRated {
			t.Errorf("HandleKey(%q) = %s, want rated", k, out)
		}
	}

	a := d.Machine().Answers()
	want := models.Answers{models.R3, models.R1, models.R5}
	if a != want {
		t.Errorf("answers = %v, want %v", a, want)
	}
	if d.Machine().CurrentQuestion() != models.Q4 {
		t.Errorf("CurrentQuestion() = %s, want q4", d.Machine().CurrentQuestion())
	}
}

func TestDispatcher_DigitAfterAllAnsweredOverwritesQ5(t *testing.T) {
	d := newTestDispatcher(t)
	for _, k := range []string{"1", "1", "1", "1", "1", "4"} {
		d.HandleKey(k)
	}
	if got := d.Machine().Answers().Get(models.Q5); got != models.R4 {
		t.Errorf("q5 = %s, want r4", got)
	}
}

func TestDispatcher_NavigationKeys(t *testing.T) {
	for _, key := range []string{"enter", " ", "space", "right", "n", "N"} {
		t.Run("next "+key, func(t *testing.T) {
			d := newTestDispatcher(t)
			for i := 0; i < models.NumQuestions; i++ {
				d.HandleKey("2")
			}
			out, err := d.HandleKey(key)
			if err != nil {
				t.Fatalf("HandleKey(%q) error = %v", key, err)
			}
			if out != OutcomeMoved || d.Machine().Index() != 1 {
				t.Errorf("HandleKey(%q) = %s at index %d, want moved to 1", key, out, d.Machine().Index())
			}
		})
	}

	for _, key := range []string{"left", "b", "p"} {
		t.Run("previous "+key, func(t *testing.T) {
			d := newTestDispatcher(t)
			for i := 0; i < models.NumQuestions; i++ {
				d.HandleKey("2")
			}
			d.HandleKey("n")
			out, err := d.HandleKey(key)
			if err != nil {
				t.Fatalf("HandleKey(%q) error = %v", key, err)
			}
			if out != OutcomeMoved || d.Machine().Index() != 0 {
				t.Errorf("HandleKey(%q) = %s at index %d, want moved to 0", key, out, d.Machine().Index())
			}
		})
	}
}

func TestDispatcher_DisabledNavigation(t *testing.T) {
	d := newTestDispatcher(t)

	out, err := d.Dispatch(Event{Kind: EventNext})
	if !errors.Is(err, ErrCannotAdvance) || out != OutcomeIgnored {
		t.Errorf("next with no answers = %s, %v", out, err)
	}
	out, err = d.Dispatch(Event{Kind: EventPrevious})
	if !errors.Is(err, ErrAtFirstImage) || out != OutcomeIgnored {
		t.Errorf("previous at first = %s, %v", out, err)
	}
	if !IsNavigationHint(err) {
		t.Error("IsNavigationHint() should be true for disabled navigation")
	}
}

func TestDispatcher_UnboundKey(t *testing.T) {
	d := newTestDispatcher(t)
	out, err := d.HandleKey("z")
	if !errors.Is(err, ErrUnboundKey) || out != OutcomeIgnored {
		t.Errorf("HandleKey(z) = %s, %v", out, err)
	}
	if IsBound("z") || !IsBound("ENTER") {
		t.Error("IsBound() mismatch")
	}
}

func TestDispatcher_RateEventTargetsExplicitQuestion(t *testing.T) {
	d := newTestDispatcher(t)
	if _, err := d.Dispatch(RateEvent(models.Q3, models.R2)); err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	a := d.Machine().Answers()
	if a.Get(models.Q3) != models.R2 || a.Get(models.Q1).IsAnswered() {
		t.Errorf("answers = %v, want only q3=r2", a)
	}

	if _, err := d.Dispatch(RateEvent(models.Question("q7"), models.R2)); !errors.Is(err, models.ErrInvalidQuestion) {
		t.Errorf("Dispatch(q7) error = %v, want ErrInvalidQuestion", err)
	}
}

func TestDispatcher_AutosaveOnMove(t *testing.T) {
	var saved [][]models.ImageRating
	d := newTestDispatcher(t, WithAutosave(func(r []models.ImageRating) error {
		saved = append(saved, r)
		return nil
	}))

	d.HandleKey("1")
	if len(saved) != 0 {
		t.Fatalf("autosave ran on rating, %d saves", len(saved))
	}
	for i := 1; i < models.NumQuestions; i++ {
		d.HandleKey("1")
	}
	d.HandleKey("n")
	d.HandleKey("p")

	if len(saved) != 2 {
		t.Fatalf("autosave ran %d times, want 2", len(saved))
	}
	if !saved[0][0].IsComplete() {
		t.Error("autosaved list should contain the flushed first image")
	}
}

func TestDispatcher_AutosaveFailureIsNotAnError(t *testing.T) {
	d := newTestDispatcher(t, WithAutosave(func([]models.ImageRating) error {
		return errors.New("read-only")
	}))
	for i := 0; i < models.NumQuestions; i++ {
		d.HandleKey("5")
	}
	if _, err := d.HandleKey("n"); err != nil {
		t.Errorf("HandleKey(n) error = %v, want nil", err)
	}
}

func TestDispatcher_Completion(t *testing.T) {
	c := &recordingCompleter{}
	d := NewDispatcher(startedMachine(t, c))

	var out Outcome
	for img := 0; img < 3; img++ {
		for i := 0; i < models.NumQuestions; i++ {
			d.HandleKey("3")
		}
		var err error
		out, err = d.HandleKey("enter")
		if err != nil {
			t.Fatalf("HandleKey(enter) error = %v", err)
		}
	}
	if out != OutcomeCompleted {
		t.Errorf("final outcome = %s, want completed", out)
	}
	if c.calls != 1 {
		t.Errorf("Complete() calls = %d, want 1", c.calls)
	}
}
