package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"
)

var (
	ErrInvalidRating   = errors.New("invalid rating")
	ErrInvalidQuestion = errors.New("invalid question")
)

// NumQuestions is the number of questions asked for every image.
const NumQuestions = 5

type Rating string

const (
	R1 Rating = "r1"
	R2 Rating = "r2"
	R3 Rating = "r3"
	R4 Rating = "r4"
	R5 Rating = "r5"

	// Unanswered is the zero value and serializes as JSON null.
	Unanswered Rating = ""
)

func AllRatings() []Rating {
	return []Rating{R1, R2, R3, R4, R5}
}

func (r Rating) IsValid() bool {
	return slices.Contains(AllRatings(), r)
}

func (r Rating) IsAnswered() bool {
	return r != Unanswered
}

// Value returns the numeric scale value 1..5, or 0 when unanswered.
func (r Rating) Value() int {
	if !r.IsValid() {
		return 0
	}
	return int(r[1] - '0')
}

func (r Rating) String() string {
	if r == Unanswered {
		return "-"
	}
	return string(r)
}

// RatingFromValue maps 1..5 onto R1..R5.
func RatingFromValue(v int) (Rating, error) {
	if v < 1 || v > len(AllRatings()) {
		return Unanswered, fmt.Errorf("%w: %d", ErrInvalidRating, v)
	}
	return AllRatings()[v-1], nil
}

// ParseRating accepts "r3", "R3" or "3".
func ParseRating(s string) (Rating, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if len(s) == 1 {
		return RatingFromValue(int(s[0]) - '0')
	}
	r := Rating(s)
	if !r.IsValid() {
		return Unanswered, fmt.Errorf("%w: %q", ErrInvalidRating, s)
	}
	return r, nil
}

func (r Rating) MarshalJSON() ([]byte, error) {
	if r == Unanswered {
		return []byte("null"), nil
	}
	return json.Marshal(string(r))
}

func (r *Rating) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*r = Unanswered
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed := Rating(s)
	if parsed != Unanswered && !parsed.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidRating, s)
	}
	*r = parsed
	return nil
}

type Question string

const (
	Q1 Question = "q1"
	Q2 Question = "q2"
	Q3 Question = "q3"
	Q4 Question = "q4"
	Q5 Question = "q5"
)

// AllQuestions returns the questions in their fixed evaluation order.
func AllQuestions() []Question {
	return []Question{Q1, Q2, Q3, Q4, Q5}
}

func (q Question) IsValid() bool {
	return slices.Contains(AllQuestions(), q)
}

// Index returns the zero-based position of q, or -1 if q is unknown.
func (q Question) Index() int {
	return slices.Index(AllQuestions(), q)
}

func (q Question) Label() string {
	return strings.ToUpper(string(q))
}

// Title joins the question label with its descriptive text, if any.
func (q Question) Title(text string) string {
	text = strings.TrimSpace(text)
	if text == "" || strings.EqualFold(text, q.Label()) {
		return q.Label()
	}
	return q.Label() + " " + text
}

// ParseQuestion accepts "q2", "Q2" or "2".
func ParseQuestion(s string) (Question, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if len(s) == 1 {
		s = "q" + s
	}
	q := Question(s)
	if !q.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidQuestion, s)
	}
	return q, nil
}

// Answers holds the five nullable ratings of a single image, indexed by
// question order.
type Answers [NumQuestions]Rating

func (a Answers) Get(q Question) Rating {
	i := q.Index()
	if i < 0 {
		return Unanswered
	}
	return a[i]
}

func (a *Answers) Set(q Question, r Rating) error {
	i := q.Index()
	if i < 0 {
		return fmt.Errorf("%w: %q", ErrInvalidQuestion, q)
	}
	if !r.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidRating, r)
	}
	a[i] = r
	return nil
}

func (a Answers) AllAnswered() bool {
	return a.AnsweredCount() == NumQuestions
}

func (a Answers) AnsweredCount() int {
	n := 0
	for _, r := range a {
		if r.IsAnswered() {
			n++
		}
	}
	return n
}

// CurrentQuestion returns the first unanswered question, or Q5 once every
// question has an answer.
func (a Answers) CurrentQuestion() Question {
	for i, q := range AllQuestions() {
		if !a[i].IsAnswered() {
			return q
		}
	}
	return Q5
}

type ImageRating struct {
	ImagePath string `json:"imagePath"`
	ImageName string `json:"imageName"`
	Q1Rating  Rating `json:"q1Rating"`
	Q2Rating  Rating `json:"q2Rating"`
	Q3Rating  Rating `json:"q3Rating"`
	Q4Rating  Rating `json:"q4Rating"`
	Q5Rating  Rating `json:"q5Rating"`
}

func NewImageRating(path string) ImageRating {
	return ImageRating{
		ImagePath: path,
		ImageName: ImageName(path),
	}
}

// ImageName is the display name of an image: its base name without extension.
func ImageName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func (ir ImageRating) Answers() Answers {
	return Answers{ir.Q1Rating, ir.Q2Rating, ir.Q3Rating, ir.Q4Rating, ir.Q5Rating}
}

func (ir *ImageRating) SetAnswers(a Answers) {
	ir.Q1Rating = a[0]
	ir.Q2Rating = a[1]
	ir.Q3Rating = a[2]
	ir.Q4Rating = a[3]
	ir.Q5Rating = a[4]
}

func (ir ImageRating) IsComplete() bool {
	return ir.Answers().AllAnswered()
}

// Validate reports whether a deserialized record is usable.
func (ir ImageRating) Validate() error {
	if ir.ImagePath == "" {
		return errors.New("image path is empty")
	}
	for i, r := range ir.Answers() {
		if r.IsAnswered() && !r.IsValid() {
			return fmt.Errorf("%s: %w: %q", AllQuestions()[i], ErrInvalidRating, r)
		}
	}
	return nil
}

// CountComplete returns how many images have all five answers.
func CountComplete(ratings []ImageRating) int {
	n := 0
	for _, ir := range ratings {
		if ir.IsComplete() {
			n++
		}
	}
	return n
}
