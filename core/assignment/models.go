package assignment

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/hesabu/core"
)

const (
	// IDPrefix is the prefix of the ids handed out by Service.AddNew: "Assignment-1", "Assignment-2"...
	IDPrefix = "Assignment-"

	// CreatedOnLayout is how the creation date is displayed in listings.
	CreatedOnLayout = "1/2/2006"
)

// Orderable fields
var OrderingFields = []string{"id", "created_at", "num_questions", "time_interval"}

type Question struct {
	QuestionNumber int    `json:"question_number"`
	Question       string `json:"question"`
}

// Assignment is a named set of abacus questions played back with a fixed reveal interval.
// A freshly added Assignment is a draft: it has no questions until it is saved by the editor.
type Assignment struct {
	ID           string     `json:"id"`
	CreatedAt    time.Time  `json:"created_at"` // UTC
	NumQuestions int        `json:"num_questions"`
	TimeInterval float64    `json:"time_interval"` // seconds between reveals
	Sequence     []Question `json:"sequence"`
}

func (a Assignment) IsDraft() bool {
	return a.NumQuestions == 0 && len(a.Sequence) == 0
}

// Interval returns the reveal interval. Non positive intervals are returned as 0,
// intervals too long for a time.Duration are capped.
func (a Assignment) Interval() time.Duration {
	switch {
	case a.TimeInterval <= 0 || math.IsNaN(a.TimeInterval):
		return 0
	case a.TimeInterval >= math.MaxInt64/float64(time.Second):
		return math.MaxInt64
	}
	return time.Duration(a.TimeInterval * float64(time.Second))
}

// Questions returns the raw question strings, in order.
func (a Assignment) Questions() []string {
	qs := make([]string, 0, len(a.Sequence))
	for _, q := range a.Sequence {
		qs = append(qs, q.Question)
	}
	return qs
}

// ListItem is an Assignment as shown in listings.
type ListItem struct {
	Assignment
	CreatedOn string `json:"created_on"`
	IsDraft   bool   `json:"is_draft"`
}

func NewListItem(a Assignment) ListItem {
	return ListItem{
		Assignment: a,
		CreatedOn:  a.CreatedAt.Format(CreatedOnLayout),
		IsDraft:    a.IsDraft(),
	}
}

// NewAssignment contains what the editor submits to save an Assignment.
type NewAssignment struct {
	NumQuestions int      `json:"num_questions" validate:"required,min=1"`
	TimeInterval float64  `json:"time_interval" validate:"required,gt=0,lte=3600"`
	Questions    []string `json:"questions" validate:"required,dive,nonblank"`
}

func (na *NewAssignment) Validate(validate *validator.Validate) error {
	for i, q := range na.Questions {
		na.Questions[i] = core.CleanString(q)
	}
	return validate.Struct(na)
}

// Sequence numbers the questions from 1.
func (na NewAssignment) Sequence() []Question {
	seq := make([]Question, 0, len(na.Questions))
	for i, q := range na.Questions {
		seq = append(seq, Question{QuestionNumber: i + 1, Question: q})
	}
	return seq
}

// ShareRequest lists the learners to invite to an Assignment.
type ShareRequest struct {
	Emails []string `json:"emails" validate:"required,min=1,dive,email"`
}

func (sr *ShareRequest) Validate(validate *validator.Validate) error {
	for i, e := range sr.Emails {
		sr.Emails[i] = core.CleanString(e, true /* lower */)
	}
	return validate.Struct(sr)
}

// FormatID returns the id of the n-th Assignment.
func FormatID(n int) string {
	return IDPrefix + strconv.Itoa(n)
}

// ParseIDNumber extracts n from an id of the form "Assignment-<n>".
func ParseIDNumber(id string) (int, bool) {
	if !strings.HasPrefix(id, IDPrefix) {
		return 0, false
	}
	n, err := strconv.Atoi(id[len(IDPrefix):])
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// NextIDNumber returns max(n)+1 over the ids of the form "Assignment-<n>", or 1 if there are none.
func NextIDNumber(ids []string) int {
	var max int
	for _, id := range ids {
		if n, ok := ParseIDNumber(id); ok && n > max {
			max = n
		}
	}
	return max + 1
}

func (a Assignment) String() string {
	return fmt.Sprintf("%s (%d questions, %gs)", a.ID, a.NumQuestions, a.TimeInterval)
}
