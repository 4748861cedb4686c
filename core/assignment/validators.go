package assignment

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/hesabu/core"
)

var (
	questionsCountTag  = "questions_count"
	questionsCountText = "exactly one question is required per num_questions"
)

// InitValidators registers the validators of this package.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	validate.RegisterStructValidation(newAssignmentStructValidation, NewAssignment{})
	core.RegisterCustomTranslation(validate, translator, questionsCountTag, questionsCountText)
}

// newAssignmentStructValidation checks that a question is provided for each of the NumQuestions.
func newAssignmentStructValidation(sl validator.StructLevel) {
	na, ok := sl.Current().Interface().(NewAssignment)
	if !ok {
		return
	}
	if na.NumQuestions > 0 && len(na.Questions) > 0 && len(na.Questions) != na.NumQuestions {
		sl.ReportError(na.Questions, "questions", "Questions", questionsCountTag, "")
	}
}
