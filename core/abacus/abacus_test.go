package abacus

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		name     string
		question string
		want     []string
	}{
		{name: "empty", question: "", want: []string{}},
		{name: "no numbers", question: "abc +-", want: []string{}},
		{name: "single number", question: "42", want: []string{"42"}},
		{name: "mixed operators", question: "1+2-3*2", want: []string{"1", "+2", "-3", "*2"}},
		{name: "division", question: "10/5", want: []string{"10", "/5"}},
		{name: "decimals", question: "1.5+2.25", want: []string{"1.5", "+2.25"}},
		{name: "leading sign", question: "-4+9", want: []string{"-4", "+9"}},
		{name: "display glyphs", question: "6×2÷3", want: []string{"6", "×2", "÷3"}},
		{name: "spaces are skipped", question: "1 + 2", want: []string{"1", "2"}},
		{name: "double operator keeps last", question: "5+-3", want: []string{"5", "-3"}},
		{name: "parentheses are skipped", question: "(1+2)*3", want: []string{"1", "+2", "*3"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Tokenize(tt.question))
		})
	}
}

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name    string
		expr    string
		want    string
		wantErr bool
	}{
		{name: "left to right precedence", expr: "1+2-3*2", want: "-3"},
		{name: "product", expr: "5*2", want: "10"},
		{name: "division", expr: "7/2", want: "3.5"},
		{name: "parentheses", expr: "(1+2)*3", want: "9"},
		{name: "nested parentheses", expr: "((2))*(3+(4-1))", want: "12"},
		{name: "unary minus", expr: "-4+9", want: "5"},
		{name: "unary after operator", expr: "5*-2", want: "-10"},
		{name: "display glyphs", expr: "6×2÷3", want: "4"},
		{name: "x as times", expr: "6x2", want: "12"},
		{name: "decimals", expr: "0.1+0.2", want: "0.30000000000000004"},
		{name: "negative zero", expr: "0*-1", want: "0"},
		{name: "large", expr: "1000000000*1000000000000", want: "1e+21"},
		{name: "large negative", expr: "-25*100000000000000000000", want: "-2.5e+21"},
		{name: "below exponent", expr: "999999999*1000000000000", want: "999999999000000000000"},
		{name: "tiny", expr: "1/10000000", want: "1e-7"},
		{name: "small", expr: "1/1000000", want: "0.000001"},
		{name: "junk is dropped", expr: "1 + 2 apples", want: "3"},
		{name: "division by zero", expr: "10/0", want: InvalidExpression, wantErr: true},
		{name: "zero by zero", expr: "0/0", want: InvalidExpression, wantErr: true},
		{name: "empty", expr: "", want: InvalidExpression, wantErr: true},
		{name: "only junk", expr: "abc", want: InvalidExpression, wantErr: true},
		{name: "dangling operator", expr: "1+", want: InvalidExpression, wantErr: true},
		{name: "unbalanced parenthesis", expr: "(1+2", want: InvalidExpression, wantErr: true},
		{name: "extra parenthesis", expr: "1+2)", want: InvalidExpression, wantErr: true},
		{name: "bad number", expr: "1.2.3+1", want: InvalidExpression, wantErr: true},
		{name: "empty parentheses", expr: "()", want: InvalidExpression, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Evaluate(tt.expr)
			assert.Equal(t, tt.want, res.String())
			assert.Equal(t, tt.wantErr, !res.Ok(), "err = %v", res.Err)
		})
	}
}

func TestEvaluateTokens(t *testing.T) {
	assert.Equal(t, "10", EvaluateTokens([]string{"5", "*2"}).String())
	assert.Equal(t, InvalidExpression, EvaluateTokens([]string{"10", "/0"}).String())
	assert.Equal(t, InvalidExpression, EvaluateTokens(nil).String())
	assert.Equal(t, "-3", EvaluateTokens(Tokenize("1+2-3*2")).String())
}

func TestFormatForDisplay(t *testing.T) {
	assert.Equal(t, "x2", FormatForDisplay("*2"))
	assert.Equal(t, "÷4", FormatForDisplay("/4"))
	assert.Equal(t, "+3", FormatForDisplay("+3"))
}

func TestQuestionLabel(t *testing.T) {
	assert.Equal(t, "A", QuestionLabel(0))
	assert.Equal(t, "C", QuestionLabel(2))
	assert.Equal(t, "Z", QuestionLabel(25))
	assert.Equal(t, "Q27", QuestionLabel(26))
}
