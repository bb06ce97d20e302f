package assistant

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvalExpression(t *testing.T) {
	tests := []struct {
		expr string
		want float64
	}{
		{"12.5*(3+2)", 62.5},
		{"2+2", 4},
		{"10/4", 2.5},
		{"10%3", 1},
		{"-3+5", 2},
		{"2*pi", 6.283185307179586},
		{"e", 2.718281828459045},
		{"abs(-4.5)", 4.5},
		{"round(2.6)", 3},
		{"(1+2)*(3+4)", 21},
	}
	for _, tc := range tests {
		t.Run(tc.expr, func(t *testing.T) {
			got, err := EvalExpression(tc.expr)
			require.NoError(t, err)
			assert.InDelta(t, tc.want, got, 1e-9)
		})
	}
}

func TestEvalExpression_Errors(t *testing.T) {
	bad := []string{
		"",
		"1/0",
		"10 % 0",
		"__import__('os')",
		"system('ls')",
		"2+",
		"(1+2",
		"sqrt(4)",
		"1 2",
	}
	for _, expr := range bad {
		t.Run(expr, func(t *testing.T) {
			_, err := EvalExpression(expr)
			assert.Error(t, err)
		})
	}
}

func TestExtractExpression(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"calc 12.5*(3+2)", "12.5*(3+2)"},
		{"what is 2+2?", "2+2"},
		{"please calculate 2+2", "2+2"},
		{"compute pi * 2 for me", "pi * 2"},
		{"no math here", ""},
	}
	for _, tc := range tests {
		t.Run(tc.text, func(t *testing.T) {
			assert.Equal(t, tc.want, ExtractExpression(tc.text))
		})
	}
}

func TestFormatNumber(t *testing.T) {
	assert.Equal(t, "62.5", FormatNumber(62.5))
	assert.Equal(t, "4", FormatNumber(4.0))
	assert.Equal(t, "0.1", FormatNumber(0.1))
}

func TestCalcEndToEnd(t *testing.T) {
	expr := ExtractExpression("calc 12.5*(3+2)")
	v, err := EvalExpression(expr)
	require.NoError(t, err)
	assert.Equal(t, "12.5*(3+2) = 62.5", expr+" = "+FormatNumber(v))
}
