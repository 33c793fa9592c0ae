package expr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEval_Positional(t *testing.T) {
	values := Values{2.3, 4.3, 6.4, 3.2}
	tests := []struct {
		src  string
		want float64
	}{
		{"x[0]", 2.3},
		{"2 * x[1] - x[2]", 2*4.3 - 6.4},
		{"3.0", 3},
		{"-x[3]", -3.2},
		{"x[-1]", 3.2},
		{"(x[0] + x[1]) / 2", (2.3 + 4.3) / 2},
		{"x[1 + 1]", 6.4},
		{"1e3 * x[0]", 2300},
		{"10 - 2 - 3", 5},
		{"8 / 4 / 2", 1},
		{"2 + 3 * 4", 14},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			p, err := Compile(tt.src)
			require.NoError(t, err)
			got, err := p.Eval(values)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestEvalList_Named(t *testing.T) {
	args := Args{"hours": 12, "minutes": 21, "seconds": 59}
	tests := []struct {
		src  string
		want []float64
	}{
		{"[x['hours'], x['minutes'], x['seconds']]", []float64{12, 21, 59}},
		{`x["hours"], x["minutes"]`, []float64{12, 21}},
		{"(x.hours, x.minutes * 2)", []float64{12, 42}},
		{"x.seconds", []float64{59}},
		{"x.seconds,", []float64{59}},
		{"[0, x.hours]", []float64{0, 12}},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			p, err := Compile(tt.src)
			require.NoError(t, err)
			got, err := p.EvalList(args)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, len(tt.want), p.Arity())
		})
	}
}

func TestCompile_ForbiddenReference(t *testing.T) {
	for _, src := range []string{"unittest", "y[0]", "x[0] + open", "__import__", "abs(x[0])", "[x.a, values]"} {
		_, err := Compile(src)
		var fe *ForbiddenReferenceError
		require.ErrorAs(t, err, &fe, src)
		assert.ErrorIs(t, err, ErrForbiddenReference)
	}
}

func TestCompile_SyntaxErrors(t *testing.T) {
	for _, src := range []string{"", "x", "x +", "x[0", "1 2", "x[0][1]", "(1)[0]", "'a'", "x[0] ** 2", "[1, 2] + 1", "()", "1.2.3", "x['a"} {
		_, err := Compile(src)
		var se *SyntaxError
		require.ErrorAs(t, err, &se, src)
		assert.ErrorIs(t, err, ErrSyntax)
	}
}

func TestEval_InsufficientValues(t *testing.T) {
	p := MustCompile("x[4]")
	_, err := p.Eval(Values{1, 2, 3})
	var ie *InsufficientValuesError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, 4, ie.Index)
	assert.Equal(t, 3, ie.Len)

	_, err = MustCompile("x[-4]").Eval(Values{1, 2, 3})
	assert.ErrorIs(t, err, ErrInsufficientValues)
}

func TestEval_RuntimeErrors(t *testing.T) {
	_, err := MustCompile("x['a']").Eval(Values{1})
	assert.ErrorIs(t, err, ErrEval)

	_, err = MustCompile("x[0]").EvalList(Args{"a": 1})
	assert.ErrorIs(t, err, ErrEval)

	_, err = MustCompile("x[0.5]").Eval(Values{1})
	assert.ErrorIs(t, err, ErrEval)

	_, err = MustCompile("x[0] / (x[1] - 1)").Eval(Values{1, 1})
	assert.ErrorIs(t, err, ErrEval)

	_, err = MustCompile("x[0], x[1]").Eval(Values{1, 2})
	assert.ErrorIs(t, err, ErrEval)

	_, err = MustCompile("[x.a, x.b]").EvalList(Args{"a": 1})
	var me *MissingArgumentError
	require.ErrorAs(t, err, &me)
	assert.Equal(t, "b", me.Name)
}
