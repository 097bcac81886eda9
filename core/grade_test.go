package core

import (
	"testing"

	"github.com/huangsam/qualgate/schema"
	"github.com/stretchr/testify/assert"
)

func TestCalculateGrade(t *testing.T) {
	tests := []struct {
		ratio    float64
		expected schema.Grade
	}{
		{1.0, schema.GradeAPlus},
		{0.98, schema.GradeAPlus},
		{0.9799, schema.GradeA},
		{0.95, schema.GradeA},
		{0.92, schema.GradeAMinus},
		{0.88, schema.GradeBPlus},
		{0.84, schema.GradeB},
		{0.80, schema.GradeBMinus},
		{0.76, schema.GradeCPlus},
		{0.72, schema.GradeC},
		{0.68, schema.GradeCMinus},
		{0.64, schema.GradeDPlus},
		{0.60, schema.GradeD},
		{0.55, schema.GradeDMinus},
		{0.5499, schema.GradeF},
		{0, schema.GradeF},
		{-1, schema.GradeF},
	}

	for _, tt := range tests {
		t.Run(string(tt.expected), func(t *testing.T) {
			assert.Equal(t, tt.expected, CalculateGrade(tt.ratio))
		})
	}
}

func TestCalculateGrade_Monotonic(t *testing.T) {
	curve := GradingCurve()
	rank := make(map[schema.Grade]int, len(curve)+1)
	for i, step := range curve {
		rank[step.Grade] = len(curve) - i
	}
	rank[schema.GradeF] = 0

	prev := rank[CalculateGrade(0)]
	for i := 1; i <= 1000; i++ {
		cur := rank[CalculateGrade(float64(i) / 1000)]
		assert.GreaterOrEqual(t, cur, prev, "ratio %.3f", float64(i)/1000)
		prev = cur
	}
}

func TestGradingCurve_ReturnsCopy(t *testing.T) {
	curve := GradingCurve()
	curve[0] = schema.GradeStep{Grade: schema.GradeF, MinRatio: 2}

	assert.Equal(t, schema.GradeAPlus, CalculateGrade(1.0))
	assert.Len(t, GradingCurve(), 12)
	assert.Equal(t, schema.GradeStep{Grade: schema.GradeAPlus, MinRatio: 0.98}, GradingCurve()[0])
}

func TestGradeFor(t *testing.T) {
	assert.Equal(t, schema.GradeF, GradeFor(10, 0))
	assert.Equal(t, schema.GradeB, GradeFor(21, 25))
	assert.Equal(t, schema.GradeAPlus, GradeFor(20, 20))
	assert.Equal(t, schema.GradeC, GradeFor(72, 100))
}
