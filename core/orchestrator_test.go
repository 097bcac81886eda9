package core

import (
	"context"
	"errors"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/huangsam/qualgate/core/analyzer"
	"github.com/huangsam/qualgate/internal/contract"
	"github.com/huangsam/qualgate/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *contract.Config {
	root, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	return &contract.Config{
		ProjectRoot: root,
		Categories:  []string{schema.AllCategoriesKeyword},
		Workers:     2,
		Retry:       schema.RetryPolicy{MaxAttempts: 1, Backoff: time.Millisecond, Timeout: time.Second},
		Thresholds: schema.ThresholdConfig{
			Enabled:    true,
			Overall:    schema.Threshold{Min: ptr(70)},
			Categories: map[schema.CategoryID]schema.Threshold{},
		},
		CI: schema.CIConfig{
			Blocking: schema.BlockingConfig{Enabled: true, OnFailure: schema.BlockError, OnWarning: schema.BlockIgnore},
		},
		Recommendations: contract.RecommendationConfig{Enabled: true, MaxItems: 5},
	}
}

func fixedAnalyzer(id schema.CategoryID, weight, score float64, suggestions ...string) *funcAnalyzer {
	return &funcAnalyzer{id: id, weight: weight, fn: func(context.Context, string) (schema.CategoryResult, error) {
		return schema.CategoryResult{Score: score, MaxScore: weight, Suggestions: suggestions}, nil
	}}
}

func registryOf(t *testing.T, analyzers ...contract.Analyzer) *analyzer.Registry {
	r := analyzer.NewRegistry()
	for _, a := range analyzers {
		require.NoError(t, r.Register(a))
	}
	return r
}

func TestDetermineCategories(t *testing.T) {
	o := NewOrchestrator(testConfig(t))

	tests := []struct {
		name      string
		requested []string
		expected  []schema.CategoryID
	}{
		{"all", []string{"all"}, schema.AllCategories},
		{"all wins over names", []string{"style", "all"}, schema.AllCategories},
		{"comma list", []string{"security, style"}, []schema.CategoryID{schema.StyleCategory, schema.SecurityCategory}},
		{"separate entries", []string{"performance", "STRUCTURE"}, []schema.CategoryID{schema.StructureCategory, schema.PerformanceCategory}},
		{"unknown dropped", []string{"style,bogus"}, []schema.CategoryID{schema.StyleCategory}},
		{"duplicates collapse", []string{"style,style"}, []schema.CategoryID{schema.StyleCategory}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := o.DetermineCategories(tt.requested...)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}

	t.Run("nothing valid", func(t *testing.T) {
		for _, requested := range [][]string{nil, {""}, {"bogus,nope"}} {
			got, err := o.DetermineCategories(requested...)
			assert.Nil(t, got)
			assert.ErrorIs(t, err, ErrNoCategories)
			assert.True(t, contract.IsConfigurationError(err))
		}
	})
}

func TestCalculateOverall(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	t.Run("empty", func(t *testing.T) {
		overall := CalculateOverall(nil, now)
		assert.Equal(t, 0, overall.Percentage)
		assert.Equal(t, schema.GradeF, overall.Grade)
		assert.False(t, overall.HasErrors)
		assert.Equal(t, now, overall.Timestamp)
	})

	t.Run("sums categories", func(t *testing.T) {
		overall := CalculateOverall(map[schema.CategoryID]schema.CategoryResult{
			schema.StyleCategory:    {Score: 12.5, MaxScore: 20},
			schema.SecurityCategory: {Score: 17, MaxScore: 20},
		}, now)
		assert.Equal(t, 29.5, overall.Score)
		assert.Equal(t, 40.0, overall.MaxScore)
		assert.Equal(t, 74, overall.Percentage)
		assert.Equal(t, schema.GradeC, overall.Grade)
	})

	t.Run("errored category counts as zero", func(t *testing.T) {
		overall := CalculateOverall(map[schema.CategoryID]schema.CategoryResult{
			schema.StyleCategory:    {Score: 20, MaxScore: 20},
			schema.SecurityCategory: DegradedResult(20, "boom"),
		}, now)
		assert.Equal(t, 50, overall.Percentage)
		assert.True(t, overall.HasErrors)
	})
}

// A failing analyzer degrades only its own category.
func TestRun_AnalyzerFailureIsContained(t *testing.T) {
	cfg := testConfig(t)
	broken := &contract.MockAnalyzer{ID: schema.SecurityCategory, Weight: 20}
	broken.On("Analyze", mock.Anything, cfg.ProjectRoot, mock.Anything).
		Return(schema.CategoryResult{}, errors.New("boom"))

	registry := registryOf(t,
		fixedAnalyzer(schema.StructureCategory, 25, 20),
		fixedAnalyzer(schema.StyleCategory, 20, 18),
		broken,
	)
	o := NewOrchestrator(cfg, WithRegistry(registry))

	results, err := o.Run(WithQuiet(context.Background()))
	require.NoError(t, err)
	broken.AssertNumberOfCalls(t, "Analyze", 1)

	security := results.Categories[schema.SecurityCategory]
	assert.True(t, security.HasError())
	assert.Equal(t, 0.0, security.Score)
	assert.Equal(t, schema.GradeF, security.Grade)
	assert.Contains(t, security.Issues, "Critical analysis error: boom")
	require.Len(t, security.Errors, 1)
	assert.Equal(t, schema.UnknownError, security.Errors[0].Type)

	assert.Equal(t, schema.GradeBMinus, results.Categories[schema.StructureCategory].Grade)
	assert.Equal(t, schema.GradeBPlus, results.Categories[schema.StyleCategory].Grade)

	assert.Equal(t, 38.0, results.Overall.Score)
	assert.Equal(t, 65.0, results.Overall.MaxScore)
	assert.Equal(t, 58, results.Overall.Percentage)
	assert.True(t, results.Overall.HasErrors)

	require.NotNil(t, results.Gates)
	require.Len(t, results.Gates.Gates, 4)
	for _, g := range results.Gates.Gates {
		switch g.Name {
		case "security":
			assert.False(t, g.Passed)
			assert.Contains(t, g.Message, "analysis error: boom")
		case "structure", "style":
			assert.True(t, g.Passed)
		}
	}
	assert.False(t, results.Gates.Passed)
	assert.True(t, ShouldBlock(results.Gates, cfg.CI.Blocking))
	assert.Same(t, results.Gates, o.Gates().LastReport())
}

func TestRun_RespectsWorkerLimit(t *testing.T) {
	cfg := testConfig(t)
	cfg.Workers = 2

	var inFlight, peak atomic.Int32
	slow := func(id schema.CategoryID) contract.Analyzer {
		return &funcAnalyzer{id: id, weight: 20, fn: func(context.Context, string) (schema.CategoryResult, error) {
			n := inFlight.Add(1)
			defer inFlight.Add(-1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(20 * time.Millisecond)
			return schema.CategoryResult{Score: 20, MaxScore: 20}, nil
		}}
	}
	var analyzers []contract.Analyzer
	for _, id := range schema.AllCategories {
		analyzers = append(analyzers, slow(id))
	}
	o := NewOrchestrator(cfg, WithRegistry(registryOf(t, analyzers...)))

	results, err := o.Run(WithQuiet(context.Background()))
	require.NoError(t, err)
	assert.Len(t, results.Categories, len(schema.AllCategories))
	assert.LessOrEqual(t, peak.Load(), int32(2))
	assert.Equal(t, 100, results.Overall.Percentage)
	assert.Equal(t, schema.GradeAPlus, results.Overall.Grade)
}

func TestRun_PostSteps(t *testing.T) {
	registry := func(t *testing.T) *analyzer.Registry {
		return registryOf(t,
			fixedAnalyzer(schema.StyleCategory, 20, 10, "Wrap long lines"),
			fixedAnalyzer(schema.SecurityCategory, 20, 19, "Rotate keys"),
		)
	}

	t.Run("recommendations see the gate report", func(t *testing.T) {
		cfg := testConfig(t)
		rec := &contract.MockRecommender{}
		rec.On("GenerateRecommendations", mock.Anything,
			mock.MatchedBy(func(r *schema.AnalysisResults) bool { return r.Gates != nil }),
			schema.RecommendationOptions{MaxItems: 5, FocusFailed: true},
		).Return([]schema.Recommendation{{Category: schema.StyleCategory, Title: "Wrap long lines"}}, nil)

		sink := &contract.MockHistorySink{}
		entry := &schema.HistoryEntry{RunID: 7}
		sink.On("RecordScore", mock.Anything, mock.Anything).Return(entry, nil)

		o := NewOrchestrator(cfg, WithRegistry(registry(t)), WithRecommender(rec), WithHistorySink(sink))
		results, err := o.Run(WithQuiet(context.Background()))
		require.NoError(t, err)

		require.Len(t, results.Recommendations, 1)
		assert.Same(t, entry, results.History)
		rec.AssertExpectations(t)
		sink.AssertExpectations(t)
	})

	t.Run("a failing recommender loses only recommendations", func(t *testing.T) {
		cfg := testConfig(t)
		rec := &contract.MockRecommender{}
		rec.On("GenerateRecommendations", mock.Anything, mock.Anything, mock.Anything).
			Return(nil, errors.New("quota exceeded"))
		sink := &contract.MockHistorySink{}
		sink.On("RecordScore", mock.Anything, mock.Anything).Return(&schema.HistoryEntry{RunID: 1}, nil)

		o := NewOrchestrator(cfg, WithRegistry(registry(t)), WithRecommender(rec), WithHistorySink(sink))
		results, err := o.Run(WithQuiet(context.Background()))
		require.NoError(t, err)

		assert.Empty(t, results.Recommendations)
		assert.NotNil(t, results.Recommendations)
		assert.NotNil(t, results.Gates)
		assert.NotNil(t, results.History)
	})

	t.Run("a panicking history sink loses only history", func(t *testing.T) {
		cfg := testConfig(t)
		sink := &contract.MockHistorySink{}
		sink.On("RecordScore", mock.Anything, mock.Anything).
			Run(func(mock.Arguments) { panic("database went away") })

		o := NewOrchestrator(cfg, WithRegistry(registry(t)), WithHistorySink(sink))
		results, err := o.Run(WithQuiet(context.Background()))
		require.NoError(t, err)

		assert.Nil(t, results.History)
		assert.NotNil(t, results.Gates)
		assert.NotEmpty(t, results.Recommendations)
	})

	t.Run("disabled recommendations are skipped", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Recommendations.Enabled = false
		rec := &contract.MockRecommender{}

		o := NewOrchestrator(cfg, WithRegistry(registry(t)), WithRecommender(rec))
		results, err := o.Run(WithQuiet(context.Background()))
		require.NoError(t, err)

		assert.Empty(t, results.Recommendations)
		rec.AssertNotCalled(t, "GenerateRecommendations", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("detailed report", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Detailed = true
		broken := &funcAnalyzer{id: schema.PerformanceCategory, weight: 20, fn: func(context.Context, string) (schema.CategoryResult, error) {
			return schema.CategoryResult{}, contract.NewAnalysisError(schema.ParseError, schema.SeverityLow, "parse", errors.New("bad input"))
		}}
		r := registry(t)
		require.NoError(t, r.Register(broken))

		o := NewOrchestrator(cfg, WithRegistry(r))
		results, err := o.Run(WithQuiet(context.Background()))
		require.NoError(t, err)

		require.NotNil(t, results.Detailed)
		var order []schema.CategoryID
		for _, d := range results.Detailed.Categories {
			order = append(order, d.Category)
		}
		assert.Equal(t, []schema.CategoryID{schema.PerformanceCategory, schema.SecurityCategory, schema.StyleCategory}, order)
		assert.Equal(t, 1, results.Detailed.Categories[0].ErrorCount)
		assert.Equal(t, "parse: bad input", results.Detailed.Categories[0].Error)
		assert.Equal(t, 1, results.Detailed.ErrorStats.Total)
		assert.Equal(t, 1, results.Detailed.ErrorStats.ByType[schema.ParseError])
	})
}

func TestRun_UnknownCategories(t *testing.T) {
	cfg := testConfig(t)
	cfg.Categories = []string{"nope"}
	o := NewOrchestrator(cfg)

	results, err := o.Run(context.Background())
	assert.Nil(t, results)
	assert.ErrorIs(t, err, ErrNoCategories)
}

func TestRun_ResetsBetweenRuns(t *testing.T) {
	cfg := testConfig(t)
	o := NewOrchestrator(cfg, WithRegistry(registryOf(t,
		fixedAnalyzer(schema.StyleCategory, 20, 15),
		fixedAnalyzer(schema.SecurityCategory, 20, 20),
	)))

	first, err := o.Run(WithQuiet(context.Background()), "style,security")
	require.NoError(t, err)
	assert.Len(t, first.Categories, 2)

	second, err := o.Run(WithQuiet(context.Background()), "style")
	require.NoError(t, err)
	assert.Len(t, second.Categories, 1)
	assert.Equal(t, 75, second.Overall.Percentage)
}
