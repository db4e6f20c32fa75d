package scheduler_test

import (
	"testing"
	"time"

	"github.com/lehelkovach/osl-agent-prototype-sub000/internal/scheduler"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatches_IntervalFiresFirstTimeImmediately(t *testing.T) {
	rule := scheduler.Rule{Kind: scheduler.KindInterval, Expression: "1h"}
	assert.True(t, scheduler.Matches(rule, time.Now(), nil))
}

func TestMatches_IntervalWaitsUntilElapsed(t *testing.T) {
	now := time.Now()
	rule := scheduler.Rule{Kind: scheduler.KindInterval, Expression: "1h", LastFired: now.Add(-30 * time.Minute)}
	assert.False(t, scheduler.Matches(rule, now, nil))

	rule.LastFired = now.Add(-61 * time.Minute)
	assert.True(t, scheduler.Matches(rule, now, nil))
}

func TestMatches_AtFiresOnceAtOrAfterTimestamp(t *testing.T) {
	at := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	rule := scheduler.Rule{Kind: scheduler.KindAt, Expression: at.Format(time.RFC3339)}

	assert.False(t, scheduler.Matches(rule, at.Add(-time.Minute), nil))
	assert.True(t, scheduler.Matches(rule, at, nil))

	rule.LastFired = at
	assert.False(t, scheduler.Matches(rule, at.Add(time.Minute), nil))
}

func TestMatches_CronLiteralAndStepFields(t *testing.T) {
	now := time.Date(2026, 3, 15, 9, 30, 0, 0, time.UTC) // Sunday
	rule := scheduler.Rule{Kind: scheduler.KindCron, Expression: "30 9 * * *"}
	assert.True(t, scheduler.Matches(rule, now, nil))

	stepRule := scheduler.Rule{Kind: scheduler.KindCron, Expression: "*/15 * * * *"}
	assert.True(t, scheduler.Matches(stepRule, now, nil))

	offStep := scheduler.Rule{Kind: scheduler.KindCron, Expression: "*/7 * * * *"}
	assert.False(t, scheduler.Matches(offStep, now, nil))
}

func TestMatches_CronDoesNotRefireWithinSameMinute(t *testing.T) {
	now := time.Date(2026, 3, 15, 9, 30, 10, 0, time.UTC)
	rule := scheduler.Rule{Kind: scheduler.KindCron, Expression: "30 9 * * *", LastFired: now.Add(-5 * time.Second)}
	assert.False(t, scheduler.Matches(rule, now, nil))
}

func TestMatches_ConditionDelegatesToCallback(t *testing.T) {
	rule := scheduler.Rule{Kind: scheduler.KindCondition, Expression: "queue_depth > 10"}
	assert.False(t, scheduler.Matches(rule, time.Now(), nil))

	called := false
	assert.True(t, scheduler.Matches(rule, time.Now(), func(expr string, now time.Time) bool {
		called = true
		return expr == "queue_depth > 10"
	}))
	assert.True(t, called)
}

func TestScheduler_TickEnqueuesMatchingRulesAndAdvancesLastFired(t *testing.T) {
	var enqueued []string
	s := scheduler.New(func(rule scheduler.Rule) error {
		enqueued = append(enqueued, rule.ID)
		return nil
	}, nil)

	s.AddRule(scheduler.Rule{ID: "r1", Kind: scheduler.KindInterval, Expression: "1h"})
	s.AddRule(scheduler.Rule{ID: "r2", Kind: scheduler.KindInterval, Expression: "1h", LastFired: time.Now()})

	errs := s.Tick(time.Now())
	require.Empty(t, errs)
	assert.Equal(t, []string{"r1"}, enqueued)

	errs = s.Tick(time.Now())
	require.Empty(t, errs)
	assert.Equal(t, []string{"r1"}, enqueued) // r1 fired once and is not due again until the interval elapses
}

func TestScheduler_TickCollectsEnqueueErrorsWithoutStopping(t *testing.T) {
	s := scheduler.New(func(rule scheduler.Rule) error {
		return assertError{}
	}, nil)
	s.AddRule(scheduler.Rule{ID: "r1", Kind: scheduler.KindInterval, Expression: "1h"})

	errs := s.Tick(time.Now())
	require.Len(t, errs, 1)
}

type assertError struct{}

func (assertError) Error() string { return "enqueue failed" }
