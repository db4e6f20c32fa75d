package intentparser_test

import (
	"testing"

	"github.com/lehelkovach/osl-agent-prototype-sub000/internal/intentparser"

	"github.com/stretchr/testify/assert"
)

func TestClassify_Reminder(t *testing.T) {
	c := intentparser.Classify("remind me to call mom at 5pm")
	assert.Equal(t, intentparser.IntentReminder, c.Intent)
	assert.True(t, c.ShortCircuits())
}

func TestClassify_CalendarCreate(t *testing.T) {
	c := intentparser.Classify("schedule a meeting with the design team")
	assert.Equal(t, intentparser.IntentCalendarCreate, c.Intent)
}

func TestClassify_Recall(t *testing.T) {
	c := intentparser.Classify("what did I say about the budget last week")
	assert.Equal(t, intentparser.IntentRecall, c.Intent)
}

func TestClassify_TaskCreate(t *testing.T) {
	c := intentparser.Classify("add a task to review the PR")
	assert.Equal(t, intentparser.IntentTaskCreate, c.Intent)
}

func TestClassify_Ambiguous(t *testing.T) {
	c := intentparser.Classify("hello there, how are you?")
	assert.Equal(t, intentparser.IntentAmbiguous, c.Intent)
	assert.Equal(t, 0.0, c.Confidence)
	assert.False(t, c.ShortCircuits())
}

func TestClassify_MostSpecificRuleWinsOverKeyword(t *testing.T) {
	c := intentparser.Classify("remind me about the todo list")
	assert.Equal(t, intentparser.IntentReminder, c.Intent)
	assert.Equal(t, 0.95, c.Confidence)
}
