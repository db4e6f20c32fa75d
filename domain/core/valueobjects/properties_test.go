package valueobjects_test

import (
	"testing"
	"time"

	"github.com/lehelkovach/osl-agent-prototype-sub000/domain/core/valueobjects"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProperties_MergeOverlaysOtherOnTopOfReceiver(t *testing.T) {
	base := valueobjects.NewProperties(map[string]interface{}{"a": 1, "b": "keep"})
	overlay := valueobjects.NewProperties(map[string]interface{}{"a": 2, "c": true})

	merged := base.Merge(overlay)

	a, _ := merged.GetFloat("a")
	assert.Equal(t, 2.0, a)
	b, _ := merged.GetString("b")
	assert.Equal(t, "keep", b)
	c, _ := merged.GetBool("c")
	assert.True(t, c)
}

func TestProperties_RawIsDefensiveCopy(t *testing.T) {
	p := valueobjects.NewProperties(map[string]interface{}{"a": 1})
	raw := p.Raw()
	raw["a"] = 999

	v, _ := p.GetFloat("a")
	assert.Equal(t, 1.0, v)
}

func TestProperties_WithLeavesReceiverUntouched(t *testing.T) {
	p := valueobjects.EmptyProperties()
	withKey := p.With("x", "y")

	assert.Equal(t, 0, p.Len())
	assert.Equal(t, 1, withKey.Len())
}

func TestValidateAgainst_FlagsMissingRequiredProperty(t *testing.T) {
	defs := []valueobjects.PropertyDef{
		{Name: "email", Type: valueobjects.ValueTypeString, Required: true},
	}
	err := valueobjects.ValidateAgainst(valueobjects.EmptyProperties(), defs)
	assert.Error(t, err)
}

func TestValidateAgainst_FlagsTypeMismatch(t *testing.T) {
	defs := []valueobjects.PropertyDef{
		{Name: "count", Type: valueobjects.ValueTypeNumber, Required: true},
	}
	props := valueobjects.NewProperties(map[string]interface{}{"count": "not a number"})
	err := valueobjects.ValidateAgainst(props, defs)
	assert.Error(t, err)
}

func TestValidateAgainst_PassesWhenSatisfied(t *testing.T) {
	defs := []valueobjects.PropertyDef{
		{Name: "email", Type: valueobjects.ValueTypeString, Required: true},
		{Name: "age", Type: valueobjects.ValueTypeNumber, Required: false},
	}
	props := valueobjects.NewProperties(map[string]interface{}{"email": "a@b.com"})
	assert.NoError(t, valueobjects.ValidateAgainst(props, defs))
}

func TestNewNodeIDFromString_RejectsEmptyAndNonUUID(t *testing.T) {
	_, err := valueobjects.NewNodeIDFromString("")
	assert.Error(t, err)

	_, err = valueobjects.NewNodeIDFromString("not-a-uuid")
	assert.Error(t, err)
}

func TestNodeID_RoundTripsThroughString(t *testing.T) {
	id := valueobjects.NewNodeID()
	roundTripped, err := valueobjects.NewNodeIDFromString(id.String())
	require.NoError(t, err)
	assert.True(t, id.Equals(roundTripped))
}

func TestNewProvenance_ClampsConfidenceToUnitInterval(t *testing.T) {
	tooHigh := valueobjects.NewProvenance(valueobjects.SourceLLM, valueobjects.NewTraceID(), 1.5, time.Now())
	assert.Equal(t, 1.0, tooHigh.Confidence())

	tooLow := valueobjects.NewProvenance(valueobjects.SourceLLM, valueobjects.NewTraceID(), -0.5, time.Now())
	assert.Equal(t, 0.0, tooLow.Confidence())
}
