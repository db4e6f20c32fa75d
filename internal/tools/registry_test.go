package tools_test

import (
	"context"
	"errors"
	"testing"
	"time"

	agenterrors "github.com/lehelkovach/osl-agent-prototype-sub000/internal/errors"
	"github.com/lehelkovach/osl-agent-prototype-sub000/internal/tools"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_InvokeDispatchesToRegisteredTool(t *testing.T) {
	r := tools.NewRegistry()
	r.Register(tools.Descriptor{
		Name: tools.WebGetDOM,
		Invoke: func(ctx context.Context, params tools.Params) (tools.Params, error) {
			return tools.Params{"ok": true}, nil
		},
	})

	result, err := r.Invoke(context.Background(), tools.WebGetDOM, tools.Params{})
	require.NoError(t, err)
	assert.Equal(t, true, result["ok"])
}

func TestRegistry_InvokeUnknownToolReturnsInvalidInput(t *testing.T) {
	r := tools.NewRegistry()
	_, err := r.Invoke(context.Background(), "nonexistent.tool", tools.Params{})

	require.Error(t, err)
	assert.True(t, agenterrors.Is(err, agenterrors.KindInvalidInput))
}

func TestRegistry_InvokeWrapsFailureAsToolError(t *testing.T) {
	r := tools.NewRegistry()
	r.Register(tools.Descriptor{
		Name: tools.WebFill,
		Invoke: func(ctx context.Context, params tools.Params) (tools.Params, error) {
			return nil, errors.New("selector not found")
		},
	})

	_, err := r.Invoke(context.Background(), tools.WebFill, tools.Params{})
	require.Error(t, err)
	assert.True(t, agenterrors.Is(err, agenterrors.KindToolError))
}

func TestRegistry_InvokeReportsTimeoutOnExpiredContext(t *testing.T) {
	r := tools.NewRegistry()
	r.Register(tools.Descriptor{
		Name: tools.WebWaitFor,
		Invoke: func(ctx context.Context, params tools.Params) (tools.Params, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		},
	})

	ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond)
	defer cancel()

	_, err := r.Invoke(ctx, tools.WebWaitFor, tools.Params{})
	require.Error(t, err)
	assert.True(t, agenterrors.Is(err, agenterrors.KindTimeout))
}

func TestRegistry_LookupReturnsDescriptor(t *testing.T) {
	r := tools.NewRegistry()
	r.Register(tools.Descriptor{Name: tools.QueueEnqueue, RequiredParams: []string{"item"}})

	d, ok := r.Lookup(tools.QueueEnqueue)
	require.True(t, ok)
	assert.Equal(t, []string{"item"}, d.RequiredParams)

	_, ok = r.Lookup("missing")
	assert.False(t, ok)
}
