package obslog

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"

	"github.com/Mindburn-Labs/actiongov/pkg/types"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.Equal(t, "actiongov", cfg.ServiceName)
	require.Equal(t, "localhost:4317", cfg.OTLPEndpoint)
	require.Equal(t, 1.0, cfg.SampleRate)
	require.True(t, cfg.Enabled)
}

func TestNewProviderDisabled(t *testing.T) {
	p, err := New(context.Background(), Config{Enabled: false}, nil)
	require.NoError(t, err)
	require.NotNil(t, p)
	require.NotNil(t, p.Tracer())
	require.NotNil(t, p.Meter())
	require.NotNil(t, p.Logger())
}

func TestTrackOperation(t *testing.T) {
	p, err := New(context.Background(), Config{Enabled: false}, nil)
	require.NoError(t, err)

	ctx, finish := p.TrackOperation(context.Background(), "propose", attribute.String("test.key", "v"))
	require.NotNil(t, ctx)
	time.Sleep(time.Millisecond)
	finish(nil)
}

func TestTrackOperationWithError(t *testing.T) {
	p, err := New(context.Background(), Config{Enabled: false}, nil)
	require.NoError(t, err)

	_, finish := p.TrackOperation(context.Background(), "execute")
	finish(errors.New("boom"))
}

func TestRecordDenialAndApprovalDoNotPanicWhenDisabled(t *testing.T) {
	p, err := New(context.Background(), Config{Enabled: false}, nil)
	require.NoError(t, err)

	p.RecordDenial(context.Background(), string(types.CheckForbiddenBehavior))
	p.RecordApproval(context.Background(), string(types.DecisionAllow))
}

func TestShutdown(t *testing.T) {
	p, err := New(context.Background(), Config{Enabled: false}, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, p.Shutdown(ctx))
}
