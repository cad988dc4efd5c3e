package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/esly-abro/JKhomes-sub000/pkg/otelhelper"
	"github.com/esly-abro/JKhomes-sub000/pkg/protocol"
)

func recordedSpans(t *testing.T) (*tracetest.SpanRecorder, Option) {
	t.Helper()

	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	return recorder, WithTracer(provider.Tracer("engine-test"))
}

func spansNamed(recorder *tracetest.SpanRecorder, name string) []sdktrace.ReadOnlySpan {
	var matched []sdktrace.ReadOnlySpan

	for _, span := range recorder.Ended() {
		if span.Name() == name {
			matched = append(matched, span)
		}
	}

	return matched
}

func TestAdvanceRecordsSpans(t *testing.T) {
	recorder, tracerOpt := recordedSpans(t)
	h := newHarness(t, tracerOpt)
	h.saveActive(t, welcomeFollowupWorkflow())

	require.NoError(t, h.engine.OnEvent(context.Background(), newLeadEvent("lead-1")))

	advances := spansNamed(recorder, "engine.advance")
	require.NotEmpty(t, advances)

	attrs := map[string]string{}
	for _, kv := range advances[0].Attributes() {
		attrs[string(kv.Key)] = kv.Value.AsString()
	}

	assert.Equal(t, "t1", attrs[otelhelper.TenantIDKey])
	assert.Equal(t, "wf-welcome", attrs[otelhelper.WorkflowIDKey])
	assert.Equal(t, "lead-1", attrs[otelhelper.LeadIDKey])
	assert.NotEmpty(t, attrs[otelhelper.InstanceIDKey])

	dispatches := spansNamed(recorder, "engine.dispatch_action")
	require.NotEmpty(t, dispatches)

	attrs = map[string]string{}
	for _, kv := range dispatches[0].Attributes() {
		attrs[string(kv.Key)] = kv.Value.AsString()
	}

	assert.Equal(t, "welcome", attrs[otelhelper.NodeIDKey])
	assert.Equal(t, "sendMessage", attrs[otelhelper.ActionKindKey])
	assert.Equal(t, codes.Unset, dispatches[0].Status().Code)
}

func TestDispatchSpanRecordsPermanentFailure(t *testing.T) {
	recorder, tracerOpt := recordedSpans(t)
	h := newHarness(t, tracerOpt)
	h.dispatcher.failWith = protocol.Permanent(errors.New("recipient rejected"))
	h.saveActive(t, welcomeFollowupWorkflow())

	require.NoError(t, h.engine.OnEvent(context.Background(), newLeadEvent("lead-1")))

	dispatches := spansNamed(recorder, "engine.dispatch_action")
	require.NotEmpty(t, dispatches)

	status := dispatches[0].Status()
	assert.Equal(t, codes.Error, status.Code)
	assert.Contains(t, status.Description, "recipient rejected")
}
