package observability

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/Apurer/agenda-client/internal/domains/session/adapters/storage/memory"
	"github.com/Apurer/agenda-client/internal/domains/session/application"
	"github.com/Apurer/agenda-client/internal/domains/session/domain"
	"github.com/Apurer/agenda-client/internal/domains/session/ports"
)

type stubExchanger struct{ err error }

func (s stubExchanger) Exchange(context.Context, ports.Credentials) (ports.TokenPair, error) {
	if s.err != nil {
		return ports.TokenPair{}, s.err
	}
	return ports.TokenPair{Access: "jwt-ann"}, nil
}

type stubDecoder struct{}

func (stubDecoder) Decode(string) (domain.UserProfile, error) {
	return domain.UserProfile{ID: "1", Name: "Ann", Email: "a@x.com"}, nil
}

func setup(t *testing.T, exchangeErr error) (ports.Service, *tracetest.InMemoryExporter, *sdkmetric.ManualReader) {
	t.Helper()
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sdktrace.NewSimpleSpanProcessor(exporter)))
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() {
		_ = tp.Shutdown(context.Background())
		_ = mp.Shutdown(context.Background())
	})

	store := application.NewStore(memory.NewStorage(), stubExchanger{err: exchangeErr}, stubDecoder{})
	svc := New(store, WithTracer(tp.Tracer("test")), WithMeter(mp.Meter("test")))
	require.NoError(t, svc.Init(context.Background()))
	return svc, exporter, reader
}

func counterValue(t *testing.T, reader *sdkmetric.ManualReader, name string) int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	var total int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok)
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
		}
	}
	return total
}

func TestService_SignInRecordsSpanAndCounter(t *testing.T) {
	svc, exporter, reader := setup(t, nil)

	_, err := svc.SignIn(context.Background(), ports.Credentials{Email: "a@x.com", Password: "secret"})
	require.NoError(t, err)
	require.NoError(t, svc.SignOut(context.Background()))

	var names []string
	for _, span := range exporter.GetSpans() {
		names = append(names, span.Name)
	}
	assert.Contains(t, names, "SessionService.SignIn")
	assert.Contains(t, names, "SessionService.SignOut")
	assert.Equal(t, int64(1), counterValue(t, reader, "session.signins"))
	assert.Equal(t, int64(1), counterValue(t, reader, "session.signouts"))
}

func TestService_SignInFailureKeepsTypedError(t *testing.T) {
	svc, exporter, reader := setup(t, ports.ErrCredentialsRejected)

	_, err := svc.SignIn(context.Background(), ports.Credentials{Email: "a@x.com"})
	var signInErr *application.SignInError
	require.ErrorAs(t, err, &signInErr)
	assert.Equal(t, application.ReasonRejected, signInErr.Reason)

	spans := exporter.GetSpans()
	require.NotEmpty(t, spans)
	last := spans[len(spans)-1]
	assert.Equal(t, "SessionService.SignIn", last.Name)
	assert.Equal(t, codes.Error, last.Status.Code)
	assert.Equal(t, int64(1), counterValue(t, reader, "session.signin_failures"))
	assert.Zero(t, counterValue(t, reader, "session.signins"))
}
