package telemetry

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func recordSpans(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	previous := otel.GetTracerProvider()
	otel.SetTracerProvider(provider)
	t.Cleanup(func() { otel.SetTracerProvider(previous) })
	return recorder
}

func TestInstrumentRestyCapturesRequestBody(t *testing.T) {
	recorder := recordSpans(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	client := resty.New()
	InstrumentResty(client, "test:lib/telemetry")

	_, err := client.R().SetFormData(map[string]string{"q": "timetable"}).Post(srv.URL)
	require.NoError(t, err)

	spans := recorder.Ended()
	require.NotEmpty(t, spans)
	var bodies []string
	for _, span := range spans {
		for _, attr := range span.Attributes() {
			if attr.Key == "request/body" {
				bodies = append(bodies, attr.Value.Emit())
			}
		}
	}
	require.NotEmpty(t, bodies)
	require.Contains(t, bodies[0], "q=timetable")
}

func TestWithoutRequestBodyKeepsCredentialsOutOfSpans(t *testing.T) {
	recorder := recordSpans(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	client := resty.New()
	InstrumentResty(client, "test:lib/telemetry", WithoutRequestBody())

	const password = "hunter2-sesame"
	_, err := client.R().SetFormData(map[string]string{
		"username": "0601020304",
		"password": password,
	}).Post(srv.URL)
	require.NoError(t, err)

	spans := recorder.Ended()
	require.NotEmpty(t, spans)
	for _, span := range spans {
		for _, attr := range span.Attributes() {
			require.NotEqual(t, "request/body", string(attr.Key))
			require.False(t, strings.Contains(attr.Value.Emit(), password),
				"attribute %s leaks the posted password", attr.Key)
		}
	}
}
