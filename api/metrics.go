package api

import (
	"context"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "taskman-api"

// taskRequestMetrics tracks the hot list route: one span plus one structured
// log entry per request.
type taskRequestMetrics struct {
	logger         *log.Logger
	span           trace.Span
	start          time.Time
	fetchDuration  time.Duration
	encodeDuration time.Duration
	tasksReturned  int
	adminScope     bool
	errorStage     string
}

func newTaskRequestMetrics(ctx context.Context, logger *log.Logger) (*taskRequestMetrics, context.Context) {
	m := &taskRequestMetrics{logger: logger, start: time.Now()}
	spanCtx, span := otel.Tracer(tracerName).Start(ctx, "tasks.list")
	m.span = span
	return m, spanCtx
}

func (m *taskRequestMetrics) ObserveFetch(duration time.Duration) {
	if duration <= 0 {
		return
	}
	m.fetchDuration = duration
}

func (m *taskRequestMetrics) ObserveEncode(duration time.Duration) {
	if duration <= 0 {
		return
	}
	m.encodeDuration = duration
}

func (m *taskRequestMetrics) SetTasksReturned(count int) {
	if count < 0 {
		count = 0
	}
	m.tasksReturned = count
}

func (m *taskRequestMetrics) SetAdminScope(admin bool) {
	m.adminScope = admin
}

func (m *taskRequestMetrics) SetErrorStage(stage string) {
	if stage == "" {
		return
	}
	m.errorStage = stage
}

// Log closes the span and emits the request metrics entry. It must be called
// exactly once, after the response has been written.
func (m *taskRequestMetrics) Log(status int, err error) {
	if m == nil {
		return
	}
	total := time.Since(m.start)

	if m.span != nil {
		attrs := []attribute.KeyValue{
			attribute.Int("tasks.status", status),
			attribute.Int("tasks.returned", m.tasksReturned),
			attribute.Bool("tasks.admin_scope", m.adminScope),
		}
		if m.errorStage != "" {
			attrs = append(attrs, attribute.String("tasks.error_stage", m.errorStage))
		}
		if err != nil {
			attrs = append(attrs, attribute.String("error.message", err.Error()))
		}
		m.span.SetAttributes(attrs...)
		if err != nil || status >= http.StatusInternalServerError {
			m.span.SetStatus(codes.Error, http.StatusText(status))
		} else {
			m.span.SetStatus(codes.Ok, "")
		}
		m.span.End()
	}

	if m.logger == nil {
		return
	}

	severityText, severityNumber := severityForStatus(status, err)
	fields := log.Fields{
		"route":           "/tasks",
		"status":          status,
		"total_ms":        durationToMillis(total),
		"tasks_returned":  m.tasksReturned,
		"admin_scope":     m.adminScope,
		"severity_number": severityNumber,
	}
	if m.fetchDuration > 0 {
		fields["fetch_ms"] = durationToMillis(m.fetchDuration)
	}
	if m.encodeDuration > 0 {
		fields["encode_ms"] = durationToMillis(m.encodeDuration)
	}
	if m.errorStage != "" {
		fields["error_stage"] = m.errorStage
	}
	if err != nil {
		fields["error"] = err.Error()
	}

	entry := m.logger.WithFields(fields)
	switch severityText {
	case "ERROR":
		entry.Error("tasks.request.metrics")
	case "WARN":
		entry.Warn("tasks.request.metrics")
	default:
		entry.Info("tasks.request.metrics")
	}
}

func severityForStatus(status int, err error) (string, int) {
	switch {
	case err != nil || status >= http.StatusInternalServerError:
		return "ERROR", 17
	case status >= http.StatusBadRequest:
		return "WARN", 13
	default:
		return "INFO", 9
	}
}

func durationToMillis(d time.Duration) float64 {
	if d <= 0 {
		return 0
	}
	return float64(d) / float64(time.Millisecond)
}
