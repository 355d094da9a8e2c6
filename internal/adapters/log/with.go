package log

import "github.com/bft-labs/pubship/internal/ports"

type withFields struct {
	next   ports.Logger
	fields []ports.Field
}

// With returns a logger that appends fields to every entry.
func With(logger ports.Logger, fields ...ports.Field) ports.Logger {
	if w, ok := logger.(*withFields); ok {
		merged := make([]ports.Field, 0, len(w.fields)+len(fields))
		merged = append(merged, w.fields...)
		merged = append(merged, fields...)
		return &withFields{next: w.next, fields: merged}
	}
	return &withFields{next: logger, fields: fields}
}

func (w *withFields) merge(fields []ports.Field) []ports.Field {
	out := make([]ports.Field, 0, len(w.fields)+len(fields))
	out = append(out, w.fields...)
	return append(out, fields...)
}

func (w *withFields) Debug(msg string, fields ...ports.Field) { w.next.Debug(msg, w.merge(fields)...) }
func (w *withFields) Info(msg string, fields ...ports.Field)  { w.next.Info(msg, w.merge(fields)...) }
func (w *withFields) Warn(msg string, fields ...ports.Field)  { w.next.Warn(msg, w.merge(fields)...) }
func (w *withFields) Error(msg string, fields ...ports.Field) { w.next.Error(msg, w.merge(fields)...) }
