package logging

import (
	"context"
	"log/slog"
	"os"

	"github.com/Graylog2/go-gelf/gelf"
)

// syslog severities used by GELF.
const (
	gelfLevelError   = 3
	gelfLevelWarning = 4
	gelfLevelInfo    = 6
	gelfLevelDebug   = 7
)

// GELFHandler is an slog.Handler that ships records to a Graylog server
// over UDP. Records below the configured level are dropped locally.
type GELFHandler struct {
	writer *gelf.Writer
	host   string
	level  slog.Level
	attrs  []slog.Attr
	group  string
}

// NewGELFHandler dials the Graylog UDP endpoint, e.g. "graylog:12201".
func NewGELFHandler(addr string, level slog.Level) (*GELFHandler, error) {
	w, err := gelf.NewWriter(addr)
	if err != nil {
		return nil, err
	}
	host, err := os.Hostname()
	if err != nil {
		host = "unknown"
	}
	return &GELFHandler{writer: w, host: host, level: level}, nil
}

func (h *GELFHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *GELFHandler) Handle(_ context.Context, r slog.Record) error {
	extra := make(map[string]interface{}, r.NumAttrs()+len(h.attrs))
	for _, a := range h.attrs {
		extra["_"+h.qualify(a.Key)] = a.Value.Any()
	}
	r.Attrs(func(a slog.Attr) bool {
		extra["_"+h.qualify(a.Key)] = a.Value.Any()
		return true
	})

	return h.writer.WriteMessage(&gelf.Message{
		Version:  "1.1",
		Host:     h.host,
		Short:    r.Message,
		TimeUnix: float64(r.Time.UnixNano()) / 1e9,
		Level:    gelfLevel(r.Level),
		Facility: "transformsync",
		Extra:    extra,
	})
}

func (h *GELFHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.attrs = append(append([]slog.Attr{}, h.attrs...), attrs...)
	return &clone
}

func (h *GELFHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.group = h.qualify(name)
	return &clone
}

func (h *GELFHandler) qualify(key string) string {
	if h.group == "" {
		return key
	}
	return h.group + "." + key
}

func gelfLevel(l slog.Level) int32 {
	switch {
	case l >= slog.LevelError:
		return gelfLevelError
	case l >= slog.LevelWarn:
		return gelfLevelWarning
	case l >= slog.LevelInfo:
		return gelfLevelInfo
	default:
		return gelfLevelDebug
	}
}
