package content

import (
	"context"
	"log/slog"
	"unicode/utf8"
)

const previewLen = 120

// LogEntries logs a content event at INFO (source, channel, type labels) and
// DEBUG (text preview up to 120 bytes, or byte size for binary entries).
func LogEntries(event, source string, ch Channel, entries []Entry) {
	slog.Info(event, "source", source, "channel", ch, "types", Types(entries))

	if !slog.Default().Enabled(context.Background(), slog.LevelDebug) {
		return
	}
	for _, e := range entries {
		if e.Type == TextPlain && utf8.Valid(e.Data) {
			preview := e.Text()
			if len(preview) > previewLen {
				preview = preview[:previewLen] + "…"
			}
			slog.Debug("content entry", "type", e.Type, "preview", preview, "len", e.Len())
		} else {
			slog.Debug("content entry", "type", e.Type, "size_bytes", e.Len())
		}
	}
}
