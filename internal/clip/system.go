//go:build darwin || linux || windows

package clip

import (
	"fmt"

	"golang.design/x/clipboard"

	"go.klb.dev/handoff/internal/content"
)

func readSystem() []content.Entry {
	var entries []content.Entry
	if text := clipboard.Read(clipboard.FmtText); text != nil {
		entries = append(entries, content.Entry{Type: content.TextPlain, Data: text})
	}
	if img := clipboard.Read(clipboard.FmtImage); img != nil {
		entries = append(entries, content.Entry{Type: ImagePNG, Data: img})
	}
	return entries
}

func writeSystem(entries []content.Entry) error {
	for _, e := range entries {
		if !formatSupported(e.Type) {
			return fmt.Errorf("%w: %s", ErrUnsupportedType, e.Type)
		}
	}
	for _, e := range entries {
		data := e.Data
		if e.Type == content.TextPlain {
			data = []byte(e.Text())
		}
		clipboard.Write(formatOf(e.Type), data)
	}
	return nil
}

func formatOf(typ string) clipboard.Format {
	switch typ {
	case content.TextPlain:
		return clipboard.FmtText
	case ImagePNG:
		return clipboard.FmtImage
	default:
		return -1
	}
}
