package convert

const (
	// MaxWritePreview is the number of characters of written file content shown
	// in a write_file view.
	MaxWritePreview = 500

	// MaxObservation is the number of characters of tool output kept in a tool message.
	MaxObservation = 5000

	PreviewEllipsis = "..."
	TruncatedMarker = "\n... (truncated)"
)

// WritePreview cuts file content to MaxWritePreview characters for display.
func WritePreview(content string) string {
	return truncate(content, MaxWritePreview, PreviewEllipsis)
}

// TruncateObservation cuts tool output to MaxObservation characters.
func TruncateObservation(content string) string {
	return truncate(content, MaxObservation, TruncatedMarker)
}

// truncate counts characters as runes so multi-byte text is never split.
func truncate(s string, limit int, marker string) string {
	if len(s) <= limit {
		return s
	}
	n := 0
	for i := range s {
		if n == limit {
			return s[:i] + marker
		}
		n++
	}
	return s
}
