package handler

import "strconv"

// formatUploadLimit renders a byte limit in the largest whole unit.
func formatUploadLimit(bytes int64) string {
	const (
		kb = 1024
		mb = 1024 * kb
	)
	switch {
	case bytes >= mb:
		return strconv.FormatInt(bytes/mb, 10) + "MB"
	case bytes >= kb:
		return strconv.FormatInt(bytes/kb, 10) + "KB"
	case bytes > 0:
		return strconv.FormatInt(bytes, 10) + "B"
	default:
		return "0B"
	}
}
