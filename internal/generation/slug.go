package generation

import "strings"

// Slug derives a display identifier from a project title: characters
// outside [a-zA-Z0-9-_] become underscores and leading or trailing
// underscores are trimmed, with "Project" as the fallback for an empty
// result. Slugs are for filenames and display only; jobs are keyed by
// project ID.
func Slug(title string) string {
	mapped := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, title)
	s := strings.Trim(mapped, "_")
	if s == "" {
		return "Project"
	}
	return s
}
