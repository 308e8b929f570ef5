package scheduler

import "strings"

var sanitizer = strings.NewReplacer(
	"<", "", ">", "", ":", "", `"`, "", "|", "", "?", "", "*", "",
	"/", "_", `\`, "_", " ", "_",
)

// Sanitize turns a display name into a filesystem-safe token. Reserved
// characters are dropped, path separators and spaces become underscores,
// and runs of underscores collapse. Sanitize(Sanitize(s)) == Sanitize(s).
func Sanitize(name string) string {
	s := sanitizer.Replace(name)
	var b strings.Builder
	b.Grow(len(s))
	prevUnderscore := false
	for _, r := range s {
		if r == '_' {
			if prevUnderscore {
				continue
			}
			prevUnderscore = true
		} else {
			prevUnderscore = false
		}
		b.WriteRune(r)
	}
	return strings.Trim(b.String(), "_")
}
