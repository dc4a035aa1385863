package textutil

import (
	"strings"
	"unicode"
)

// fileNameReplacer maps path separators and shell-hostile characters.
var fileNameReplacer = strings.NewReplacer(
	"/", "-",
	"\\", "-",
	":", "-",
	"*", "-",
	"?", "",
	"\"", "",
	"<", "",
	">", "",
	"|", "",
)

// SanitizeFileName makes a release name safe to use as a single path
// element. Separators become dashes, control characters are dropped and a
// leading dot is replaced so the result can never be hidden or escape the
// output directory. Returns "" when nothing usable is left.
func SanitizeFileName(name string) string {
	name = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, name)
	name = strings.TrimSpace(fileNameReplacer.Replace(name))
	if strings.HasPrefix(name, ".") {
		name = "_" + strings.TrimLeft(name, ".")
	}
	if name == "_" {
		return ""
	}
	return name
}
