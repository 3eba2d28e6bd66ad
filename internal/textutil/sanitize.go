package textutil

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// fileNameReplacer replaces filesystem-unsafe characters with safe alternatives.
// Separators and drive-ish punctuation become dashes; characters that carry no
// useful meaning in a name are removed.
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
	"\x00", "",
)

// folderNameReplacer strips the same unsafe set plus dots, which Canvas course
// and module titles use freely but which confuse extension-based tooling when
// they end a directory name.
var folderNameReplacer = strings.NewReplacer(
	"/", "",
	"\\", "",
	":", "",
	"*", "",
	"?", "",
	"\"", "",
	"<", "",
	">", "",
	"|", "",
	".", "",
	"\x00", "",
)

// SanitizeFileName converts a remote display name into a safe filename.
// Slashes, backslashes, colons, and asterisks become dashes; other unsafe
// characters are removed. The result is NFC-normalized and trimmed of
// surrounding whitespace. Empty input sanitizes to "unnamed" so a candidate
// can never resolve to its parent directory.
func SanitizeFileName(name string) string {
	name = norm.NFC.String(strings.TrimSpace(name))
	name = strings.TrimSpace(fileNameReplacer.Replace(name))
	if name == "" {
		return "unnamed"
	}
	return name
}

// SanitizeFolderName converts a remote container title into a safe directory
// name. Unlike filenames, dots are removed entirely.
func SanitizeFolderName(name string) string {
	name = norm.NFC.String(strings.TrimSpace(name))
	name = strings.TrimSpace(folderNameReplacer.Replace(name))
	if name == "" {
		return "unnamed"
	}
	return name
}
