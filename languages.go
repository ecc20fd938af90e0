package execscan

import (
	"path/filepath"
	"sort"
	"strings"
)

// extToLanguage maps file extensions to canonical language names. Only
// languages whose comment and string syntax the classifier models are listed.
var extToLanguage = map[string]string{
	".py":  "python",
	".pyw": "python",
	".pyi": "python",
}

// DefaultExtensions returns the extensions indexed when none are configured.
func DefaultExtensions() []string {
	exts := make([]string, 0, len(extToLanguage))
	for ext := range extToLanguage {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// LanguageForFile returns the canonical language name for a file path based
// on its extension. Returns ("", false) if the extension is not recognized.
func LanguageForFile(path string) (string, bool) {
	ext := strings.ToLower(filepath.Ext(path))
	lang, ok := extToLanguage[ext]
	return lang, ok
}

// normalizeExtension lowercases ext and ensures a leading dot.
func normalizeExtension(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}
