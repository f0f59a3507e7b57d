package validation

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

var (
	// Everything that is not an ASCII letter or digit
	nonAlphanumeric = regexp.MustCompile(`[^a-zA-Z0-9]`)

	// Path separators and control characters are never part of a display filename
	unsafeFilenameChars = regexp.MustCompile(`[/\\\x00-\x1f\x7f]`)
)

// RegisterValidators registers custom validators to the validator instance
func RegisterValidators(v *validator.Validate) {
	_ = v.RegisterValidation("no_emoji", NoEmoji)
	_ = v.RegisterValidation("resume_title", ResumeTitle)
}

// SanitizeText removes every non-alphanumeric character and lowercases the rest.
// It is the shared normalization behind storage keys and other generated names.
func SanitizeText(text string) string {
	if text == "" {
		return ""
	}
	return strings.ToLower(nonAlphanumeric.ReplaceAllString(text, ""))
}

// SanitizeFilename keeps a client-supplied filename displayable: base name only,
// no control characters, capped at maxLen bytes without splitting a rune.
func SanitizeFilename(name string, maxLen int) string {
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}
	name = strings.TrimSpace(unsafeFilenameChars.ReplaceAllString(name, ""))
	if maxLen > 0 && len(name) > maxLen {
		cut := maxLen
		for cut > 0 && !utf8.RuneStart(name[cut]) {
			cut--
		}
		name = name[:cut]
	}
	return name
}

// NoEmoji validates that a string does not contain emoji characters
func NoEmoji(fl validator.FieldLevel) bool {
	return !containsEmoji(fl.Field().String())
}

// ResumeTitle requires at least one visible character and no emoji.
// Length limits stay on the max tag so the message can name them.
func ResumeTitle(fl validator.FieldLevel) bool {
	val := fl.Field().String()
	if strings.TrimSpace(val) == "" {
		return false
	}
	return !containsEmoji(val)
}

func containsEmoji(val string) bool {
	for _, r := range val {
		// Supplementary planes are mostly emoji and pictographs
		if r > 0x1F000 {
			return true
		}
		if unicode.In(r, unicode.So, unicode.Sk) {
			return true
		}
	}
	return false
}
