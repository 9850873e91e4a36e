package errors

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// MaxIcons is the number of icon slots a blueprint or book carries in the game.
const MaxIcons = 4

// ValidateItemName validates an entity, tile or signal name.
//
// The rules match what the game accepts in prototype names:
//   - No empty names
//   - No control characters or whitespace
//   - Maximum length of 200 characters
func ValidateItemName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidInput, "name cannot be empty")
	}

	if len(name) > 200 {
		return New(ErrCodeInvalidInput, "name too long (max 200 characters)")
	}

	for _, r := range name {
		if unicode.IsControl(r) || unicode.IsSpace(r) {
			return New(ErrCodeInvalidInput, "name contains invalid characters: %q", name)
		}
	}

	return nil
}

// ValidateLabel validates a blueprint or book label.
// Labels are free text but must be valid UTF-8 without control characters
// (newlines are allowed in descriptions, not labels).
func ValidateLabel(label string) error {
	if !utf8.ValidString(label) {
		return New(ErrCodeInvalidLabel, "label is not valid UTF-8")
	}

	const maxLabelLength = 200
	if utf8.RuneCountInString(label) > maxLabelLength {
		return New(ErrCodeInvalidLabel, "label too long (max %d characters)", maxLabelLength)
	}

	for _, r := range label {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidLabel, "label contains control characters")
		}
	}

	return nil
}

// ValidateIcons checks an icon list: at most MaxIcons entries, every index in
// [1, MaxIcons] and used once.
func ValidateIcons(indexes []int) error {
	if len(indexes) > MaxIcons {
		return New(ErrCodeInvalidIcons, "too many icons: %d (max %d)", len(indexes), MaxIcons)
	}

	seen := make(map[int]bool, len(indexes))
	for _, idx := range indexes {
		if idx < 1 || idx > MaxIcons {
			return New(ErrCodeInvalidIcons, "icon index out of range: %d", idx)
		}
		if seen[idx] {
			return New(ErrCodeInvalidIcons, "duplicate icon index: %d", idx)
		}
		seen[idx] = true
	}

	return nil
}

// storeKeyRegex matches keys accepted by the blueprint library.
var storeKeyRegex = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._:-]*$`)

// ValidateStoreKey validates a blueprint library key for safety.
// It rejects keys that could be used for path traversal in the file backend
// or for key-space injection in the Redis backend.
func ValidateStoreKey(key string) error {
	if key == "" {
		return New(ErrCodeInvalidKey, "key cannot be empty")
	}

	if len(key) > 128 {
		return New(ErrCodeInvalidKey, "key too long (max 128 characters)")
	}

	if strings.Contains(key, "..") {
		return New(ErrCodeInvalidKey, "key cannot contain path traversal sequences (..)")
	}

	if !storeKeyRegex.MatchString(key) {
		return New(ErrCodeInvalidKey, "invalid key: %q", key)
	}

	return nil
}
