package domain

import (
	"net/url"
	"strconv"
	"strings"
	"unicode/utf8"

	apperrors "github.com/louisbranch/classroom.space/internal/platform/errors"
)

// Field length limits, in runes.
const (
	MaxTitleRunes       = 200
	MaxNameRunes        = 120
	MaxNoteRunes        = 2000
	MaxMessageBodyRunes = 2000
	MaxURLRunes         = 2048
	MaxParticipants     = 200
)

// RequireText trims value and checks it is non-empty and within maxRunes.
func RequireText(field, value string, maxRunes int) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", Required(field)
	}
	if maxRunes > 0 && utf8.RuneCountInString(value) > maxRunes {
		return "", apperrors.WithMetadata(
			apperrors.CodeValidationTooLong,
			field+" exceeds "+strconv.Itoa(maxRunes)+" characters",
			map[string]string{"Field": field, "Max": strconv.Itoa(maxRunes)},
		)
	}
	return value, nil
}

// OptionalText trims value and checks its length when present.
func OptionalText(field, value string, maxRunes int) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", nil
	}
	return RequireText(field, value, maxRunes)
}

// Required builds the missing-field validation error.
func Required(field string) error {
	return apperrors.WithMetadata(
		apperrors.CodeValidationRequired,
		field+" is required",
		map[string]string{"Field": field},
	)
}

// NormalizeParticipants trims, de-duplicates and drops blank identities while
// keeping first-seen order. The result is never empty.
func NormalizeParticipants(participants []string) ([]string, error) {
	seen := make(map[string]struct{}, len(participants))
	out := make([]string, 0, len(participants))
	for _, participant := range participants {
		participant = strings.TrimSpace(participant)
		if participant == "" {
			continue
		}
		if _, ok := seen[participant]; ok {
			continue
		}
		seen[participant] = struct{}{}
		out = append(out, participant)
	}
	if len(out) == 0 {
		return nil, Required("participants")
	}
	if len(out) > MaxParticipants {
		return nil, apperrors.WithMetadata(
			apperrors.CodeValidationOutOfRange,
			"too many participants",
			map[string]string{"Field": "participants"},
		)
	}
	return out, nil
}

// NormalizeShareURL requires an absolute http(s) URL.
func NormalizeShareURL(raw string) (string, error) {
	raw, err := RequireText("url", raw, MaxURLRunes)
	if err != nil {
		return "", err
	}
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return "", apperrors.WithMetadata(
			apperrors.CodeValidationInvalidURL,
			"url must be an absolute http(s) url",
			map[string]string{"Field": "url"},
		)
	}
	return parsed.String(), nil
}
