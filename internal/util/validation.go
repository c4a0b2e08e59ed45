package util

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

var (
	// ErrInvalidPhone is returned when a phone number is not E.164 compliant.
	ErrInvalidPhone = errors.New("invalid e164 phone number")
	// ErrInvalidSender indicates a sender is neither a number nor a valid alphanumeric name.
	ErrInvalidSender = errors.New("invalid sender")
	// ErrInvalidURL indicates that a URL failed validation.
	ErrInvalidURL = errors.New("invalid url")
	// ErrInvalidCountry is returned for anything other than a two-letter lower-case code.
	ErrInvalidCountry = errors.New("invalid country code")
)

var (
	e164Pattern   = regexp.MustCompile(`^\+[1-9]\d{1,14}$`)
	senderPattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9]{2,10}$`)
	countryCode   = regexp.MustCompile(`^[a-z]{2}$`)
)

// NormalizeE164 validates a phone number using the E.164 format and returns the
// trimmed representation.
func NormalizeE164(value string) (string, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return "", fmt.Errorf("%w: value is empty", ErrInvalidPhone)
	}

	if !e164Pattern.MatchString(trimmed) {
		return "", fmt.Errorf("%w: %q", ErrInvalidPhone, trimmed)
	}

	return trimmed, nil
}

// NormalizeE164List validates each phone number in the slice. A max of zero
// means no upper bound.
func NormalizeE164List(values []string, min, max int) ([]string, error) {
	count := len(values)
	if min > 0 && count < min {
		return nil, fmt.Errorf("expected at least %d phone number(s); got %d", min, count)
	}
	if max > 0 && count > max {
		return nil, fmt.Errorf("expected at most %d phone number(s); got %d", max, count)
	}

	result := make([]string, 0, count)
	for idx, value := range values {
		normalized, err := NormalizeE164(value)
		if err != nil {
			return nil, fmt.Errorf("phone[%d]: %w", idx, err)
		}
		result = append(result, normalized)
	}
	return result, nil
}

// NormalizeSender accepts either an E.164 number or an alphanumeric sender
// name of 3 to 11 characters starting with a letter. 46elks rejects
// alphanumeric senders shorter than 3 characters.
func NormalizeSender(value string) (string, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return "", fmt.Errorf("%w: value is empty", ErrInvalidSender)
	}
	if e164Pattern.MatchString(trimmed) || senderPattern.MatchString(trimmed) {
		return trimmed, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidSender, trimmed)
}

// ValidateHTTPURL ensures the provided string is a valid HTTP or HTTPS URL.
func ValidateHTTPURL(value string) (string, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return "", fmt.Errorf("%w: value is empty", ErrInvalidURL)
	}

	u, err := url.Parse(trimmed)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("%w: unsupported scheme %q", ErrInvalidURL, u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("%w: host is required", ErrInvalidURL)
	}

	return trimmed, nil
}

// OptionalHTTPURL is ValidateHTTPURL that lets a blank value through as "".
func OptionalHTTPURL(value string) (string, error) {
	if strings.TrimSpace(value) == "" {
		return "", nil
	}
	return ValidateHTTPURL(value)
}

// NormalizeCountry lower-cases and validates an ISO 3166-1 alpha-2 code.
func NormalizeCountry(value string) (string, error) {
	code := strings.ToLower(strings.TrimSpace(value))
	if !countryCode.MatchString(code) {
		return "", fmt.Errorf("%w: %q", ErrInvalidCountry, value)
	}
	return code, nil
}
