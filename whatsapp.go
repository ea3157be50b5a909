package main

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/convidado/convidado/utils"
)

// PhoneConfig holds the country/area codes assumed for local numbers.
// The 8/9/11-digit heuristics below were tuned for Brazilian mobile numbers
// and are not validated against a real phone-number library, so both codes
// are configurable instead of hardcoded.
type PhoneConfig struct {
	CountryCode string
	AreaCode    string
}

// DefaultPhoneConfig reads DEFAULT_COUNTRY_CODE and DEFAULT_AREA_CODE,
// falling back to Brazil (55) and São Paulo (11).
func DefaultPhoneConfig() PhoneConfig {
	cfg := PhoneConfig{
		CountryCode: os.Getenv("DEFAULT_COUNTRY_CODE"),
		AreaCode:    os.Getenv("DEFAULT_AREA_CODE"),
	}
	if cfg.CountryCode == "" {
		cfg.CountryCode = "55"
	}
	if cfg.AreaCode == "" {
		cfg.AreaCode = "11"
	}
	return cfg
}

// minWhatsAppDigits is the shortest normalized number wa.me will accept.
const minWhatsAppDigits = 10

// NormalizePhone converts a raw phone string to international digits-only
// form. Numbers already carrying the country code pass through; 11-digit
// numbers get the country code, 9-digit numbers additionally get the default
// area code, and 8-digit numbers (old mobile format without the leading 9)
// get country code, area code and the 9. Anything else is returned stripped
// but otherwise untouched.
func NormalizePhone(phone string, cfg PhoneConfig) string {
	cleaned := utils.DigitsOnly(phone)

	if strings.HasPrefix(cleaned, cfg.CountryCode) {
		return cleaned
	}

	switch len(cleaned) {
	case 11:
		return cfg.CountryCode + cleaned
	case 9:
		return cfg.CountryCode + cfg.AreaCode + cleaned
	case 8:
		return cfg.CountryCode + cfg.AreaCode + "9" + cleaned
	}

	return cleaned
}

// EncodeWhatsAppText percent-encodes a message for the wa.me text parameter.
// url.QueryEscape alone produces "+" for spaces, which WhatsApp renders
// literally, so spaces are re-encoded as %20. Emoji survive as UTF-8 percent
// sequences.
func EncodeWhatsAppText(message string) string {
	return strings.ReplaceAll(url.QueryEscape(message), "+", "%20")
}

// BuildWhatsAppURL normalizes the phone number and produces a wa.me deep
// link carrying the encoded message. It has no side effects; callers must
// persist any send-status change only after this succeeds.
func BuildWhatsAppURL(phone, message string, cfg PhoneConfig) (string, error) {
	normalized := NormalizePhone(phone, cfg)
	if len(normalized) < minWhatsAppDigits {
		return "", fmt.Errorf("phone number too short after normalization: %q (%d digits)", normalized, len(normalized))
	}

	return fmt.Sprintf("https://wa.me/%s?text=%s", normalized, EncodeWhatsAppText(message)), nil
}
