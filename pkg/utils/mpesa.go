package utils

import (
	"encoding/base64"
	"errors"
	"strings"
	"time"
)

var eat = time.FixedZone("EAT", 3*60*60)

var ErrInvalidPhoneNumber = errors.New("invalid phone number")

// MpesaTimestamp formats t the way Daraja expects: YYYYMMDDHHmmss in East Africa Time.
func MpesaTimestamp(t time.Time) string {
	return t.In(eat).Format("20060102150405")
}

// MpesaPassword is base64(shortcode + passkey + timestamp).
func MpesaPassword(shortCode, passkey, timestamp string) string {
	return base64.StdEncoding.EncodeToString([]byte(shortCode + passkey + timestamp))
}

// ParseMpesaTimestamp reads a TransactionDate value such as 20240115143022.
func ParseMpesaTimestamp(s string) (time.Time, error) {
	return time.ParseInLocation("20060102150405", s, eat)
}

// NormalizePhoneNumber converts 07XXXXXXXX, 7XXXXXXXX, +2547XXXXXXXX and
// 2547XXXXXXXX (and the 01 prefix equivalents) into 2547XXXXXXXX.
func NormalizePhoneNumber(phone string) (string, error) {
	p := strings.NewReplacer(" ", "", "-", "").Replace(strings.TrimSpace(phone))
	p = strings.TrimPrefix(p, "+")

	switch {
	case strings.HasPrefix(p, "254"):
	case strings.HasPrefix(p, "0"):
		p = "254" + p[1:]
	case len(p) == 9:
		p = "254" + p
	}

	if len(p) != 12 {
		return "", ErrInvalidPhoneNumber
	}
	for _, r := range p {
		if r < '0' || r > '9' {
			return "", ErrInvalidPhoneNumber
		}
	}
	if p[3] != '7' && p[3] != '1' {
		return "", ErrInvalidPhoneNumber
	}

	return p, nil
}
