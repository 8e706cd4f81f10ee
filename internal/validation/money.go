package validation

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseAmount converts a currency amount in text form ("1,234.56", "+85.00",
// "-35.00") into integer minor units. Balance checks need exact equality,
// so amounts are never handled as floats.
func ParseAmount(s string) (int64, error) {
	cleaned := strings.TrimSpace(s)
	cleaned = strings.ReplaceAll(cleaned, ",", "")
	cleaned = strings.TrimPrefix(cleaned, "$")
	cleaned = strings.TrimPrefix(cleaned, "£")
	cleaned = strings.TrimPrefix(cleaned, "€")
	if cleaned == "" {
		return 0, fmt.Errorf("empty amount")
	}

	negative := false
	switch cleaned[0] {
	case '+':
		cleaned = cleaned[1:]
	case '-':
		negative = true
		cleaned = cleaned[1:]
	}

	whole := cleaned
	frac := ""
	if i := strings.IndexByte(cleaned, '.'); i >= 0 {
		whole, frac = cleaned[:i], cleaned[i+1:]
	}
	if whole == "" && frac == "" {
		return 0, fmt.Errorf("malformed amount %q", s)
	}
	if len(frac) > 2 {
		return 0, fmt.Errorf("amount %q has more than two decimal places", s)
	}
	for len(frac) < 2 {
		frac += "0"
	}
	if whole == "" {
		whole = "0"
	}

	units, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("malformed amount %q", s)
	}
	cents, err := strconv.ParseInt(frac, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("malformed amount %q", s)
	}

	total := units*100 + cents
	if negative {
		total = -total
	}
	return total, nil
}

// FormatAmount renders minor units back into a plain decimal string for
// check details.
func FormatAmount(minor int64) string {
	sign := ""
	if minor < 0 {
		sign = "-"
		minor = -minor
	}
	return fmt.Sprintf("%s%d.%02d", sign, minor/100, minor%100)
}
