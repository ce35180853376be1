package parsers

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"
)

// gbPerUnit maps a size suffix to its factor in GB. Units are binary, the
// way `df -h` and `free -h` print them.
var gbPerUnit = map[string]float64{
	"":    1,
	"B":   1.0 / (1 << 30),
	"K":   1.0 / (1 << 20),
	"KB":  1.0 / (1 << 20),
	"KIB": 1.0 / (1 << 20),
	"M":   1.0 / (1 << 10),
	"MB":  1.0 / (1 << 10),
	"MIB": 1.0 / (1 << 10),
	"G":   1,
	"GB":  1,
	"GIB": 1,
	"T":   1 << 10,
	"TB":  1 << 10,
	"TIB": 1 << 10,
	"P":   1 << 20,
	"PB":  1 << 20,
	"PIB": 1 << 20,
}

// ParseQuantity converts a size token like "458G", "1.5T" or "512M" to GB.
// A bare number is taken to already be in GB.
func ParseQuantity(token string) (float64, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return 0, fmt.Errorf("empty quantity")
	}

	split := strings.IndexFunc(token, func(r rune) bool {
		return unicode.IsLetter(r)
	})
	number, unit := token, ""
	if split >= 0 {
		number, unit = token[:split], token[split:]
	}

	factor, ok := gbPerUnit[strings.ToUpper(unit)]
	if !ok {
		return 0, fmt.Errorf("unknown unit %q in %q", unit, token)
	}

	v, err := parseNumber(number)
	if err != nil {
		return 0, fmt.Errorf("invalid quantity %q: %w", token, err)
	}
	if v < 0 {
		return 0, fmt.Errorf("negative quantity %q", token)
	}
	return v * factor, nil
}

// ParsePercent parses "12.34%", "12.34" or "12,34%".
func ParsePercent(s string) (float64, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimSpace(strings.TrimSuffix(s, "%"))
	if s == "" {
		return 0, fmt.Errorf("empty percentage")
	}
	v, err := parseNumber(s)
	if err != nil {
		return 0, fmt.Errorf("invalid percentage %q: %w", s, err)
	}
	return v, nil
}

// parseNumber accepts a decimal comma when the token has no decimal point.
// NaN and infinities are rejected so every reading stays finite.
func parseNumber(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if strings.Contains(s, ",") && !strings.Contains(s, ".") {
		s = strings.Replace(s, ",", ".", 1)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("non-finite number %q", s)
	}
	return v, nil
}
