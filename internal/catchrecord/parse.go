package catchrecord

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	firstNumber   = regexp.MustCompile(`(\d+\.?\d*)`)
	leadingNumber = regexp.MustCompile(`^\s*[+-]?(?:\d+\.?\d*|\.\d+)(?:[eE][+-]?\d+)?`)
)

// ParseWeight reads the first number in s as pounds, converting from
// ounces when s mentions "oz". Unparseable input is 0.
func ParseWeight(s string) float64 {
	m := firstNumber.FindString(s)
	if m == "" {
		return 0
	}
	v, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0
	}
	if strings.Contains(s, "oz") {
		return v / 16
	}
	return v
}

// ParseSize reads the number s starts with, or 0.
func ParseSize(s string) float64 {
	m := leadingNumber.FindString(s)
	if m == "" {
		return 0
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(m), 64)
	if err != nil {
		return 0
	}
	return v
}
