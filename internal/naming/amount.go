package naming

import (
	"regexp"
	"strings"
)

// zeroAmount is the rendered form of an absent or unparsable amount.
const zeroAmount = "0.00元"

var decimalPattern = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)$`)

// FormatAmount renders a decimal string as "X.YY元", rounding to two
// fractional digits with round-half-up semantics. The rounding is done on the
// digit string itself so financial values never pass through binary floats.
// Unparsable input degrades to "0.00元".
func FormatAmount(amount string) string {
	text := strings.TrimSpace(amount)
	if !decimalPattern.MatchString(text) {
		return zeroAmount
	}

	negative := false
	switch text[0] {
	case '-':
		negative = true
		text = text[1:]
	case '+':
		text = text[1:]
	}

	intPart, fracPart, _ := strings.Cut(text, ".")
	for len(fracPart) < 2 {
		fracPart += "0"
	}
	cents := fracPart[:2]
	if len(fracPart) > 2 && fracPart[2] >= '5' {
		intPart, cents = incrementCents(intPart, cents)
	}

	intPart = strings.TrimLeft(intPart, "0")
	if intPart == "" {
		intPart = "0"
	}
	sign := ""
	if negative && (intPart != "0" || cents != "00") {
		sign = "-"
	}
	return sign + intPart + "." + cents + "元"
}

// incrementCents adds one to the two-digit cents string, carrying into the
// integer part when it wraps.
func incrementCents(intPart, cents string) (string, string) {
	value := int(cents[0]-'0')*10 + int(cents[1]-'0') + 1
	if value < 100 {
		return intPart, string([]byte{byte('0' + value/10), byte('0' + value%10)})
	}
	digits := []byte(intPart)
	i := len(digits) - 1
	for ; i >= 0; i-- {
		if digits[i] < '9' {
			digits[i]++
			break
		}
		digits[i] = '0'
	}
	if i < 0 {
		digits = append([]byte{'1'}, digits...)
	}
	return string(digits), "00"
}
