// Package productcode mints and verifies the 15 digit codes assigned to
// products when a stock-in is confirmed.
//
// A code is <YYMMDD><vendor:4><product:4><check digit>. The check digit is a
// Luhn-style digit computed over the reversed string where even positions keep
// their value and odd positions are doubled (minus 9 when >= 10). This parity
// is fixed by the regression fixture CheckDigit("7992739871") == 4 and differs
// from textbook Luhn.
package productcode

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/odyssey-erp/odyssey-stock/internal/shared"
)

// Length is the length of a generated product code.
const Length = 15

const dateLayout = "060102"

var (
	// ErrInvalidDigits is returned for empty or non-numeric input.
	ErrInvalidDigits = fmt.Errorf("%w: digit string must be non-empty and numeric", shared.ErrValidation)
	// ErrInvalidPadInput is returned when a negative number is padded.
	ErrInvalidPadInput = fmt.Errorf("%w: pad input must be a non-negative integer", shared.ErrValidation)
	// ErrInvalidCode is returned by Validate for malformed or tampered codes.
	ErrInvalidCode = fmt.Errorf("%w: invalid product code", shared.ErrValidation)
)

// CheckDigit computes the check digit of digits.
func CheckDigit(digits string) (int, error) {
	if digits == "" {
		return 0, ErrInvalidDigits
	}
	sum := 0
	for pos := 0; pos < len(digits); pos++ {
		c := digits[len(digits)-1-pos]
		if c < '0' || c > '9' {
			return 0, ErrInvalidDigits
		}
		d := int(c - '0')
		if pos%2 == 1 {
			d *= 2
			if d >= 10 {
				d -= 9
			}
		}
		sum += d
	}
	return (10 - sum%10) % 10, nil
}

// PadLeft renders n with leading zeros up to width. Numbers wider than width
// are returned unchanged.
func PadLeft(n int64, width int) (string, error) {
	if n < 0 {
		return "", ErrInvalidPadInput
	}
	s := strconv.FormatInt(n, 10)
	if len(s) >= width {
		return s, nil
	}
	return strings.Repeat("0", width-len(s)) + s, nil
}

// Generate builds the code for productID supplied by vendorID on date.
func Generate(productID, vendorID int64, date time.Time) (string, error) {
	vendor, err := PadLeft(vendorID, 4)
	if err != nil {
		return "", fmt.Errorf("vendor id: %w", err)
	}
	product, err := PadLeft(productID, 4)
	if err != nil {
		return "", fmt.Errorf("product id: %w", err)
	}
	body := date.Format(dateLayout) + vendor + product
	check, err := CheckDigit(body)
	if err != nil {
		return "", err
	}
	return body + strconv.Itoa(check), nil
}

// Validate reports whether code has the expected shape and check digit.
func Validate(code string) error {
	if len(code) != Length {
		return ErrInvalidCode
	}
	check, err := CheckDigit(code[:Length-1])
	if err != nil {
		return ErrInvalidCode
	}
	if int(code[Length-1]-'0') != check {
		return ErrInvalidCode
	}
	if _, err := time.Parse(dateLayout, code[:6]); err != nil {
		return ErrInvalidCode
	}
	return nil
}
