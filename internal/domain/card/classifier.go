package card

import "strings"

const (
	BrandVisa       = "Visa"
	BrandMastercard = "Mastercard"
	BrandAmex       = "American Express"
	BrandDiscover   = "Discover"
	BrandJCB        = "JCB"
	BrandUnknown    = "Unknown"
)

// GetCardType maps a card number to its brand by prefix. It does not check
// length or the Luhn checksum.
func GetCardType(number string) string {
	digits := digitsOnly(number)

	switch {
	case strings.HasPrefix(digits, "4"):
		return BrandVisa
	case len(digits) >= 2 && digits[0] == '5' && digits[1] >= '1' && digits[1] <= '5':
		return BrandMastercard
	case strings.HasPrefix(digits, "34"), strings.HasPrefix(digits, "37"):
		return BrandAmex
	case strings.HasPrefix(digits, "6011"):
		return BrandDiscover
	case strings.HasPrefix(digits, "35"):
		return BrandJCB
	default:
		return BrandUnknown
	}
}

func digitsOnly(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
