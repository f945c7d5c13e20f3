// Package features turns transaction descriptions and amounts into the
// token documents used for classification and similarity search.
package features

import (
	"math"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/dvloznov/smart-ledger/internal/domain"
)

var nonWord = regexp.MustCompile(`[^\p{L}\p{N}_\s]+`)

// Normalize lowercases text, strips diacritics and punctuation and trims it.
func Normalize(text string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, strings.ToLower(text))
	if err != nil {
		folded = strings.ToLower(text)
	}
	return strings.TrimSpace(nonWord.ReplaceAllString(folded, ""))
}

// Words returns the whitespace-separated tokens of the normalized text.
func Words(text string) []string {
	return strings.Fields(Normalize(text))
}

// Polarity tokens.
const (
	TokenExpense = "expense"
	TokenIncome  = "income"
)

// PolarityToken returns the token for the sign of amount.
func PolarityToken(amount float64) string {
	if domain.PolarityOf(amount) == domain.CategoryTypeExpense {
		return TokenExpense
	}
	return TokenIncome
}

// BucketToken returns the magnitude bucket of |amount|.
func BucketToken(amount float64) string {
	switch abs := math.Abs(amount); {
	case abs < 50:
		return "amount_small"
	case abs < 100:
		return "amount_medium"
	case abs < 500:
		return "amount_large"
	case abs < 1000:
		return "amount_xlarge"
	default:
		return "amount_huge"
	}
}

// Tokens returns the description words followed by the polarity and bucket tokens.
func Tokens(description string, amount float64) []string {
	words := Words(description)
	return append(words, PolarityToken(amount), BucketToken(amount))
}

// Extract returns the space-joined feature document for a transaction.
func Extract(description string, amount float64) string {
	return strings.Join(Tokens(description, amount), " ")
}
