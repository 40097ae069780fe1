package mapping

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/1212falcon1212/b2b-pharmacy-sub000/internal/domain/integration"
	"github.com/go-playground/validator/v10"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var orderValidator = validator.New()

// ValidateOrder checks the order fields every provider requires. The first
// failure is reported as a ValidationError naming the field path, e.g.
// "lines[0].quantity".
func ValidateOrder(order integration.CanonicalOrder) error {
	err := orderValidator.Struct(order)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return integration.NewValidationError("order", err.Error())
	}
	fe := verrs[0]
	field := fieldPath(fe.Namespace())
	return integration.NewValidationError(field, fmt.Sprintf("%s failed %q", field, fe.Tag()))
}

// fieldPath turns "CanonicalOrder.Lines[0].Quantity" into "lines[0].quantity"
func fieldPath(ns string) string {
	if i := strings.Index(ns, "."); i >= 0 {
		ns = ns[i+1:]
	}
	return strings.ToLower(ns)
}

// ---------------------------------------------------------------------------
// Fallbacks
// ---------------------------------------------------------------------------

var nonDigit = regexp.MustCompile(`\D`)

// FallbackPhone normalizes a Turkish phone number to 11 digits with a leading
// zero, returning the policy placeholder when it cannot.
func FallbackPhone(phone string, policy integration.FallbackPolicy) string {
	digits := nonDigit.ReplaceAllString(phone, "")
	switch {
	case len(digits) == 12 && strings.HasPrefix(digits, "90"):
		digits = "0" + digits[2:]
	case len(digits) == 10 && !strings.HasPrefix(digits, "0"):
		digits = "0" + digits
	}
	if len(digits) == 11 && strings.HasPrefix(digits, "0") {
		return digits
	}
	return policy.WithDefaults().Phone
}

var slugSeparators = regexp.MustCompile(`[^a-z0-9]+`)

// slugFolder strips combining marks; chains are stateful so one is built per call
func slugFolder() transform.Transformer {
	return transform.Chain(
		norm.NFD,
		runes.Remove(runes.In(unicode.Mn)),
		runes.Map(func(r rune) rune {
			if r == 'ı' {
				return 'i'
			}
			return r
		}),
		norm.NFC,
	)
}

const maxSlugLength = 40

// Slug folds diacritics ("İlaç Şurubu" -> "ilac-surubu") and joins
// alphanumeric runs with dashes
func Slug(s string) string {
	folded, _, err := transform.String(slugFolder(), s)
	if err != nil {
		folded = s
	}
	slug := slugSeparators.ReplaceAllString(strings.ToLower(folded), "-")
	slug = strings.Trim(slug, "-")
	if len(slug) > maxSlugLength {
		slug = strings.TrimRight(slug[:maxSlugLength], "-")
	}
	return slug
}

// GenerateSKU derives a deterministic SKU for a line lacking one:
// "<prefix>-<slug(name)>", or "<prefix>-<order>-<line>" when the name has no
// usable characters
func GenerateSKU(policy integration.FallbackPolicy, orderNumber string, lineIndex int, name string) string {
	prefix := policy.WithDefaults().SKUPrefix
	if slug := Slug(name); slug != "" {
		return prefix + "-" + slug
	}
	return fmt.Sprintf("%s-%s-%d", prefix, Slug(orderNumber), lineIndex+1)
}

// LineSKU returns the line SKU, its barcode, or a generated SKU
func LineSKU(order integration.CanonicalOrder, lineIndex int, policy integration.FallbackPolicy) string {
	line := order.Lines[lineIndex]
	if line.SKU != "" {
		return line.SKU
	}
	if line.Barcode != "" {
		return line.Barcode
	}
	return GenerateSKU(policy, order.Number, lineIndex, line.Name)
}

// CustomerTaxID returns the customer tax id or the anonymous consumer id
func CustomerTaxID(order integration.CanonicalOrder, policy integration.FallbackPolicy) string {
	if id := nonDigit.ReplaceAllString(order.Customer.TaxID, ""); len(id) == 10 || len(id) == 11 {
		return id
	}
	return policy.WithDefaults().ConsumerTaxID
}
