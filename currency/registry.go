// Package currency provides the currency registry consulted by the
// transaction lifecycle service. Conversion-rate lookup lives behind the
// reporting boundary and is not part of this package.
package currency

import "strings"

// Registry is the default allow-list implementation of
// ledger.CurrencyRegistry: a fixed set of ISO 4217 codes.
type Registry struct {
	codes map[string]bool
}

// defaultCodes is the set of currencies the tracker accepts.
var defaultCodes = []string{
	"USD", "EUR", "GBP", "JPY", "CHF", "CAD", "AUD", "NZD",
	"SEK", "NOK", "DKK", "PLN", "CZK", "HUF", "RON", "BGN",
	"TRY", "ILS", "AED", "SAR", "INR", "CNY", "HKD", "SGD",
	"KRW", "THB", "MYR", "IDR", "PHP", "VND", "ZAR", "EGP",
	"NGN", "KES", "BRL", "ARS", "CLP", "COP", "MXN", "PEN",
	"UAH", "GEL", "RSD", "ISK",
}

// NewRegistry returns a registry over the default allow-list.
func NewRegistry() *Registry {
	return NewRegistryWith(defaultCodes)
}

// NewRegistryWith returns a registry over a custom allow-list.
func NewRegistryWith(codes []string) *Registry {
	m := make(map[string]bool, len(codes))
	for _, c := range codes {
		m[strings.ToUpper(c)] = true
	}
	return &Registry{codes: m}
}

// IsSupported reports whether the code is in the allow-list. Matching is
// exact on the canonical upper-case form: "usd" is not a valid code.
func (r *Registry) IsSupported(code string) bool {
	return r.codes[code]
}

// Codes returns the allow-list in no particular order.
func (r *Registry) Codes() []string {
	out := make([]string, 0, len(r.codes))
	for c := range r.codes {
		out = append(out, c)
	}
	return out
}
