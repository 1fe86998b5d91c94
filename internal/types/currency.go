package types

// CurrencyConfig holds the display symbol and the number of minor-unit
// decimal places for a currency. Precision drives rounding when an item's
// final amount is fixed.
type CurrencyConfig struct {
	Symbol    string
	Precision int32
}

// currencyConfigs is a map of 3 digit ISO currency codes (lowercase) to
// their configuration
var currencyConfigs = map[string]CurrencyConfig{
	"usd": {Symbol: "$", Precision: 2},
	"eur": {Symbol: "€", Precision: 2},
	"gbp": {Symbol: "£", Precision: 2},
	"aud": {Symbol: "AU$", Precision: 2},
	"cad": {Symbol: "CA$", Precision: 2},
	"chf": {Symbol: "CHF", Precision: 2},
	"sek": {Symbol: "kr", Precision: 2},
	"nzd": {Symbol: "NZ$", Precision: 2},
	"sgd": {Symbol: "S$", Precision: 2},
	"jpy": {Symbol: "¥", Precision: 0},
	"cny": {Symbol: "¥", Precision: 2},
	"inr": {Symbol: "₹", Precision: 2},
	"brl": {Symbol: "R$", Precision: 2},
	"mxn": {Symbol: "MX$", Precision: 2},
	"krw": {Symbol: "₩", Precision: 0},
	"try": {Symbol: "₺", Precision: 2},
	"zar": {Symbol: "R", Precision: 2},
	"myr": {Symbol: "RM", Precision: 2},
}

// DefaultCurrencyPrecision is used for currencies not present in the table
const DefaultCurrencyPrecision int32 = 2

// GetCurrencyConfig returns the configuration for a given currency code
func GetCurrencyConfig(code string) CurrencyConfig {
	if config, ok := currencyConfigs[code]; ok {
		return config
	}
	return CurrencyConfig{Symbol: code, Precision: DefaultCurrencyPrecision}
}

// GetCurrencyPrecision returns the minor-unit precision for a currency code
func GetCurrencyPrecision(code string) int32 {
	return GetCurrencyConfig(code).Precision
}

// GetCurrencySymbol returns the symbol for a given currency code.
// If the code is not found, it returns the code itself.
func GetCurrencySymbol(code string) string {
	return GetCurrencyConfig(code).Symbol
}
