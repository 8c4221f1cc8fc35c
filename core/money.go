package core

import (
	"github.com/go-playground/locales"
	"github.com/go-playground/locales/en_IN"
	"github.com/shopspring/decimal"
)

// MoneyFormatter formats amounts with indian digit grouping (12,34,567.00).
// it is only meant for the presentation boundary; amounts stay decimal.Decimal everywhere else.
type MoneyFormatter struct {
	trans  locales.Translator
	symbol string
}

func NewMoneyFormatter(symbol string) *MoneyFormatter {
	return &MoneyFormatter{trans: en_IN.New(), symbol: symbol}
}

// Number formats d with 2 decimals and grouping, without currency symbol.
func (f *MoneyFormatter) Number(d decimal.Decimal) string {
	v, _ := d.Round(2).Float64()
	return f.trans.FmtNumber(v, 2)
}

// Amount formats d prefixed by the currency symbol.
func (f *MoneyFormatter) Amount(d decimal.Decimal) string {
	if d.IsNegative() {
		return "-" + f.symbol + f.Number(d.Abs())
	}
	return f.symbol + f.Number(d)
}

func (f *MoneyFormatter) Symbol() string { return f.symbol }
