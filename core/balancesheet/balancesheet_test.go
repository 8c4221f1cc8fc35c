package balancesheet

import (
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/trezcool/vidyaverse/core"
	"github.com/trezcool/vidyaverse/core/school"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func date(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 0, 0, 0, 0, time.UTC) }

func TestCalculate(t *testing.T) {
	period := YearPeriod(2024)
	// bought 2024-12-31, no depreciation at the end of the period
	stock := []school.DeadStockItem{{ID: "d1", Quantity: 4, UnitPrice: dec("5000"), PurchaseDate: date(2024, time.December, 31)}}

	tests := []struct {
		name          string
		payments      []school.FeePayment
		expenses      []school.Expense
		stock         []school.DeadStockItem
		wantNet       string
		wantLabel     string
		wantMagnitude string
	}{
		{
			name: "profit",
			payments: []school.FeePayment{
				{ID: "p1", Amount: dec("60000"), Date: date(2024, time.January, 1)},
				{ID: "p2", Amount: dec("40000"), Date: date(2024, time.December, 31)},
				{ID: "p3", Amount: dec("99999"), Date: date(2025, time.January, 1)},
			},
			expenses: []school.Expense{
				{ID: "e1", Amount: dec("40000"), Date: date(2024, time.June, 1)},
				{ID: "e2", Amount: dec("12345"), Date: date(2023, time.December, 31)},
			},
			stock:         stock,
			wantNet:       "80000",
			wantLabel:     NetProfit,
			wantMagnitude: "80000",
		},
		{
			name:          "loss",
			payments:      []school.FeePayment{{ID: "p1", Amount: dec("1000"), Date: date(2024, time.May, 1)}},
			expenses:      []school.Expense{{ID: "e1", Amount: dec("2500.50"), Date: date(2024, time.May, 2)}},
			wantNet:       "-1500.5",
			wantLabel:     NetLoss,
			wantMagnitude: "1500.5",
		},
		{
			name:          "break even is a profit",
			wantNet:       "0",
			wantLabel:     NetProfit,
			wantMagnitude: "0",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Calculate(period, tt.payments, tt.expenses, tt.stock)
			if err != nil {
				t.Fatalf("Calculate() unexpected error = %v", err)
			}
			if !got.NetResult.Equal(dec(tt.wantNet)) {
				t.Errorf("Calculate() NetResult = %v, want %v", got.NetResult, tt.wantNet)
			}
			if got.Label != tt.wantLabel {
				t.Errorf("Calculate() Label = %v, want %v", got.Label, tt.wantLabel)
			}
			if !got.Magnitude.Equal(dec(tt.wantMagnitude)) {
				t.Errorf("Calculate() Magnitude = %v, want %v", got.Magnitude, tt.wantMagnitude)
			}
		})
	}
}

func TestCalculate_doesNotMutate(t *testing.T) {
	expenses := []school.Expense{
		{ID: "b", Amount: dec("2"), Date: date(2024, time.March, 2)},
		{ID: "a", Amount: dec("1"), Date: date(2024, time.March, 1)},
	}
	if _, err := Calculate(MonthPeriod(2024, time.March), nil, expenses, nil); err != nil {
		t.Fatalf("Calculate() unexpected error = %v", err)
	}
	if expenses[0].ID != "b" {
		t.Errorf("Calculate() reordered its input")
	}
}

func TestCalculate_invalidDates(t *testing.T) {
	tests := []struct {
		name      string
		payments  []school.FeePayment
		expenses  []school.Expense
		deadStock []school.DeadStockItem
	}{
		{name: "undated payment", payments: []school.FeePayment{{ID: "p", Amount: dec("100")}}},
		{name: "undated expense", expenses: []school.Expense{{ID: "e", Amount: dec("100")}}},
		{name: "undated dead stock", deadStock: []school.DeadStockItem{{ID: "x", Quantity: 1, UnitPrice: dec("1")}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Calculate(YearPeriod(2024), tt.payments, tt.expenses, tt.deadStock)
			if err == nil {
				t.Fatal("Calculate() expected an error")
			}
			if _, ok := errors.Cause(err).(*core.ValidationError); !ok {
				t.Errorf("Calculate() error = %T, want *core.ValidationError", errors.Cause(err))
			}
		})
	}
}

func TestNewPeriod(t *testing.T) {
	tests := []struct {
		name      string
		mode      string
		year      int
		month     int
		wantStart time.Time
		wantEnd   time.Time
		wantLabel string
		wantErr   bool
	}{
		{name: "yearly", mode: Yearly, year: 2024, wantStart: date(2024, 1, 1), wantEnd: date(2024, 12, 31), wantLabel: "Year: 2024"},
		{name: "default mode", year: 2023, wantStart: date(2023, 1, 1), wantEnd: date(2023, 12, 31), wantLabel: "Year: 2023"},
		{name: "monthly leap", mode: Monthly, year: 2024, month: 2, wantStart: date(2024, 2, 1), wantEnd: date(2024, 2, 29), wantLabel: "Month: February 2024"},
		{name: "monthly", mode: Monthly, year: 2024, month: 3, wantStart: date(2024, 3, 1), wantEnd: date(2024, 3, 31), wantLabel: "Month: March 2024"},
		{name: "bad month", mode: Monthly, year: 2024, month: 13, wantErr: true},
		{name: "bad year", mode: Yearly, year: 0, wantErr: true},
		{name: "bad mode", mode: "weekly", year: 2024, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewPeriod(tt.mode, tt.year, tt.month)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewPeriod() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if !got.Start.Equal(tt.wantStart) || !got.End.Equal(tt.wantEnd) {
				t.Errorf("NewPeriod() = [%v, %v], want [%v, %v]", got.Start, got.End, tt.wantStart, tt.wantEnd)
			}
			if got.Label() != tt.wantLabel {
				t.Errorf("Label() = %v, want %v", got.Label(), tt.wantLabel)
			}
		})
	}
}
