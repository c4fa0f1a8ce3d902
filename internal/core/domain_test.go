package core

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestMonthValidate(t *testing.T) {
	cases := []struct {
		m  Month
		ok bool
	}{
		{Month{Year: 2026, Month: 1}, true},
		{Month{Year: 2026, Month: 12}, true},
		{Month{Year: 2026, Month: 0}, false},
		{Month{Year: 2026, Month: 13}, false},
		{Month{Year: 0, Month: 6}, false},
	}
	for i, tc := range cases {
		err := tc.m.Validate()
		if tc.ok && err != nil {
			t.Fatalf("case %d expected ok, got %v", i, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestDefaultLabel(t *testing.T) {
	if got := DefaultLabel(2026, 1); got != "Enero 2026" {
		t.Fatalf("got %q", got)
	}
	if got := DefaultLabel(2025, 12); got != "Diciembre 2025" {
		t.Fatalf("got %q", got)
	}
	if got := DefaultLabel(2026, 0); got != "" {
		t.Fatalf("expected empty label, got %q", got)
	}
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2026-02-18")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Year() != 2026 || d.Month() != time.February || d.Day() != 18 {
		t.Fatalf("parsed wrong date: %v", d)
	}
	if d.String() != "2026-02-18" {
		t.Fatalf("round trip mismatch: %q", d.String())
	}
	if _, err := ParseDate("18/02/2026"); err == nil {
		t.Fatalf("expected error for wrong format")
	}
}

func TestTransactionTotal(t *testing.T) {
	tx := Transaction{
		Lines: []LineAmount{
			{AccountID: "a", Amount: decimal.NewFromInt(-300)},
			{AccountID: "b", Amount: decimal.NewFromInt(300)},
		},
	}
	if !tx.Total().IsZero() {
		t.Fatalf("transfer total should be zero, got %s", tx.Total())
	}
}

func TestTransactionValidate(t *testing.T) {
	good := Transaction{
		MonthID:     "m1",
		Date:        NewDate(2026, 1, 15),
		Type:        Expense,
		Description: "combustible",
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []Transaction{
		{MonthID: "m1", Date: NewDate(2026, 1, 15), Type: "bogus", Description: "x"},
		{MonthID: "", Date: NewDate(2026, 1, 15), Type: Expense, Description: "x"},
		{MonthID: "m1", Type: Expense, Description: "x"}, // zero date
		{MonthID: "m1", Date: NewDate(2026, 1, 15), Type: Expense, Description: "  "},
	}
	for i, tx := range bads {
		if err := tx.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestStagedTransactionValidate(t *testing.T) {
	good := StagedTransaction{
		Date:   NewDate(2026, 3, 1),
		Type:   Expense,
		Amount: decimal.NewFromInt(100),
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := (StagedTransaction{Date: NewDate(2026, 3, 1), Type: InternalTransfer, Amount: decimal.NewFromInt(1)}).Validate(); err == nil {
		t.Fatalf("transfers cannot be staged")
	}
	if err := (StagedTransaction{Date: NewDate(2026, 3, 1), Type: Income, Amount: decimal.Zero}).Validate(); err == nil {
		t.Fatalf("zero amount should fail")
	}
}
