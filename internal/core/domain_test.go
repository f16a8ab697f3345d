package core

import (
	"encoding/json"
	"testing"
	"time"
)

func TestGoalMonthsLeft(t *testing.T) {
	now := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name     string
		deadline Date
		want     int
	}{
		{"ninety days out", NewDate(2024, 3, 31), 3},
		{"under a month", NewDate(2024, 1, 10), 1},
		{"past deadline", NewDate(2023, 6, 1), 1},
		{"exactly one month", NewDate(2024, 1, 31), 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := Goal{Name: "g", Deadline: tt.deadline}
			if got := g.MonthsLeft(now); got != tt.want {
				t.Errorf("MonthsLeft = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestGoalNeedPerMonth(t *testing.T) {
	now := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name          string
		target, saved int64
		deadline      Date
		want          int64
	}{
		{"three months left", 3000_00, 0, NewDate(2024, 3, 31), 1000_00},
		{"partially saved", 3000_00, 1500_00, NewDate(2024, 3, 31), 500_00},
		{"over-saved never negative", 1000_00, 2000_00, NewDate(2024, 3, 31), 0},
		{"past deadline never divides by zero", 1200_00, 0, NewDate(2020, 1, 1), 1200_00},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := Goal{Name: "g", Target: Money{Cents: tt.target}, Saved: Money{Cents: tt.saved}, Deadline: tt.deadline}
			if got := g.NeedPerMonth(now); got.Cents != tt.want {
				t.Errorf("NeedPerMonth = %d, want %d", got.Cents, tt.want)
			}
		})
	}
}

func TestDateJSON(t *testing.T) {
	d := NewDate(2024, 3, 10)
	data, err := json.Marshal(d)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(data) != `"2024-03-10"` {
		t.Errorf("marshaled = %s", data)
	}

	var back Date
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if !back.Equal(d.Time) {
		t.Errorf("round trip = %v, want %v", back, d)
	}

	var bad Date
	if err := json.Unmarshal([]byte(`"10/03/2024"`), &bad); err != ErrInvalidDate {
		t.Errorf("err = %v, want ErrInvalidDate", err)
	}
}

func TestClampDay(t *testing.T) {
	tests := []struct{ in, want int }{
		{0, 1}, {1, 1}, {15, 15}, {31, 31}, {32, 31}, {-4, 1},
	}
	for _, tt := range tests {
		if got := ClampDay(tt.in); got != tt.want {
			t.Errorf("ClampDay(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestTransactionValidate(t *testing.T) {
	valid := Transaction{Date: NewDate(2024, 1, 1), Amount: Money{Cents: 1}, Category: "Salary"}
	if err := valid.Validate(); err != nil {
		t.Errorf("Validate(valid) = %v", err)
	}

	zeroDate := valid
	zeroDate.Date = Date{}
	if err := zeroDate.Validate(); err != ErrInvalidDate {
		t.Errorf("zero date err = %v, want ErrInvalidDate", err)
	}

	expense := Transaction{Date: NewDate(2024, 1, 1), Amount: Money{Cents: 1}, Category: string(Needs)}
	if err := expense.ValidateExpense(); err != nil {
		t.Errorf("ValidateExpense(Needs) = %v", err)
	}
	expense.Category = "Salary"
	if err := expense.ValidateExpense(); err != ErrInvalidCategory {
		t.Errorf("free-form expense category err = %v, want ErrInvalidCategory", err)
	}
}

func TestAccountTypeIsValid(t *testing.T) {
	for _, at := range []AccountType{Debit, Certificate, Investment} {
		if !at.IsValid() {
			t.Errorf("%s should be valid", at)
		}
	}
	if AccountType("Checking").IsValid() {
		t.Error("unknown account type should be invalid")
	}
}
