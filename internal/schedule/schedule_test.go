package schedule

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

var start = time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)

func TestBuild_RemainderAbsorbedByLastInstallment(t *testing.T) {
	got, err := Build(d("100.00"), 3, FrequencyMonthly, start, DefaultMaxInstallments)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"33.33", "33.33", "33.34"}
	for i, w := range want {
		if !got[i].Amount.Equal(d(w)) {
			t.Fatalf("installment %d: expected %s, got %s", i, w, got[i].Amount)
		}
	}
}

func TestBuild_SumsExactlyForAllCounts(t *testing.T) {
	totals := []string{"100.00", "0.03", "999.99", "1234.56", "10.01", "73.42"}
	for _, ts := range totals {
		total := d(ts)
		for n := 2; n <= 12; n++ {
			got, err := Build(total, n, FrequencyWeekly, start, DefaultMaxInstallments)
			if err != nil {
				t.Fatalf("total=%s n=%d: unexpected error: %v", ts, n, err)
			}
			sum := decimal.Zero
			for _, ins := range got {
				sum = sum.Add(ins.Amount)
			}
			if !sum.Equal(total) {
				t.Fatalf("total=%s n=%d: sum %s drifted", ts, n, sum)
			}
		}
	}
}

func TestBuild_Cadences(t *testing.T) {
	weekly, err := Build(d("90"), 3, FrequencyWeekly, start, DefaultMaxInstallments)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !weekly[2].DueDate.Equal(start.AddDate(0, 0, 14)) {
		t.Fatalf("weekly cadence: expected +14d, got %s", weekly[2].DueDate)
	}

	biweekly, err := Build(d("90"), 3, FrequencyBiweekly, start, DefaultMaxInstallments)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !biweekly[2].DueDate.Equal(start.AddDate(0, 0, 28)) {
		t.Fatalf("biweekly cadence: expected +28d, got %s", biweekly[2].DueDate)
	}

	monthly, err := Build(d("90"), 3, FrequencyMonthly, start, DefaultMaxInstallments)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !monthly[2].DueDate.Equal(start.AddDate(0, 2, 0)) {
		t.Fatalf("monthly cadence: expected +2mo, got %s", monthly[2].DueDate)
	}
}

func TestBuild_AllStartPendingUnpaid(t *testing.T) {
	got, err := Build(d("50"), 2, FrequencyWeekly, start, DefaultMaxInstallments)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, ins := range got {
		if ins.Status != StatusPending || ins.PaidAt != nil {
			t.Fatalf("expected pending/unpaid, got %+v", ins)
		}
	}
}

func TestBuild_RejectsInvalidPreconditions(t *testing.T) {
	cases := []struct {
		name  string
		total decimal.Decimal
		count int
		freq  Frequency
		start time.Time
	}{
		{"zero total", decimal.Zero, 3, FrequencyWeekly, start},
		{"negative total", d("-10"), 3, FrequencyWeekly, start},
		{"one installment", d("100"), 1, FrequencyWeekly, start},
		{"over max", d("100"), 13, FrequencyWeekly, start},
		{"zero start", d("100"), 3, FrequencyWeekly, time.Time{}},
		{"bad frequency", d("100"), 3, Frequency("daily"), start},
	}
	for _, tc := range cases {
		got, err := Build(tc.total, tc.count, tc.freq, tc.start, DefaultMaxInstallments)
		if err == nil {
			t.Fatalf("%s: expected error", tc.name)
		}
		var ve ValidationError
		if !errors.As(err, &ve) {
			t.Fatalf("%s: expected ValidationError, got %T", tc.name, err)
		}
		if got != nil {
			t.Fatalf("%s: expected no partial schedule", tc.name)
		}
	}
}

func TestProject_PendingPastDueBecomesOverdue(t *testing.T) {
	now := start.AddDate(0, 0, 10)
	in := []Installment{
		{Index: 0, DueDate: start, Amount: d("30"), Status: StatusPending},
		{Index: 1, DueDate: start.AddDate(0, 0, 7), Amount: d("30"), Status: StatusPending},
		{Index: 2, DueDate: start.AddDate(0, 0, 14), Amount: d("40"), Status: StatusPending},
	}

	got := Project(in, now)
	if got[0].Status != StatusOverdue || got[1].Status != StatusOverdue {
		t.Fatalf("past-due installments must be overdue: %+v", got)
	}
	if got[2].Status != StatusPending {
		t.Fatalf("future installment must stay pending: %+v", got[2])
	}

	// Input is never mutated.
	if in[0].Status != StatusPending {
		t.Fatalf("project mutated its input")
	}
}

func TestProject_PaidNeverChanges(t *testing.T) {
	paidAt := start.AddDate(0, 0, 1)
	in := []Installment{
		{Index: 0, DueDate: start, Amount: d("50"), Status: StatusPaid, PaidAt: &paidAt},
	}
	got := Project(in, start.AddDate(1, 0, 0))
	if got[0].Status != StatusPaid {
		t.Fatalf("paid installment changed status: %+v", got[0])
	}
}

func TestProject_Idempotent(t *testing.T) {
	now := start.AddDate(0, 0, 30)
	in, err := Build(d("120"), 4, FrequencyWeekly, start, DefaultMaxInstallments)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	once := Project(in, now)
	twice := Project(once, now)
	for i := range once {
		if once[i].Status != twice[i].Status {
			t.Fatalf("projection not idempotent at %d: %s vs %s", i, once[i].Status, twice[i].Status)
		}
	}
}

func TestNextPaymentDate_SkipsPaid(t *testing.T) {
	in := []Installment{
		{Index: 0, DueDate: start, Status: StatusPaid},
		{Index: 1, DueDate: start.AddDate(0, 0, 7), Status: StatusPending},
	}
	next := NextPaymentDate(in)
	if next == nil || !next.Equal(start.AddDate(0, 0, 7)) {
		t.Fatalf("expected next payment on second installment, got %v", next)
	}

	in[1].Status = StatusPaid
	if NextPaymentDate(in) != nil {
		t.Fatalf("expected nil when everything is paid")
	}
}
