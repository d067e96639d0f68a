package core

import "testing"

func TestBillingPeriodNext(t *testing.T) {
	cases := []struct {
		in, want BillingPeriod
	}{
		{BillingPeriod{Month: 3, Year: 2024}, BillingPeriod{Month: 4, Year: 2024}},
		{BillingPeriod{Month: 12, Year: 2024}, BillingPeriod{Month: 1, Year: 2025}},
	}
	for _, tc := range cases {
		if got := tc.in.Next(); got != tc.want {
			t.Errorf("%v.Next() = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestBillingPeriodAddMonths(t *testing.T) {
	p := BillingPeriod{Month: 11, Year: 2024}
	if got := p.AddMonths(0); got != p {
		t.Errorf("AddMonths(0) = %v", got)
	}
	if got := p.AddMonths(3); got != (BillingPeriod{Month: 2, Year: 2025}) {
		t.Errorf("AddMonths(3) = %v", got)
	}
	if got := p.AddMonths(-11); got != (BillingPeriod{Month: 12, Year: 2023}) {
		t.Errorf("AddMonths(-11) = %v", got)
	}
}

func TestInvoiceDueDate(t *testing.T) {
	cases := []struct {
		name   string
		period BillingPeriod
		dueDay int
		want   string
	}{
		{"regular", BillingPeriod{Month: 3, Year: 2024}, 10, "2024-04-10"},
		{"december rolls over", BillingPeriod{Month: 12, Year: 2024}, 10, "2025-01-10"},
		{"clamped to non-leap february", BillingPeriod{Month: 1, Year: 2023}, 31, "2023-02-28"},
		{"clamped to leap february", BillingPeriod{Month: 1, Year: 2024}, 31, "2024-02-29"},
		{"clamped to 30-day month", BillingPeriod{Month: 3, Year: 2024}, 31, "2024-04-30"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := tc.period.InvoiceDueDate(tc.dueDay)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.String() != tc.want {
				t.Errorf("got %s, want %s", got, tc.want)
			}
		})
	}
}

func TestInvoiceDueDateRejectsInvalid(t *testing.T) {
	if _, err := (BillingPeriod{Month: 0, Year: 2024}).InvoiceDueDate(10); err == nil {
		t.Fatalf("expected error for month 0")
	}
	if _, err := (BillingPeriod{Month: 5, Year: 2024}).InvoiceDueDate(0); err == nil {
		t.Fatalf("expected error for due day 0")
	}
}

func TestInvoiceLabels(t *testing.T) {
	p := BillingPeriod{Month: 3, Year: 2024}
	if got := InvoiceDescription("Nubank", p); got != "Invoice Nubank - 03/2024" {
		t.Errorf("unexpected description %q", got)
	}
	if got := InvoiceCategory("Nubank"); got != "Card Nubank" {
		t.Errorf("unexpected category %q", got)
	}
	if got := PeriodOf(NewDate(2024, 7, 19)); got != (BillingPeriod{Month: 7, Year: 2024}) {
		t.Errorf("unexpected period %v", got)
	}
}
