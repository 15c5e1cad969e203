package models

import (
	"math"
	"testing"
)

func TestPendingAmount(t *testing.T) {
	cases := []struct {
		discussed float64
		paid      float64
		want      float64
	}{
		{1000, 400, 600},
		{1000, 1000, 0},
		{1000, 1500, 0},
		{0, 0, 0},
		{99.99, 0.33, 99.66},
		{0.3, 0.1, 0.2},
	}

	for _, tt := range cases {
		if got := PendingAmount(tt.discussed, tt.paid); got != tt.want {
			t.Fatalf("PendingAmount(%v, %v)=%v, want %v", tt.discussed, tt.paid, got, tt.want)
		}
	}
}

func TestCustomerNormalizeIgnoresClientPending(t *testing.T) {
	c := Customer{DiscussedAmount: 2500.456, PaidAmount: 500, PendingAmount: 12345}
	c.Normalize()
	if c.DiscussedAmount != 2500.46 {
		t.Fatalf("expected rounded discussed amount, got %v", c.DiscussedAmount)
	}
	if c.PendingAmount != 2000.46 {
		t.Fatalf("expected pending 2000.46, got %v", c.PendingAmount)
	}
}

func TestClaimNormalizeDefaultsState(t *testing.T) {
	c := Claim{DiscussedAmount: 100, PaidAmount: 150}
	c.Normalize()
	if c.ProcessState != ClaimSubmitted {
		t.Fatalf("expected default state %q, got %q", ClaimSubmitted, c.ProcessState)
	}
	if c.PendingAmount != 0 {
		t.Fatalf("expected pending clamped to 0, got %v", c.PendingAmount)
	}
}

func TestValidAmount(t *testing.T) {
	if !ValidAmount(0) || !ValidAmount(10.5) {
		t.Fatalf("expected non-negative amounts to be valid")
	}
	if ValidAmount(-0.01) {
		t.Fatalf("expected negative amount to be invalid")
	}
	if !ValidAmount(999999999999.99) {
		t.Fatalf("expected the largest column value to be valid")
	}
	for _, value := range []float64{1e12, 999999999999.999, 1e308, math.Inf(1), math.NaN()} {
		if ValidAmount(value) {
			t.Fatalf("expected %v to be invalid", value)
		}
	}
}

func TestFilterCampsByStatus(t *testing.T) {
	camps := []Camp{
		{CampID: "a", Status: CampPlanned},
		{CampID: "b", Status: CampOngoing},
		{CampID: "c", Status: CampPlanned},
		{CampID: "d", Status: CampCancelled},
	}

	planned := FilterCampsByStatus(camps, CampPlanned)
	if len(planned) != 2 || planned[0].CampID != "a" || planned[1].CampID != "c" {
		t.Fatalf("unexpected planned camps: %+v", planned)
	}
	if got := FilterCampsByStatus(camps, ""); len(got) != len(camps) {
		t.Fatalf("expected empty status to keep all camps, got %d", len(got))
	}
	if got := FilterCampsByStatus(camps, CampCompleted); len(got) != 0 {
		t.Fatalf("expected no completed camps, got %d", len(got))
	}
}

func TestValidCampDate(t *testing.T) {
	if !ValidCampDate("2026-03-14") {
		t.Fatalf("expected ISO date to be valid")
	}
	for _, value := range []string{"", "14/03/2026", "2026-13-01"} {
		if ValidCampDate(value) {
			t.Fatalf("expected %q to be invalid", value)
		}
	}
}

func TestCampIsAssigned(t *testing.T) {
	camp := Camp{Assigned: []UserRef{{UserID: "u1"}, {UserID: "u2"}}}
	if !camp.IsAssigned("u2") {
		t.Fatalf("expected u2 to be assigned")
	}
	if camp.IsAssigned("u3") {
		t.Fatalf("expected u3 not to be assigned")
	}
}
