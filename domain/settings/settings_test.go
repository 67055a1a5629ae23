package settings

import "testing"

func TestWithDefaults(t *testing.T) {
	got := WithDefaults(General{CompanyName: "Acme Rentals", Currency: "KES"})

	if got.CompanyName != "Acme Rentals" {
		t.Errorf("CompanyName = %q", got.CompanyName)
	}
	if got.Currency != "KES" {
		t.Errorf("Currency = %q, want KES (set values are kept)", got.Currency)
	}
	if got.Timezone != "UTC" {
		t.Errorf("Timezone = %q, want UTC", got.Timezone)
	}
	if got.CancellationHours != 24 {
		t.Errorf("CancellationHours = %d, want 24", got.CancellationHours)
	}
}
