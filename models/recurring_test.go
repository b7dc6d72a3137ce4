package models

import (
	"testing"
	"time"

	"github.com/peppinicontable/contable_backend/utils"
)

func TestRecurringIsDue(t *testing.T) {
	active := utils.NewTrue()
	march5 := time.Date(2025, 3, 5, 0, 0, 0, 0, time.Local)
	feb10 := time.Date(2025, 2, 10, 0, 0, 0, 0, time.Local)
	march10 := time.Date(2025, 3, 10, 0, 0, 0, 0, time.Local)

	cases := []struct {
		name     string
		schedule RecurringTransaction
		asOf     time.Time
		want     bool
	}{
		{"never generated, day reached", RecurringTransaction{DayOfMonth: 10, IsActive: active}, march10, true},
		{"never generated, day not reached", RecurringTransaction{DayOfMonth: 10, IsActive: active}, march5, false},
		{"generated last month", RecurringTransaction{DayOfMonth: 10, IsActive: active, LastGenerated: &feb10}, march10, true},
		{"already generated this month", RecurringTransaction{DayOfMonth: 10, IsActive: active, LastGenerated: &march10}, march10, false},
		{"inactive", RecurringTransaction{DayOfMonth: 10, IsActive: utils.NewFalse()}, march10, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.schedule.isDue(tc.asOf); got != tc.want {
				t.Errorf("isDue = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestThirdPartyDisplayName(t *testing.T) {
	withAlias := ThirdParty{Name: "Comercializadora El Sol S.A.S.", Alias: "El Sol"}
	if withAlias.DisplayName() != "El Sol" {
		t.Errorf("DisplayName = %q", withAlias.DisplayName())
	}
	plain := ThirdParty{Name: "Comercializadora El Sol S.A.S."}
	if plain.DisplayName() != "Comercializadora El Sol S.A.S." {
		t.Errorf("DisplayName = %q", plain.DisplayName())
	}
}

func TestLicenseIsValid(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.Local)
	active := utils.NewTrue()

	current := License{StartsAt: now.AddDate(0, -1, 0), ExpiresAt: now.AddDate(0, 1, 0), IsActive: active}
	if !current.IsValid(now) {
		t.Error("current license should be valid")
	}

	expired := License{StartsAt: now.AddDate(0, -2, 0), ExpiresAt: now.AddDate(0, -1, 0), IsActive: active}
	if expired.IsValid(now) {
		t.Error("expired license should not be valid")
	}

	future := License{StartsAt: now.AddDate(0, 1, 0), ExpiresAt: now.AddDate(0, 2, 0), IsActive: active}
	if future.IsValid(now) {
		t.Error("future license should not be valid")
	}

	disabled := License{StartsAt: now.AddDate(0, -1, 0), ExpiresAt: now.AddDate(0, 1, 0), IsActive: utils.NewFalse()}
	if disabled.IsValid(now) {
		t.Error("deactivated license should not be valid")
	}
}
