package geo

import "testing"

func TestExtractCountries(t *testing.T) {
	text := `Fighting in Sudan has displaced families toward Chad.
Sudanese refugees also crossed into Egypt during the reporting period.
Sudan remains the epicentre of the crisis.`

	ctx := Extract(text)
	if ctx.PrimaryCountry != "Sudan" {
		t.Errorf("expected primary country Sudan, got %q", ctx.PrimaryCountry)
	}

	counts := map[string]int{}
	for _, m := range ctx.Countries {
		counts[m.Country] = m.Count
	}
	if counts["Sudan"] != 3 {
		t.Errorf("expected 3 Sudan mentions, got %d", counts["Sudan"])
	}
	if counts["Chad"] != 1 || counts["Egypt"] != 1 {
		t.Errorf("expected Chad and Egypt mentions, got %v", counts)
	}
}

func TestSouthSudanNotCountedAsSudan(t *testing.T) {
	ctx := Extract("South Sudan received returnees in Renk. South Sudanese authorities opened the border.")

	counts := map[string]int{}
	for _, m := range ctx.Countries {
		counts[m.Country] = m.Count
	}
	if counts["Sudan"] != 0 {
		t.Errorf("South Sudan text must not count as Sudan, got %d", counts["Sudan"])
	}
	if counts["South Sudan"] == 0 {
		t.Error("expected South Sudan mentions")
	}
	if ctx.PrimaryCountry != "South Sudan" {
		t.Errorf("expected primary South Sudan, got %q", ctx.PrimaryCountry)
	}
}

func TestExtractDistrictsAndCrisisTerms(t *testing.T) {
	text := "Displacement from El Fasher in North Darfur continues amid food insecurity; cholera cases were reported in Kassala."

	ctx := Extract(text)

	hasDistrict := func(name string) bool {
		for _, d := range ctx.Districts {
			if d == name {
				return true
			}
		}
		return false
	}
	if !hasDistrict("North Darfur") {
		t.Errorf("expected North Darfur in districts, got %v", ctx.Districts)
	}
	if !hasDistrict("Kassala") {
		t.Errorf("expected Kassala in districts, got %v", ctx.Districts)
	}

	hasTerm := func(term string) bool {
		for _, c := range ctx.CrisisTerms {
			if c == term {
				return true
			}
		}
		return false
	}
	if !hasTerm("displacement") || !hasTerm("food insecurity") || !hasTerm("cholera") {
		t.Errorf("expected crisis terms, got %v", ctx.CrisisTerms)
	}
}

func TestExtractEmptyText(t *testing.T) {
	ctx := Extract("")
	if ctx.PrimaryCountry != "" || len(ctx.Countries) != 0 {
		t.Errorf("expected empty context, got %+v", ctx)
	}
}
