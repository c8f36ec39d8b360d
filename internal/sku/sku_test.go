package sku

import "testing"

func testCatalog() []Entry {
	return []Entry{
		{Name: "Standard_B1s", CoreCount: 1, RAMGB: 1},
		{Name: "Standard_B2s", CoreCount: 2, RAMGB: 4},
		{Name: "Standard_D4", CoreCount: 4, RAMGB: 16},
		{Name: "Standard_D8", CoreCount: 8, RAMGB: 32},
	}
}

func TestFindBestMatchingVMNameExactMatch(t *testing.T) {
	cores, ram := 4, 16
	got := FindBestMatchingVMName(testCatalog(), &cores, &ram)
	if got.Name != "Standard_D4" {
		t.Fatalf("expected exact match Standard_D4, got %s", got.Name)
	}
}

func TestFindBestMatchingVMNameWidensUntilMatch(t *testing.T) {
	// No catalog entry has exactly 3 cores / 10GB ram, so the matcher must
	// widen its lenience window until something qualifies.
	cores, ram := 3, 10
	got := FindBestMatchingVMName(testCatalog(), &cores, &ram)
	if got.Name == "" {
		t.Fatalf("expected a fallback match, got empty result")
	}
}

func TestFindBestMatchingVMNameCoreCountOnly(t *testing.T) {
	cores := 8
	got := FindBestMatchingVMName(testCatalog(), &cores, nil)
	if got.Name != "Standard_D8" {
		t.Fatalf("expected Standard_D8, got %s", got.Name)
	}
}

func TestWithinBoundsInclSaturatesAtZero(t *testing.T) {
	if !withinBoundsIncl(1, 5, 0) {
		t.Fatalf("expected deviation past zero to saturate, not go negative")
	}
}
