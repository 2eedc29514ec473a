package utils

import (
	"testing"

	"outreachcrm/models"
)

func TestParseRevenueMillions(t *testing.T) {
	tests := []struct {
		input string
		want  int
	}{
		{"$30M-$500M", 30},
		{"$5M+", 5},
		{"40", 40},
		{"approx $120M annual", 120},
		{"", 0},
		{"unknown", 0},
	}

	for _, tt := range tests {
		if got := ParseRevenueMillions(tt.input); got != tt.want {
			t.Errorf("ParseRevenueMillions(%q) = %d, want %d", tt.input, got, tt.want)
		}
	}
}

func TestScoreCompanyRestaurantChain(t *testing.T) {
	company := &models.Company{
		Name:          "Big Burger Group",
		IndustryType:  "restaurant",
		LocationCount: 25,
		EmployeeCount: 600,
		RevenueRange:  "$40M-$60M",
	}

	result := ScoreCompany(company)

	// 40 required + 30 optimal + 20 industry
	if result.TotalScore != 90 {
		t.Errorf("TotalScore = %d, want 90", result.TotalScore)
	}
	if !result.Qualified {
		t.Error("expected company to be qualified")
	}
	if len(result.Reasons) == 0 {
		t.Error("expected scoring reasons to be recorded")
	}
}

func TestScoreCompanyHeadquartersBonus(t *testing.T) {
	company := &models.Company{
		IndustryType:      "restaurant",
		LocationCount:     25,
		EmployeeCount:     600,
		RevenueRange:      "$40M",
		HeadquartersState: "TX",
	}

	result := ScoreCompany(company)
	if result.TotalScore != 100 {
		t.Errorf("TotalScore = %d, want 100 with headquarters bonus", result.TotalScore)
	}
}

func TestScoreCompanyEnterpriseBand(t *testing.T) {
	// Above every optimal band: reduced bonus credit (+8 each)
	company := &models.Company{
		IndustryType:  "restaurant",
		LocationCount: 500,
		EmployeeCount: 10000,
		RevenueRange:  "$900M",
	}

	result := ScoreCompany(company)

	// 40 required + 24 enterprise + 20 industry
	if result.TotalScore != 84 {
		t.Errorf("TotalScore = %d, want 84", result.TotalScore)
	}
	if !result.Qualified {
		t.Error("enterprise-scale company should still qualify")
	}
}

func TestScoreCompanyBelowRequirements(t *testing.T) {
	company := &models.Company{
		IndustryType:  "restaurant",
		LocationCount: 2,
		EmployeeCount: 10,
		RevenueRange:  "$1M",
	}

	result := ScoreCompany(company)

	// Only the flat industry match lands
	if result.TotalScore != 20 {
		t.Errorf("TotalScore = %d, want 20", result.TotalScore)
	}
	if result.Qualified {
		t.Error("small company must not qualify")
	}
}

func TestScoreCompanyUnknownIndustry(t *testing.T) {
	company := &models.Company{
		IndustryType:  "fintech",
		LocationCount: 100,
		EmployeeCount: 5000,
		RevenueRange:  "$200M",
	}

	result := ScoreCompany(company)
	if result.TotalScore != 0 {
		t.Errorf("TotalScore = %d, want 0 for out-of-profile industry", result.TotalScore)
	}
	if result.Qualified {
		t.Error("out-of-profile industry must not qualify")
	}
	if len(result.Reasons) != 1 {
		t.Errorf("expected a single explanatory reason, got %v", result.Reasons)
	}
}

func TestScoreCompanyHotelBands(t *testing.T) {
	company := &models.Company{
		IndustryType:  "hotel",
		LocationCount: 8,
		EmployeeCount: 1200,
		RevenueRange:  "$80M",
	}

	result := ScoreCompany(company)
	if result.TotalScore != 90 {
		t.Errorf("TotalScore = %d, want 90", result.TotalScore)
	}
}

func TestRescoreCompanyPersistsDerivedFields(t *testing.T) {
	company := &models.Company{
		IndustryType:  "restaurant",
		LocationCount: 25,
		EmployeeCount: 600,
		RevenueRange:  "$40M",
	}

	RescoreCompany(company)

	if company.ICPScore != 90 {
		t.Errorf("ICPScore = %d, want 90", company.ICPScore)
	}
	if !company.ICPQualified {
		t.Error("ICPQualified should be true")
	}
	if company.ICPScoredAt == nil {
		t.Error("ICPScoredAt should be stamped")
	}
	if len(company.ICPReasons) == 0 {
		t.Error("ICPReasons should be populated")
	}
}
