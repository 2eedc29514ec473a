package utils

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"outreachcrm/models"
)

// ICPResult is the derived fit score for a company against the target
// customer profile. Reasons are appended in evaluation order so the UI
// can show an audit trail.
type ICPResult struct {
	TotalScore int      `json:"total_score"`
	Qualified  bool     `json:"qualified"`
	Reasons    []string `json:"reasons"`
}

// QualifiedScoreThreshold is the minimum total score for a qualified fit.
const QualifiedScoreThreshold = 70

// icpBands holds the per-industry tier cutoffs. Required is the floor for
// required-criteria points; Optimal is the [min,max] band for full bonus
// credit; anything above OptimalMax is the enterprise case and earns
// reduced credit.
type icpBands struct {
	LocationRequired   int
	LocationOptimalMin int
	LocationOptimalMax int

	EmployeeRequired   int
	EmployeeOptimalMin int
	EmployeeOptimalMax int

	RevenueRequiredM   int
	RevenueOptimalMinM int
	RevenueOptimalMaxM int
}

var industryBands = map[string]icpBands{
	"restaurant": {
		LocationRequired: 5, LocationOptimalMin: 10, LocationOptimalMax: 100,
		EmployeeRequired: 50, EmployeeOptimalMin: 200, EmployeeOptimalMax: 2000,
		RevenueRequiredM: 5, RevenueOptimalMinM: 20, RevenueOptimalMaxM: 500,
	},
	"hotel": {
		LocationRequired: 3, LocationOptimalMin: 5, LocationOptimalMax: 50,
		EmployeeRequired: 100, EmployeeOptimalMin: 500, EmployeeOptimalMax: 5000,
		RevenueRequiredM: 10, RevenueOptimalMinM: 50, RevenueOptimalMaxM: 1000,
	},
}

// ParseRevenueMillions extracts the first integer token from a revenue
// range string ("$30M-$500M" -> 30). Unparsable input yields 0.
func ParseRevenueMillions(revenueRange string) int {
	num := strings.Builder{}
	for _, r := range revenueRange {
		if r >= '0' && r <= '9' {
			num.WriteRune(r)
			continue
		}
		if num.Len() > 0 {
			break
		}
	}
	if num.Len() == 0 {
		return 0
	}
	v, err := strconv.Atoi(num.String())
	if err != nil {
		return 0
	}
	return v
}

// ScoreCompany computes the ICP score for a company. Pure and stateless;
// callers persist the result and re-run it whenever an input fact changes.
func ScoreCompany(company *models.Company) ICPResult {
	result := ICPResult{Reasons: []string{}}

	bands, ok := industryBands[company.IndustryType]
	if !ok {
		result.Reasons = append(result.Reasons, "Industry type not set or outside target profile")
		return result
	}

	revenueM := ParseRevenueMillions(company.RevenueRange)

	// Required criteria: up to 40 points split 15/15/10
	if company.LocationCount >= bands.LocationRequired {
		result.TotalScore += 15
		result.Reasons = append(result.Reasons,
			fmt.Sprintf("Meets minimum location count (%d >= %d): +15", company.LocationCount, bands.LocationRequired))
	}
	if company.EmployeeCount >= bands.EmployeeRequired {
		result.TotalScore += 15
		result.Reasons = append(result.Reasons,
			fmt.Sprintf("Meets minimum employee count (%d >= %d): +15", company.EmployeeCount, bands.EmployeeRequired))
	}
	if revenueM >= bands.RevenueRequiredM {
		result.TotalScore += 10
		result.Reasons = append(result.Reasons,
			fmt.Sprintf("Meets minimum revenue ($%dM >= $%dM): +10", revenueM, bands.RevenueRequiredM))
	}

	// Optimal-range bonuses: up to 30 points, reduced credit above the
	// optimal band (enterprise case)
	result.applyBandBonus("location count", company.LocationCount,
		bands.LocationOptimalMin, bands.LocationOptimalMax)
	result.applyBandBonus("employee count", company.EmployeeCount,
		bands.EmployeeOptimalMin, bands.EmployeeOptimalMax)
	result.applyBandBonus("revenue", revenueM,
		bands.RevenueOptimalMinM, bands.RevenueOptimalMaxM)

	// Industry match is a flat 20 once we got this far
	result.TotalScore += 20
	result.Reasons = append(result.Reasons,
		fmt.Sprintf("Target industry (%s): +20", company.IndustryType))

	if company.HeadquartersState != "" {
		result.TotalScore += 10
		result.Reasons = append(result.Reasons,
			fmt.Sprintf("Headquarters state known (%s): +10", company.HeadquartersState))
	}

	result.Qualified = result.TotalScore >= QualifiedScoreThreshold
	return result
}

func (r *ICPResult) applyBandBonus(name string, value, optimalMin, optimalMax int) {
	switch {
	case value >= optimalMin && value <= optimalMax:
		r.TotalScore += 10
		r.Reasons = append(r.Reasons,
			fmt.Sprintf("Optimal %s (%d): +10", name, value))
	case value > optimalMax:
		r.TotalScore += 8
		r.Reasons = append(r.Reasons,
			fmt.Sprintf("Enterprise-scale %s (%d), above optimal band: +8", name, value))
	}
}

// RescoreCompany recomputes and persists the derived ICP fields on a
// company after its input facts changed.
func RescoreCompany(company *models.Company) {
	result := ScoreCompany(company)
	now := time.Now()
	company.ICPScore = result.TotalScore
	company.ICPQualified = result.Qualified
	company.ICPReasons = result.Reasons
	company.ICPScoredAt = &now
}
