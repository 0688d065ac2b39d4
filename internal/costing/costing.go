// Package costing implements a heuristic scan-size and credit model for SQL
// statements. It is a rough approximation for user-facing estimates, not a
// billing source of truth: the inputs are string patterns, not a query plan.
package costing

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Model holds the tunable constants of the cost heuristic. The zero value is
// not usable; obtain one from DefaultModel or LoadModel.
type Model struct {
	BaseScanBytes   float64 `yaml:"base_scan_bytes"`
	CreditsPerGB    float64 `yaml:"credits_per_gb"`
	DefaultLimit    int     `yaml:"default_limit"`
	LargeLimit      int     `yaml:"large_limit"`
	ScoreStep       int     `yaml:"score_step"`
	SelectStarMult  float64 `yaml:"select_star_multiplier"`
	NoWhereMult     float64 `yaml:"no_where_multiplier"`
}

// DefaultModel returns the compiled-in cost constants.
func DefaultModel() Model {
	return Model{
		BaseScanBytes:  1_000_000,
		CreditsPerGB:   0.02,
		DefaultLimit:   1000,
		LargeLimit:     10_000,
		ScoreStep:      15,
		SelectStarMult: 2,
		NoWhereMult:    5,
	}
}

// Estimate is the outcome of costing a single statement.
type Estimate struct {
	BytesScanned      string   `json:"bytesScanned"`
	Credits           float64  `json:"credits"`
	OptimizationScore int      `json:"optimizationScore"`
	Warnings          []string `json:"warnings"`
}

var (
	fromJoinRe = regexp.MustCompile(`FROM|JOIN`)
	limitRe    = regexp.MustCompile(`LIMIT\s+(\d+)`)
)

// Estimate applies the heuristic model to a SQL string. Deterministic and
// side-effect free.
func (m Model) Estimate(sql string) Estimate {
	warnings := []string{}
	upper := strings.ToUpper(sql)

	bytes := m.BaseScanBytes

	// Each FROM/JOIN occurrence widens the scan. A statement with no FROM at
	// all would otherwise degenerate to zero bytes, so clamp to one.
	tableCount := len(fromJoinRe.FindAllString(upper, -1))
	if tableCount < 1 {
		tableCount = 1
	}
	bytes *= float64(tableCount)

	if strings.Contains(upper, "SELECT *") {
		warnings = append(warnings, "SELECT * may scan unnecessary columns")
		bytes *= m.SelectStarMult
	}

	if !strings.Contains(upper, "WHERE") {
		warnings = append(warnings, "No WHERE clause - full table scan possible")
		bytes *= m.NoWhereMult
	}

	limit := m.DefaultLimit
	if match := limitRe.FindStringSubmatch(upper); match != nil {
		if n, err := strconv.Atoi(match[1]); err == nil {
			limit = n
		}
	}
	if limit > m.LargeLimit {
		warnings = append(warnings, "Large LIMIT may impact performance")
	}

	credits := (bytes / 1e9) * m.CreditsPerGB
	credits = math.Round(credits*1e6) / 1e6

	score := 100 - m.ScoreStep*len(warnings)
	if score < 0 {
		score = 0
	}

	return Estimate{
		BytesScanned:      formatBytes(bytes),
		Credits:           credits,
		OptimizationScore: score,
		Warnings:          warnings,
	}
}

// formatBytes renders an abstract byte count with one decimal place using
// decimal (1e9/1e6/1e3) units, matching the shape users see in warehouse
// consoles.
func formatBytes(b float64) string {
	switch {
	case b >= 1e9:
		return strconv.FormatFloat(b/1e9, 'f', 1, 64) + " GB"
	case b >= 1e6:
		return strconv.FormatFloat(b/1e6, 'f', 1, 64) + " MB"
	default:
		return strconv.FormatFloat(b/1e3, 'f', 1, 64) + " KB"
	}
}
