// models/card.go
package models

import (
	"sort"
	"strings"
)

// Card categories
const (
	CategoryBase      = "A" // single-run base challenges
	CategoryCondition = "B" // weather / time-of-day conditions
	CategoryCoop      = "C" // group & balance runs
	CategoryMarathon  = "D" // season-cumulative (manual review only)
	CategoryWild      = "W" // wildcard token earners (manual review only)
)

// Participant tiers
const (
	TierBeginner     = "beginner"
	TierIntermediate = "intermediate"
	TierAdvanced     = "advanced"
)

var tierAliases = map[string]string{
	"beginner":     TierBeginner,
	"beg":          TierBeginner,
	"b":            TierBeginner,
	"초보":           TierBeginner,
	"intermediate": TierIntermediate,
	"inter":        TierIntermediate,
	"i":            TierIntermediate,
	"중수":           TierIntermediate,
	"advanced":     TierAdvanced,
	"adv":          TierAdvanced,
	"a":            TierAdvanced,
	"고수":           TierAdvanced,
}

// NormalizeTier maps user-supplied tier spellings onto the canonical three.
func NormalizeTier(value string) (string, bool) {
	raw := strings.TrimSpace(value)
	if t, ok := tierAliases[raw]; ok {
		return t, true
	}
	if t, ok := tierAliases[strings.ToLower(raw)]; ok {
		return t, true
	}
	return "", false
}

// TierValue picks the tier-scaled variant of a threshold.
func TierValue(tier string, beginner, intermediate, advanced float64) float64 {
	switch tier {
	case TierBeginner:
		return beginner
	case TierIntermediate:
		return intermediate
	default:
		return advanced
	}
}

// TokenCap is the wildcard-token ceiling per tier.
func TokenCap(tier string) int {
	switch tier {
	case TierBeginner:
		return 1
	case TierIntermediate:
		return 2
	default:
		return 3
	}
}

// Card is one square definition from the season catalog.
type Card struct {
	Code     string `json:"code"`
	Category string `json:"category"`
	Stars    int    `json:"stars"`
	Title    string `json:"title"`
}

// Cards is the full season catalog, keyed by code.
var Cards = map[string]Card{
	// A. Base (14)
	"A01": {"A01", CategoryBase, 1, "7km+ (tier-scaled)"},
	"A02": {"A02", CategoryBase, 2, "8km+ (tier-scaled)"},
	"A03": {"A03", CategoryBase, 2, "10km+ (tier-scaled)"},
	"A04": {"A04", CategoryBase, 1, "40min+ (tier-scaled)"},
	"A05": {"A05", CategoryBase, 2, "60min+ (tier-scaled)"},
	"A06": {"A06", CategoryBase, 1, "Warm-up 10min"},
	"A07": {"A07", CategoryBase, 1, "Cool-down stretch 10min"},
	"A08": {"A08", CategoryBase, 1, "Foam roll / massage 20min"},
	"A09": {"A09", CategoryBase, 2, "Strength 10min"},
	"A10": {"A10", CategoryBase, 2, "5km with first-time runner"},
	"A11": {"A11", CategoryBase, 2, "New route (tier-scaled)"},
	"A12": {"A12", CategoryBase, 2, "Build-up (tier-scaled)"},
	"A13": {"A13", CategoryBase, 2, "Running drills 5min (with base run)"},
	"A14": {"A14", CategoryBase, 1, "Instagram share"},
	// B. Condition (10)
	"B01": {"B01", CategoryCondition, 1, "Night (>=22:00)"},
	"B02": {"B02", CategoryCondition, 2, "Dawn (<06:00)"},
	"B03": {"B03", CategoryCondition, 2, "Below 0°C"},
	"B04": {"B04", CategoryCondition, 2, "Rain/Snow"},
	"B05": {"B05", CategoryCondition, 1, "Weekend"},
	"B06": {"B06", CategoryCondition, 2, "Cold/windy (feels<=-5 or wind>=6)"},
	"B07": {"B07", CategoryCondition, 2, "Hills (gain>=100 or repeats>=3)"},
	"B08": {"B08", CategoryCondition, 1, "Track"},
	"B09": {"B09", CategoryCondition, 1, "Treadmill"},
	"B10": {"B10", CategoryCondition, 1, "Reflective/light gear"},
	// C. Co-op / Balance (9)
	"C01": {"C01", CategoryCoop, 1, "Join group run"},
	"C02": {"C02", CategoryCoop, 2, "Host group run (>=2)"},
	"C03": {"C03", CategoryCoop, 1, "Pair run (>=2, 20min+)"},
	"C04": {"C04", CategoryCoop, 2, "Same day 3+ runners"},
	"C05": {"C05", CategoryCoop, 1, "Thursday meeting"},
	"C06": {"C06", CategoryCoop, 2, "Pace-making 30min+"},
	"C07": {"C07", CategoryCoop, 2, "Mixed-tier run"},
	"C08": {"C08", CategoryCoop, 1, "Easy chat run 60min+"},
	"C09": {"C09", CategoryCoop, 1, "After-run coffee/stretch"},
	// D. Marathon (5)
	"D01": {"D01", CategoryMarathon, 3, "5-day streak"},
	"D02": {"D02", CategoryMarathon, 3, "Final week 6 runs"},
	"D03": {"D03", CategoryMarathon, 3, "Tier distance goal"},
	"D04": {"D04", CategoryMarathon, 3, "3-day streak"},
	"D05": {"D05", CategoryMarathon, 3, "Alternating days (run-rest-run-rest)"},
	// W. Wild (4)
	"W01": {"W01", CategoryWild, 3, "Thu meeting x3"},
	"W02": {"W02", CategoryWild, 3, "Host 2x (>=3 ppl each)"},
	"W03": {"W03", CategoryWild, 3, "Pace-maker x3"},
	"W04": {"W04", CategoryWild, 3, "6 runs in a week"},
}

// CardCodes returns every catalog code in sorted order.
func CardCodes() []string {
	codes := make([]string, 0, len(Cards))
	for code := range Cards {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// CardsByCategory groups catalog codes by category, each group sorted.
func CardsByCategory() map[string][]string {
	out := map[string][]string{
		CategoryBase: {}, CategoryCondition: {}, CategoryCoop: {},
		CategoryMarathon: {}, CategoryWild: {},
	}
	for code, card := range Cards {
		out[card.Category] = append(out[card.Category], code)
	}
	for cat := range out {
		sort.Strings(out[cat])
	}
	return out
}

// CardStars returns the star weight for a code, 0 when unknown.
func CardStars(code string) int {
	if card, ok := Cards[code]; ok {
		return card.Stars
	}
	return 0
}
