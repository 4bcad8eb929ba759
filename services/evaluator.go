// services/evaluator.go
package services

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"bingo-submit-system/models"
)

// Structured judging reason codes. Presentation keys off these, the
// Detail string is display text only.
const (
	ReasonMissingField    = "missing_field"
	ReasonBelowThreshold  = "below_threshold"
	ReasonConditionNotMet = "condition_not_met"
	ReasonManualReview    = "manual_review"
	ReasonUnknownCard     = "unknown_card"
)

// mergeStatus folds verdicts by severity: failed > needs_review > passed.
func mergeStatus(statuses ...string) string {
	out := models.VerdictPassed
	for _, st := range statuses {
		if st == models.VerdictFailed {
			return models.VerdictFailed
		}
		if st == models.VerdictNeedsReview {
			out = models.VerdictNeedsReview
		}
	}
	return out
}

// mergeReasons concatenates reason groups, dropping duplicates while
// preserving first-seen order.
func mergeReasons(groups ...[]models.Reason) []models.Reason {
	seen := map[models.Reason]bool{}
	var out []models.Reason
	for _, group := range groups {
		for _, r := range group {
			if seen[r] {
				continue
			}
			seen[r] = true
			out = append(out, r)
		}
	}
	return out
}

func reason(code, format string, args ...interface{}) []models.Reason {
	return []models.Reason{{Code: code, Detail: fmt.Sprintf(format, args...)}}
}

// checkGE judges value >= threshold. A missing value is unknown, never a
// failure.
func checkGE(value *float64, threshold float64, field string) (string, []models.Reason) {
	if value == nil {
		return models.VerdictNeedsReview, reason(ReasonMissingField, "%s required", field)
	}
	if *value >= threshold {
		return models.VerdictPassed, nil
	}
	return models.VerdictFailed, reason(ReasonBelowThreshold, "%s %g < %g", field, *value, threshold)
}

func checkFlag(value bool, field string) (string, []models.Reason) {
	if value {
		return models.VerdictPassed, nil
	}
	return models.VerdictFailed, reason(ReasonConditionNotMet, "%s not confirmed", field)
}

func floatOfInt(p *int) *float64 {
	if p == nil {
		return nil
	}
	f := float64(*p)
	return &f
}

// startHour extracts the hour from an HH:MM start time; malformed input
// counts as missing.
func startHour(startTime *string) *int {
	if startTime == nil {
		return nil
	}
	parts := strings.SplitN(strings.TrimSpace(*startTime), ":", 2)
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return nil
	}
	return &h
}

// baseRun is the tier-scaled gate merged into every card except A10:
// both the minimum distance and the minimum duration must hold.
func baseRun(tier string, run models.RunAttributes) (string, []models.Reason) {
	distStatus, distReasons := checkGE(run.DistanceKm, models.TierValue(tier, 5, 7, 10), "distance_km")
	durStatus, durReasons := checkGE(floatOfInt(run.DurationMin), models.TierValue(tier, 30, 40, 50), "duration_min")
	return mergeStatus(distStatus, durStatus), mergeReasons(distReasons, durReasons)
}

// EvaluateCard machine-judges one claimed card against the run evidence.
func EvaluateCard(code, tier string, runDate *time.Time, start *string, run models.RunAttributes) (string, []models.Reason) {
	card, ok := models.Cards[code]
	if !ok {
		return models.VerdictFailed, reason(ReasonUnknownCard, "unknown card code %s", code)
	}

	baseStatus, baseReasons := baseRun(tier, run)
	if code == "A10" {
		// A10 replaces the tier gate with a fixed 5km companion run.
		baseStatus, baseReasons = models.VerdictPassed, nil
	}
	finalize := func(status string, reasons []models.Reason) (string, []models.Reason) {
		return mergeStatus(baseStatus, status), mergeReasons(baseReasons, reasons)
	}

	if card.Category == models.CategoryMarathon || card.Category == models.CategoryWild {
		return finalize(models.VerdictNeedsReview,
			reason(ReasonManualReview, "season-cumulative condition, organizer review required"))
	}

	switch code {
	case "A01":
		return finalize(checkGE(run.DistanceKm, models.TierValue(tier, 5, 7, 10), "distance_km"))
	case "A02":
		return finalize(checkGE(run.DistanceKm, models.TierValue(tier, 6, 8, 12), "distance_km"))
	case "A03":
		return finalize(checkGE(run.DistanceKm, models.TierValue(tier, 7, 10, 15), "distance_km"))
	case "A04":
		return finalize(checkGE(floatOfInt(run.DurationMin), models.TierValue(tier, 30, 40, 50), "duration_min"))
	case "A05":
		return finalize(checkGE(floatOfInt(run.DurationMin), models.TierValue(tier, 50, 60, 70), "duration_min"))
	case "A06":
		return finalize(checkFlag(run.DidWarmup, "warm-up"))
	case "A07":
		return finalize(checkFlag(run.DidCooldown, "cool-down stretch"))
	case "A08":
		return finalize(checkFlag(run.DidFoamRoll, "foam roll / massage"))
	case "A09":
		return finalize(checkFlag(run.DidStrength, "strength work"))
	case "A10":
		if status, reasons := checkGE(run.DistanceKm, 5, "distance_km"); status != models.VerdictPassed {
			return finalize(status, reasons)
		}
		return finalize(checkFlag(run.WithNewRunner, "first-time runner companion"))
	case "A11":
		if status, reasons := checkGE(run.DistanceKm, models.TierValue(tier, 5, 7, 10), "distance_km"); status != models.VerdictPassed {
			return finalize(status, reasons)
		}
		return finalize(checkFlag(run.IsNewRoute, "new route"))
	case "A12":
		if status, reasons := checkGE(floatOfInt(run.DurationMin), models.TierValue(tier, 30, 40, 50), "duration_min"); status != models.VerdictPassed {
			return finalize(status, reasons)
		}
		return finalize(checkFlag(run.IsBuildUp, "build-up / negative split"))
	case "A13":
		return finalize(checkFlag(run.DidDrills, "running drills"))
	case "A14":
		return finalize(checkFlag(run.DidLog, "instagram share"))

	case "B01":
		h := startHour(start)
		if h == nil {
			return finalize(models.VerdictNeedsReview, reason(ReasonMissingField, "start_time required"))
		}
		if *h >= 22 {
			return finalize(models.VerdictPassed, nil)
		}
		return finalize(models.VerdictFailed, reason(ReasonConditionNotMet, "start before 22:00 (%02d:xx)", *h))
	case "B02":
		h := startHour(start)
		if h == nil {
			return finalize(models.VerdictNeedsReview, reason(ReasonMissingField, "start_time required"))
		}
		if *h < 6 {
			return finalize(models.VerdictPassed, nil)
		}
		return finalize(models.VerdictFailed, reason(ReasonConditionNotMet, "start after 06:00 (%02d:xx)", *h))
	case "B03":
		if run.TemperatureC == nil {
			return finalize(models.VerdictNeedsReview, reason(ReasonMissingField, "temperature_c required"))
		}
		if *run.TemperatureC <= 0 {
			return finalize(models.VerdictPassed, nil)
		}
		return finalize(models.VerdictFailed, reason(ReasonConditionNotMet, "temperature above 0°C (%g°C)", *run.TemperatureC))
	case "B04":
		if run.Precipitation == "rain" || run.Precipitation == "snow" {
			return finalize(models.VerdictPassed, nil)
		}
		return finalize(models.VerdictFailed, reason(ReasonConditionNotMet, "no rain or snow"))
	case "B05":
		if runDate == nil {
			return finalize(models.VerdictNeedsReview, reason(ReasonMissingField, "run_date required"))
		}
		wd := runDate.Weekday()
		if wd == time.Saturday || wd == time.Sunday {
			return finalize(models.VerdictPassed, nil)
		}
		return finalize(models.VerdictFailed, reason(ReasonConditionNotMet, "not a weekend run"))
	case "B06":
		if run.FeelsLikeC == nil && run.WindMS == nil {
			return finalize(models.VerdictNeedsReview, reason(ReasonMissingField, "feels_like_c or wind_m_s required"))
		}
		feelsOK := run.FeelsLikeC != nil && *run.FeelsLikeC <= -5
		windOK := run.WindMS != nil && *run.WindMS >= 6
		if feelsOK || windOK {
			return finalize(models.VerdictPassed, nil)
		}
		return finalize(models.VerdictFailed, reason(ReasonConditionNotMet, "neither cold-wave nor strong-wind condition met"))
	case "B07":
		if run.ElevationGainM == nil && run.HillRepeats == nil {
			return finalize(models.VerdictNeedsReview, reason(ReasonMissingField, "elevation_gain_m or hill_repeats required"))
		}
		gainOK := run.ElevationGainM != nil && *run.ElevationGainM >= 100
		repsOK := run.HillRepeats != nil && *run.HillRepeats >= 3
		if gainOK || repsOK {
			return finalize(models.VerdictPassed, nil)
		}
		return finalize(models.VerdictFailed, reason(ReasonConditionNotMet, "hill condition not met"))
	case "B08":
		return finalize(checkFlag(run.IsTrack, "track session"))
	case "B09":
		return finalize(checkFlag(run.IsTreadmill, "treadmill session"))
	case "B10":
		return finalize(checkFlag(run.HasLightGear, "reflective / light gear"))

	case "C01":
		if run.GroupSize == nil {
			return finalize(models.VerdictNeedsReview, reason(ReasonMissingField, "group_size required"))
		}
		if *run.GroupSize >= 2 {
			return finalize(models.VerdictPassed, nil)
		}
		return finalize(models.VerdictFailed, reason(ReasonConditionNotMet, "group smaller than 2"))
	case "C02":
		if run.GroupSize == nil {
			return finalize(models.VerdictNeedsReview, reason(ReasonMissingField, "group_size required"))
		}
		if !run.IsBungae {
			return finalize(models.VerdictFailed, reason(ReasonConditionNotMet, "not an impromptu meetup"))
		}
		if !run.IsHost {
			return finalize(models.VerdictFailed, reason(ReasonConditionNotMet, "not the host"))
		}
		if *run.GroupSize >= 2 {
			return finalize(models.VerdictPassed, nil)
		}
		return finalize(models.VerdictFailed, reason(ReasonConditionNotMet, "group smaller than 2"))
	case "C03":
		if run.GroupSize == nil {
			return finalize(models.VerdictNeedsReview, reason(ReasonMissingField, "group_size required"))
		}
		if run.DurationMin == nil {
			return finalize(models.VerdictNeedsReview, reason(ReasonMissingField, "duration_min required"))
		}
		if *run.GroupSize >= 2 && *run.DurationMin >= 20 {
			return finalize(models.VerdictPassed, nil)
		}
		return finalize(models.VerdictFailed, reason(ReasonConditionNotMet, "pair run 20min+ condition not met"))
	case "C04":
		if run.DayRunnersCount == nil {
			return finalize(models.VerdictNeedsReview, reason(ReasonMissingField, "day_runners_count required"))
		}
		if *run.DayRunnersCount >= 3 {
			return finalize(models.VerdictPassed, nil)
		}
		return finalize(models.VerdictFailed, reason(ReasonConditionNotMet, "fewer than 3 runners logged that day"))
	case "C05":
		return finalize(checkFlag(run.IsThursdayMeeting, "thursday meeting"))
	case "C06":
		if run.GroupSize == nil {
			return finalize(models.VerdictNeedsReview, reason(ReasonMissingField, "group_size required"))
		}
		if run.DurationMin == nil {
			return finalize(models.VerdictNeedsReview, reason(ReasonMissingField, "duration_min required"))
		}
		if len(run.GroupTiers) == 0 {
			return finalize(models.VerdictNeedsReview, reason(ReasonMissingField, "group_tiers required"))
		}
		if !(*run.GroupSize >= 2 && *run.DurationMin >= 30) {
			return finalize(models.VerdictFailed, reason(ReasonConditionNotMet, "30min+ group condition not met"))
		}
		if !isPacemaker(tier, run.GroupTiers) {
			return finalize(models.VerdictFailed, reason(ReasonConditionNotMet, "no slower-tier runner in the group"))
		}
		return finalize(models.VerdictPassed, nil)
	case "C07":
		if len(run.GroupTiers) == 0 {
			return finalize(models.VerdictNeedsReview, reason(ReasonMissingField, "group_tiers required"))
		}
		distinct := map[string]bool{}
		for _, t := range run.GroupTiers {
			if norm, ok := models.NormalizeTier(t); ok {
				distinct[norm] = true
			}
		}
		if len(distinct) >= 2 {
			return finalize(models.VerdictPassed, nil)
		}
		return finalize(models.VerdictFailed, reason(ReasonConditionNotMet, "fewer than 2 distinct tiers in the group"))
	case "C08":
		if run.GroupSize == nil {
			return finalize(models.VerdictNeedsReview, reason(ReasonMissingField, "group_size required"))
		}
		if run.DurationMin == nil {
			return finalize(models.VerdictNeedsReview, reason(ReasonMissingField, "duration_min required"))
		}
		if *run.GroupSize >= 2 && *run.DurationMin >= 60 && run.IsEasy {
			return finalize(models.VerdictPassed, nil)
		}
		return finalize(models.VerdictFailed, reason(ReasonConditionNotMet, "2+ runners easy 60min+ condition not met"))
	case "C09":
		if run.GroupSize == nil {
			return finalize(models.VerdictNeedsReview, reason(ReasonMissingField, "group_size required"))
		}
		if *run.GroupSize >= 2 && run.AfterSocial {
			return finalize(models.VerdictPassed, nil)
		}
		return finalize(models.VerdictFailed, reason(ReasonConditionNotMet, "2+ runners with after-run social condition not met"))
	}

	return finalize(models.VerdictNeedsReview,
		reason(ReasonManualReview, "no automatic rule for category %s", card.Category))
}

// isPacemaker: the claimant paced the group iff at least one other runner
// sits in a strictly lower tier.
func isPacemaker(tier string, groupTiers []string) bool {
	order := map[string]int{
		models.TierBeginner:     0,
		models.TierIntermediate: 1,
		models.TierAdvanced:     2,
	}
	own := order[tier]
	best := -1
	for _, raw := range groupTiers {
		t, ok := models.NormalizeTier(raw)
		if !ok || t == tier {
			continue
		}
		if best == -1 || order[t] < best {
			best = order[t]
		}
	}
	return best != -1 && own > best
}

// EvaluateClaims judges every claimed card and folds the per-card
// verdicts into an overall status with deduplicated reasons.
func EvaluateClaims(sub *models.Submission) ([]models.CardVerdict, string, []models.Reason) {
	verdicts := make([]models.CardVerdict, 0, len(sub.ClaimedCodes))
	statuses := make([]string, 0, len(sub.ClaimedCodes))
	groups := make([][]models.Reason, 0, len(sub.ClaimedCodes))
	for _, code := range sub.ClaimedCodes {
		status, reasons := EvaluateCard(code, sub.Tier, sub.RunDate, sub.StartTime, sub.Run)
		verdicts = append(verdicts, models.CardVerdict{Code: code, Status: status, Reasons: reasons})
		statuses = append(statuses, status)
		groups = append(groups, reasons)
	}
	return verdicts, mergeStatus(statuses...), mergeReasons(groups...)
}
