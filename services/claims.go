// services/claims.go
package services

import (
	"fmt"
	"regexp"
	"strings"

	"bingo-submit-system/models"
)

// MaxClaimsPerRun caps how many squares one run may check.
const MaxClaimsPerRun = 3

var claimCodeRe = regexp.MustCompile(`^([ABCDW])(\d{1,2})$`)

// NormalizeClaimCode uppercases, strips spaces and zero-pads the numeric
// part ("b5" -> "B05"). Unrecognized shapes pass through untouched so the
// validator can report them.
func NormalizeClaimCode(value string) string {
	raw := strings.ReplaceAll(strings.ToUpper(strings.TrimSpace(value)), " ", "")
	m := claimCodeRe.FindStringSubmatch(raw)
	if m == nil {
		return raw
	}
	return fmt.Sprintf("%s%02s", m[1], m[2])
}

// NormalizeClaimCodes normalizes a batch, dropping empties.
func NormalizeClaimCodes(codes []string) []string {
	out := make([]string, 0, len(codes))
	for _, code := range codes {
		if norm := NormalizeClaimCode(code); norm != "" {
			out = append(out, norm)
		}
	}
	return out
}

// ValidateClaims checks an already-normalized claim batch and reports
// every violation at once rather than stopping at the first.
func ValidateClaims(codes []string) (bool, []string) {
	var messages []string
	if len(codes) == 0 {
		return false, []string{"claim at least one card code"}
	}
	if len(codes) > MaxClaimsPerRun {
		return false, []string{fmt.Sprintf("at most %d cards can be checked per run", MaxClaimsPerRun)}
	}

	seen := map[string]bool{}
	duplicated := false
	for _, code := range codes {
		if seen[code] {
			duplicated = true
		}
		seen[code] = true
	}
	if duplicated {
		messages = append(messages, "duplicate cards claimed")
	}

	var invalid, unknown []string
	counts := map[string]int{}
	for _, code := range codes {
		if !claimCodeFull(code) {
			invalid = append(invalid, code)
			continue
		}
		if _, ok := models.Cards[code]; !ok {
			unknown = append(unknown, code)
			continue
		}
		counts[code[:1]]++
	}
	if len(invalid) > 0 {
		messages = append(messages, "malformed card codes: "+strings.Join(invalid, ", "))
	}
	if len(unknown) > 0 {
		messages = append(messages, "unknown card codes: "+strings.Join(unknown, ", "))
	}

	if counts[models.CategoryBase] > 1 {
		messages = append(messages, "at most one A (Base) card per run")
	}
	if counts[models.CategoryCondition] > 1 {
		messages = append(messages, "at most one B (Condition) card per run")
	}
	if counts[models.CategoryCoop] > 1 {
		messages = append(messages, "at most one C (Co-op) card per run")
	}

	return len(messages) == 0, messages
}

var claimCodeFullRe = regexp.MustCompile(`^[ABCDW]\d{2}$`)

func claimCodeFull(code string) bool {
	return claimCodeFullRe.MatchString(code)
}
