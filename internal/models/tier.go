package models

import "fmt"

// Tier selects the pricing class and downstream quality parameters for a job.
type Tier string

const (
	TierFree    Tier = "free"
	TierPremium Tier = "premium"
)

// ParseTier validates a tier string from client input.
func ParseTier(s string) (Tier, error) {
	switch Tier(s) {
	case TierFree:
		return TierFree, nil
	case TierPremium:
		return TierPremium, nil
	default:
		return "", fmt.Errorf("unknown tier %q", s)
	}
}

// CreditsPerTier is the static cost table; free jobs cost one credit,
// premium jobs cost two. It is a package variable, so tests can reassign it.
var CreditsPerTier = map[Tier]int{
	TierFree:    1,
	TierPremium: 2,
}

// Cost returns the credit cost for the tier using the package-level table.
func (t Tier) Cost() int {
	return CreditsPerTier[t]
}

// QualityParams are the provider-facing parameters derived from tier.
type QualityParams struct {
	Steps      int
	Resolution string
}

var qualityByTier = map[Tier]QualityParams{
	TierFree:    {Steps: 20, Resolution: "1024x1024"},
	TierPremium: {Steps: 40, Resolution: "2048x2048"},
}

// Quality returns the provider quality parameters for the tier.
func (t Tier) Quality() QualityParams {
	return qualityByTier[t]
}
