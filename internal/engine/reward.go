package engine

import (
	"fmt"

	"mastery-quiz-service/internal/domain"
)

// SpeedTier grants Bonus to answers given in fewer than UnderSeconds.
type SpeedTier struct {
	UnderSeconds int
	Bonus        int
}

// SpeedBonus is a step function from elapsed seconds to bonus reward.
// Tiers are ordered fastest first; answers slower than every tier earn Floor.
type SpeedBonus struct {
	Tiers []SpeedTier
	Floor int
}

// DefaultSpeedBonus is the production reward table.
func DefaultSpeedBonus() SpeedBonus {
	return SpeedBonus{
		Tiers: []SpeedTier{
			{UnderSeconds: 30, Bonus: 20},
			{UnderSeconds: 45, Bonus: 15},
			{UnderSeconds: 60, Bonus: 10},
		},
		Floor: 5,
	}
}

// For returns the bonus for an answer given after seconds.
func (p SpeedBonus) For(seconds int) int {
	for _, tier := range p.Tiers {
		if seconds < tier.UnderSeconds {
			return tier.Bonus
		}
	}
	return p.Floor
}

// Validate checks that faster tiers pay strictly more and the floor stays positive.
func (p SpeedBonus) Validate() error {
	if p.Floor <= 0 {
		return fmt.Errorf("%w: floor bonus must be positive, got %d", domain.ErrInvalidRewardPolicy, p.Floor)
	}
	prevUnder, prevBonus := 0, 0
	for i, tier := range p.Tiers {
		if tier.UnderSeconds <= prevUnder {
			return fmt.Errorf("%w: tier %d threshold %ds not above %ds", domain.ErrInvalidRewardPolicy, i, tier.UnderSeconds, prevUnder)
		}
		if i > 0 && tier.Bonus >= prevBonus {
			return fmt.Errorf("%w: tier %d bonus %d not below %d", domain.ErrInvalidRewardPolicy, i, tier.Bonus, prevBonus)
		}
		prevUnder, prevBonus = tier.UnderSeconds, tier.Bonus
	}
	if len(p.Tiers) > 0 && p.Floor >= prevBonus {
		return fmt.Errorf("%w: floor %d not below slowest tier %d", domain.ErrInvalidRewardPolicy, p.Floor, prevBonus)
	}
	return nil
}
