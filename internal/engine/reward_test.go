package engine

import (
	"errors"
	"testing"

	"mastery-quiz-service/internal/domain"
)

func TestDefaultSpeedBonusIsMonotonicWithPositiveFloor(t *testing.T) {
	policy := DefaultSpeedBonus()
	if err := policy.Validate(); err != nil {
		t.Fatalf("default policy invalid: %v", err)
	}

	prev := policy.For(0)
	for s := 1; s <= 3600; s++ {
		got := policy.For(s)
		if got > prev {
			t.Fatalf("bonus rose from %d to %d at %ds", prev, got, s)
		}
		if got <= 0 {
			t.Fatalf("bonus %d at %ds is not positive", got, s)
		}
		prev = got
	}
	if policy.For(1<<30) != policy.Floor {
		t.Fatalf("very slow answers must earn the floor")
	}
}

func TestSpeedBonusTiers(t *testing.T) {
	policy := DefaultSpeedBonus()
	cases := []struct {
		seconds int
		want    int
	}{
		{0, 20},
		{29, 20},
		{30, 15},
		{44, 15},
		{45, 10},
		{59, 10},
		{60, 5},
		{600, 5},
	}
	for _, tc := range cases {
		if got := policy.For(tc.seconds); got != tc.want {
			t.Fatalf("For(%d) = %d, want %d", tc.seconds, got, tc.want)
		}
	}
}

func TestSpeedBonusValidate(t *testing.T) {
	cases := []struct {
		name   string
		policy SpeedBonus
		ok     bool
	}{
		{"floor only", SpeedBonus{Floor: 1}, true},
		{"zero floor", SpeedBonus{Floor: 0}, false},
		{"flat tiers", SpeedBonus{Tiers: []SpeedTier{{10, 5}, {20, 5}}, Floor: 1}, false},
		{"unordered thresholds", SpeedBonus{Tiers: []SpeedTier{{20, 9}, {10, 5}}, Floor: 1}, false},
		{"floor above slowest tier", SpeedBonus{Tiers: []SpeedTier{{10, 5}}, Floor: 6}, false},
		{"valid", SpeedBonus{Tiers: []SpeedTier{{10, 9}, {20, 5}}, Floor: 1}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.policy.Validate()
			if tc.ok && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !tc.ok && !errors.Is(err, domain.ErrInvalidRewardPolicy) {
				t.Fatalf("expected ErrInvalidRewardPolicy, got %v", err)
			}
		})
	}
}
