package rewardCalculator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_CalculateReward(t *testing.T) {
	t.Run("Should grant the low reward at or below the threshold", func(t *testing.T) {
		for aqi := 0; aqi <= AqiThreshold; aqi++ {
			assert.Equal(t, LowReward, CalculateReward(aqi), "aqi=%d", aqi)
		}
	})
	t.Run("Should grant the high reward above the threshold", func(t *testing.T) {
		for aqi := AqiThreshold + 1; aqi <= 500; aqi++ {
			assert.Equal(t, HighReward, CalculateReward(aqi), "aqi=%d", aqi)
		}
	})
	t.Run("Should treat 50 as the low band", func(t *testing.T) {
		assert.Equal(t, 20, CalculateReward(50))
		assert.Equal(t, 50, CalculateReward(51))
	})
	t.Run("Should describe the rule", func(t *testing.T) {
		assert.Contains(t, RewardRule(), "50 VIBE")
		assert.Contains(t, RewardRule(), "20 VIBE")
	})
}
