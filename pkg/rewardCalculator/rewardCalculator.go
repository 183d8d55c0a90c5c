package rewardCalculator

import "fmt"

const (
	// AqiThreshold is the index above which the higher reward is granted.
	AqiThreshold = 50

	HighReward = 50
	LowReward  = 20

	TokenSymbol = "VIBE"
)

// CalculateReward maps an air-quality index to a token amount. An index of
// exactly AqiThreshold earns the low reward.
func CalculateReward(aqi int) int {
	if aqi > AqiThreshold {
		return HighReward
	}
	return LowReward
}

func RewardRule() string {
	return fmt.Sprintf("Reward rule: %d %s when the air quality index is above %d, otherwise %d %s (one claim per wallet)",
		HighReward, TokenSymbol, AqiThreshold, LowReward, TokenSymbol)
}
