package vibeToken

// VibeTokenAbi covers the subset of the reward registry used here. A deployment
// artifact that carries its own abi takes precedence.
const VibeTokenAbi = `[
	{"type":"function","name":"claimTokens","stateMutability":"nonpayable","inputs":[{"name":"aqi","type":"uint256"}],"outputs":[]},
	{"type":"function","name":"checkClaimStatus","stateMutability":"view","inputs":[{"name":"user","type":"address"}],"outputs":[{"name":"claimed","type":"bool"},{"name":"timestamp","type":"uint256"},{"name":"amount","type":"uint256"}]},
	{"type":"function","name":"balanceOf","stateMutability":"view","inputs":[{"name":"account","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"name","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"string"}]},
	{"type":"function","name":"symbol","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"string"}]},
	{"type":"function","name":"decimals","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint8"}]},
	{"type":"event","name":"TokensClaimed","anonymous":false,"inputs":[{"name":"user","type":"address","indexed":true},{"name":"amount","type":"uint256","indexed":false},{"name":"aqi","type":"uint256","indexed":false}]}
]`

const (
	Method_ClaimTokens      = "claimTokens"
	Method_CheckClaimStatus = "checkClaimStatus"
	Method_BalanceOf        = "balanceOf"
	Method_Name             = "name"
	Method_Symbol           = "symbol"
	Method_Decimals         = "decimals"
)
