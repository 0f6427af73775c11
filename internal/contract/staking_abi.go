package contract

// StakingBuiltin is the registry ID of the staking pool interface.
const StakingBuiltin = "farm-staking"

// s(address) is the pool's public per-account stake mapping.
const stakingABI = `[
  {"type":"function","name":"stake","stateMutability":"payable","inputs":[],"outputs":[]},
  {"type":"function","name":"exit","stateMutability":"nonpayable","inputs":[],"outputs":[]},
  {"type":"function","name":"total","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"rate","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"s","stateMutability":"view","inputs":[{"name":"account","type":"address"}],"outputs":[{"name":"","type":"uint256"}]}
]`

func init() {
	RegisterBuiltin(StakingBuiltin, "Farm Staking Pool",
		"accepts native-asset stakes and pays reward tokens on exit", stakingABI)
}
