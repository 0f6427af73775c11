package config

import "time"

// Gas limits used as EstimateGas fallbacks when the node cannot simulate the tx.
const (
	GasLimitTransfer      = uint64(21_000)
	GasLimitERC20Transfer = uint64(60_000)
	GasLimitStake         = uint64(150_000)
	GasLimitContractCall  = uint64(200_000)
)

// Timeouts and intervals shared by cmd and the dashboard.
const (
	RPCSelectTimeout       = 10 * time.Second
	RPCCallTimeout         = 15 * time.Second
	TxConfirmTimeout       = 3 * time.Minute
	InitialLoadRetryDelay  = 2 * time.Second
	DefaultRefreshInterval = 10 * time.Second
	ClockInterval          = time.Second
)

// Farm deployment on Asset-Hub Westend.
const (
	DefaultTokenAddress   = "0xeb3f68def0a92755f12afbc78c7c091882008481"
	DefaultStakingAddress = "0x54c27ad8a9a35902b304c1ddda79711f23d1dd48"
)

// Reference prices used until a live source is configured.
const (
	DefaultNativeUSD = 13.75
	DefaultTokenUSD  = 0.85
)
