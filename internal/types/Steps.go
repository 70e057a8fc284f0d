/*

This file contains the execution step types emitted by the plan compiler.
Steps are produced fresh per plan request, handed to the signing layer, and
never mutated or re-used afterwards.

*/

package types

// StepType discriminates the ExecutionStep union.
type StepType string

const (
	StepSwap         StepType = "swap"
	StepApprove      StepType = "approve"
	StepContractCall StepType = "contractCall"
)

// ExecutionStep is a tagged union: exactly the fields for its Type are set.
// Token addresses are 0x-prefixed hex; amounts are decimal strings of base
// units so that arbitrary-precision integers survive JSON intact.
type ExecutionStep struct {
	Type    StepType `json:"type"`
	ChainID ChainID  `json:"chainId"`

	// swap
	SellToken       string `json:"sellToken,omitempty"`
	BuyToken        string `json:"buyToken,omitempty"`
	SellAmountWei   string `json:"sellAmountWei,omitempty"`
	MinBuyAmountWei string `json:"minBuyAmountWei,omitempty"`
	SlippageBps     int64  `json:"slippageBps,omitempty"`

	// approve
	Token     string `json:"token,omitempty"`
	Spender   string `json:"spender,omitempty"`
	AmountWei string `json:"amountWei,omitempty"`

	// contractCall
	To          string `json:"to,omitempty"`
	Data        string `json:"data,omitempty"`
	ValueHex    string `json:"valueHex,omitempty"`
	Description string `json:"description,omitempty"`
}

// CandidateSummary echoes the planned candidate back to the caller.
type CandidateSummary struct {
	PoolID   string     `json:"poolId"`
	ChainID  ChainID    `json:"chainId"`
	Protocol string     `json:"protocol"`
	Token    Stablecoin `json:"token"`
	APY      float64    `json:"apy"`
	TvlUSD   float64    `json:"tvlUsd"`
}

// PlanAssumptions records the inputs the plan was compiled under.
type PlanAssumptions struct {
	StartAsset  string `json:"startAsset"`
	AmountInput string `json:"amountInput"`
	SlippageBps int64  `json:"slippageBps"`
}

// PlanResponse is the plan compiler's output envelope.
type PlanResponse struct {
	Candidate   CandidateSummary `json:"candidate"`
	Steps       []ExecutionStep  `json:"steps"`
	Assumptions PlanAssumptions  `json:"assumptions"`
}
