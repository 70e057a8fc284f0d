/*

This file contains the wallet session: the identity a compiled plan is built
for. The planner never holds keys; it only needs the beneficiary address and
the chain the wallet is connected to. Signing stays behind the Signer
interface so an execution layer can plug in a key store without touching the
planner.

*/

package wallet

import (
	"context"
	"errors"

	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"

	"github.com/stableyield/autopilot/internal/types"
)

var ErrNoSession = errors.New("no wallet session")

// Session identifies the wallet a plan executes for.
type Session struct {
	Address common.Address
	ChainID types.ChainID
}

// NewSession parses a hex address into a session. The zero address is
// rejected because every plan step needs a real beneficiary.
func NewSession(address string, chainID types.ChainID) (Session, error) {
	if !common.IsHexAddress(address) {
		return Session{}, errors.Join(ErrNoSession, errors.New("invalid hex address: "+address))
	}
	parsed := common.HexToAddress(address)
	if parsed == (common.Address{}) {
		return Session{}, errors.Join(ErrNoSession, errors.New("zero address"))
	}
	return Session{Address: parsed, ChainID: chainID}, nil
}

// Signer turns plan steps into signed transactions. The planner itself never
// signs; implementations live with the execution layer.
type Signer interface {
	SignTransaction(ctx context.Context, session Session, tx *ethtypes.Transaction) (*ethtypes.Transaction, error)
}
