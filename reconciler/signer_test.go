package reconciler

import (
	"context"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
)

// staticSigner is an address-only signer for ledgers that do not sign.
type staticSigner struct {
	addr common.Address
}

func (s staticSigner) Address() common.Address { return s.addr }

func (s staticSigner) TransactOpts(ctx context.Context, chainID *big.Int) (*bind.TransactOpts, error) {
	return nil, errors.New("static signer cannot sign")
}
