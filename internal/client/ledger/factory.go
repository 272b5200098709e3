// Package ledger selects the ledger adapter the client talks to.
package ledger

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/moodkeeper/internal/client/gateway"
	"github.com/dmitrijs2005/moodkeeper/internal/client/ledger/chainmaker"
	"github.com/dmitrijs2005/moodkeeper/internal/client/ledger/evm"
	"github.com/dmitrijs2005/moodkeeper/internal/client/ledger/memory"
	"github.com/dmitrijs2005/moodkeeper/internal/logging"
	"github.com/ethereum/go-ethereum/common"
)

type Type string

const (
	Memory     Type = "memory"
	EVM        Type = "evm"
	ChainMaker Type = "chainmaker"
)

// DefaultMemoryAddress is where the in-process contract is deployed.
const DefaultMemoryAddress = "0x5FbDB2315678afecb367f032d93F642f64180aa3"

type Options struct {
	Type     Type
	RPCURL   string
	Contract string
	ChainID  int64
	// ChainMakerConfig is the path to the ChainMaker YAML file.
	ChainMakerConfig string
	// KMSAddress lets the memory ledger check proofs; zero disables it.
	KMSAddress common.Address
}

func Open(ctx context.Context, opts Options, log logging.Logger) (gateway.Ledger, error) {
	switch opts.Type {
	case Memory, "":
		addr := opts.Contract
		if addr == "" {
			addr = DefaultMemoryAddress
		}
		return memory.New(addr, opts.KMSAddress), nil
	case EVM:
		return evm.Dial(ctx, evm.Config{RPCURL: opts.RPCURL, Contract: opts.Contract, ChainID: opts.ChainID}, log)
	case ChainMaker:
		cfg, err := chainmaker.LoadConfig(opts.ChainMakerConfig)
		if err != nil {
			return nil, err
		}
		return chainmaker.Open(cfg, log)
	default:
		return nil, fmt.Errorf("unsupported ledger type: %s", opts.Type)
	}
}
