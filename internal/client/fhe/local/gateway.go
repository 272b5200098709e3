// Package local runs the mock coprocessor in-process as the encryption
// gateway, for offline development and tests.
package local

import (
	"context"
	"sync/atomic"

	"github.com/dmitrijs2005/moodkeeper/internal/client/gateway"
	"github.com/dmitrijs2005/moodkeeper/internal/coprocessor"
	"github.com/dmitrijs2005/moodkeeper/internal/logging"
)

type Gateway struct {
	cp          *coprocessor.Coprocessor
	initialized atomic.Bool
	log         logging.Logger
}

func New(cp *coprocessor.Coprocessor, log logging.Logger) *Gateway {
	return &Gateway{cp: cp, log: log.With("module", "fhe_local")}
}

func (g *Gateway) Initialize(ctx context.Context) error {
	if g.initialized.Swap(true) {
		return nil
	}
	g.log.Info(ctx, "local FHE gateway ready", "kms", g.cp.KMSAddress().Hex())
	return nil
}

func (g *Gateway) Initialized() bool {
	return g.initialized.Load()
}

func (g *Gateway) Encrypt(ctx context.Context, contract, account string, value uint32) (*gateway.EncryptedInput, error) {
	if !g.Initialized() {
		return nil, gateway.ErrNotInitialized
	}
	handle, proof, err := g.cp.Encrypt(ctx, contract, account, value)
	if err != nil {
		return nil, err
	}
	return &gateway.EncryptedInput{Handle: handle.Bytes(), Proof: proof}, nil
}

func (g *Gateway) RequestDecryption(ctx context.Context, handles []string, contract string) (*gateway.DecryptionResult, error) {
	if !g.Initialized() {
		return nil, gateway.ErrNotInitialized
	}
	d, err := g.cp.Decrypt(ctx, handles, contract)
	if err != nil {
		return nil, err
	}
	return &gateway.DecryptionResult{ClearValues: d.Values, AbiEncoded: d.AbiEncoded, Proof: d.Proof}, nil
}
