// Package evm talks to the sentiment contract on an EVM chain through a
// JSON-RPC endpoint.
package evm

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/dmitrijs2005/moodkeeper/internal/client/gateway"
	"github.com/dmitrijs2005/moodkeeper/internal/logging"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
)

var ErrReverted = errors.New("transaction reverted")

// Backend is what the adapter needs from a node connection.
type Backend interface {
	bind.ContractBackend
	bind.DeployBackend
}

type Config struct {
	RPCURL   string
	Contract string
	ChainID  int64
}

type Ledger struct {
	address  common.Address
	chainID  *big.Int
	abi      abi.ABI
	backend  Backend
	contract *bind.BoundContract
	closeFn  func()
	log      logging.Logger
}

// Dial connects to cfg.RPCURL.
func Dial(ctx context.Context, cfg Config, log logging.Logger) (*Ledger, error) {
	client, err := ethclient.DialContext(ctx, cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", cfg.RPCURL, err)
	}

	l, err := New(client, cfg.Contract, cfg.ChainID, log)
	if err != nil {
		client.Close()
		return nil, err
	}
	l.closeFn = client.Close
	return l, nil
}

// New binds the contract at address over backend.
func New(backend Backend, address string, chainID int64, log logging.Logger) (*Ledger, error) {
	if !common.IsHexAddress(address) {
		return nil, fmt.Errorf("invalid contract address %q", address)
	}
	parsed, err := parseABI()
	if err != nil {
		return nil, fmt.Errorf("parse contract abi: %w", err)
	}

	addr := common.HexToAddress(address)
	return &Ledger{
		address:  addr,
		chainID:  big.NewInt(chainID),
		abi:      parsed,
		backend:  backend,
		contract: bind.NewBoundContract(addr, parsed, backend, backend, backend),
		log:      log.With("module", "ledger_evm"),
	}, nil
}

func (l *Ledger) Reader() gateway.LedgerReader {
	return l
}

func (l *Ledger) Writer(signer gateway.Signer) (gateway.LedgerWriter, error) {
	if signer == nil || !common.IsHexAddress(signer.Address()) {
		return nil, errors.New("signer with an EVM address is required")
	}
	return &writer{ledger: l, signer: signer}, nil
}

func (l *Ledger) Close() error {
	if l.closeFn != nil {
		l.closeFn()
	}
	return nil
}

func (l *Ledger) call(ctx context.Context, method string, params ...any) ([]any, error) {
	var out []any
	if err := l.contract.Call(&bind.CallOpts{Context: ctx}, &out, method, params...); err != nil {
		return nil, fmt.Errorf("%s: %w", method, err)
	}
	return out, nil
}

func (l *Ledger) GetAllEntryIDs(ctx context.Context) ([]string, error) {
	out, err := l.call(ctx, "getAllBusinessIds")
	if err != nil {
		return nil, err
	}
	return *abi.ConvertType(out[0], new([]string)).(*[]string), nil
}

func (l *Ledger) GetEntry(ctx context.Context, id string) (*gateway.EntryRecord, error) {
	out, err := l.call(ctx, "getBusinessData", id)
	if err != nil {
		return nil, err
	}
	if len(out) != 8 {
		return nil, fmt.Errorf("getBusinessData: unexpected %d outputs", len(out))
	}

	rec := &gateway.EntryRecord{
		Name:           *abi.ConvertType(out[0], new(string)).(*string),
		Description:    *abi.ConvertType(out[1], new(string)).(*string),
		Timestamp:      toBig(out[2]).Int64(),
		Creator:        (*abi.ConvertType(out[3], new(common.Address)).(*common.Address)).Hex(),
		PublicValue1:   toBig(out[4]).Uint64(),
		PublicValue2:   toBig(out[5]).Uint64(),
		IsVerified:     *abi.ConvertType(out[6], new(bool)).(*bool),
		DecryptedValue: toBig(out[7]).Uint64(),
	}
	if rec.Creator == (common.Address{}).Hex() && rec.Timestamp == 0 {
		return nil, fmt.Errorf("%s: %w", id, gateway.ErrEntryNotFound)
	}
	return rec, nil
}

func (l *Ledger) GetEncryptedValueHandle(ctx context.Context, id string) (string, error) {
	out, err := l.call(ctx, "getEncryptedValue", id)
	if err != nil {
		return "", err
	}
	h := *abi.ConvertType(out[0], new([32]byte)).(*[32]byte)
	return common.Hash(h).Hex(), nil
}

func (l *Ledger) IsAvailable(ctx context.Context) (bool, error) {
	out, err := l.call(ctx, "isAvailable")
	if err != nil {
		return false, err
	}
	return *abi.ConvertType(out[0], new(bool)).(*bool), nil
}

func (l *Ledger) Address(context.Context) (string, error) {
	return l.address.Hex(), nil
}

func toBig(v any) *big.Int {
	b, ok := v.(*big.Int)
	if !ok || b == nil {
		return new(big.Int)
	}
	return b
}

type writer struct {
	ledger *Ledger
	signer gateway.Signer
}

// transactOpts signs with the session signer after the user approves action.
func (w *writer) transactOpts(ctx context.Context, action string) (*bind.TransactOpts, error) {
	if err := w.signer.Approve(ctx, action); err != nil {
		return nil, err
	}
	return &bind.TransactOpts{
		From:    common.HexToAddress(w.signer.Address()),
		Signer:  signerFn(w.signer, w.ledger.chainID),
		Context: ctx,
	}, nil
}

func signerFn(s gateway.Signer, chainID *big.Int) bind.SignerFn {
	from := common.HexToAddress(s.Address())
	txSigner := types.LatestSignerForChainID(chainID)

	return func(addr common.Address, tx *types.Transaction) (*types.Transaction, error) {
		if addr != from {
			return nil, bind.ErrNotAuthorized
		}
		sig, err := s.SignHash(txSigner.Hash(tx).Bytes())
		if err != nil {
			return nil, err
		}
		return tx.WithSignature(txSigner, sig)
	}
}

func (w *writer) transact(ctx context.Context, method string, params ...any) (gateway.Transaction, error) {
	opts, err := w.transactOpts(ctx, method+" "+fmt.Sprint(params[0]))
	if err != nil {
		return nil, err
	}
	tx, err := w.ledger.contract.Transact(opts, method, params...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", method, err)
	}
	w.ledger.log.Debug(ctx, "transaction sent", "method", method, "tx", tx.Hash().Hex())
	return &transaction{tx: tx, backend: w.ledger.backend}, nil
}

func (w *writer) CreateEntry(ctx context.Context, req gateway.CreateEntryRequest) (gateway.Transaction, error) {
	var handle [32]byte
	copy(handle[:], common.LeftPadBytes(req.Ciphertext, 32))

	return w.transact(ctx, "createBusinessData",
		req.ID,
		req.Name,
		handle,
		req.Proof,
		new(big.Int).SetUint64(req.PublicValue1),
		new(big.Int).SetUint64(req.PublicValue2),
		req.Description,
	)
}

func (w *writer) VerifyDecryption(ctx context.Context, id string, clearValues, proof []byte) (gateway.Transaction, error) {
	return w.transact(ctx, "verifyDecryption", id, clearValues, proof)
}

type transaction struct {
	tx      *types.Transaction
	backend bind.DeployBackend
}

func (t *transaction) Hash() string {
	return t.tx.Hash().Hex()
}

func (t *transaction) Wait(ctx context.Context) error {
	receipt, err := bind.WaitMined(ctx, t.backend, t.tx)
	if err != nil {
		return err
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return fmt.Errorf("%s: %w", t.Hash(), ErrReverted)
	}
	return nil
}
