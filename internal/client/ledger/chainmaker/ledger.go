// Package chainmaker runs the sentiment contract on a ChainMaker chain.
// The contract exchanges string parameters and JSON results.
package chainmaker

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"chainmaker.org/chainmaker/pb-go/v2/common"
	sdk "chainmaker.org/chainmaker/sdk-go/v2"
	"github.com/dmitrijs2005/moodkeeper/internal/client/gateway"
	"github.com/dmitrijs2005/moodkeeper/internal/logging"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

const (
	ParamID             = "business_id"
	ParamName           = "name"
	ParamEncryptedValue = "encrypted_value"
	ParamInputProof     = "input_proof"
	ParamPublicValue1   = "public_value1"
	ParamPublicValue2   = "public_value2"
	ParamDescription    = "description"
	ParamCreator        = "creator"
	ParamClearValues    = "abi_encoded_clear_values"
	ParamProof          = "decryption_proof"
)

// contractClient is the part of sdk.ChainClient the adapter uses.
type contractClient interface {
	InvokeContract(contractName, method, txId string, kvs []*common.KeyValuePair, timeout int64, withSyncResult bool) (*common.TxResponse, error)
	QueryContract(contractName, method string, kvs []*common.KeyValuePair, timeout int64) (*common.TxResponse, error)
	Stop() error
}

var newChainClient = func(opts ...sdk.ChainClientOption) (contractClient, error) {
	c, err := sdk.NewChainClient(opts...)
	if err != nil {
		return nil, err
	}
	if err := c.EnableCertHash(); err != nil {
		return nil, fmt.Errorf("enable cert hash: %w", err)
	}
	return c, nil
}

// entryJSON is the contract's getBusinessData result.
type entryJSON struct {
	Name           string `json:"name"`
	Description    string `json:"description"`
	Timestamp      int64  `json:"timestamp"`
	Creator        string `json:"creator"`
	PublicValue1   uint64 `json:"publicValue1"`
	PublicValue2   uint64 `json:"publicValue2"`
	IsVerified     bool   `json:"isVerified"`
	DecryptedValue uint64 `json:"decryptedValue"`
}

type Ledger struct {
	cfg    *Config
	client contractClient
	log    logging.Logger
}

// Open builds an SDK client from cfg.
func Open(cfg *Config, log logging.Logger) (*Ledger, error) {
	if len(cfg.Nodes) == 0 {
		return nil, fmt.Errorf("no node configurations provided in config")
	}

	opts := []sdk.ChainClientOption{
		sdk.WithChainClientOrgId(cfg.OrgID),
		sdk.WithChainClientChainId(cfg.ChainID),
		sdk.WithUserKeyFilePath(cfg.UserKeyPath),
		sdk.WithUserCrtFilePath(cfg.UserCertPath),
		sdk.WithUserSignKeyFilePath(cfg.UserSignKeyPath),
		sdk.WithUserSignCrtFilePath(cfg.UserSignCertPath),
	}
	for _, n := range cfg.Nodes {
		if n.UseTLS && len(n.CaPaths) == 0 {
			return nil, fmt.Errorf("node %s has TLS enabled but no CaPaths provided", n.Address)
		}
		opts = append(opts, sdk.AddChainClientNodeConfig(sdk.NewNodeConfig(
			sdk.WithNodeAddr(n.Address),
			sdk.WithNodeConnCnt(n.ConnCount),
			sdk.WithNodeUseTLS(n.UseTLS),
			sdk.WithNodeCAPaths(n.CaPaths),
			sdk.WithNodeTLSHostName(n.TLSHostName),
		)))
	}
	if cfg.RetryLimit > 0 {
		opts = append(opts, sdk.WithRetryLimit(cfg.RetryLimit))
	}
	if cfg.RetryInterval > 0 {
		opts = append(opts, sdk.WithRetryInterval(cfg.RetryInterval))
	}

	client, err := newChainClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("build ChainMaker client: %w", err)
	}
	return newLedger(cfg, client, log), nil
}

func newLedger(cfg *Config, client contractClient, log logging.Logger) *Ledger {
	return &Ledger{cfg: cfg, client: client, log: log.With("module", "ledger_chainmaker")}
}

func (l *Ledger) Reader() gateway.LedgerReader {
	return l
}

func (l *Ledger) Writer(signer gateway.Signer) (gateway.LedgerWriter, error) {
	if signer == nil {
		return nil, fmt.Errorf("signer is required")
	}
	return &writer{ledger: l, signer: signer}, nil
}

func (l *Ledger) Close() error {
	if err := l.client.Stop(); err != nil {
		return fmt.Errorf("failed to stop ChainMaker SDK client: %w", err)
	}
	return nil
}

func kv(pairs ...string) []*common.KeyValuePair {
	out := make([]*common.KeyValuePair, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, &common.KeyValuePair{Key: pairs[i], Value: []byte(pairs[i+1])})
	}
	return out
}

func checkResponse(method string, resp *common.TxResponse) ([]byte, error) {
	if resp.Code != common.TxStatusCode_SUCCESS {
		msg := resp.Message
		if resp.ContractResult != nil && resp.ContractResult.Message != "" {
			msg = resp.ContractResult.Message
		}
		return nil, fmt.Errorf("%s failed: %s (code: %d)", method, msg, resp.Code)
	}
	if resp.ContractResult == nil {
		return nil, fmt.Errorf("%s returned nil result (tx: %s)", method, resp.TxId)
	}
	return resp.ContractResult.Result, nil
}

func (l *Ledger) query(method string, kvs []*common.KeyValuePair) ([]byte, error) {
	resp, err := l.client.QueryContract(l.cfg.ContractName, method, kvs, l.cfg.TxTimeout)
	if err != nil {
		return nil, fmt.Errorf("SDK query %s: %w", method, err)
	}
	return checkResponse(method, resp)
}

func (l *Ledger) GetAllEntryIDs(context.Context) ([]string, error) {
	raw, err := l.query(l.cfg.Methods.GetAllIDs, nil)
	if err != nil {
		return nil, err
	}
	var ids []string
	if len(raw) == 0 {
		return ids, nil
	}
	if err := json.Unmarshal(raw, &ids); err != nil {
		return nil, fmt.Errorf("decode entry ids: %w", err)
	}
	return ids, nil
}

func (l *Ledger) GetEntry(_ context.Context, id string) (*gateway.EntryRecord, error) {
	raw, err := l.query(l.cfg.Methods.GetEntry, kv(ParamID, id))
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("%s: %w", id, gateway.ErrEntryNotFound)
	}
	var e entryJSON
	if err := json.Unmarshal(raw, &e); err != nil {
		return nil, fmt.Errorf("decode entry %s: %w", id, err)
	}
	return &gateway.EntryRecord{
		Name:           e.Name,
		Description:    e.Description,
		Timestamp:      e.Timestamp,
		Creator:        e.Creator,
		PublicValue1:   e.PublicValue1,
		PublicValue2:   e.PublicValue2,
		IsVerified:     e.IsVerified,
		DecryptedValue: e.DecryptedValue,
	}, nil
}

func (l *Ledger) GetEncryptedValueHandle(_ context.Context, id string) (string, error) {
	raw, err := l.query(l.cfg.Methods.GetEncryptedValue, kv(ParamID, id))
	if err != nil {
		return "", err
	}
	if len(raw) == 0 {
		return "", fmt.Errorf("%s: %w", id, gateway.ErrEntryNotFound)
	}
	return string(raw), nil
}

func (l *Ledger) IsAvailable(context.Context) (bool, error) {
	raw, err := l.query(l.cfg.Methods.IsAvailable, nil)
	if err != nil {
		return false, err
	}
	return strconv.ParseBool(strings.TrimSpace(string(raw)))
}

// Address is the contract name; ChainMaker contracts are addressed by name.
func (l *Ledger) Address(context.Context) (string, error) {
	return l.cfg.ContractName, nil
}

type writer struct {
	ledger *Ledger
	signer gateway.Signer
}

func (w *writer) invoke(ctx context.Context, method, id string, kvs []*common.KeyValuePair) (gateway.Transaction, error) {
	if err := w.signer.Approve(ctx, method+" "+id); err != nil {
		return nil, err
	}

	l := w.ledger
	resp, err := l.client.InvokeContract(l.cfg.ContractName, method, "", kvs, l.cfg.TxTimeout, true)
	if err != nil {
		return nil, fmt.Errorf("SDK invoke %s: %w", method, err)
	}
	if _, err := checkResponse(method, resp); err != nil {
		return nil, err
	}

	l.log.Debug(ctx, "transaction confirmed", "method", method, "tx", resp.TxId, "block", resp.TxBlockHeight)
	return tx(resp.TxId), nil
}

func (w *writer) CreateEntry(ctx context.Context, req gateway.CreateEntryRequest) (gateway.Transaction, error) {
	return w.invoke(ctx, w.ledger.cfg.Methods.CreateEntry, req.ID, kv(
		ParamID, req.ID,
		ParamName, req.Name,
		ParamEncryptedValue, hexutil.Encode(req.Ciphertext),
		ParamInputProof, hexutil.Encode(req.Proof),
		ParamPublicValue1, strconv.FormatUint(req.PublicValue1, 10),
		ParamPublicValue2, strconv.FormatUint(req.PublicValue2, 10),
		ParamDescription, req.Description,
		ParamCreator, w.signer.Address(),
	))
}

func (w *writer) VerifyDecryption(ctx context.Context, id string, clearValues, proof []byte) (gateway.Transaction, error) {
	return w.invoke(ctx, w.ledger.cfg.Methods.VerifyDecryption, id, kv(
		ParamID, id,
		ParamClearValues, hexutil.Encode(clearValues),
		ParamProof, hexutil.Encode(proof),
	))
}

// tx was invoked with a synchronous result, so it is confirmed already.
type tx string

func (t tx) Hash() string { return string(t) }

func (t tx) Wait(ctx context.Context) error {
	return ctx.Err()
}
