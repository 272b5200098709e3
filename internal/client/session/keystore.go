// Package session implements the wallet session: a password-protected
// keystore file holding one secp256k1 account, a signer bound to it, and
// the connect/disconnect lifecycle the client reacts to.
package session

import (
	"crypto/ecdsa"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dmitrijs2005/moodkeeper/internal/common"
	"github.com/dmitrijs2005/moodkeeper/internal/cryptox"
	"github.com/dmitrijs2005/moodkeeper/internal/filex"
	"github.com/ethereum/go-ethereum/crypto"
)

const keystoreVersion = 1

var ErrWalletExists = errors.New("wallet already exists")

// walletFile is the on-disk keystore. The private key is sealed under an
// argon2id-derived key with the address as additional data.
type walletFile struct {
	Version    int               `json:"version"`
	Address    string            `json:"address"`
	KDF        string            `json:"kdf"`
	KDFParams  cryptox.KDFParams `json:"kdf_params"`
	Salt       string            `json:"salt"`
	Nonce      string            `json:"nonce"`
	Ciphertext string            `json:"ciphertext"`
	CreatedAt  time.Time         `json:"created_at"`
}

// CreateWallet generates a new account and stores it at path. It refuses to
// overwrite an existing keystore.
func CreateWallet(path string, password []byte, params cryptox.KDFParams) (string, error) {
	key, err := crypto.GenerateKey()
	if err != nil {
		return "", fmt.Errorf("generate key: %w", err)
	}
	return saveWallet(path, key, password, params)
}

// ImportWallet stores an existing hex private key at path.
func ImportWallet(path, hexKey string, password []byte, params cryptox.KDFParams) (string, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(hexKey), "0x"))
	if err != nil {
		return "", fmt.Errorf("parse private key: %w", err)
	}
	return saveWallet(path, key, password, params)
}

func saveWallet(path string, key *ecdsa.PrivateKey, password []byte, params cryptox.KDFParams) (string, error) {
	if filex.Exists(path) {
		return "", ErrWalletExists
	}

	address := crypto.PubkeyToAddress(key.PublicKey).Hex()
	salt := common.GenerateRandByteArray(16)
	if salt == nil {
		return "", errors.New("salt: random source failed")
	}

	dk := cryptox.DeriveKey(password, salt, params)
	defer common.WipeByteArray(dk)

	raw := crypto.FromECDSA(key)
	defer common.WipeByteArray(raw)

	ct, nonce, err := cryptox.Seal(dk, raw, []byte(address))
	if err != nil {
		return "", fmt.Errorf("seal key: %w", err)
	}

	wf := walletFile{
		Version:    keystoreVersion,
		Address:    address,
		KDF:        "argon2id",
		KDFParams:  params,
		Salt:       hex.EncodeToString(salt),
		Nonce:      hex.EncodeToString(nonce),
		Ciphertext: hex.EncodeToString(ct),
		CreatedAt:  time.Now().UTC(),
	}
	data, err := json.MarshalIndent(wf, "", "  ")
	if err != nil {
		return "", err
	}
	if err := filex.WriteFileAtomic(path, data, 0o600); err != nil {
		return "", err
	}
	return address, nil
}

// OpenWallet decrypts the keystore at path. A wrong password returns
// common.ErrWrongPassword, a missing file common.ErrNoWallet.
func OpenWallet(path string, password []byte) (*ecdsa.PrivateKey, error) {
	wf, err := readWallet(path)
	if err != nil {
		return nil, err
	}

	salt, err := hex.DecodeString(wf.Salt)
	if err != nil {
		return nil, fmt.Errorf("keystore salt: %w", err)
	}
	nonce, err := hex.DecodeString(wf.Nonce)
	if err != nil {
		return nil, fmt.Errorf("keystore nonce: %w", err)
	}
	ct, err := hex.DecodeString(wf.Ciphertext)
	if err != nil {
		return nil, fmt.Errorf("keystore ciphertext: %w", err)
	}

	dk := cryptox.DeriveKey(password, salt, wf.KDFParams)
	defer common.WipeByteArray(dk)

	raw, err := cryptox.Open(dk, ct, nonce, []byte(wf.Address))
	if err != nil {
		return nil, common.ErrWrongPassword
	}
	defer common.WipeByteArray(raw)

	key, err := crypto.ToECDSA(raw)
	if err != nil {
		return nil, fmt.Errorf("keystore key: %w", err)
	}
	if got := crypto.PubkeyToAddress(key.PublicKey).Hex(); got != wf.Address {
		return nil, fmt.Errorf("keystore address mismatch: %s != %s", got, wf.Address)
	}
	return key, nil
}

// WalletAddress reads the account address without unlocking the keystore.
func WalletAddress(path string) (string, error) {
	wf, err := readWallet(path)
	if err != nil {
		return "", err
	}
	return wf.Address, nil
}

func readWallet(path string) (*walletFile, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, common.ErrNoWallet
	}
	if err != nil {
		return nil, fmt.Errorf("read keystore: %w", err)
	}

	var wf walletFile
	if err := json.Unmarshal(data, &wf); err != nil {
		return nil, fmt.Errorf("parse keystore: %w", err)
	}
	if wf.Version != keystoreVersion {
		return nil, fmt.Errorf("unsupported keystore version %d", wf.Version)
	}
	return &wf, nil
}
