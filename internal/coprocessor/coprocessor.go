package coprocessor

import (
	"context"
	"crypto/ecdsa"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/moodkeeper/internal/cryptox"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

var (
	ErrHandleNotFound = errors.New("ciphertext handle not found")
	ErrWrongContract  = errors.New("handle does not belong to contract")
	ErrInvalidProof   = errors.New("invalid proof")
	ErrNoHandles      = errors.New("no handles requested")
)

// Ciphertext is a sealed value and the context it was produced for.
type Ciphertext struct {
	Handle    string
	Sealed    []byte
	Nonce     []byte
	Contract  string
	Account   string
	CreatedAt time.Time
}

type Repository interface {
	Save(ctx context.Context, c Ciphertext) error
	// Get returns ErrHandleNotFound for an unknown handle.
	Get(ctx context.Context, handle string) (*Ciphertext, error)
}

// Decryption is the result of a decryption request.
type Decryption struct {
	Values     map[string]uint64
	AbiEncoded []byte
	Proof      []byte
}

type Coprocessor struct {
	networkKey []byte
	kms        *ecdsa.PrivateKey
	repo       Repository
	now        func() time.Time
}

// New builds a coprocessor. networkKey must be 32 bytes.
func New(networkKey []byte, kms *ecdsa.PrivateKey, repo Repository) (*Coprocessor, error) {
	if len(networkKey) != 32 {
		return nil, fmt.Errorf("network key must be 32 bytes, got %d", len(networkKey))
	}
	if kms == nil {
		return nil, errors.New("kms key is required")
	}
	return &Coprocessor{networkKey: networkKey, kms: kms, repo: repo, now: time.Now}, nil
}

// NewFromHex parses hex-encoded network and KMS keys. An empty key is
// replaced with a fresh random one, so proofs only verify within the run.
func NewFromHex(networkKeyHex, kmsKeyHex string, repo Repository) (*Coprocessor, error) {
	nk := common.FromHex(networkKeyHex)
	if networkKeyHex == "" {
		var err error
		if nk, err = cryptox.RandomKey(32); err != nil {
			return nil, fmt.Errorf("network key: %w", err)
		}
	}

	var (
		kms *ecdsa.PrivateKey
		err error
	)
	if kmsKeyHex == "" {
		kms, err = crypto.GenerateKey()
	} else {
		kms, err = crypto.HexToECDSA(strings.TrimPrefix(kmsKeyHex, "0x"))
	}
	if err != nil {
		return nil, fmt.Errorf("kms key: %w", err)
	}
	return New(nk, kms, repo)
}

// KMSAddress is the address whose signatures make proofs valid.
func (c *Coprocessor) KMSAddress() common.Address {
	return crypto.PubkeyToAddress(c.kms.PublicKey)
}

// Encrypt seals value for (contract, account) and returns the handle and
// input proof.
func (c *Coprocessor) Encrypt(ctx context.Context, contract, account string, value uint32) (common.Hash, []byte, error) {
	plaintext := binary.BigEndian.AppendUint32(nil, value)

	sealed, nonce, err := cryptox.Seal(c.networkKey, plaintext, binding(contract, account))
	if err != nil {
		return common.Hash{}, nil, fmt.Errorf("seal: %w", err)
	}

	handle := common.BytesToHash(crypto.Keccak256(sealed, nonce, []byte(normalize(contract)), []byte(normalize(account))))

	proof, err := crypto.Sign(InputProofDigest(handle, contract, account), c.kms)
	if err != nil {
		return common.Hash{}, nil, fmt.Errorf("sign input proof: %w", err)
	}

	err = c.repo.Save(ctx, Ciphertext{
		Handle:    handle.Hex(),
		Sealed:    sealed,
		Nonce:     nonce,
		Contract:  normalize(contract),
		Account:   normalize(account),
		CreatedAt: c.now().UTC(),
	})
	if err != nil {
		return common.Hash{}, nil, fmt.Errorf("save ciphertext: %w", err)
	}

	return handle, proof, nil
}

// Decrypt opens handles that belong to contract and signs the result.
func (c *Coprocessor) Decrypt(ctx context.Context, handles []string, contract string) (*Decryption, error) {
	if len(handles) == 0 {
		return nil, ErrNoHandles
	}

	values := make([]uint64, len(handles))
	byHandle := make(map[string]uint64, len(handles))

	for i, h := range handles {
		key := common.HexToHash(h).Hex()
		ct, err := c.repo.Get(ctx, key)
		if err != nil {
			return nil, err
		}
		if ct.Contract != normalize(contract) {
			return nil, fmt.Errorf("%s: %w", key, ErrWrongContract)
		}

		plaintext, err := cryptox.Open(c.networkKey, ct.Sealed, ct.Nonce, binding(ct.Contract, ct.Account))
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", key, err)
		}
		if len(plaintext) != 4 {
			return nil, fmt.Errorf("open %s: unexpected plaintext size %d", key, len(plaintext))
		}

		v := uint64(binary.BigEndian.Uint32(plaintext))
		values[i] = v
		byHandle[key] = v
	}

	encoded, err := EncodeClearValues(values)
	if err != nil {
		return nil, err
	}

	digest, err := DecryptionDigest(handles, encoded)
	if err != nil {
		return nil, err
	}
	proof, err := crypto.Sign(digest, c.kms)
	if err != nil {
		return nil, fmt.Errorf("sign decryption proof: %w", err)
	}

	return &Decryption{Values: byHandle, AbiEncoded: encoded, Proof: proof}, nil
}

// InputProofDigest is the message signed for an input proof.
func InputProofDigest(handle common.Hash, contract, account string) []byte {
	return crypto.Keccak256(handle.Bytes(), common.HexToAddress(contract).Bytes(), common.HexToAddress(account).Bytes())
}

// DecryptionDigest is the message signed for a decryption proof.
func DecryptionDigest(handles []string, abiEncoded []byte) ([]byte, error) {
	if len(handles) == 0 {
		return nil, ErrNoHandles
	}
	parts := make([][]byte, 0, len(handles)+1)
	for _, h := range handles {
		parts = append(parts, common.HexToHash(h).Bytes())
	}
	parts = append(parts, abiEncoded)
	return crypto.Keccak256(parts...), nil
}

// VerifyInputProof checks that proof was signed by kms for the handle.
func VerifyInputProof(kms common.Address, handle common.Hash, contract, account string, proof []byte) error {
	return verify(kms, InputProofDigest(handle, contract, account), proof)
}

// VerifyDecryptionProof checks that proof was signed by kms over handles and
// the encoded clear values.
func VerifyDecryptionProof(kms common.Address, handles []string, abiEncoded, proof []byte) error {
	digest, err := DecryptionDigest(handles, abiEncoded)
	if err != nil {
		return err
	}
	return verify(kms, digest, proof)
}

func verify(kms common.Address, digest, sig []byte) error {
	if len(sig) != crypto.SignatureLength {
		return fmt.Errorf("signature length %d: %w", len(sig), ErrInvalidProof)
	}
	pub, err := crypto.SigToPub(digest, sig)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidProof, err)
	}
	if crypto.PubkeyToAddress(*pub) != kms {
		return ErrInvalidProof
	}
	return nil
}

func binding(contract, account string) []byte {
	return []byte(normalize(contract) + "|" + normalize(account))
}

func normalize(addr string) string {
	return strings.ToLower(strings.TrimSpace(addr))
}
