package session

import (
	"context"
	"errors"
	"sync"

	"github.com/dmitrijs2005/moodkeeper/internal/client/gateway"
	"github.com/dmitrijs2005/moodkeeper/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/moodkeeper/internal/cryptox"
	"github.com/dmitrijs2005/moodkeeper/internal/logging"
)

var ErrNotConnected = errors.New("wallet not connected")

// Manager owns the keystore at one path and the currently unlocked signer.
// It satisfies gateway.Session.
type Manager struct {
	mu     sync.RWMutex
	signer gateway.Signer

	path    string
	params  cryptox.KDFParams
	approve Approver
	meta    metadata.Repository
	log     logging.Logger
}

// NewManager returns a disconnected session. meta may be nil.
func NewManager(path string, params cryptox.KDFParams, approve Approver, meta metadata.Repository, log logging.Logger) *Manager {
	return &Manager{path: path, params: params, approve: approve, meta: meta, log: log}
}

func (m *Manager) KeystorePath() string {
	return m.path
}

// CreateWallet writes a fresh keystore and returns its address. It does not
// connect.
func (m *Manager) CreateWallet(ctx context.Context, password []byte) (string, error) {
	addr, err := CreateWallet(m.path, password, m.params)
	if err != nil {
		return "", err
	}
	m.log.Info(ctx, "wallet created", "account", addr, "path", m.path)
	return addr, nil
}

func (m *Manager) ImportWallet(ctx context.Context, hexKey string, password []byte) (string, error) {
	addr, err := ImportWallet(m.path, hexKey, password, m.params)
	if err != nil {
		return "", err
	}
	m.log.Info(ctx, "wallet imported", "account", addr, "path", m.path)
	return addr, nil
}

// Connect unlocks the keystore and makes its account the active one.
func (m *Manager) Connect(ctx context.Context, password []byte) (string, error) {
	key, err := OpenWallet(m.path, password)
	if err != nil {
		return "", err
	}
	signer := NewSigner(key, m.approve)

	m.mu.Lock()
	m.signer = signer
	m.mu.Unlock()

	if m.meta != nil {
		if err := metadata.SetString(ctx, m.meta, metadata.KeyAccount, signer.Address()); err != nil {
			m.log.Warn(ctx, "failed to remember account", "error", err)
		}
	}
	m.log.Info(ctx, "wallet connected", "account", signer.Address())
	return signer.Address(), nil
}

func (m *Manager) Disconnect(ctx context.Context) {
	m.mu.Lock()
	account := ""
	if m.signer != nil {
		account = m.signer.Address()
	}
	m.signer = nil
	m.mu.Unlock()

	if account != "" {
		m.log.Info(ctx, "wallet disconnected", "account", account)
	}
}

func (m *Manager) Connected() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.signer != nil
}

// Account is the connected address or "".
func (m *Manager) Account() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.signer == nil {
		return ""
	}
	return m.signer.Address()
}

func (m *Manager) Signer() (gateway.Signer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.signer == nil {
		return nil, ErrNotConnected
	}
	return m.signer, nil
}

// LastAccount is the account of the previous successful connect, as
// remembered in local metadata.
func (m *Manager) LastAccount(ctx context.Context) (string, error) {
	if m.meta == nil {
		return "", nil
	}
	return metadata.GetString(ctx, m.meta, metadata.KeyAccount)
}
