package cli

import (
	"bytes"
	"context"
	"errors"

	"github.com/dmitrijs2005/moodkeeper/internal/common"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
// They point to interactive input helpers and can be swapped in tests.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

var (
	errPasswordMismatch = errors.New("passwords do not match")
	errEmptyPassword    = errors.New("password must not be empty")
)

// newPassword reads a password twice and requires both reads to match.
func (a *App) newPassword() ([]byte, error) {
	password, err := getPassword(a.Out)
	if err != nil {
		return nil, err
	}
	if len(password) == 0 {
		return nil, errEmptyPassword
	}
	again, err := getPassword(a.Out)
	if err != nil {
		common.WipeByteArray(password)
		return nil, err
	}
	defer common.WipeByteArray(again)

	if !bytes.Equal(password, again) {
		common.WipeByteArray(password)
		return nil, errPasswordMismatch
	}
	return password, nil
}

// WalletNew creates a keystore with a fresh key. The wallet is not
// connected afterwards.
func (a *App) WalletNew(ctx context.Context) error {
	password, err := a.newPassword()
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	addr, err := a.Wallet.CreateWallet(ctx, password)
	if err != nil {
		return err
	}

	printlnFn("Wallet created:", addr)
	printlnFn("Keystore:", a.Wallet.KeystorePath())
	return nil
}

// WalletImport stores an existing hex private key in the keystore.
func (a *App) WalletImport(ctx context.Context) error {
	hexKey, err := getSimpleText(a.Reader, "Enter private key (hex)", a.Out)
	if err != nil {
		return err
	}

	password, err := a.newPassword()
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	addr, err := a.Wallet.ImportWallet(ctx, hexKey, password)
	if err != nil {
		return err
	}

	printlnFn("Wallet imported:", addr)
	return nil
}

// Connect unlocks the keystore and then initializes the encryption gateway
// and loads the entries. A failed initialization leaves the wallet
// connected.
func (a *App) Connect(ctx context.Context) error {
	if a.isConnected() {
		printlnFn("Already connected:", a.Wallet.Account())
		return nil
	}

	password, err := getPassword(a.Out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	addr, err := a.Wallet.Connect(ctx, password)
	if err != nil {
		return err
	}
	printlnFn("Connected:", addr)

	return a.Service.Initialize(ctx)
}

// Disconnect forgets the unlocked key and discards an open form.
func (a *App) Disconnect(ctx context.Context) error {
	a.Wallet.Disconnect(ctx)
	a.form.Close()
	printlnFn("Disconnected")
	return nil
}
