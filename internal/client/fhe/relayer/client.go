// Package relayer is the encryption gateway backed by the development
// relayer's gRPC service.
package relayer

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dmitrijs2005/moodkeeper/internal/auth"
	"github.com/dmitrijs2005/moodkeeper/internal/client/gateway"
	"github.com/dmitrijs2005/moodkeeper/internal/common"
	"github.com/dmitrijs2005/moodkeeper/internal/logging"
	"github.com/dmitrijs2005/moodkeeper/internal/relayerapi"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// AccountSource supplies the account access tokens are issued for.
type AccountSource interface {
	Account() string
}

type invokeFunc func(ctx context.Context, method string, args, reply any, opts ...grpc.CallOption) error

type Client struct {
	conn   *grpc.ClientConn
	invoke invokeFunc

	secret   []byte
	tokenTTL time.Duration
	accounts AccountSource

	mu           sync.Mutex
	accessToken  string
	tokenAccount string

	initialized atomic.Bool
	kmsAddress  atomic.Value
	log         logging.Logger
}

// New dials addr lazily. extra options are appended to the defaults
// (insecure transport plus the access-token interceptor).
func New(addr string, secret []byte, tokenTTL time.Duration, accounts AccountSource, log logging.Logger, extra ...grpc.DialOption) (*Client, error) {
	c := &Client{
		secret:   secret,
		tokenTTL: tokenTTL,
		accounts: accounts,
		log:      log.With("module", "fhe_relayer"),
	}

	opts := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(c.accessTokenInterceptor),
	}, extra...)

	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, err
	}
	c.conn = conn
	c.invoke = conn.Invoke
	return c, nil
}

func (c *Client) Close() error {
	return c.conn.Close()
}

func withAccessToken(ctx context.Context, token string) context.Context {
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	if md == nil {
		md = metadata.MD{}
	}
	md.Set(common.AccessTokenHeaderName, token)
	return metadata.NewOutgoingContext(ctx, md)
}

// token returns a cached token for the current account, minting a new one
// when the account changed or fresh is set.
func (c *Client) token(fresh bool) (string, error) {
	account := c.accounts.Account()
	if account == "" {
		return "", gateway.ErrUnauthorized
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if !fresh && c.accessToken != "" && c.tokenAccount == account {
		return c.accessToken, nil
	}
	tok, err := auth.GenerateToken(account, c.secret, c.tokenTTL)
	if err != nil {
		return "", err
	}
	c.accessToken, c.tokenAccount = tok, account
	return tok, nil
}

func (c *Client) accessTokenInterceptor(
	ctx context.Context,
	method string,
	req, reply any,
	cc *grpc.ClientConn,
	invoker grpc.UnaryInvoker,
	opts ...grpc.CallOption,
) error {
	if method == relayerapi.PingMethod {
		return invoker(ctx, method, req, reply, cc, opts...)
	}

	tok, err := c.token(false)
	if err != nil {
		return err
	}

	err = invoker(withAccessToken(ctx, tok), method, req, reply, cc, opts...)
	st, ok := status.FromError(err)
	if err == nil || !ok || st.Code() != codes.Unauthenticated || st.Message() != common.ErrTokenExpired.Error() {
		return err
	}

	tok, err = c.token(true)
	if err != nil {
		return err
	}
	return invoker(withAccessToken(ctx, tok), method, req, reply, cc, opts...)
}

// Initialize pings the relayer and records its KMS address.
func (c *Client) Initialize(ctx context.Context) error {
	req, _ := structpb.NewStruct(nil)
	resp := new(structpb.Struct)
	if err := c.invoke(ctx, relayerapi.PingMethod, req, resp); err != nil {
		return mapError(err)
	}

	pong, err := relayerapi.PingResponseFromStruct(resp)
	if err != nil {
		return err
	}
	if pong.Status != "OK" {
		return gateway.ErrUnavailable
	}

	c.kmsAddress.Store(pong.KMSAddress)
	c.initialized.Store(true)
	c.log.Info(ctx, "relayer FHE gateway ready", "kms", pong.KMSAddress)
	return nil
}

func (c *Client) Initialized() bool {
	return c.initialized.Load()
}

// KMSAddress is the signer of decryption proofs, known after Initialize.
func (c *Client) KMSAddress() string {
	v, _ := c.kmsAddress.Load().(string)
	return v
}

func (c *Client) Encrypt(ctx context.Context, contract, account string, value uint32) (*gateway.EncryptedInput, error) {
	if !c.Initialized() {
		return nil, gateway.ErrNotInitialized
	}

	req, err := relayerapi.EncryptRequest{Contract: contract, Account: account, Value: value}.ToStruct()
	if err != nil {
		return nil, err
	}
	resp := new(structpb.Struct)
	if err := c.invoke(ctx, relayerapi.EncryptMethod, req, resp); err != nil {
		return nil, mapError(err)
	}

	out, err := relayerapi.EncryptResponseFromStruct(resp)
	if err != nil {
		return nil, err
	}
	return &gateway.EncryptedInput{Handle: out.Handle, Proof: out.InputProof}, nil
}

func (c *Client) RequestDecryption(ctx context.Context, handles []string, contract string) (*gateway.DecryptionResult, error) {
	if !c.Initialized() {
		return nil, gateway.ErrNotInitialized
	}

	req, err := relayerapi.DecryptRequest{Contract: contract, Handles: handles}.ToStruct()
	if err != nil {
		return nil, err
	}
	resp := new(structpb.Struct)
	if err := c.invoke(ctx, relayerapi.DecryptMethod, req, resp); err != nil {
		return nil, mapError(err)
	}

	out, err := relayerapi.DecryptResponseFromStruct(resp)
	if err != nil {
		return nil, err
	}
	return &gateway.DecryptionResult{ClearValues: out.ClearValues, AbiEncoded: out.AbiEncoded, Proof: out.Proof}, nil
}

func mapError(err error) error {
	if err == nil {
		return nil
	}
	st, _ := status.FromError(err)
	switch st.Code() {
	case codes.Unauthenticated, codes.PermissionDenied:
		return gateway.ErrUnauthorized
	case codes.Unavailable, codes.DeadlineExceeded:
		return gateway.ErrUnavailable
	default:
		return fmt.Errorf("rpc error: %w", err)
	}
}
