package grpc

import (
	"context"
	"errors"
	"strings"

	"github.com/dmitrijs2005/moodkeeper/internal/common"
	"github.com/dmitrijs2005/moodkeeper/internal/coprocessor"
	"github.com/dmitrijs2005/moodkeeper/internal/relayerapi"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

func (s *GRPCServer) Ping(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	return relayerapi.PingResponse{Status: "OK", KMSAddress: s.cp.KMSAddress().Hex()}.ToStruct()
}

func (s *GRPCServer) Encrypt(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	req, err := relayerapi.EncryptRequestFromStruct(in)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	account, ok := accountFromContext(ctx)
	if !ok || !strings.EqualFold(account, req.Account) {
		s.logger.Warn(ctx, "encrypt for foreign account", "token_account", account, "account", req.Account)
		return nil, status.Error(codes.PermissionDenied, common.ErrorUnauthorized.Error())
	}

	handle, proof, err := s.cp.Encrypt(ctx, req.Contract, req.Account, req.Value)
	if err != nil {
		s.logger.Error(ctx, "encrypt failed", "error", err)
		return nil, status.Error(codes.Internal, common.ErrorInternal.Error())
	}

	s.logger.Info(ctx, "Encrypted", "contract", req.Contract, "account", req.Account, "handle", handle.Hex())
	return relayerapi.EncryptResponse{Handle: handle.Bytes(), InputProof: proof}.ToStruct()
}

func (s *GRPCServer) Decrypt(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	req, err := relayerapi.DecryptRequestFromStruct(in)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	res, err := s.cp.Decrypt(ctx, req.Handles, req.Contract)
	if err != nil {
		return nil, s.decryptError(ctx, err)
	}

	s.logger.Info(ctx, "Decrypted", "contract", req.Contract, "handles", len(req.Handles))
	return relayerapi.DecryptResponse{ClearValues: res.Values, AbiEncoded: res.AbiEncoded, Proof: res.Proof}.ToStruct()
}

func (s *GRPCServer) decryptError(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, coprocessor.ErrHandleNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, coprocessor.ErrWrongContract):
		return status.Error(codes.PermissionDenied, err.Error())
	case errors.Is(err, coprocessor.ErrNoHandles), errors.Is(err, relayerapi.ErrBadMessage):
		return status.Error(codes.InvalidArgument, err.Error())
	default:
		s.logger.Error(ctx, "decrypt failed", "error", err)
		return status.Error(codes.Internal, common.ErrorInternal.Error())
	}
}
