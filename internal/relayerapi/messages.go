package relayerapi

import (
	"errors"
	"fmt"
	"math"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"google.golang.org/protobuf/types/known/structpb"
)

var ErrBadMessage = errors.New("malformed message")

type PingResponse struct {
	Status     string
	KMSAddress string
}

type EncryptRequest struct {
	Contract string
	Account  string
	Value    uint32
}

type EncryptResponse struct {
	Handle     []byte
	InputProof []byte
}

type DecryptRequest struct {
	Contract string
	Handles  []string
}

type DecryptResponse struct {
	ClearValues map[string]uint64
	AbiEncoded  []byte
	Proof       []byte
}

func (r PingResponse) ToStruct() (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{"status": r.Status, "kms_address": r.KMSAddress})
}

func PingResponseFromStruct(s *structpb.Struct) (PingResponse, error) {
	f := fields(s)
	return PingResponse{Status: f["status"].GetStringValue(), KMSAddress: f["kms_address"].GetStringValue()}, nil
}

func (r EncryptRequest) ToStruct() (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{
		"contract": r.Contract,
		"account":  r.Account,
		"value":    float64(r.Value),
	})
}

func EncryptRequestFromStruct(s *structpb.Struct) (EncryptRequest, error) {
	f := fields(s)
	req := EncryptRequest{Contract: f["contract"].GetStringValue(), Account: f["account"].GetStringValue()}
	if req.Contract == "" || req.Account == "" {
		return req, fmt.Errorf("%w: contract and account are required", ErrBadMessage)
	}

	v, ok := f["value"]
	if !ok {
		return req, fmt.Errorf("%w: value is required", ErrBadMessage)
	}
	n := v.GetNumberValue()
	if n < 0 || n > math.MaxUint32 || n != math.Trunc(n) {
		return req, fmt.Errorf("%w: value %v is not a uint32", ErrBadMessage, n)
	}
	req.Value = uint32(n)
	return req, nil
}

func (r EncryptResponse) ToStruct() (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{
		"handle":      hexutil.Encode(r.Handle),
		"input_proof": hexutil.Encode(r.InputProof),
	})
}

func EncryptResponseFromStruct(s *structpb.Struct) (EncryptResponse, error) {
	f := fields(s)
	handle, err := hexutil.Decode(f["handle"].GetStringValue())
	if err != nil {
		return EncryptResponse{}, fmt.Errorf("%w: handle: %v", ErrBadMessage, err)
	}
	proof, err := hexutil.Decode(f["input_proof"].GetStringValue())
	if err != nil {
		return EncryptResponse{}, fmt.Errorf("%w: input_proof: %v", ErrBadMessage, err)
	}
	return EncryptResponse{Handle: handle, InputProof: proof}, nil
}

func (r DecryptRequest) ToStruct() (*structpb.Struct, error) {
	handles := make([]any, len(r.Handles))
	for i, h := range r.Handles {
		handles[i] = h
	}
	return structpb.NewStruct(map[string]any{"contract": r.Contract, "handles": handles})
}

func DecryptRequestFromStruct(s *structpb.Struct) (DecryptRequest, error) {
	f := fields(s)
	req := DecryptRequest{Contract: f["contract"].GetStringValue()}
	if req.Contract == "" {
		return req, fmt.Errorf("%w: contract is required", ErrBadMessage)
	}
	for _, v := range f["handles"].GetListValue().GetValues() {
		req.Handles = append(req.Handles, v.GetStringValue())
	}
	if len(req.Handles) == 0 {
		return req, fmt.Errorf("%w: handles are required", ErrBadMessage)
	}
	return req, nil
}

func (r DecryptResponse) ToStruct() (*structpb.Struct, error) {
	values := make(map[string]any, len(r.ClearValues))
	for h, v := range r.ClearValues {
		values[h] = float64(v)
	}
	return structpb.NewStruct(map[string]any{
		"clear_values": values,
		"abi_encoded":  hexutil.Encode(r.AbiEncoded),
		"proof":        hexutil.Encode(r.Proof),
	})
}

func DecryptResponseFromStruct(s *structpb.Struct) (DecryptResponse, error) {
	f := fields(s)
	resp := DecryptResponse{ClearValues: make(map[string]uint64)}

	for h, v := range f["clear_values"].GetStructValue().GetFields() {
		n := v.GetNumberValue()
		if n < 0 || n != math.Trunc(n) {
			return resp, fmt.Errorf("%w: clear value for %s", ErrBadMessage, h)
		}
		resp.ClearValues[h] = uint64(n)
	}

	var err error
	if resp.AbiEncoded, err = hexutil.Decode(f["abi_encoded"].GetStringValue()); err != nil {
		return resp, fmt.Errorf("%w: abi_encoded: %v", ErrBadMessage, err)
	}
	if resp.Proof, err = hexutil.Decode(f["proof"].GetStringValue()); err != nil {
		return resp, fmt.Errorf("%w: proof: %v", ErrBadMessage, err)
	}
	return resp, nil
}

func fields(s *structpb.Struct) map[string]*structpb.Value {
	if s == nil {
		return nil
	}
	return s.GetFields()
}
