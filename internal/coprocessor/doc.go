// Package coprocessor is a development stand-in for an FHE coprocessor and
// its key management service.
//
// Values are sealed with AES-256-GCM under a network key rather than
// encrypted homomorphically. What it does reproduce is the protocol surface
// the client depends on:
//
//   - a 32-byte ciphertext handle, keccak256(sealed || nonce || contract || account)
//   - an input proof: a KMS signature binding the handle to (contract, account)
//   - decryption returning clear values keyed by handle, the same values
//     ABI-encoded as uint256[], and a KMS signature over (handles, encoded)
//
// Ledgers check decryption proofs with VerifyDecryptionProof.
package coprocessor
