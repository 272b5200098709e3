package common

// AccessTokenHeaderName is the gRPC metadata key used to carry the relayer
// access token on outbound requests.
const AccessTokenHeaderName = "access_token"

// EntryKeyPrefix prefixes every ledger entry key; the rest of the key is the
// submission time in unix milliseconds.
const EntryKeyPrefix = "sentiment-"
