package common

// AccessTokenHeaderName is the gRPC metadata key used to carry the
// access token on outbound requests.
const AccessTokenHeaderName = "access_token"

// RegistryLockKey is the PostgreSQL advisory lock that serializes all
// registry writers.
const RegistryLockKey int64 = 0x6d65646b
