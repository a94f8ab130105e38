package common

// AccessTokenHeaderName is the HTTP header carrying the relayer access token.
const AccessTokenHeaderName = "access_token"

// UnknownID is reported when a transaction succeeded but the event carrying
// the new identifier could not be found in its receipt.
const UnknownID = "unknown"
