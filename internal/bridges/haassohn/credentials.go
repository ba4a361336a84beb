package haassohn

import (
	"crypto/md5" //nolint:gosec // the stove's PIN scheme is fixed to MD5
	"encoding/hex"
)

// DeriveSecret returns the device secret for pin: the hex MD5 of the PIN.
func DeriveSecret(pin string) string {
	sum := md5.Sum([]byte(pin)) //nolint:gosec // wire format
	return hex.EncodeToString(sum[:])
}

// DeriveToken returns the session token sent as X-HS-PIN: the hex MD5 of the
// nonce followed by the secret.
func DeriveToken(nonce, secret string) string {
	sum := md5.Sum([]byte(nonce + secret)) //nolint:gosec // wire format
	return hex.EncodeToString(sum[:])
}
