// Package signature implements the payment gateway's notification
// authenticity scheme: a SHA-512 digest over the order reference, the
// gateway transaction id, the gross amount, and the merchant server key.
package signature

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"strconv"
)

// Compute returns the hex encoded digest the gateway attaches to a
// notification for the given fields.
func Compute(orderNumber, transactionID string, grossAmount int64, serverKey string) string {
	payload := orderNumber + transactionID + strconv.FormatInt(grossAmount, 10) + serverKey
	sum := sha512.Sum512([]byte(payload))
	return hex.EncodeToString(sum[:])
}

// Verify checks a received signature in constant time.
func Verify(orderNumber, transactionID string, grossAmount int64, serverKey, received string) bool {
	expected := Compute(orderNumber, transactionID, grossAmount, serverKey)
	return hmac.Equal([]byte(expected), []byte(received))
}
