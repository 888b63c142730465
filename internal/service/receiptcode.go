package service

import (
	"crypto/rand"
	"encoding/base32"
	"time"
)

// Crockford's alphabet: no I, L, O or U, so codes survive being read aloud.
var receiptEncoding = base32.NewEncoding("0123456789ABCDEFGHJKMNPQRSTVWXYZ").WithPadding(base32.NoPadding)

// newReceiptCode returns a code like R-20261019-7K3QZ0MX: the business date
// plus 40 random bits.
func newReceiptCode(now time.Time) (string, error) {
	var b [5]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", err
	}
	return "R-" + now.Format("20060102") + "-" + receiptEncoding.EncodeToString(b[:]), nil
}
