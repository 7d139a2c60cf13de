package usecase

import (
	"time"

	nanoid "github.com/jaevor/go-nanoid"
)

// Unambiguous upper-case alphabet: no I or O, so refs survive being read
// aloud to support staff.
const refAlphabet = "0123456789ABCDEFGHJKLMNPQRSTUVWXYZ"

var refSuffix = mustGenerator(nanoid.CustomASCII(refAlphabet, 12))

func mustGenerator(gen func() string, err error) func() string {
	if err != nil {
		panic(err)
	}
	return gen
}

// newOrderRef builds prefix + creation second + random suffix. The gateway
// caps out_trade_no at 64 characters; this stays well below.
func newOrderRef(prefix string, now time.Time) string {
	return prefix + now.Format("20060102150405") + refSuffix()
}

func newRefundRef(now time.Time) string {
	return "RF" + now.Format("20060102150405") + refSuffix()
}
