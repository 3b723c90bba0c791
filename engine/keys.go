package engine

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/rustyeddy/riskgate/strategy"
)

// idempotencyKey derives a stable submission key from the signal
// identity. Retries of the same signal reuse the key, so a venue that
// already accepted the order replays its original ack instead of
// opening a second position. The timestamp is bucketed so that two
// polls observing the same signal agree on the key.
func idempotencyKey(sig strategy.Signal, bucket time.Duration) string {
	if bucket <= 0 {
		bucket = time.Minute
	}
	ts := sig.At.UTC().Truncate(bucket).Unix()
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%s|%d|%s", sig.Symbol, sig.Side, ts, sig.Tag)))
	return hex.EncodeToString(sum[:])
}
