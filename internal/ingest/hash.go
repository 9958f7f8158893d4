package ingest

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/ETAnderson/deskflow/internal/domain"
)

// BatchContentHash returns a deterministic sha256 over a batch payload.
// Submitting byte-identical content twice yields the same hash, which the
// submission layer uses to hand back the original batch instead of queueing
// a second copy of the same export.
func BatchContentHash(kind domain.BatchKind, source string, rows []RawRecord) string {
	envelope := map[string]any{
		"kind":   string(kind),
		"source": source,
		"rows":   canonicalRows(rows),
	}

	// Marshal cannot fail for string-only maps.
	b, _ := json.Marshal(envelope)

	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// canonicalRows preserves row order but sorts columns within each row, so
// hashing is insensitive to map iteration order.
func canonicalRows(rows []RawRecord) []any {
	out := make([]any, 0, len(rows))
	for _, row := range rows {
		keys := make([]string, 0, len(row))
		for k := range row {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		cols := make([]any, 0, len(keys))
		for _, k := range keys {
			cols = append(cols, map[string]any{"k": k, "v": row[k]})
		}
		out = append(out, cols)
	}
	return out
}

// SyntheticDedupKey builds a best-effort dedup surrogate for interaction rows
// that carry no protocol identifier. It is only used when the pipeline is
// configured for synthetic dedup; the default leaves such rows without a key
// and accepts at-least-once semantics on batch retry.
func SyntheticDedupKey(ts time.Time, agentKey, channelKey string, waitSeconds, handleSeconds int) string {
	payload := fmt.Sprintf("%d|%s|%s|%d|%d", ts.Unix(), agentKey, channelKey, waitSeconds, handleSeconds)
	sum := sha256.Sum256([]byte(payload))
	return "syn_" + hex.EncodeToString(sum[:])
}
