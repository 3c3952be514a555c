package middleware

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	RequestIDHeader = "Ax-Request-Id"
	SentAtHeader    = "Ax-Request-At"
	// ReplayHeader is set on a response served from the store.
	ReplayHeader = "Ax-Idempotent-Replay"
	// EventSeqsHeader lists, on a replayed success, the event seqs the original call committed.
	EventSeqsHeader = "Ax-Event-Seqs"
)

var (
	errNoSentAt  = errors.New("missing " + SentAtHeader)
	errBadSentAt = errors.New(SentAtHeader + " must be unix seconds, unix milliseconds or RFC3339 with a zone")
)

// requestID accepts any UUID spelling (dashed, bare 32-hex, braces, urn:uuid:,
// either case) and returns its canonical lowercase dashed form, so every
// spelling of one id maps to one key. The nil UUID is refused.
func requestID(raw string) (string, bool) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil || id == uuid.Nil {
		return "", false
	}
	return id.String(), true
}

// sentAt reads the client's send time. Values above 1e12 are milliseconds.
func sentAt(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, errNoSentAt
	}
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		if n > 1e12 {
			return time.UnixMilli(n).UTC(), nil
		}
		return time.Unix(n, 0).UTC(), nil
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, errBadSentAt
	}
	return t.UTC(), nil
}

func fingerprint(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}

// replayKey scopes a request id to one caller and one concrete path, so the
// same id sent to /loans/0/fund and /loans/1/fund are separate calls.
func replayKey(method, path, caller, id string) string {
	return "idemp:ledger:" + caller + ":" + strings.ToLower(method) + ":" + path + ":" + id
}

func joinSeqs(seqs []uint64) string {
	parts := make([]string, len(seqs))
	for i, s := range seqs {
		parts[i] = strconv.FormatUint(s, 10)
	}
	return strings.Join(parts, ",")
}
