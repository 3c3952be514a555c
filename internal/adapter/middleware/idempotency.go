package middleware

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"collateral-ledger/internal/adapter/caller"
)

// maxSkew bounds how far Ax-Request-At may sit from the server clock.
const maxSkew = 10 * time.Minute

// teeWriter copies the response body aside while it is written.
type teeWriter struct {
	http.ResponseWriter
	body *bytes.Buffer
}

func (w *teeWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func fail(c echo.Context, code int, msg string) error {
	return c.JSON(code, map[string]string{"error": msg})
}

// Idempotency makes mutating ledger calls safe to retry. A call is identified
// by caller, method, path and Ax-Request-Id. A repeat with the same body gets
// the stored response; a repeat with a different body gets 409.
//
// Requests without a valid caller pass straight through: the ledger handler
// rejects them and nothing is stored.
func Idempotency(store *ReplayStore) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			switch req.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				return next(c)
			}
			who, ok := caller.FromRequest(req)
			if !ok {
				return next(c)
			}

			raw := req.Header.Get(RequestIDHeader)
			if strings.TrimSpace(raw) == "" {
				return fail(c, http.StatusBadRequest, "missing "+RequestIDHeader)
			}
			id, ok := requestID(raw)
			if !ok {
				return fail(c, http.StatusBadRequest, "invalid "+RequestIDHeader)
			}
			at, err := sentAt(req.Header.Get(SentAtHeader))
			if err != nil {
				return fail(c, http.StatusBadRequest, err.Error())
			}
			if now := store.now(); at.Before(now.Add(-maxSkew)) || at.After(now.Add(maxSkew)) {
				return fail(c, http.StatusBadRequest, SentAtHeader+" too far from server time")
			}

			body, err := io.ReadAll(req.Body)
			if err != nil {
				return fail(c, http.StatusBadRequest, "unreadable body")
			}
			req.Body = io.NopCloser(bytes.NewReader(body))
			fp := fingerprint(body)
			key := replayKey(req.Method, req.URL.Path, who, id)

			ctx, cancel := context.WithTimeout(req.Context(), 2*time.Second)
			defer cancel()
			won, err := store.reserve(ctx, key, fp)
			if err != nil {
				slog.WarnContext(ctx, "idempotency: reserve", "key", key, "error", err)
				return fail(c, http.StatusServiceUnavailable, "idempotency store unavailable")
			}
			if !won {
				return replay(ctx, c, store, key, fp)
			}

			tee := &teeWriter{ResponseWriter: c.Response().Writer, body: &bytes.Buffer{}}
			c.Response().Writer = tee
			if err := next(c); err != nil {
				c.Error(err)
			}

			// the client may be gone; the outcome is recorded regardless
			done, cancelDone := context.WithTimeout(context.WithoutCancel(req.Context()), 2*time.Second)
			defer cancelDone()
			o, keep := outcomeOf(fp, c.Response().Status, tee.body.Bytes())
			if !keep {
				if err := store.release(done, key); err != nil {
					slog.WarnContext(done, "idempotency: release", "key", key, "error", err)
				}
				return nil
			}
			if err := store.settle(done, key, o); err != nil {
				slog.WarnContext(done, "idempotency: settle", "key", key, "error", err)
			}
			return nil
		}
	}
}

func replay(ctx context.Context, c echo.Context, store *ReplayStore, key, fp string) error {
	cur, err := store.load(ctx, key)
	switch {
	case errors.Is(err, errNoOutcome):
		// released after our reserve failed; the client may retry
		return fail(c, http.StatusConflict, "request is already in progress")
	case err != nil:
		slog.WarnContext(ctx, "idempotency: load", "key", key, "error", err)
		return fail(c, http.StatusServiceUnavailable, "idempotency store unavailable")
	}
	if cur.Fingerprint != fp {
		return fail(c, http.StatusConflict, RequestIDHeader+" reused with a different body")
	}
	if cur.Pending {
		return fail(c, http.StatusConflict, "request is already in progress")
	}
	h := c.Response().Header()
	h.Set(ReplayHeader, "true")
	if len(cur.Seqs) > 0 {
		h.Set(EventSeqsHeader, joinSeqs(cur.Seqs))
	}
	return c.Blob(cur.Status, echo.MIMEApplicationJSON, cur.Body)
}
