package slack

import (
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	slackgo "github.com/slack-go/slack"
)

const (
	contentTypeHeader = "Content-Type"
	timestampHeader   = "X-Slack-Request-Timestamp"
	signatureHeader   = "X-Slack-Signature"

	// The maximum shift/delay that we allow between an inbound request's
	// timestamp, and our current timestamp, to defend against replay attacks.
	// See https://docs.slack.dev/authentication/verifying-requests-from-slack.
	maxDifference = 5 * time.Minute
)

// CheckRequest verifies that an inbound Events API request was sent by Slack.
// It returns [http.StatusOK] if it was, or an HTTP error status code otherwise.
func CheckRequest(l zerolog.Logger, h http.Header, body []byte, signingSecret string) int {
	statusCode := checkContentTypeHeader(l, h)
	if statusCode != http.StatusOK {
		return statusCode
	}

	statusCode = checkTimestampHeader(l, h)
	if statusCode != http.StatusOK {
		return statusCode
	}

	return checkSignatureHeader(l, h, body, signingSecret)
}

func checkContentTypeHeader(l zerolog.Logger, h http.Header) int {
	expected := "application/json"
	v := h.Get(contentTypeHeader)
	if v != expected {
		l.Warn().Str("header", contentTypeHeader).Str("got", v).Str("want", expected).
			Msg("bad request: unexpected header value")
		return http.StatusBadRequest
	}

	return http.StatusOK
}

func checkTimestampHeader(l zerolog.Logger, h http.Header) int {
	ts := h.Get(timestampHeader)
	if ts == "" {
		l.Warn().Str("header", timestampHeader).Msg("bad request: missing header")
		return http.StatusBadRequest
	}

	secs, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		l.Warn().Str("header", timestampHeader).Str("got", ts).
			Msg("bad request: invalid header value")
		return http.StatusBadRequest
	}

	d := time.Since(time.Unix(secs, 0))
	if d.Abs() > maxDifference {
		l.Warn().Str("header", timestampHeader).Dur("difference", d).
			Msg("bad request: stale header value")
		return http.StatusBadRequest
	}

	return http.StatusOK
}

// checkSignatureHeader implements
// https://docs.slack.dev/authentication/verifying-requests-from-slack.
func checkSignatureHeader(l zerolog.Logger, h http.Header, body []byte, signingSecret string) int {
	sig := h.Get(signatureHeader)
	if sig == "" {
		l.Warn().Str("header", signatureHeader).Msg("bad request: missing header")
		return http.StatusForbidden
	}

	if signingSecret == "" {
		l.Warn().Msg("signing secret is not configured")
		return http.StatusInternalServerError
	}

	sv, err := slackgo.NewSecretsVerifier(h, signingSecret)
	if err != nil {
		l.Warn().Err(err).Msg("failed to initialize signature verifier")
		return http.StatusForbidden
	}

	if _, err := sv.Write(body); err != nil {
		l.Err(err).Msg("HMAC write error")
		return http.StatusInternalServerError
	}

	if err := sv.Ensure(); err != nil {
		l.Warn().Err(err).Str("signature", sig).Msg("signature verification failed")
		return http.StatusForbidden
	}

	return http.StatusOK
}
