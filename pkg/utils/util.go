package utils

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httputil"
	"strings"

	"github.com/rs/zerolog/log"
)

const redacted = "[REDACTED]"

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (fn roundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return fn(r)
}

func DebugRoundTripper() http.RoundTripper {
	return DebugRoundTripperWithUnderlying(http.DefaultTransport)
}

// DebugRoundTripperWithUnderlying dumps each request and response at debug
// level. Authorization headers are masked, and token endpoint bodies are
// left out in both directions.
func DebugRoundTripperWithUnderlying(u http.RoundTripper) http.RoundTripper {
	if u == nil {
		u = http.DefaultTransport
	}
	return roundTripperFunc(func(r *http.Request) (*http.Response, error) {
		withBody := !isTokenPath(r.URL.Path)
		log.Debug().Str("url", r.URL.String()).Msg(string(dumpRequest(r, withBody)))

		res, err := u.RoundTrip(r)
		if err != nil {
			log.Debug().Err(err).Str("url", r.URL.String()).Msg("request failed")
			return res, err
		}
		d, _ := httputil.DumpResponse(res, withBody)
		log.Debug().Int("status", res.StatusCode).Msg(string(d))
		return res, err
	})
}

func dumpRequest(r *http.Request, withBody bool) []byte {
	c := r.Clone(r.Context())
	if c.Header.Get("Authorization") != "" {
		c.Header.Set("Authorization", redacted)
	}

	if withBody && r.Body != nil && r.Body != http.NoBody {
		b, err := io.ReadAll(r.Body)
		r.Body.Close()
		if err != nil {
			return []byte(err.Error())
		}
		r.Body = io.NopCloser(bytes.NewReader(b))
		c.Body = io.NopCloser(bytes.NewReader(b))
	}

	d, _ := httputil.DumpRequestOut(c, withBody)
	return d
}

func isTokenPath(path string) bool {
	return strings.Contains(path, "/token/")
}
