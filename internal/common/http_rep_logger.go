package common

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httputil"
	"strings"

	"fieldops/ledgersync/internal/logging"
)

const redacted = "[redacted]"

// LogHTTPRequest writes a debug dump of an outbound request. The bearer
// token is masked and multipart bodies are omitted.
func LogHTTPRequest(req *http.Request) {
	dump, err := DumpRequest(req)
	if err != nil {
		logging.Warn("Failed to dump HTTP request", "error", err)
		return
	}
	logging.Debug("Outbound request", "dump", string(dump))
}

// LogHTTPResponse writes a debug dump of a response and leaves its body
// readable for the caller.
func LogHTTPResponse(resp *http.Response) {
	dump, err := httputil.DumpResponse(resp, true)
	if err != nil {
		logging.Warn("Failed to dump HTTP response", "error", err)
		return
	}
	logging.Debug("Outbound response", "status", resp.StatusCode, "dump", string(dump))
}

// DumpRequest renders req without consuming its body.
func DumpRequest(req *http.Request) ([]byte, error) {
	var bodyCopy []byte
	if req.Body != nil {
		var err error
		bodyCopy, err = io.ReadAll(req.Body)
		if err != nil {
			return nil, err
		}
		req.Body = io.NopCloser(bytes.NewReader(bodyCopy))
	}

	clone := req.Clone(req.Context())
	if clone.Header.Get("Authorization") != "" {
		clone.Header.Set("Authorization", redacted)
	}

	withBody := !strings.HasPrefix(req.Header.Get("Content-Type"), "multipart/")
	if bodyCopy != nil {
		clone.Body = io.NopCloser(bytes.NewReader(bodyCopy))
	}
	return httputil.DumpRequestOut(clone, withBody)
}
