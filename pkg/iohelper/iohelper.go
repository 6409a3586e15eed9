// Package iohelper reads HTTP response bodies with size limits.
package iohelper

import (
	"io"
	"log/slog"
)

// Body size limits
const (
	// ProbeMaxBodySize bounds bodies scanned for takeover signatures (256KB)
	ProbeMaxBodySize int64 = 256 * 1024

	// APIMaxBodySize bounds candidate-source API responses (32MB)
	APIMaxBodySize int64 = 32 * 1024 * 1024

	// drainLimit bounds how much is discarded to recycle a connection
	drainLimit int64 = 64 * 1024
)

// ReadBody reads from r up to maxSize bytes.
// If r is nil, returns empty slice and no error.
//
//	body, err := iohelper.ReadBody(resp.Body, iohelper.ProbeMaxBodySize)
func ReadBody(r io.Reader, maxSize int64) ([]byte, error) {
	if r == nil {
		return []byte{}, nil
	}
	return io.ReadAll(io.LimitReader(r, maxSize))
}

// ReadBodyOrLog reads up to maxSize bytes and logs any read error.
// The partial body read before the error is still returned.
func ReadBodyOrLog(r io.Reader, maxSize int64, logger *slog.Logger) []byte {
	data, err := ReadBody(r, maxSize)
	if err != nil && logger != nil {
		logger.Debug("body read failed", slog.String("error", err.Error()))
	}
	return data
}

// DrainAndClose discards what is left of r and closes it if it's a ReadCloser,
// so the connection can be reused. Always returns nil to allow use in defer.
func DrainAndClose(r io.Reader) error {
	if r == nil {
		return nil
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(r, drainLimit))
	if rc, ok := r.(io.ReadCloser); ok {
		rc.Close()
	}
	return nil
}
