package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	shell "github.com/ipfs/go-ipfs-api"

	"github.com/Dshubhambadola/CivicSeal/interfaces"
)

// IPFSBackend stores blobs on an IPFS node through its HTTP API.
// Put pins the content, Delete unpins it.
type IPFSBackend struct {
	shell       *shell.Shell
	host        string
	port        string
	log         *slog.Logger
	locationURI string
}

// NewIPFSBackend connects to the IPFS API at host:port. Requests time out
// after the given duration.
func NewIPFSBackend(host, port string, timeout time.Duration, log *slog.Logger) *IPFSBackend {
	apiURL := fmt.Sprintf("%s:%s", host, port)

	sh := shell.NewShell(apiURL)
	sh.SetTimeout(timeout)

	return &IPFSBackend{
		shell:       sh,
		host:        host,
		port:        port,
		log:         log,
		locationURI: fmt.Sprintf("ipfs://%s/?timeout=%s", apiURL, timeout),
	}
}

// Put adds and pins data, returning its CID.
func (b *IPFSBackend) Put(ctx context.Context, data []byte, name string) (string, error) {
	if !b.shell.IsUp() {
		b.log.Warn("IPFS node unavailable",
			slog.String("host", b.host),
			slog.String("port", b.port))
		return "", interfaces.ErrBackendUnavailable
	}

	cid, err := b.shell.Add(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("failed to add data to IPFS: %w", err)
	}

	b.log.Debug("Stored content in IPFS",
		slog.String("cid", cid),
		slog.String("name", name),
		slog.Int("size", len(data)))

	return cid, nil
}

// Get fetches the content behind a CID.
func (b *IPFSBackend) Get(ctx context.Context, ref string) ([]byte, error) {
	start := time.Now()

	if !b.shell.IsUp() {
		b.log.Warn("IPFS node unavailable",
			slog.String("host", b.host),
			slog.String("port", b.port))
		return nil, interfaces.ErrBackendUnavailable
	}

	reader, err := b.shell.Cat(ref)
	if err != nil {
		if isIPFSNotFound(err) {
			b.log.Debug("Content not found in IPFS",
				slog.String("cid", ref),
				slog.Duration("duration", time.Since(start)))
			return nil, interfaces.ErrBlobNotFound
		}

		b.log.Error("Failed to fetch data from IPFS",
			slog.String("cid", ref),
			"err", err,
			slog.Duration("duration", time.Since(start)))
		return nil, fmt.Errorf("failed to fetch data from IPFS: %w", err)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read data from IPFS: %w", err)
	}

	b.log.Debug("Fetched content from IPFS",
		slog.String("cid", ref),
		slog.Int("size", len(data)),
		slog.Duration("duration", time.Since(start)))

	return data, nil
}

// Delete unpins the CID so the node may garbage collect it.
func (b *IPFSBackend) Delete(ctx context.Context, ref string) error {
	if err := b.shell.Unpin(ref); err != nil {
		if strings.Contains(err.Error(), "not pinned") {
			return nil
		}
		if isIPFSNotFound(err) {
			return interfaces.ErrBlobNotFound
		}
		return fmt.Errorf("failed to unpin %s: %w", ref, err)
	}

	b.log.Debug("Unpinned content from IPFS", slog.String("cid", ref))
	return nil
}

func (b *IPFSBackend) Available(ctx context.Context) bool {
	return b.shell.IsUp()
}

func (b *IPFSBackend) Name() string {
	return fmt.Sprintf("ipfs-%s-%s", b.host, b.port)
}

func (b *IPFSBackend) LocationURI() string {
	return b.locationURI
}

func isIPFSNotFound(err error) bool {
	msg := strings.ToLower(err.Error())
	for _, needle := range []string{"no link named", "not found", "invalid path", "invalid cid"} {
		if strings.Contains(msg, needle) {
			return true
		}
	}
	return false
}
