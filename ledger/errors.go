package ledger

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"syscall"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/Dshubhambadola/CivicSeal/interfaces"
)

// ErrNoTransactOpts is returned when a write is attempted without a signer.
var ErrNoTransactOpts = errors.New("no authorized transactor available")

// ErrTxFailed is returned when a mined transaction reverted for an unknown reason.
var ErrTxFailed = errors.New("ledger transaction failed")

var revertClasses = []struct {
	needles []string
	err     error
}{
	{[]string{"already registered", "already exists"}, interfaces.ErrDuplicate},
	{[]string{"already revoked"}, interfaces.ErrAlreadyRevoked},
	{[]string{"not the submitter", "only submitter", "only the submitter", "unauthorized", "not authorized"}, interfaces.ErrUnauthorized},
	{[]string{"not found", "not registered", "does not exist"}, interfaces.ErrNotRegistered},
}

// classifyError maps a transport or revert error to the error taxonomy.
func classifyError(op string, err error) error {
	if err == nil {
		return nil
	}

	reason := revertReason(err)
	msg := strings.ToLower(err.Error() + " " + reason)
	if reason != "" || strings.Contains(msg, "revert") {
		for _, class := range revertClasses {
			for _, needle := range class.needles {
				if strings.Contains(msg, needle) {
					return fmt.Errorf("%w: %s: %v", class.err, op, err)
				}
			}
		}
	}

	if isUnavailable(err) {
		return fmt.Errorf("%w: %s: %v", interfaces.ErrLedgerUnavailable, op, err)
	}

	return fmt.Errorf("ledger %s: %w", op, err)
}

func isUnavailable(err error) bool {
	if errors.Is(err, bind.ErrNoCode) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	var httpErr rpc.HTTPError
	if errors.As(err, &httpErr) {
		return true
	}

	return strings.Contains(strings.ToLower(err.Error()), "connection refused")
}

// revertReason extracts the Error(string) payload carried by an RPC error, if any.
func revertReason(err error) string {
	var dataErr rpc.DataError
	if !errors.As(err, &dataErr) {
		return ""
	}

	data, ok := dataErr.ErrorData().(string)
	if !ok {
		return ""
	}

	raw, decodeErr := hex.DecodeString(strings.TrimPrefix(data, "0x"))
	if decodeErr != nil {
		return ""
	}

	reason, unpackErr := abi.UnpackRevert(raw)
	if unpackErr != nil {
		return ""
	}
	return reason
}
