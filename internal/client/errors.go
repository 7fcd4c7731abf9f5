// internal/client/errors.go
package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/gagliardetto/solana-go/rpc/jsonrpc"
	"github.com/tidwall/gjson"

	"github.com/cryptobluejava/phbt-sub000/internal/program"
)

var (
	customHexRe    = regexp.MustCompile(`custom program error: 0x([0-9a-fA-F]+)`)
	anchorNumberRe = regexp.MustCompile(`Error Number: (\d+)\.`)
)

// DecodeError maps an RPC failure to the program error it carries. The result
// wraps both the program error and err; errors without a recognizable program
// code are returned unchanged.
func DecodeError(err error) error {
	if err == nil {
		return nil
	}
	var rpcErr *jsonrpc.RPCError
	if !errors.As(err, &rpcErr) || rpcErr.Data == nil {
		if code, ok := codeFromLogLine(err.Error()); ok {
			return wrapCode(code, err)
		}
		return err
	}
	raw, mErr := json.Marshal(rpcErr.Data)
	if mErr != nil {
		return err
	}
	if code, ok := codeFromPayload(raw); ok {
		return wrapCode(code, err)
	}
	return err
}

// StatusError maps the err field of a signature status to a program error.
func StatusError(status interface{}) error {
	if status == nil {
		return nil
	}
	raw, err := json.Marshal(status)
	if err != nil {
		return fmt.Errorf("transaction failed: %v", status)
	}
	cause := fmt.Errorf("transaction failed: %s", raw)
	if code, ok := codeFromPayload(raw); ok {
		return wrapCode(code, cause)
	}
	return cause
}

func wrapCode(code uint32, cause error) error {
	if pe, ok := program.FromCode(code); ok {
		return fmt.Errorf("%w: %w", pe, cause)
	}
	return fmt.Errorf("unknown program error %d: %w", code, cause)
}

// codeFromPayload looks for a custom instruction error in a simulation
// payload ({"err": ..., "logs": [...]}) or a bare transaction error.
func codeFromPayload(raw []byte) (uint32, bool) {
	for _, path := range []string{"err.InstructionError.1.Custom", "InstructionError.1.Custom"} {
		if r := gjson.GetBytes(raw, path); r.Exists() {
			return uint32(r.Uint()), true
		}
	}
	for _, line := range gjson.GetBytes(raw, "logs").Array() {
		if code, ok := codeFromLogLine(line.String()); ok {
			return code, true
		}
	}
	return 0, false
}

func codeFromLogLine(line string) (uint32, bool) {
	if m := anchorNumberRe.FindStringSubmatch(line); m != nil {
		if v, err := strconv.ParseUint(m[1], 10, 32); err == nil {
			return uint32(v), true
		}
	}
	if m := customHexRe.FindStringSubmatch(line); m != nil {
		if v, err := strconv.ParseUint(m[1], 16, 32); err == nil {
			return uint32(v), true
		}
	}
	return 0, false
}

// retryable reports whether a send failure is worth another attempt with a
// fresh blockhash.
func retryable(err error) bool {
	if _, ok := program.CodeOf(err); ok {
		return false
	}
	msg := err.Error()
	for _, s := range []string{"BlockhashNotFound", "Blockhash not found", "block height exceeded", "timeout", "connection reset", "429"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	var rpcErr *jsonrpc.RPCError
	return !errors.As(err, &rpcErr)
}
