// Command didcoreinspect is a thin demo harness for the verification
// engine: it reads a canonical-CBOR-encoded microledger from a file (or
// stdin), verifies it, and prints the resulting state as indented JSON.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/idmesh/didcore/internal/errkind"
	"github.com/idmesh/didcore/internal/logx"
	"github.com/idmesh/didcore/microledger"
	"github.com/idmesh/didcore/protocol"
)

var log = logx.New("didcoreinspect")

func main() {
	var (
		path       = flag.String("in", "-", "path to a canonical microledger file, or - for stdin")
		priorPath  = flag.String("prior", "", "optional path to a prior microledger to check as a verified prefix")
		version    = flag.String("version", "1", "protocol version this ledger must declare")
		weighted   = flag.Bool("weighted-thresholds", false, "interpret thresholds as signer-weight sums rather than counts")
		proofGrace = flag.Duration("external-proof-timeout", 5*time.Second, "deadline for the external-proof host, if any")
	)
	flag.Parse()

	if err := run(*path, *priorPath, *version, *weighted, *proofGrace); err != nil {
		log.Errorf("verification failed: %v", err)
		fmt.Fprintln(os.Stderr, describe(err))
		os.Exit(1)
	}
}

func run(path, priorPath, version string, weighted bool, proofTimeout time.Duration) error {
	raw, err := readAll(path)
	if err != nil {
		return err
	}
	ledger, err := microledger.Decode(raw)
	if err != nil {
		return err
	}

	var prior *microledger.Microledger
	if priorPath != "" {
		priorRaw, err := readAll(priorPath)
		if err != nil {
			return err
		}
		decoded, err := microledger.Decode(priorRaw)
		if err != nil {
			return err
		}
		prior = &decoded
	}

	cfg := protocol.Config{
		Version:              version,
		ValidFrom:            time.Unix(0, 0),
		WeightedThresholds:   weighted,
		ExternalProofTimeout: proofTimeout,
	}

	log.Infof("verifying microledger with %d event(s)", len(ledger.Events))
	state, err := microledger.Verify(context.Background(), cfg, nil, nil, ledger, prior)
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling result state: %w", err)
	}
	fmt.Println(string(out))
	return nil
}

func readAll(path string) ([]byte, error) {
	if path == "-" || path == "" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}

// describe renders err's stable Kind alongside its message, so scripted
// callers can branch on a known vocabulary instead of message text.
func describe(err error) string {
	if e, ok := err.(*errkind.Error); ok {
		return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
	}
	return err.Error()
}
