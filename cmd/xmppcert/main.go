// xmppcert inspects X.509 certificates for the XMPP identities they carry.
//
// Usage:
//
//	xmppcert inspect cert.pem [--raw]
//	xmppcert jids cert.pem
//	xmppcert verify server cert.pem example.com [--srv-type xmpp-server]
//	xmppcert verify client cert.pem [--jid alice@example.com] [--domain example.com]
package main

import (
	"fmt"
	"os"

	"github.com/mcpherrinm/xmppcert/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
