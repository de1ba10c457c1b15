// Command lotfolio records buys and FIFO sells against a portfolio ledger
// and prints holdings and valuation timelines from the terminal.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
