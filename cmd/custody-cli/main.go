package main

import (
	"fmt"
	"os"

	custodycli "github.com/custody-labs/custody-crypto/internal/cli"
	"github.com/custody-labs/custody-crypto/pkg/cryptoerr"
)

func main() {
	app := custodycli.NewApp()
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error (%s): %v\n", cryptoerr.KindOf(err), err)
		os.Exit(1)
	}
}
