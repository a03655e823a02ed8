package main

import (
	"fmt"
	"os"

	"ciphermarket/cmd/cmkd/cmd"
)

func main() {
	if err := cmd.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
