// file: main.go
// version: 2.0.0
// guid: 88380e9a-5478-4dc6-a15d-9e68d1c86da3

package main

import (
	"fmt"
	"os"

	"github.com/jdfalk/audiobook-catalog/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
