package main

import (
	"fmt"
	"os"

	"github.com/surfkit/surfkit/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "surfkit:", err)
		os.Exit(1)
	}
}
