package main

import (
	"fmt"
	"os"

	"github.com/loxiemachine/loxie/cmd/loxie/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
