// scanmeta - scan metadata extraction tool
package main

import (
	"fmt"
	"os"

	"github.com/ChrisMcGann/scanmeta/cmd/scanmeta/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
