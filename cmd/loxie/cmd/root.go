// Package cmd implements the loxie CLI, a cobra command tree grounded on
// the teacher's cmd/dwscript/cmd/{root,run,compile,version}.go shape
// (SPEC_FULL.md §10.1).
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	Version   = "0.1.0-dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "loxie",
	Short: "Loxie compiler and stack VM",
	Long: `loxie compiles and runs programs written in Loxie, a small
statically typed imperative language with primitive values, heap-allocated
strings, user-defined classes, and a register-less bytecode stack VM.`,
	Version: Version,
}

// Execute runs the root command; its error, if any, becomes the process's
// exit code per spec §6 ("0 = success; 1 = any failure").
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(`{{with .Name}}{{printf "%%s " .}}{{end}}{{printf "version %%s" .Version}}
Commit: %s
Built:  %s
`, GitCommit, BuildDate))

	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose output")
}

func exitWithError(msg string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+msg+"\n", args...)
	os.Exit(1)
}
