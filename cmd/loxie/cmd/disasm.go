package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/loxiemachine/loxie/internal/bytecode"
	"github.com/loxiemachine/loxie/internal/driver"
)

var disasmCmd = &cobra.Command{
	Use:   "disasm <path>",
	Short: "Compile a Loxie program and print its linearized bytecode",
	Long: `Disasm runs every compile stage (lex, parse, analyze, emit IR,
linearize) without executing the result, and prints one line per
procedure header, constant, and instruction (internal/bytecode/disasm.go).`,
	Args: cobra.ExactArgs(1),
	RunE: disasmScript,
}

func init() {
	rootCmd.AddCommand(disasmCmd)
}

func disasmScript(_ *cobra.Command, args []string) error {
	compiled, err := driver.Compile(args[0])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return fmt.Errorf("compilation failed")
	}
	fmt.Println(bytecode.Disassemble(compiled.Bytecode))
	return nil
}
