package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/loxiemachine/loxie/internal/bytecode"
	"github.com/loxiemachine/loxie/internal/driver"
	"github.com/loxiemachine/loxie/internal/dump"
	"github.com/loxiemachine/loxie/internal/ir"
	"github.com/loxiemachine/loxie/internal/vm"
)

var (
	dumpAST  bool
	dumpIR   bool
	disasm   bool
	traceRun bool
	jsonOut  bool
)

var runCmd = &cobra.Command{
	Use:   "run [path]",
	Short: "Compile and execute a Loxie program",
	Long: `Run compiles a Loxie source file (lex, parse, analyze, emit IR,
emit bytecode) and executes the resulting program.

Examples:
  # Run a script
  loxie run program.loxie

  # Show the linearized bytecode before running
  loxie run --disasm program.loxie

  # Trace every executed instruction
  loxie run --trace program.loxie`,
	Args: cobra.ExactArgs(1),
	RunE: runScript,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().BoolVar(&dumpAST, "dump-ast", false, "print a notice only; there is no AST printer")
	runCmd.Flags().BoolVar(&dumpIR, "dump-ir", false, "dump the emitted IR")
	runCmd.Flags().BoolVar(&disasm, "disasm", false, "print the linearized bytecode before running")
	runCmd.Flags().BoolVar(&traceRun, "trace", false, "print every instruction as it executes")
	runCmd.Flags().BoolVar(&jsonOut, "json", false, "dump the compiled program as JSON instead of running it")
}

func runScript(_ *cobra.Command, args []string) error {
	path := args[0]

	compiled, err := driver.Compile(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return fmt.Errorf("compilation failed")
	}

	if dumpAST {
		fmt.Println("(AST dump omitted: ast.Program carries no source-level printer; see --dump-ir)")
	}
	if dumpIR {
		fmt.Println(ir.Print(compiled.IR))
	}
	if disasm {
		fmt.Println(bytecode.Disassemble(compiled.Bytecode))
	}
	if jsonOut {
		doc, err := dump.Program(compiled.Bytecode)
		if err != nil {
			return fmt.Errorf("dumping JSON: %w", err)
		}
		fmt.Println(string(doc))
		return nil
	}

	opts := driver.Options{}
	if traceRun {
		opts.Trace = func(pc int, instr bytecode.Instr) {
			fmt.Fprintf(os.Stderr, "  %4d  %s\n", pc, bytecode.FormatInstr(instr))
		}
	}

	status, result, err := driver.Run(path, opts)
	if err != nil && status != vm.BadMath {
		fmt.Fprintln(os.Stderr, err)
		return fmt.Errorf("execution failed")
	}
	if status != vm.Ok {
		fmt.Fprintf(os.Stderr, "%s: %s\n", status, result.String())
		return fmt.Errorf("execution failed")
	}
	return nil
}
