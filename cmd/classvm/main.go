// Command classvm loads a class by its fully-qualified classpath and
// runs its public static void main(String[]) to completion (spec §6
// "CLI (interpreter)").
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/daimatz/classvm/pkg/vm"

	_ "github.com/daimatz/classvm/pkg/native"
)

var verbose bool

func newLogger() *zap.SugaredLogger {
	if verbose {
		l, err := zap.NewDevelopment()
		if err != nil {
			panic(err)
		}
		return l.Sugar()
	}
	return zap.NewNop().Sugar()
}

func run(cmd *cobra.Command, args []string) error {
	classpath := args[0]
	progArgs := args[1:]

	log := newLogger()
	defer log.Sync()

	// File resolution (spec §6): classpath a/b/C resolves to a/b/C.class
	// relative to the current working directory; Runtime resolves every
	// subsequent Load() the same way, so only the root directory is
	// needed here, not a full search path.
	rt := vm.NewRuntime(".", log)
	it := vm.NewInterpreter(rt, log)

	if err := it.RunMain(classpath, progArgs); err != nil {
		return err
	}
	return nil
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "classvm <classpath> [args...]",
		Short: "Loads and executes a class file's main method",
		Long: "classvm locates <classpath>.class relative to the working " +
			"directory, transitively loads its superclass and interfaces, " +
			"and invokes public static void main(String[]) on the given args.",
		Args:         cobra.MinimumNArgs(1),
		SilenceUsage: true,
		RunE:         run,
	}
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable development logging")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
