package main

import (
	"os"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	alang "alangc/lang"
)

var log = logrus.StandardLogger()

func init() {
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var outDir string
	var debugSymbols bool

	cmd := &cobra.Command{
		Use:   "alangc <source-file>",
		Short: "Compile an alang source file to target VM machine code",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return compileFile(args[0], outDir, debugSymbols)
		},
		SilenceUsage: true,
	}
	cmd.Flags().StringVarP(&outDir, "out", "o", "output", "directory to write parsed.json, compiled.asm and machine_code into")
	cmd.Flags().BoolVarP(&debugSymbols, "debug", "d", false, "annotate compiled.asm with the source line behind each instruction")
	return cmd
}

func compileFile(path string, outDir string, debugSymbols bool) error {
	source, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "reading %s", path)
	}

	result, err := alang.Compile(string(source))
	if err != nil {
		logDiagnostic(err)
		return err
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return errors.Wrapf(err, "creating output directory %s", outDir)
	}

	parsedJSON, err := alang.ParsedJSON(result.Blocks)
	if err != nil {
		return errors.Wrap(err, "marshalling parsed blocks")
	}

	assembly := result.Assembly
	if debugSymbols {
		assembly = alang.FormatDebug(result.Program, result.Symbols)
	}

	for _, f := range []struct {
		name string
		data []byte
	}{
		{"parsed.json", parsedJSON},
		{"compiled.asm", []byte(assembly)},
		{"machine_code", []byte(result.MachineCode)},
	} {
		if err := os.WriteFile(outDir+"/"+f.name, f.data, 0o644); err != nil {
			return errors.Wrapf(err, "writing %s", f.name)
		}
	}

	log.WithFields(logrus.Fields{
		"blocks":       len(result.Blocks),
		"instructions": len(result.Program),
		"out":          outDir,
		"debug":        debugSymbols,
	}).Info("compiled")
	return nil
}

// logDiagnostic prints the one-line human message plus source location
// carried by the error, per the compiler's error taxonomy.
func logDiagnostic(err error) {
	switch e := err.(type) {
	case *alang.ParseError:
		log.WithFields(logrus.Fields{"row": e.Row, "text": e.Text}).Error(e.Msg)
	case *alang.CompileError:
		log.WithFields(logrus.Fields{"row": e.Row, "text": e.Text}).Error(e.Msg)
	case *alang.AssembleError:
		log.WithFields(logrus.Fields{"row": e.Row, "line": e.Line}).Error(e.Msg)
	default:
		log.Error(err)
	}
}
