package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/wippyai/gmp-native/ctypes"
	"github.com/wippyai/gmp-native/foreign"
	"github.com/wippyai/gmp-native/mp"
	"github.com/wippyai/gmp-native/native"
	"github.com/wippyai/gmp-native/varargs"
)

func main() {
	var (
		wasmFile    = flag.String("wasm", "", "Path to a wasm32 build of the library (default: Go arena backend)")
		ptrSize     = flag.Uint64("ptr", 8, "Pointer width of the Go arena backend (4 or 8)")
		configFile  = flag.String("config", "", "JSON loader configuration for -wasm")
		showSchema  = flag.Bool("config-schema", false, "Print the loader configuration schema and exit")
		realloc     = flag.String("realloc", "", "cabi_realloc-style allocator export, instead of malloc/free")
		prefix      = flag.String("prefix", "", "Prefix prepended to library symbols")
		noWASI      = flag.Bool("no-wasi", false, "Do not instantiate wasi_snapshot_preview1")
		kind        = flag.String("kind", "int", "Value kind: int, rat, float or limbs")
		base        = flag.Int("base", 10, "Text base")
		prec        = flag.Uint64("prec", 64, "Float precision in bits")
		format      = flag.String("printf", "", "Format the arguments through the library's printf")
		verbose     = flag.Bool("v", false, "Log foreign allocations and library calls")
		interactive = flag.Bool("i", false, "Interactive mode with TUI")
	)
	flag.Parse()

	if *showSchema {
		data, err := native.ConfigSchema()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(string(data))
		return
	}

	if *format == "" && flag.NArg() == 0 && !*interactive {
		fmt.Fprintln(os.Stderr, "Usage: gmpcalc [-wasm file.wasm] [-kind int|rat|float|limbs] [-base N] VALUE...")
		fmt.Fprintln(os.Stderr, "       gmpcalc [-wasm file.wasm] -printf FORMAT [ARG...]")
		fmt.Fprintln(os.Stderr, "       gmpcalc [-wasm file.wasm] -i  (interactive mode)")
		fmt.Fprintln(os.Stderr, "       gmpcalc -config-schema")
		os.Exit(1)
	}

	if *verbose {
		if err := enableLogging(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}

	cfg := native.DefaultConfig()
	if *configFile != "" {
		loaded, err := native.LoadConfig(*configFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}
	if *realloc != "" {
		cfg.ReallocExport = *realloc
		cfg.MallocExport, cfg.FreeExport = "", ""
	}
	if *prefix != "" {
		cfg.SymbolPrefix = *prefix
	}
	if *noWASI {
		cfg.EnableWASI = false
	}

	ctx := context.Background()
	be, err := openBackend(ctx, *wasmFile, *ptrSize, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer be.close(ctx)

	ev := newEvaluator(be.env)
	ev.base = *base
	ev.prec = ctypes.BitCount(*prec)

	if *interactive {
		if !term.IsTerminal(int(os.Stdin.Fd())) {
			fmt.Fprintln(os.Stderr, "Error: interactive mode needs a terminal")
			os.Exit(1)
		}
		if err := runInteractive(be, ev); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := run(ctx, ev, *kind, *format, flag.Args()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, ev *evaluator, kind, format string, args []string) error {
	if format != "" {
		out, err := ev.printf(ctx, format, args)
		if err != nil {
			return err
		}
		fmt.Println(out)
		return nil
	}

	var failed []string
	for _, arg := range args {
		out, err := ev.value(ctx, kind, arg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", arg, err)
			failed = append(failed, arg)
			continue
		}
		fmt.Println(out)
	}
	if len(failed) > 0 {
		return fmt.Errorf("%d of %d values rejected: %s", len(failed), len(args), strings.Join(failed, ", "))
	}
	return nil
}

// enableLogging routes every package's logger to a development logger on
// stderr.
func enableLogging() error {
	l, err := zap.NewDevelopment()
	if err != nil {
		return err
	}
	foreign.SetLogger(l.Named("foreign"))
	mp.SetLogger(l.Named("mp"))
	varargs.SetLogger(l.Named("varargs"))
	native.SetLogger(l.Named("native"))
	return nil
}
