// vsfrestore converts a VICE x64sc snapshot into a self-restoring C64 PRG
// or cartridge image. Output kind is inferred from the output filename's
// extension unless overridden by -prg or -crt.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/vsfrestore/vsfrestore/internal/convert"
	"github.com/vsfrestore/vsfrestore/internal/crtbuild"
	"github.com/vsfrestore/vsfrestore/internal/ramscan"
	"github.com/vsfrestore/vsfrestore/internal/snapshot"
)

const (
	exitBadArgs = 2
	exitIO      = 5
)

type manualFreeList []ramscan.FreeRun

func (m *manualFreeList) String() string { return fmt.Sprintf("%v", *m) }

func (m *manualFreeList) Set(s string) error {
	parts := strings.SplitN(s, "-", 2)
	if len(parts) != 2 {
		return fmt.Errorf("expected HEX-HEX, got %q", s)
	}
	start, err := strconv.ParseUint(strings.TrimPrefix(parts[0], "$"), 16, 16)
	if err != nil {
		return fmt.Errorf("bad start address %q: %w", parts[0], err)
	}
	end, err := strconv.ParseUint(strings.TrimPrefix(parts[1], "$"), 16, 16)
	if err != nil {
		return fmt.Errorf("bad end address %q: %w", parts[1], err)
	}
	if end < start {
		return fmt.Errorf("range %q ends before it starts", s)
	}
	*m = append(*m, ramscan.FreeRun{Start: uint16(start), Length: int(end-start) + 1})
	return nil
}

var (
	forcePRG   = flag.Bool("prg", false, "force PRG output regardless of the output filename's extension")
	forceCRT   = flag.Bool("crt", false, "force CRT output regardless of the output filename's extension")
	magicDesk  = flag.Bool("magic-desk", false, "build a Magic Desk CRT instead of EasyFlash")
	name       = flag.String("name", "VICE SNAPSHOT", "cartridge name, at most 32 characters")
	includeDir = flag.String("include-dir", "", "directory of files to embed into an EasyFlash LOAD-hook directory")
	manualFree manualFreeList
)

func init() {
	flag.Var(&manualFree, "manual-free", "HEX-HEX address range to zero before allocation (repeatable)")
}

func main() {
	flag.Parse()
	os.Exit(run())
}

func run() int {
	args := flag.Args()
	if len(args) != 2 {
		fmt.Fprintf(os.Stderr, "usage: %s [flags] <input.vsf> <output.{prg,crt}>\n", os.Args[0])
		return exitBadArgs
	}
	if *forcePRG && *forceCRT {
		fmt.Fprintln(os.Stderr, "-prg and -crt are mutually exclusive")
		return exitBadArgs
	}
	if len(*name) > 32 {
		fmt.Fprintf(os.Stderr, "-name %q exceeds 32 characters\n", *name)
		return exitBadArgs
	}

	inPath, outPath := args[0], args[1]
	raw, err := os.ReadFile(inPath)
	if err != nil {
		log.Printf("reading %s: %v", inPath, err)
		return exitIO
	}

	st, err := snapshot.Read(raw)
	if err != nil {
		log.Print(err)
		return convert.ExitCode(err)
	}

	opts := convert.Options{
		Output:    outputKind(outPath),
		Name:      *name,
		MagicDesk: *magicDesk,
	}
	if *includeDir != "" {
		files, err := loadFiles(*includeDir)
		if err != nil {
			log.Printf("reading -include-dir %s: %v", *includeDir, err)
			return exitIO
		}
		opts.Files = files
	}

	var d convert.Driver
	opts.ManualFree = manualFree
	result, err := d.Convert(st, opts)
	if _, ok := err.(convert.AllocationFailed); ok && len(manualFree) == 0 {
		log.Printf("allocation failed: %v; retry with -manual-free to supply additional free ranges", err)
		return convert.ExitCode(err)
	}
	if err != nil {
		log.Print(err)
		return convert.ExitCode(err)
	}

	if result.Diagnostics.StackRisk {
		log.Print("warning: final stage could not fit below the stack pointer with its usual margin; placed at the top of page 1 instead")
	}

	if err := os.WriteFile(outPath, result.Image, 0o644); err != nil {
		log.Printf("writing %s: %v", outPath, err)
		return exitIO
	}
	return 0
}

func outputKind(outPath string) convert.OutputKind {
	switch {
	case *forceCRT:
		return convert.CRT
	case *forcePRG:
		return convert.PRG
	case strings.EqualFold(filepath.Ext(outPath), ".crt"):
		return convert.CRT
	default:
		return convert.PRG
	}
}

func loadFiles(dir string) ([]crtbuild.File, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []crtbuild.File
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, err
		}
		files = append(files, crtbuild.File{Name: strings.ToUpper(e.Name()), Data: data})
	}
	return files, nil
}
