// Command s63permit mints and validates S-63 User Permits and Cell
// Permits from the command line. Flag/logging setup follows the
// teacher's CLI tools; secure M_KEY entry follows keyswap's use of
// golang.org/x/term for a non-echoing terminal read.
package main

import (
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"

	"golang.org/x/term"

	"github.com/pavelpasha/s63lib/internal/hexutil"
	"github.com/pavelpasha/s63lib/pkg/s63"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	switch os.Args[1] {
	case "mint-user":
		mintUser(os.Args[2:])
	case "mint-cell":
		mintCell(os.Args[2:])
	case "validate-cell":
		validateCell(os.Args[2:])
	case "-h", "-help", "--help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "unknown subcommand %q\n", os.Args[1])
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: s63permit <mint-user|mint-cell|validate-cell> [flags]")
}

func setupLogging(verbose bool, format string) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	if format == "json" {
		slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, opts)))
	} else {
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, opts)))
	}
}

// promptMKey reads M_KEY from the terminal with echo disabled, matching
// keyswap's use of golang.org/x/term for sensitive key material.
func promptMKey() (string, error) {
	fmt.Fprint(os.Stderr, "M_KEY: ")
	b, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading M_KEY: %w", err)
	}
	return string(b), nil
}

func mintUser(args []string) {
	fs := flag.NewFlagSet("mint-user", flag.ExitOnError)
	verbose := fs.Bool("v", false, "enable debug logging")
	logFormat := fs.String("log-format", "text", "log format: text or json")
	hwID := fs.String("hw-id", "", "HW_ID (5 chars, required)")
	mID := fs.String("m-id", "", "M_ID (2 chars, required)")
	mKey := fs.String("m-key", "", "M_KEY (5 chars); omit to be prompted securely")
	fs.Parse(args)
	setupLogging(*verbose, *logFormat)

	key := *mKey
	if key == "" {
		var err error
		key, err = promptMKey()
		if err != nil {
			log.Fatalf("%v", err)
		}
	}

	uperm, err := s63.CreateUserPermit(key, *hwID, *mID)
	if err != nil {
		log.Fatalf("minting user permit: %v", err)
	}
	fmt.Println(uperm)
}

func mintCell(args []string) {
	fs := flag.NewFlagSet("mint-cell", flag.ExitOnError)
	verbose := fs.Bool("v", false, "enable debug logging")
	logFormat := fs.String("log-format", "text", "log format: text or json")
	hwID := fs.String("hw-id", "", "HW_ID (5 chars, required)")
	ck1 := fs.String("ck1", "", "CK1, 10 hex chars, required")
	ck2 := fs.String("ck2", "", "CK2, 10 hex chars, required")
	cellname := fs.String("cellname", "", "CELLNAME (8 chars, required)")
	expiry := fs.String("expiry", "", "expiry date YYYYMMDD, required")
	fs.Parse(args)
	setupLogging(*verbose, *logFormat)

	ck1Bytes, err := hexutil.DecodeHex(*ck1)
	if err != nil {
		log.Fatalf("invalid -ck1: %v", err)
	}
	ck2Bytes, err := hexutil.DecodeHex(*ck2)
	if err != nil {
		log.Fatalf("invalid -ck2: %v", err)
	}

	cperm, err := s63.CreateCellPermit([]byte(*hwID), ck1Bytes, ck2Bytes, *cellname, *expiry)
	if err != nil {
		log.Fatalf("minting cell permit: %v", err)
	}
	fmt.Println(cperm)
}

func validateCell(args []string) {
	fs := flag.NewFlagSet("validate-cell", flag.ExitOnError)
	verbose := fs.Bool("v", false, "enable debug logging")
	logFormat := fs.String("log-format", "text", "log format: text or json")
	hwID := fs.String("hw-id", "", "HW_ID (5 chars, required)")
	permit := fs.String("permit", "", "64-character Cell Permit, required")
	fs.Parse(args)
	setupLogging(*verbose, *logFormat)

	if len(*hwID) != 5 {
		log.Fatalf("-hw-id must be exactly 5 characters")
	}
	hw6 := append([]byte(*hwID), (*hwID)[0])

	err := s63.ValidateCellPermit(*permit, hw6)
	switch {
	case err == nil:
		fmt.Println("OK")
	case s63.IsAdvisory(err):
		fmt.Printf("OK (advisory: %v)\n", err)
	default:
		fmt.Printf("INVALID: %v\n", err)
		os.Exit(1)
	}
}
