// Command s63extract walks an ENC directory tree, decrypts each cell it
// finds a permit for, unzips the payload, and writes the clear S-57 bytes
// out — the directory-walk driver spec.md treats as an external
// collaborator, but a complete repo still needs one (§12 "supplemented
// features"). Flag and logging setup follows the teacher's CLI tools
// (minter/main.go, ro/main.go).
package main

import (
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"

	"github.com/pavelpasha/s63lib/internal/batch"
	"github.com/pavelpasha/s63lib/internal/config"
	"github.com/pavelpasha/s63lib/pkg/s63"
)

var cellFileName = regexp.MustCompile(`\.\d{3}$`)

func main() {
	verbose := flag.Bool("v", false, "enable debug logging")
	logFormat := flag.String("log-format", "text", "log format: text or json")
	configPath := flag.String("config", "", "path to the INI driver config (single-environment mode)")
	batchPath := flag.String("batch", "", "path to a YAML manifest of environments (batch mode)")
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	if *logFormat == "json" {
		slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, opts)))
	} else {
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, opts)))
	}

	if *configPath == "" && *batchPath == "" {
		log.Fatalf("one of -config or -batch is required")
	}

	var envs []batch.Environment
	if *batchPath != "" {
		m, err := batch.Load(*batchPath)
		if err != nil {
			log.Fatalf("loading batch manifest: %v", err)
		}
		envs = m.Environments
	} else {
		cfg, err := config.Load(*configPath)
		if err != nil {
			log.Fatalf("loading config: %v", err)
		}
		envs = []batch.Environment{{
			Name:       "default",
			HWID:       cfg.HWID,
			MKey:       cfg.MKey,
			MID:        cfg.MID,
			InputDir:   cfg.InputDir,
			OutputDir:  cfg.OutputDir,
			PermitFile: cfg.PermitFile,
		}}
	}

	var failures int
	for _, env := range envs {
		slog.Info("processing environment", "name", env.Name, "input_dir", env.InputDir)
		if err := runEnvironment(env); err != nil {
			slog.Error("environment failed", "name", env.Name, "error", err)
			failures++
		}
	}
	if failures > 0 {
		os.Exit(1)
	}
}

func runEnvironment(env batch.Environment) error {
	client, err := s63.NewClient(env.HWID, env.MKey, env.MID)
	if err != nil {
		return fmt.Errorf("building client: %w", err)
	}

	if env.PermitFile != "" {
		result, err := client.ImportPermitFile(env.PermitFile)
		if err != nil {
			return fmt.Errorf("importing permit file: %w", err)
		}
		slog.Info("imported permits", "installed", result.Installed, "skipped", result.Skipped)
		for _, ierr := range result.Errors {
			slog.Warn("permit line skipped", "error", ierr)
		}
	}

	if err := os.MkdirAll(env.OutputDir, 0o755); err != nil {
		return fmt.Errorf("creating output dir: %w", err)
	}

	var written []string
	walkErr := filepath.Walk(env.InputDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || !cellFileName.MatchString(info.Name()) {
			return nil
		}

		rel, err := filepath.Rel(env.InputDir, path)
		if err != nil {
			return err
		}
		outPath := filepath.Join(env.OutputDir, rel)
		if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
			return err
		}

		if err := client.DecryptAndUnzip(path, outPath); err != nil && !s63.IsAdvisory(err) {
			slog.Error("decrypt failed", "cell", rel, "error", err)
			return nil
		} else if err != nil {
			slog.Warn("decrypt advisory", "cell", rel, "error", err)
		}
		written = append(written, rel)
		return nil
	})
	if walkErr != nil {
		return fmt.Errorf("walking %s: %w", env.InputDir, walkErr)
	}

	sort.Strings(written)
	if err := writeManifest(env.OutputDir, written); err != nil {
		return fmt.Errorf("writing manifest: %w", err)
	}

	return pruneEmptyDirs(env.OutputDir)
}

func writeManifest(outputDir string, names []string) error {
	f, err := os.Create(filepath.Join(outputDir, "s57filenames.txt"))
	if err != nil {
		return err
	}
	defer f.Close()
	for _, name := range names {
		if _, err := fmt.Fprintln(f, name); err != nil {
			return err
		}
	}
	return nil
}

// pruneEmptyDirs removes directories left empty by a run where every cell
// under them failed to decrypt (§6 "Persisted state").
func pruneEmptyDirs(root string) error {
	var dirs []string
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() && path != root {
			dirs = append(dirs, path)
		}
		return nil
	})
	if err != nil {
		return err
	}

	sort.Sort(sort.Reverse(sort.StringSlice(dirs)))
	for _, dir := range dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		if len(entries) == 0 {
			os.Remove(dir)
		}
	}
	return nil
}
