package services

import (
	"encoding/hex"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// Workspace is the triple of temporary paths owned by one conversion run:
// the converter job config, the downloaded input, and the produced output.
// No files are created at allocation time.
type Workspace struct {
	ConfigPath string
	InputPath  string
	OutputPath string
}

// AllocateWorkspace derives three uniquely suffixed sibling paths under
// tempRoot. The suffix is a fresh 128-bit random id, so concurrent runs
// sharing a temp root never collide.
func AllocateWorkspace(tempRoot string) (*Workspace, error) {
	id := uuid.New()
	randomID := hex.EncodeToString(id[:])

	configPath, err := filepath.Abs(filepath.Join(tempRoot, fmt.Sprintf("tmp_native_config_%s.xml", randomID)))
	if err != nil {
		return nil, fmt.Errorf("failed to make file path absolute (config): %w", err)
	}
	inputPath, err := filepath.Abs(filepath.Join(tempRoot, fmt.Sprintf("tmp_native_input_%s", randomID)))
	if err != nil {
		return nil, fmt.Errorf("failed to make file path absolute (input): %w", err)
	}
	outputPath, err := filepath.Abs(filepath.Join(tempRoot, fmt.Sprintf("tmp_native_output_%s.pdf", randomID)))
	if err != nil {
		return nil, fmt.Errorf("failed to make file path absolute (output): %w", err)
	}

	return &Workspace{
		ConfigPath: configPath,
		InputPath:  inputPath,
		OutputPath: outputPath,
	}, nil
}

// Release deletes each workspace path that exists. Deletions are
// independent and failures are logged, never returned.
func (w *Workspace) Release() {
	for _, path := range []string{w.ConfigPath, w.InputPath, w.OutputPath} {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := os.Remove(path); err != nil {
			log.Printf("[Cleanup] failed to delete %s: %v", path, err)
		}
	}
}
