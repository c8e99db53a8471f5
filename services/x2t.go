package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"
)

// formatPDF is x2t's numeric code for PDF output.
const formatPDF = 513

const libraryPathVar = "LD_LIBRARY_PATH"

// X2TService builds job configs for and invokes the x2t converter binary.
type X2TService struct {
	binDir   string
	fontsDir string
}

func NewX2TService(binDir, fontsDir string) *X2TService {
	return &X2TService{binDir: binDir, fontsDir: fontsDir}
}

// ExitResult captures a completed x2t run. A non-zero Code is not an error
// at this layer; callers hand it to Classify.
type ExitResult struct {
	Code   int
	Stdout []byte
	Stderr []byte
}

func (r *ExitResult) Success() bool { return r.Code == 0 }

// JobConfig renders the task document x2t consumes. The element names and
// document shape are x2t's parsing contract and must not change.
func (x *X2TService) JobConfig(inputPath, outputPath string) []byte {
	return []byte(fmt.Sprintf(
		`<?xml version="1.0" encoding="utf-8"?>
<TaskQueueDataConvert xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance"
                      xmlns:xsd="http://www.w3.org/2001/XMLSchema">
  <m_sFileFrom>%s</m_sFileFrom>
  <m_sFileTo>%s</m_sFileTo>
  <m_sFontDir>%s</m_sFontDir>
  <m_nFormatTo>%d</m_nFormatTo>
</TaskQueueDataConvert>
`,
		inputPath, outputPath, x.fontsDir, formatPDF,
	))
}

func x2tBinaryName() string {
	if runtime.GOOS == "windows" {
		return "x2t.exe"
	}
	return "x2t"
}

// prependLibraryPath returns environ with the library search variable set to
// dir ahead of its inherited value, replacing any existing entry.
func prependLibraryPath(environ []string, dir string) []string {
	inherited := ""
	env := make([]string, 0, len(environ))
	for _, kv := range environ {
		if strings.HasPrefix(kv, libraryPathVar+"=") {
			inherited = strings.TrimPrefix(kv, libraryPathVar+"=")
			continue
		}
		env = append(env, kv)
	}
	return append(env, fmt.Sprintf("%s=%s:%s", libraryPathVar, dir, inherited))
}

// WriteConfig persists the job document; it must be on disk before Run.
func (x *X2TService) WriteConfig(configPath string, configBytes []byte) *ConvertError {
	if err := os.WriteFile(configPath, configBytes, 0644); err != nil {
		log.Printf("[X2T] failed to write config file: %v", err)
		return newConvertError(ReasonWriteConfigFile, "failed to write config file")
	}
	return nil
}

// Run executes x2t against a previously written config, suspending until
// the child exits or ctx expires. Some of x2t's required .so libraries fail
// to load unless its install directory leads the library search path, so
// the child environment always gets it prepended.
func (x *X2TService) Run(ctx context.Context, configPath string) (*ExitResult, *ConvertError) {
	bin := filepath.Join(x.binDir, x2tBinaryName())

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, bin, configPath)
	cmd.Env = prependLibraryPath(os.Environ(), x.binDir)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	// Orphaned x2t children can hold the output pipes open after the
	// deadline kill; don't let them pin the request.
	cmd.WaitDelay = 5 * time.Second

	err := cmd.Run()

	if ctxErr := ctx.Err(); errors.Is(ctxErr, context.DeadlineExceeded) {
		log.Printf("[X2T] converter timed out")
		return nil, newConvertError(ReasonRunX2T, "converter timed out")
	}

	var exitErr *exec.ExitError
	switch {
	case err == nil:
		return &ExitResult{Code: 0, Stdout: stdout.Bytes(), Stderr: stderr.Bytes()}, nil
	case errors.As(err, &exitErr):
		return &ExitResult{Code: exitErr.ExitCode(), Stdout: stdout.Bytes(), Stderr: stderr.Bytes()}, nil
	default:
		log.Printf("[X2T] failed to run x2t: %v", err)
		return nil, newConvertError(ReasonRunX2T, "failed to run x2t")
	}
}
