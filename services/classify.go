package services

import (
	"bytes"
	"io"
	"log"
	"os"
)

// outOfRangeSignature is the crash signature x2t emits on out-of-range
// accesses, which empirically correlates with password-protected input.
const outOfRangeSignature = "std::out_of_range"

// Classify turns a failed converter run into exactly one typed error. It is
// called only for non-zero exit codes. The input file is re-read (up to
// readLimit bytes) for byte-pattern inspection; the priority order is crash
// signature, then byte heuristic, then the exit-code table.
func Classify(result *ExitResult, inputPath string, readLimit int) *ConvertError {
	// A signal-killed converter has no exit code; report null rather
	// than the -1 placeholder.
	code := result.Code
	var codePtr *int
	if code >= 0 {
		codePtr = &code
	}

	file, err := os.Open(inputPath)
	if err != nil {
		log.Printf("[Classify] failed to open input file for integrity check: %v", err)
		return newConvertError(ReasonOpenFileIntegrity, "failed to open input file for integrity check")
	}
	defer file.Close()

	prefix := make([]byte, readLimit)
	n, err := io.ReadFull(file, prefix)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		log.Printf("[Classify] failed to read input file for integrity check: %v", err)
		return newConvertError(ReasonReadFileIntegrity, "failed to read input file for integrity check")
	}
	prefix = prefix[:n]

	stderr := string(result.Stderr)
	condition := DetectFileCondition(prefix)

	log.Printf("[Classify] error processing file (stderr = %s, exit code = %d, file condition = %s)",
		stderr, code, condition)

	if bytes.Contains(result.Stderr, []byte(outOfRangeSignature)) {
		return &ConvertError{
			Reason:  reasonPtr(ReasonLikelyEncrypted),
			X2TCode: codePtr,
			Message: "file is encrypted",
		}
	}

	switch condition {
	case ConditionLikelyCorrupted:
		return &ConvertError{
			Reason:  reasonPtr(ReasonLikelyCorrupted),
			X2TCode: codePtr,
			Message: "file is corrupted",
		}
	case ConditionLikelyEncrypted:
		return &ConvertError{
			Reason:  reasonPtr(ReasonLikelyEncrypted),
			X2TCode: codePtr,
			Message: "file is encrypted",
		}
	}

	message := ""
	if codePtr != nil {
		message = X2TCodeName(code)
	}
	if message == "" {
		message = "unknown error occurred"
	}

	return &ConvertError{Reason: nil, X2TCode: codePtr, Message: message}
}

func reasonPtr(r Reason) *Reason { return &r }
