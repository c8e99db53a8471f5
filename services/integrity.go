package services

import (
	"bytes"
	"unicode/utf8"
)

// FileCondition is a best-effort verdict on raw input bytes, consulted only
// after the converter has already failed.
type FileCondition int

const (
	ConditionUnknown FileCondition = iota
	ConditionLikelyCorrupted
	ConditionLikelyEncrypted
	ConditionIntact
)

func (c FileCondition) String() string {
	switch c {
	case ConditionLikelyCorrupted:
		return "likely_corrupted"
	case ConditionLikelyEncrypted:
		return "likely_encrypted"
	case ConditionIntact:
		return "intact"
	default:
		return "unknown"
	}
}

var (
	magicZip = []byte{0x50, 0x4b, 0x03, 0x04}
	magicCFB = []byte{0xd0, 0xcf, 0x11, 0xe0, 0xa1, 0xb1, 0x1a, 0xe1}
	magicPDF = []byte("%PDF-")
	magicRTF = []byte(`{\rtf`)

	// Stream names present in the CFB wrapper of password-protected OOXML
	// documents, encoded UTF-16LE as they appear in the directory entries.
	cfbEncryptionMarkers = [][]byte{
		utf16leBytes("EncryptionInfo"),
		utf16leBytes("EncryptedPackage"),
	}
)

func utf16leBytes(s string) []byte {
	out := make([]byte, 0, len(s)*2)
	for _, r := range s {
		out = append(out, byte(r), 0)
	}
	return out
}

// DetectFileCondition inspects a prefix of the input file. Zip-based and
// legacy CFB office documents, PDFs and RTF all have stable signatures;
// protected OOXML is a CFB container holding encryption streams, and a
// protected PDF carries an /Encrypt entry in its trailer. Input matching no
// known container and not looking like text is presumed damaged.
func DetectFileCondition(prefix []byte) FileCondition {
	if len(prefix) == 0 {
		return ConditionLikelyCorrupted
	}

	if bytes.HasPrefix(prefix, magicCFB) {
		for _, marker := range cfbEncryptionMarkers {
			if bytes.Contains(prefix, marker) {
				return ConditionLikelyEncrypted
			}
		}
		return ConditionIntact
	}

	if bytes.HasPrefix(prefix, magicPDF) {
		if bytes.Contains(prefix, []byte("/Encrypt")) {
			return ConditionLikelyEncrypted
		}
		return ConditionIntact
	}

	if bytes.HasPrefix(prefix, magicZip) || bytes.HasPrefix(prefix, magicRTF) {
		return ConditionIntact
	}

	if looksTextual(prefix) {
		return ConditionUnknown
	}

	return ConditionLikelyCorrupted
}

// looksTextual reports whether the prefix is plausible valid UTF-8 text with
// no control bytes outside the usual whitespace.
func looksTextual(prefix []byte) bool {
	if !utf8.Valid(prefix) {
		return false
	}
	for _, b := range prefix {
		if b < 0x20 && b != '\t' && b != '\n' && b != '\r' {
			return false
		}
	}
	return true
}
