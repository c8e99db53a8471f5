package services

// Reason is a machine-readable token identifying which stage of the
// conversion pipeline failed, or what the failure classifier concluded.
type Reason string

const (
	ReasonWriteConfigFile    Reason = "WRITE_CONFIG_FILE"
	ReasonNoSuchKey          Reason = "NO_SUCH_KEY"
	ReasonGetObject          Reason = "GET_OBJECT"
	ReasonReadObjectChunk    Reason = "READ_OBJECT_CHUNK"
	ReasonWriteObjectChunk   Reason = "WRITE_OBJECT_CHUNK"
	ReasonFlushObject        Reason = "FLUSH_OBJECT"
	ReasonCreateOutputStream Reason = "CREATE_OUTPUT_STREAM"
	ReasonUploadOutputStream Reason = "UPLOAD_OUTPUT_STREAM"
	ReasonRunX2T             Reason = "RUN_X2T"
	ReasonOpenFileIntegrity  Reason = "OPEN_FILE_INTEGRITY"
	ReasonReadFileIntegrity  Reason = "READ_FILE_INTEGRITY"
	ReasonLikelyEncrypted    Reason = "FILE_LIKELY_ENCRYPTED"
	ReasonLikelyCorrupted    Reason = "FILE_LIKELY_CORRUPTED"
)

// ConvertError is the single failure type of the pipeline and doubles as the
// HTTP error body. Reason is nil when only a converter exit code applies;
// X2TCode is nil for failures outside the converter process itself.
type ConvertError struct {
	Reason  *Reason `json:"reason"`
	X2TCode *int    `json:"x2t_code"`
	Message string  `json:"message"`
}

func (e *ConvertError) Error() string {
	if e.Reason != nil {
		return string(*e.Reason) + ": " + e.Message
	}
	return e.Message
}

func newConvertError(reason Reason, message string) *ConvertError {
	return &ConvertError{Reason: &reason, X2TCode: nil, Message: message}
}

// X2TCodeName translates an x2t exit code to the converter's error
// identifier, or "" for codes outside the known table.
func X2TCodeName(code int) string {
	switch code {
	case 0x0001:
		return "AVS_FILEUTILS_ERROR_UNKNOWN"
	case 0x0050:
		return "AVS_FILEUTILS_ERROR_CONVERT"
	case 0x0051:
		return "AVS_FILEUTILS_ERROR_CONVERT_DOWNLOAD"
	case 0x0052:
		return "AVS_FILEUTILS_ERROR_CONVERT_UNKNOWN_FORMAT"
	case 0x0053:
		return "AVS_FILEUTILS_ERROR_CONVERT_TIMEOUT"
	case 0x0054:
		return "AVS_FILEUTILS_ERROR_CONVERT_READ_FILE"
	case 0x0055:
		return "AVS_FILEUTILS_ERROR_CONVERT_DRM_UNSUPPORTED"
	case 0x0056:
		return "AVS_FILEUTILS_ERROR_CONVERT_CORRUPTED"
	case 0x0057:
		return "AVS_FILEUTILS_ERROR_CONVERT_LIBREOFFICE"
	case 0x0058:
		return "AVS_FILEUTILS_ERROR_CONVERT_PARAMS"
	case 0x0059:
		return "AVS_FILEUTILS_ERROR_CONVERT_NEED_PARAMS"
	case 0x005a:
		return "AVS_FILEUTILS_ERROR_CONVERT_DRM"
	case 0x005b:
		return "AVS_FILEUTILS_ERROR_CONVERT_PASSWORD"
	case 0x005c:
		return "AVS_FILEUTILS_ERROR_CONVERT_ICU"
	case 0x005d:
		return "AVS_FILEUTILS_ERROR_CONVERT_LIMITS"
	case 0x005e:
		return "AVS_FILEUTILS_ERROR_CONVERT_ROWLIMITS"
	case 0x005f:
		return "AVS_FILEUTILS_ERROR_CONVERT_DETECT"
	case 0x0060:
		return "AVS_FILEUTILS_ERROR_CONVERT_CELLLIMITS"
	default:
		return ""
	}
}
