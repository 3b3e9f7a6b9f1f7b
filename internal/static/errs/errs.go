package errs

import "errors"

var (
	NotFound        = errors.New("not found")
	JobNotFound     = errors.New("job not found")
	ReportNotFound  = errors.New("report not found")
	EmptyPrompt     = errors.New("prompt is required")
	InvalidJobState = errors.New("invalid job state transition")
	InvalidReport   = errors.New("invalid worker report")
)

var (
	// NoCodeGenerated is the fixed detail recorded when generation yields no payload.
	NoCodeGenerated = errors.New("No code generated")

	PayloadTooLarge   = errors.New("payload exceeds launch size limit")
	PayloadNotText    = errors.New("payload is not valid UTF-8 text")
	InvalidCredential = errors.New("invalid callback credentials")
	PoolStopped       = errors.New("task pool stopped")
)
