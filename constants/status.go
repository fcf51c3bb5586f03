package constants

// DocumentStatus is the outcome of loading one document in a batch.
type DocumentStatus string

// Stable values (stored as-is in the session store).
const (
	DocumentStatusOK     DocumentStatus = "OK"
	DocumentStatusFailed DocumentStatus = "FAILED" // loader failed, row carries a diagnostic
)

// Origin records which stage produced a cell value.
type Origin string

const (
	OriginNone    Origin = ""
	OriginPattern Origin = "pattern"
	OriginLLM     Origin = "llm"
	OriginUnknown Origin = "unknown" // fallback ran and gave up
	OriginUser    Origin = "user"
)
