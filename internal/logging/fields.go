package logging

// Standardized attribute keys. Using the constants keeps field names greppable
// across components and lets the console handler hoist the component prefix.
const (
	FieldComponent = "component"
	FieldTask      = "task"
	FieldURL       = "url"
	FieldPath      = "path"
	FieldCourse    = "course"
	FieldStatus    = "status"
	FieldAttempt   = "attempt"
	FieldCount     = "count"
	FieldBytes     = "bytes"
	FieldRunID     = "run_id"
)

// Component names used with NewComponentLogger.
const (
	ComponentCrawl    = "crawl"
	ComponentGate     = "gate"
	ComponentCanvas   = "canvas"
	ComponentMirror   = "mirror"
	ComponentDownload = "download"
	ComponentDiscover = "discover"
	ComponentPanopto  = "panopto"
	ComponentLedger   = "ledger"
	ComponentNotify   = "notify"
	ComponentCLI      = "cli"
)
