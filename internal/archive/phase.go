package archive

// Phase tracks where an export or import is in its lifecycle. Phases
// appear in log lines and on ArchiveError so a failure report says not
// just what broke but when.
type Phase string

const (
	// Export phases.
	PhaseSnapshot Phase = "snapshot" // read transaction open, collecting records
	PhaseWrite    Phase = "write"    // entity files being written

	// PhaseManifest is shared: last step of export, first step of import.
	PhaseManifest Phase = "manifest"

	// Import phases.
	PhaseVerify  Phase = "verify"  // checksums and envelopes being checked
	PhaseCleanup Phase = "cleanup" // existing rows deleted, reverse order
	PhaseRestore Phase = "restore" // records inserted, import order

	PhaseDone Phase = "done"
)
