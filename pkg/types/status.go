package types

// State is a node in the indexing status state machine.
type State string

const (
	StateInitializing            State = "Initializing"
	StateIdleInitialScanRequired State = "IdleInitialScanRequired"
	StateScanning                State = "Scanning"
	StateWatching                State = "Watching"
	StateError                   State = "Error"
)

// ProjectStatus is the single in-memory status record for the project being
// indexed. It is mutated only by the Indexer and read via a consistent
// value-copy snapshot by the Status Registry.
type ProjectStatus struct {
	ProjectPath        string
	State              State
	LastScanStartTime  *float64 // seconds since epoch, nil if never scanned
	LastScanEndTime    *float64
	IndexedChunkCount  int
	ErrorMessage       string
}
