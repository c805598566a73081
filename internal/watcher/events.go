package watcher

import (
	"time"

	"github.com/Aman-CERP/amandocs/internal/corpus"
)

// Operation is a file system operation type.
type Operation int

const (
	// OpCreate indicates a new document was created.
	OpCreate Operation = iota
	// OpModify indicates an existing document was modified.
	OpModify
	// OpDelete indicates a document was deleted.
	OpDelete
	// OpRename indicates a document was renamed away.
	OpRename
	// OpConfigChange indicates the project config file changed.
	OpConfigChange
)

// String returns a human-readable representation of the operation.
func (op Operation) String() string {
	switch op {
	case OpCreate:
		return "CREATE"
	case OpModify:
		return "MODIFY"
	case OpDelete:
		return "DELETE"
	case OpRename:
		return "RENAME"
	case OpConfigChange:
		return "CONFIG_CHANGE"
	default:
		return "UNKNOWN"
	}
}

// FileEvent is one change under the corpus root.
type FileEvent struct {
	// Path is slash-separated and relative to the corpus root.
	Path      string
	Operation Operation
	Timestamp time.Time
}

// ConfigFileNames are the project config files whose changes are reported
// as OpConfigChange.
var ConfigFileNames = []string{".amandocs.yaml", ".amandocs.yml"}

// Options configures a Watcher.
type Options struct {
	// DebounceWindow is how long a path must stay quiet before its event
	// is emitted. Default: 500ms
	DebounceWindow time.Duration `yaml:"debounce"`

	// EventBufferSize is the number of batches buffered for the consumer.
	// Default: 64
	EventBufferSize int `yaml:"-"`

	// Corpus decides which files are documents.
	Corpus corpus.LoadOptions `yaml:"-"`
}

// DefaultOptions returns the default watcher options.
func DefaultOptions() Options {
	return Options{
		DebounceWindow:  500 * time.Millisecond,
		EventBufferSize: 64,
	}
}

// WithDefaults returns options with defaults applied for zero values.
func (o Options) WithDefaults() Options {
	defaults := DefaultOptions()
	if o.DebounceWindow <= 0 {
		o.DebounceWindow = defaults.DebounceWindow
	}
	if o.EventBufferSize <= 0 {
		o.EventBufferSize = defaults.EventBufferSize
	}
	return o
}
