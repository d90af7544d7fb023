package models

// LoadState tracks the initialization of one codec backend.
type LoadState string

const (
	LoadUninitiated LoadState = "uninitiated"
	LoadLoading     LoadState = "loading"
	LoadAvailable   LoadState = "available"
	LoadFailed      LoadState = "failed"
)

// CodecDescriptor describes the availability of the codec for one output format.
type CodecDescriptor struct {
	Format    Format    `json:"format"`
	LoadState LoadState `json:"load_state"`
	Available bool      `json:"available"`
	LastError string    `json:"last_error,omitempty"`
}
