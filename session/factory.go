package session

import "fmt"

// NewStore constructs a Store by kind: "memory" or "file".
// For file store, provide the file path in path; for memory, path is ignored.
func NewStore(kind, path string) (Store, error) {
	switch kind {
	case "memory", "mem":
		return NewMemoryStore(), nil
	case "file":
		if path == "" {
			return nil, fmt.Errorf("file path required for file session store")
		}
		return NewFileStore(path), nil
	default:
		return nil, fmt.Errorf("unknown session store kind: %s", kind)
	}
}
