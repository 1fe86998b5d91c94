package types

// Metadata is a map of additional string key-value information on a resource
type Metadata map[string]string
