package models

// CacheSource tells which layer produced a response.
type CacheSource string

const (
	SourceMemory CacheSource = "memory"
	SourceDisk   CacheSource = "disk"
	SourceRemote CacheSource = "remote"
)

// CacheStats reports in-memory cache metrics.
type CacheStats struct {
	Entries   int   `json:"entries"`
	Capacity  int   `json:"capacity"`
	Hits      int64 `json:"hits"`
	Misses    int64 `json:"misses"`
	Evictions int64 `json:"evictions"`
}

// DiskStats reports the contents of the disk mirror.
type DiskStats struct {
	Dir        string `json:"dir"`
	Entries    int    `json:"entries"`
	TotalBytes int64  `json:"total_bytes"`
}
