package vfs

// Backing-store key groups. Chunks live under their own prefix so they can
// never collide with metadata keys.
const (
	keyTree    = "vfs:tree"
	keyConfig  = "vfs:config"
	keyStats   = "vfs:stats"
	keyDeleted = "vfs:deleted"

	chunkKeyPrefix = "vfs:chunk:"
)

// Legacy single-blob format, read once during migration and then deleted.
const (
	legacyKeyTree   = "files"
	legacyKeyConfig = "filesConfig"
	legacyKeyStats  = "filesStats"
)

func chunkKey(id string) string {
	return chunkKeyPrefix + id
}
