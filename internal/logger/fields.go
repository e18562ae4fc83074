package logger

// Standard field keys for structured logging.
// Use these consistently across all log statements so logs can be aggregated
// and queried by field.
const (
	// Request handling
	KeyRequestID = "request_id" // HTTP request identifier
	KeyMethod    = "method"     // HTTP method
	KeyStatus    = "status"     // HTTP status code
	KeyDuration  = "duration"   // Operation duration

	// Namespace operations
	KeyOwnerID  = "owner_id" // Owner scoping the namespace
	KeyItemID   = "item_id"  // FileSystemItem identifier
	KeyItemType = "type"     // Item type: FILE or FOLDER
	KeyName     = "name"     // Leaf name of an item
	KeyPath     = "path"     // Materialized item path
	KeyOldPath  = "old_path" // Source path for move operations
	KeyNewPath  = "new_path" // Destination path for move operations
	KeyParentID = "parent_id"

	// Blob storage
	KeyProvider = "provider" // Storage backend tag: local, s3
	KeyKey      = "key"      // Blob storage key (ownerID + path)
	KeyOldKey   = "old_key"
	KeyNewKey   = "new_key"
	KeySize     = "size" // Blob size in bytes

	// Errors
	KeyError = "error"
)
