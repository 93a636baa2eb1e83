package util

const (
	StorageLocal = "local"
	StorageMinio = "minio"
	StorageOSS   = "oss"
)

const (
	MimeText = "text/"
	MimeJSON = "application/json"
)

// AllowedSourceTypes are the material content types the draft generator can read text from.
var AllowedSourceTypes = []string{MimeText, MimeJSON}
