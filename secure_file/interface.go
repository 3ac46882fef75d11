package secure_file

// Interface manages files that may hold sensitive data: audio spills, the
// encrypted history, anything derived from a user's voice. Files are created
// owner-only and are overwritten before removal so deleted content cannot be
// recovered from disk.
type Interface interface {
	// Create opens a new file at path with 0600 permissions, truncating any
	// existing content, and registers it for shredding at shutdown.
	Create(path string) (File, error)

	// Open reopens a tracked file for reading, e.g. to feed a spilled WAV
	// back into the transcription engine before it is shredded.
	Open(path string) (File, error)

	// Shred overwrites the file at path with random data and removes it.
	// Shredding a path that does not exist is not an error.
	Shred(path string) error

	// WithTempFile creates a tracked temporary file, passes it to fn, and
	// shreds it before returning regardless of how fn exits.
	WithTempFile(pattern string, fn func(f File) error) error

	// ShredAll shreds every file still registered. Called once at shutdown.
	ShredAll() error
}

// File is the minimal surface callers need over a secure file.
type File interface {
	Name() string
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	Seek(offset int64, whence int) (int64, error)
	Close() error
}
