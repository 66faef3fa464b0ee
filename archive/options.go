package archive

// DefaultCheckpointInterval is the uncompressed-byte threshold between
// checkpoints when no [WithCheckpointInterval] option is given. The
// checkpoint interval is not part of the on-disk format, so any positive
// value yields a valid archive; 10 MiB matches the reference
// implementation's own documented default.
const DefaultCheckpointInterval = 10 * 1024 * 1024

// DefaultLevel is the compression level used when no [WithLevel] option is
// given.
const DefaultLevel = 6

// WriterOption configures a [Writer] at construction time.
type WriterOption func(*writerConfig)

type writerConfig struct {
	level              int
	checkpointInterval uint64
}

// WithLevel sets the codec compression level.
func WithLevel(level int) WriterOption {
	return func(c *writerConfig) { c.level = level }
}

// WithCheckpointInterval sets the minimum number of uncompressed entry-
// stream bytes between checkpoints.
func WithCheckpointInterval(n uint64) WriterOption {
	return func(c *writerConfig) { c.checkpointInterval = n }
}

// ReaderOption is a configuration hook for a [Reader]. No options are
// defined, and [NewReader] takes none.
type ReaderOption func(*readerConfig)

type readerConfig struct{}
