package dedupe

// Option applies a configuration option to the deduper.
type Option func(*ringDeduper)

// WithMaxSize sets how many recent IDs are remembered.
// maxSize <= 0 means unbounded (no eviction).
func WithMaxSize(maxSize int) Option {
	return func(d *ringDeduper) {
		d.maxSize = maxSize
	}
}
