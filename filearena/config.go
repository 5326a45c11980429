package filearena

import "golang.org/x/sys/unix"

// Config carries the process-visible limits from spec.md §6: the OS page
// size, and the minimum arena/expansion sizes in pages. The teacher
// configures its components with small literal structs passed to
// constructors (massifs.MassifCommitterConfig) rather than flags or env
// vars; this project follows the same shape.
type Config struct {
	PageSize          int
	MinArenaPages     int
	MinExpansionPages int
}

// DefaultConfig returns the limits memory_region.cc hard-codes: the OS
// page size, a 1024 page arena minimum, and a 10000 page expansion
// minimum.
func DefaultConfig() Config {
	return Config{
		PageSize:          unix.Getpagesize(),
		MinArenaPages:     1024,
		MinExpansionPages: 10000,
	}
}

func (c Config) pageSize() int64 {
	if c.PageSize <= 0 {
		return int64(unix.Getpagesize())
	}
	return int64(c.PageSize)
}

func (c Config) minArenaPages() int64 {
	if c.MinArenaPages <= 0 {
		return 1024
	}
	return int64(c.MinArenaPages)
}

func (c Config) minExpansionPages() int64 {
	if c.MinExpansionPages <= 0 {
		return 10000
	}
	return int64(c.MinExpansionPages)
}

func ceilDiv(n, d int64) int64 {
	if n <= 0 {
		return 0
	}
	return (n + d - 1) / d
}
