// Package zapx supplies the ambient logger threaded through the
// serialization substrate. The teacher (massifs) threads a
// github.com/datatrails/go-datatrails-common/logger.Logger field through
// its constructors; that package is an internal datatrails facade over
// go.uber.org/zap and is not part of the retrieved pack, so this project
// talks to zap directly while keeping the same "pass a logger in, default
// to a no-op one" shape as massifcommitter.go / localmassifreader.go.
package zapx

import "go.uber.org/zap"

// Logger is the subset of *zap.SugaredLogger this substrate calls. Kept as
// an interface so tests can substitute a recording logger.
type Logger interface {
	Debugf(template string, args ...interface{})
	Infof(template string, args ...interface{})
	Errorf(template string, args ...interface{})
}

// NewNop returns a logger that discards everything, used as the default
// when a constructor is not given one explicitly.
func NewNop() Logger {
	return zap.NewNop().Sugar()
}

// Default resolves l to NewNop() when nil, the same pattern massifs'
// constructors use for their logger.Logger parameters.
func Default(l Logger) Logger {
	if l == nil {
		return NewNop()
	}
	return l
}
