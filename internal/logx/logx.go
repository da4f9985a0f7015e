// Package logx is the module's ambient logging seam. The verification
// engine itself never logs (collaborators decide what to do with errors);
// the demo command under cmd/didcoreinspect is the one user in this tree.
package logx

import (
	"sync"

	"go.uber.org/zap"
)

// Logger is the narrow surface components depend on, matching the
// subset of zap's SugaredLogger that this module exercises.
type Logger interface {
	Debugf(template string, args ...any)
	Infof(template string, args ...any)
	Warnf(template string, args ...any)
	Errorf(template string, args ...any)
	With(args ...any) Logger
}

type sugared struct {
	s *zap.SugaredLogger
}

func (l *sugared) Debugf(template string, args ...any) { l.s.Debugf(template, args...) }
func (l *sugared) Infof(template string, args ...any)  { l.s.Infof(template, args...) }
func (l *sugared) Warnf(template string, args ...any)  { l.s.Warnf(template, args...) }
func (l *sugared) Errorf(template string, args ...any) { l.s.Errorf(template, args...) }
func (l *sugared) With(args ...any) Logger {
	return &sugared{s: l.s.With(args...)}
}

var (
	once  sync.Once
	base  *zap.Logger
	Sugar Logger
)

func ensureBase() {
	once.Do(func() {
		var err error
		base, err = zap.NewProduction()
		if err != nil {
			base = zap.NewNop()
		}
		Sugar = &sugared{s: base.Sugar()}
	})
}

// New returns a component-scoped logger, mirroring logger.New(component)
// conventions: every call site names the subsystem it logs on behalf of.
func New(component string) Logger {
	ensureBase()
	return &sugared{s: base.Sugar().Named(component)}
}

func init() {
	ensureBase()
}
