// Package hotreload owns the accumulate and present programs and rebuilds
// them from source files while a session runs. A program is only replaced
// once its successor has compiled and linked, so every role always has a
// usable program.
package hotreload

import (
	"errors"
	"fmt"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"blossom/gpu"
)

// Role names one of the two managed programs.
type Role int

const (
	RoleAccumulate Role = iota
	RolePresent
	roleCount
)

// Roles lists every managed role in build order.
var Roles = [roleCount]Role{RoleAccumulate, RolePresent}

func (r Role) String() string {
	switch r {
	case RoleAccumulate:
		return "accumulate"
	case RolePresent:
		return "present"
	}
	return fmt.Sprintf("role(%d)", int(r))
}

// DefaultInterval is the number of samples between reload polls.
const DefaultInterval = 5

// Program is a built program and the source it was built from.
type Program struct {
	Handle gpu.ProgramHandle
	Source string
}

// Paths holds the source file of each role. An empty path leaves the role
// out of reloads.
type Paths [roleCount]string

// ReloadError describes the failure of one role during a reload.
type ReloadError struct {
	Role Role
	Path string
	Err  error
}

func (e *ReloadError) Error() string {
	return fmt.Sprintf("%s program %q: %v", e.Role, e.Path, e.Err)
}

func (e *ReloadError) Unwrap() error { return e.Err }

// ErrNoProgram is reported by Ready when a role has no live program.
var ErrNoProgram = errors.New("hotreload: role has no program")

// ChangeWatcher reports whether any managed file changed since the last call.
type ChangeWatcher interface {
	Changed() bool
}

// Library builds, holds and hot-swaps the programs of every role.
type Library struct {
	dev      gpu.Device
	source   Source
	log      *zap.Logger
	watcher  ChangeWatcher
	reporter Reporter

	paths    Paths
	live     [roleCount]*Program
	interval int
	polled   bool
}

// NewLibrary returns a library with no programs installed yet.
func NewLibrary(dev gpu.Device, source Source, paths Paths, logger *zap.Logger) *Library {
	return &Library{
		dev:      dev,
		source:   source,
		log:      logger.Named("hotreload"),
		paths:    paths,
		interval: DefaultInterval,
	}
}

// SetInterval changes the poll cadence in samples. Values below one disable
// polling.
func (l *Library) SetInterval(samples int) { l.interval = samples }

// SetWatcher gates polls on file change notifications.
func (l *Library) SetWatcher(w ChangeWatcher) { l.watcher = w }

// SetReporter adds an operator-facing channel for build failures.
func (l *Library) SetReporter(r Reporter) { l.reporter = r }

// Paths returns the managed source paths.
func (l *Library) Paths() Paths { return l.paths }

// Build compiles and links source without touching the live programs.
func (l *Library) Build(source string) (*Program, error) {
	h, err := l.dev.CompileProgram(source)
	if err != nil {
		return nil, err
	}
	return &Program{Handle: h, Source: source}, nil
}

// Install builds source and makes it the live program of role.
func (l *Library) Install(role Role, source string) error {
	p, err := l.Build(source)
	if err != nil {
		return &ReloadError{Role: role, Path: "<inline>", Err: err}
	}
	l.commit(role, p)
	return nil
}

// Load reads the source of role from its path and installs it.
func (l *Library) Load(role Role) error {
	p, err := l.candidate(role)
	if err != nil {
		return err
	}
	l.commit(role, p)
	return nil
}

// Program returns the live program of role, or nil before it is installed.
func (l *Library) Program(role Role) *Program { return l.live[role] }

// Ready reports whether every role has a live program.
func (l *Library) Ready() error {
	for _, role := range Roles {
		if l.live[role] == nil {
			return fmt.Errorf("%s: %w", role, ErrNoProgram)
		}
	}
	return nil
}

// ReloadAll rebuilds every role that has a path. All candidates are built
// first; only the ones that succeeded replace their live program. It returns
// true when every role rebuilt, and the combined failures otherwise.
func (l *Library) ReloadAll() (bool, error) {
	var (
		candidates [roleCount]*Program
		errs       error
	)
	for _, role := range Roles {
		if l.paths[role] == "" {
			continue
		}
		p, err := l.candidate(role)
		if err != nil {
			errs = multierr.Append(errs, err)
			l.report(err.(*ReloadError))
			continue
		}
		candidates[role] = p
	}

	for _, role := range Roles {
		if candidates[role] != nil {
			l.commit(role, candidates[role])
		}
	}
	return errs == nil, errs
}

// Poll runs ReloadAll when sampleCount is on the poll cadence and, with a
// watcher attached, a managed file changed since the previous poll. The first
// poll of a session always rebuilds.
func (l *Library) Poll(sampleCount int) (attempted, ok bool, err error) {
	if l.interval < 1 || sampleCount%l.interval != 0 {
		return false, false, nil
	}
	if l.watcher != nil && l.polled && !l.watcher.Changed() {
		return false, false, nil
	}
	l.polled = true
	ok, err = l.ReloadAll()
	return true, ok, err
}

// Sources holds the built-in source of each role.
type Sources [roleCount]string

// Bootstrap installs the first program of every role. A role with a path is
// built from its file; with fallback set, a file that fails to build is
// replaced by the role's built-in source. Roles without a path use the
// built-in source. Any role left without a program is an error.
func (l *Library) Bootstrap(defaults Sources, fallback bool) error {
	var errs error
	for _, role := range Roles {
		if l.paths[role] != "" {
			err := l.Load(role)
			if err == nil {
				continue
			}
			l.report(err.(*ReloadError))
			if !fallback {
				errs = multierr.Append(errs, err)
				continue
			}
			l.log.Warn("using built-in program", zap.Stringer("role", role))
		}
		if err := l.Install(role, defaults[role]); err != nil {
			errs = multierr.Append(errs, err)
		}
	}
	return errs
}

// ResetSession makes the next poll rebuild unconditionally.
func (l *Library) ResetSession() { l.polled = false }

// Release deletes every live program.
func (l *Library) Release() {
	for _, role := range Roles {
		if p := l.live[role]; p != nil {
			l.dev.DeleteProgram(p.Handle)
			l.live[role] = nil
		}
	}
}

func (l *Library) candidate(role Role) (*Program, error) {
	path := l.paths[role]
	text, err := l.source.Read(path)
	if err != nil {
		return nil, &ReloadError{Role: role, Path: path, Err: err}
	}
	p, err := l.Build(text)
	if err != nil {
		return nil, &ReloadError{Role: role, Path: path, Err: err}
	}
	return p, nil
}

func (l *Library) commit(role Role, p *Program) {
	old := l.live[role]
	l.live[role] = p
	if old != nil {
		l.dev.DeleteProgram(old.Handle)
	}
	l.log.Debug("program installed",
		zap.Stringer("role", role),
		zap.Uint32("program", p.Handle.ID()))
}

func (l *Library) report(err *ReloadError) {
	l.log.Error("program rebuild failed, keeping previous program",
		zap.Stringer("role", err.Role),
		zap.String("path", err.Path),
		zap.Error(err.Err))
	if l.reporter != nil {
		l.reporter.ReportFailure(err)
	}
}
