// Package bundle holds a compiled project: the initial scene and every
// script compiled to a program. Bundles are stored as canonical CBOR so a
// project can be compiled once and played many times.
package bundle

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/fxamacker/cbor/v2"

	"github.com/zurustar/entplay/pkg/compiler"
	"github.com/zurustar/entplay/pkg/logger"
	"github.com/zurustar/entplay/pkg/opcode"
	"github.com/zurustar/entplay/pkg/project"
	"github.com/zurustar/entplay/pkg/scene"
	"github.com/zurustar/entplay/pkg/vm"
)

// Version is bumped whenever the bundle layout changes.
const Version = 1

// Bundle is a compiled project.
type Bundle struct {
	Version   int              `cbor:"version"`
	Objects   []scene.Object   `cbor:"objects"`
	Variables []scene.Variable `cbor:"variables"`
	Scripts   []Script         `cbor:"scripts"`
}

// Script is one compiled script and the object that owns it.
type Script struct {
	Owner   string         `cbor:"owner"`
	Trigger opcode.Trigger `cbor:"trigger"`
	Program opcode.Program `cbor:"program"`
}

// Report summarizes a Build.
type Report struct {
	Compiled  int // scripts compiled
	NoTrigger int // scripts skipped for lacking a trigger
	Malformed int // scripts skipped as malformed
	Warnings  int // unsupported blocks dropped
}

// Build compiles every script of p. Scripts without a trigger and
// malformed scripts are skipped; the rest of the project still loads.
func Build(p *project.Project, c *compiler.Compiler, log *slog.Logger) (*Bundle, Report, error) {
	if log == nil {
		log = logger.GetLogger()
	}
	var rep Report
	b := &Bundle{Version: Version}

	for i := range p.Objects {
		o := &p.Objects[i]
		b.Objects = append(b.Objects, o.SceneObject())

		scripts, err := o.Scripts()
		if err != nil {
			return nil, rep, err
		}
		for n, s := range scripts {
			cs, err := c.CompileScript(s)
			switch {
			case errors.Is(err, compiler.ErrNoTrigger):
				rep.NoTrigger++
				log.Debug("Skipping script without trigger", "object", o.ID, "script", n, "first_block", s.Trigger())
				continue
			case compiler.IsMalformed(err):
				rep.Malformed++
				log.Warn("Skipping malformed script", "object", o.ID, "script", n, "error", err)
				continue
			case err != nil:
				return nil, rep, fmt.Errorf("object %s script %d: %w", o.ID, n, err)
			}
			rep.Compiled++
			b.Scripts = append(b.Scripts, Script{Owner: o.ID, Trigger: cs.Trigger, Program: cs.Program})
		}
	}

	for i := range p.Variables {
		v, err := p.Variables[i].SceneVariable()
		if err != nil {
			return nil, rep, err
		}
		b.Variables = append(b.Variables, v)
	}

	rep.Warnings = len(c.Warnings())
	return b, rep, nil
}

// Install creates the scene and registers every script with sched.
func (b *Bundle) Install(sched *vm.Scheduler) (*scene.Scene, error) {
	s := scene.New()
	for _, o := range b.Objects {
		if _, err := s.AddObject(o); err != nil {
			return nil, err
		}
	}
	for _, v := range b.Variables {
		if _, err := s.AddVariable(v); err != nil {
			return nil, err
		}
	}
	for _, sc := range b.Scripts {
		if _, ok := s.Object(sc.Owner); !ok {
			return nil, fmt.Errorf("script owner %q is not an object", sc.Owner)
		}
		sched.Register(sc.Owner, sc.Trigger, sc.Program)
	}
	return s, nil
}

// Marshal encodes b as canonical CBOR.
func Marshal(b *Bundle) ([]byte, error) {
	return opcode.EncMode().Marshal(b)
}

// Unmarshal decodes a bundle.
func Unmarshal(data []byte) (*Bundle, error) {
	var b Bundle
	if err := cbor.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("bundle: unmarshal: %w", err)
	}
	if b.Version != Version {
		return nil, fmt.Errorf("bundle: unsupported version %d", b.Version)
	}
	return &b, nil
}

// Save writes b to path.
func Save(path string, b *Bundle) error {
	data, err := Marshal(b)
	if err != nil {
		return fmt.Errorf("bundle: marshal: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("bundle: write %s: %w", path, err)
	}
	return nil
}

// Load reads a bundle from path.
func Load(path string) (*Bundle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("bundle: read %s: %w", path, err)
	}
	return Unmarshal(data)
}
