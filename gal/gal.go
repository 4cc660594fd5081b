// Package gal is the embedder-facing surface over the lexer, parser,
// compile, and vm packages (spec §6.3): compile source or load a chunk,
// run it, manage coroutines, and drive the collector.
package gal

import (
	"github.com/galang-lang/gal/code"
	"github.com/galang-lang/gal/compile"
	"github.com/galang-lang/gal/internal/gallog"
	"github.com/galang-lang/gal/internal/galsign"
	"github.com/galang-lang/gal/object"
	"github.com/galang-lang/gal/parser"
	"github.com/galang-lang/gal/value"
	"github.com/galang-lang/gal/vm"
)

// VM wraps a vm.VM with the compile-from-source convenience methods an
// embedder normally wants (spec §6.3's new_vm/destroy_vm/load/call).
type VM struct {
	*vm.VM
	opts Options
	log  *gallog.Helper
}

// New builds a VM configured by opts, with the standard library builtins
// already registered unless the WithoutStdlib option is given.
func New(opts ...Option) *VM {
	cfg := defaultOptions()
	for _, o := range opts {
		o(&cfg)
	}
	v := &VM{VM: vm.New(), opts: cfg, log: gallog.NewHelper(cfg.logger)}
	if !cfg.noStdlib {
		v.RegisterStdlib()
	}
	v.OnPanic = func(err error) {
		v.log.Errorf("runtime panic recovered: %v", err)
		if cfg.onPanic != nil {
			cfg.onPanic(err)
		}
	}
	return v
}

// CompileResult bundles a compiled chunk with any diagnostics collected
// during parsing (spec §7).
type CompileResult struct {
	Chunk       *code.Chunk
	Diagnostics []parser.Diagnostic
}

// Compile parses and compiles src, without loading it into any VM.
func Compile(src, sourceName string) (*CompileResult, error) {
	r, err := compile.Compile(src, sourceName)
	if err != nil {
		return nil, err
	}
	return &CompileResult{Chunk: r.Chunk, Diagnostics: r.Diagnostics}, nil
}

// LoadString compiles src and installs it into the VM, returning the
// callable main-chunk closure.
func (v *VM) LoadString(src, sourceName string) (value.Value, []parser.Diagnostic, error) {
	r, err := compile.Compile(src, sourceName)
	if err != nil {
		v.log.Errorf("compile %s: %v", sourceName, err)
		return value.Null, nil, err
	}
	for _, d := range r.Diagnostics {
		v.log.Warnf("%s:%s: %s", sourceName, d.Location.Begin, d.Message)
	}
	mainProto, err := v.Load(r.Chunk)
	if err != nil {
		v.log.Errorf("load %s: %v", sourceName, err)
		return value.Null, r.Diagnostics, err
	}
	v.log.Debugf("loaded %s", sourceName)
	return mainProto, r.Diagnostics, nil
}

// LoadBytecode deserializes a previously compiled chunk (optionally
// signature-checked per Options) and installs it (spec §6.1, §6.4's
// "signed chunk" loading path).
func (v *VM) LoadBytecode(buf []byte) (value.Value, error) {
	chunk, err := code.Deserialize(buf, v.opts.verifier)
	if err != nil {
		return value.Null, err
	}
	return v.Load(chunk)
}

// Dump serializes a compiled chunk, optionally signing it if a signer was
// configured via Options (spec §6.1's dump/§7 "signed chunk").
func (v *VM) Dump(chunk *code.Chunk) ([]byte, error) {
	if v.opts.signer == nil {
		return code.Serialize(chunk), nil
	}
	unsigned := code.Serialize(&code.Chunk{
		Version:       chunk.Version,
		Strings:       chunk.Strings,
		Prototypes:    chunk.Prototypes,
		MainPrototype: chunk.MainPrototype,
	})
	sig, err := galsign.Sign(unsigned, v.opts.signer.cert, v.opts.signer.key)
	if err != nil {
		return nil, err
	}
	chunk.Signature = sig
	return code.Serialize(chunk), nil
}

// Run compiles and immediately calls src's main chunk with args (a thin
// convenience composing LoadString and Call, for the CLI and quick
// embedding use).
func (v *VM) Run(src, sourceName string, args []value.Value) ([]value.Value, []parser.Diagnostic, error) {
	main, diags, err := v.LoadString(src, sourceName)
	if err != nil {
		return nil, diags, err
	}
	results, err := v.Call(main, args)
	return results, diags, err
}

// GCStep advances the collector incrementally (spec §6.3's gc_step).
func (v *VM) GCStep(limit int) int {
	done := v.GC.Step(limit)
	v.log.Debugf("gc step: processed %d", done)
	return done
}

// GCFull runs the collector to completion (spec §6.3's gc_full).
func (v *VM) GCFull() {
	v.log.Debugf("gc full sweep starting")
	v.GC.FullGC()
}

// NewTable exposes table construction for host code building arguments or
// return values.
func (v *VM) NewTable() (*object.Table, value.Value) {
	tbl, tv := object.NewTable(v.Heap, v.GC.CurrentWhite())
	v.GC.Track(tbl)
	return tbl, tv
}
