// Package rpc dispatches remote invocations of named device operations.
package rpc

import (
	"fmt"
	"sort"

	"github.com/golang/glog"

	"github.com/brickrail/trainhub/pkg/l0/comm"
)

// Args are the raw argument bytes of an invocation. The interpretation
// is a convention of each operation.
type Args []byte

// Byte returns the single argument byte, or 0 if absent.
func (a Args) Byte() byte {
	if len(a) == 0 {
		return 0
	}
	return a[0]
}

// Func implements an operation.
type Func func(Args) error

// Op is a named operation exposed to the host.
type Op struct {
	Name string
	Func Func
}

// Hash returns the capability hash of the operation.
func (o Op) Hash() [2]byte {
	return comm.CapabilityHash(o.Name)
}

// DuplicateHashError indicates two operations share a capability hash.
type DuplicateHashError struct {
	Hash  [2]byte
	Names [2]string
}

// Error implements error.
func (e *DuplicateHashError) Error() string {
	return fmt.Sprintf("capability hash %02x%02x of %q collides with %q",
		e.Hash[0], e.Hash[1], e.Names[1], e.Names[0])
}

// Registry maps capability hashes to operations.
type Registry struct {
	ops map[[2]byte]Op
}

// NewRegistry creates a Registry. Operation names must hash uniquely.
func NewRegistry(ops ...Op) (*Registry, error) {
	r := &Registry{ops: make(map[[2]byte]Op)}
	for _, op := range ops {
		hash := op.Hash()
		if existing, ok := r.ops[hash]; ok {
			return nil, &DuplicateHashError{Hash: hash, Names: [2]string{existing.Name, op.Name}}
		}
		r.ops[hash] = op
	}
	return r, nil
}

// MustNewRegistry is NewRegistry but panics on error.
func MustNewRegistry(ops ...Op) *Registry {
	r, err := NewRegistry(ops...)
	if err != nil {
		panic(err)
	}
	return r
}

// Names lists registered operation names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.ops))
	for _, op := range r.ops {
		names = append(names, op.Name)
	}
	sort.Strings(names)
	return names
}

// Lookup finds an operation by hash.
func (r *Registry) Lookup(hash [2]byte) (Op, bool) {
	op, ok := r.ops[hash]
	return op, ok
}

// Dispatch invokes the operation selected by hash. Failures of the
// operation itself are logged and not returned, as no result is
// reported to the caller. An unknown hash is a protocol violation.
func (r *Registry) Dispatch(hash [2]byte, args []byte) error {
	op, ok := r.ops[hash]
	if !ok {
		return &comm.ProtocolError{
			Type:   comm.TypeRPC,
			Reason: fmt.Sprintf("unknown capability %02x%02x", hash[0], hash[1]),
		}
	}
	if len(args) == 0 {
		args = nil
	}
	glog.V(2).Infof("rpc %s(% x)", op.Name, args)
	if err := op.Func(Args(args)); err != nil {
		glog.Errorf("rpc %s: %v", op.Name, err)
	}
	return nil
}
