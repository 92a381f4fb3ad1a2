// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package hessian

// The per-pass tables. Each Encoder and Decoder owns one instance of
// each; nothing here is shared between passes or instances.

// encodeRefs is the encoder's reference table. Entries are never
// stored, only counted: the encoder needs the identity map to detect a
// composite it has already written, and the count to assign the next
// index. Composites written through the streaming API have no Go
// identity but still occupy a slot, because the decoder will register
// them.
type encodeRefs struct {
	index map[Value]int
	count int
}

// lookup returns the index previously assigned to composite.
func (r *encodeRefs) lookup(composite Value) (int, bool) {
	index, ok := r.index[composite]
	return index, ok
}

// add assigns composite the next index.
func (r *encodeRefs) add(composite Value) int {
	if r.index == nil {
		r.index = make(map[Value]int)
	}
	index := r.count
	r.index[composite] = index
	r.count++
	return index
}

// reserve assigns the next index to a composite that has no Go
// identity.
func (r *encodeRefs) reserve() int {
	index := r.count
	r.count++
	return index
}

func (r *encodeRefs) reset() {
	clear(r.index)
	r.count = 0
}

// decodeRefs is the decoder's reference table. A composite is added as
// soon as its start boundary is read and filled in place afterwards, so
// a reference read while the composite is still being decoded resolves
// to the same pointer the caller eventually receives.
type decodeRefs struct {
	entries []Value
}

func (r *decodeRefs) add(composite Value) int {
	r.entries = append(r.entries, composite)
	return len(r.entries) - 1
}

func (r *decodeRefs) get(index int) (Value, bool) {
	if index < 0 || index >= len(r.entries) {
		return nil, false
	}
	return r.entries[index], true
}

func (r *decodeRefs) reset() {
	r.truncate(0)
}

// truncate drops the entries from n on.
func (r *decodeRefs) truncate(n int) {
	clear(r.entries[n:])
	r.entries = r.entries[:n]
}

// classRegistry is the encoder's class registry, keyed by signature so
// that equal definitions held in different pointers share one index.
type classRegistry struct {
	index map[string]int
}

// register returns the index for def, assigning the next one when def
// is new in this pass. isNew tells the caller to emit the definition
// record.
func (r *classRegistry) register(def *ClassDef) (index int, isNew bool) {
	signature := def.signature()
	if index, ok := r.index[signature]; ok {
		return index, false
	}
	if r.index == nil {
		r.index = make(map[string]int)
	}
	index = len(r.index)
	r.index[signature] = index
	return index, true
}

func (r *classRegistry) reset() {
	clear(r.index)
}

// classTable is the decoder's class registry.
type classTable struct {
	defs []*ClassDef
}

func (t *classTable) add(def *ClassDef) int {
	t.defs = append(t.defs, def)
	return len(t.defs) - 1
}

func (t *classTable) get(index int) (*ClassDef, bool) {
	if index < 0 || index >= len(t.defs) {
		return nil, false
	}
	return t.defs[index], true
}

func (t *classTable) reset() {
	t.truncate(0)
}

func (t *classTable) truncate(n int) {
	clear(t.defs[n:])
	t.defs = t.defs[:n]
}

// typeRegistry is the encoder's table of list and map type names.
type typeRegistry struct {
	index map[string]int
}

func (r *typeRegistry) register(name string) (index int, isNew bool) {
	if index, ok := r.index[name]; ok {
		return index, false
	}
	if r.index == nil {
		r.index = make(map[string]int)
	}
	index = len(r.index)
	r.index[name] = index
	return index, true
}

func (r *typeRegistry) reset() {
	clear(r.index)
}

// typeTable is the decoder's table of type names.
type typeTable struct {
	names []string
}

func (t *typeTable) add(name string) {
	t.names = append(t.names, name)
}

func (t *typeTable) get(index int) (string, bool) {
	if index < 0 || index >= len(t.names) {
		return "", false
	}
	return t.names[index], true
}

func (t *typeTable) reset() {
	t.truncate(0)
}

func (t *typeTable) truncate(n int) {
	t.names = t.names[:n]
}
