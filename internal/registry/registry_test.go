package registry_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cwbudde/exprforge/internal/emit"
	"github.com/cwbudde/exprforge/internal/registry"
)

func buildChunk(name string) *emit.Chunk {
	c := &emit.Chunk{Name: name}
	c.Code = append(c.Code, emit.Instruction{Op: emit.OpConstInt, A: c.AddConstant(int32(1))}, emit.Instruction{Op: emit.OpReturn})
	return c
}

func TestDefineDedupsStructurallyIdenticalChunks(t *testing.T) {
	reg := registry.New()

	a := buildChunk("expr1")
	b := buildChunk("expr2") // different name, same instruction stream

	entryA := reg.Define("expr1", a)
	entryB := reg.Define("expr2", b)

	assert.Same(t, entryA, entryB)
	assert.Equal(t, 1, reg.Len())
}

func TestDefineIsIdempotent(t *testing.T) {
	reg := registry.New()
	c := buildChunk("expr")
	first := reg.Define("expr", c)
	second := reg.Define("expr", c)
	assert.Same(t, first, second)
}

func TestDefineRecordsEachNameAgainstTheSharedEntry(t *testing.T) {
	reg := registry.New()

	reg.Define("expr1", buildChunk("expr1"))
	reg.Define("expr2", buildChunk("expr2"))

	e1, ok := reg.Lookup("expr1")
	require.True(t, ok)
	e2, ok := reg.Lookup("expr2")
	require.True(t, ok)
	assert.Same(t, e1, e2, "both simple names must resolve to the one surviving entry")
}

func TestLookupMissReportsFalse(t *testing.T) {
	reg := registry.New()
	_, ok := reg.Lookup("nope")
	assert.False(t, ok)
}

func TestDefineDistinguishesUnequalDigests(t *testing.T) {
	reg := registry.New()

	a := buildChunk("a")
	b := &emit.Chunk{Name: "b"}
	b.Code = append(b.Code, emit.Instruction{Op: emit.OpConstInt, A: b.AddConstant(int32(2))}, emit.Instruction{Op: emit.OpReturn})

	entryA := reg.Define("a", a)
	entryB := reg.Define("b", b)

	assert.NotSame(t, entryA, entryB)
	assert.Equal(t, 2, reg.Len())
}
