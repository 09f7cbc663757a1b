// Package registry implements the class registry: a process-wide,
// concurrency-safe cache of compiled evaluators keyed by a content digest
// of their bytecode, so two structurally identical expressions compiled
// from different request strings still share one loaded Chunk instead of
// growing the registry without bound.
package registry

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spaolacci/murmur3"

	"github.com/cwbudde/exprforge/internal/emit"
	"github.com/cwbudde/exprforge/internal/fallback"
	"github.com/cwbudde/exprforge/internal/ir"
)

// Digest computes the normalized content hash of chunk: a Murmur3-128 hash
// of chunk's per-instruction textual rendering, skipping anything that
// varies with how the expression's source text happened to be formatted
// (line numbers, debug names) so two chunks that differ only in those
// respects still collide onto the same digest.
func Digest(chunk *emit.Chunk) (string, string) {
	normalized := normalize(chunk)
	return sum(normalized), normalized
}

// normalize renders chunk's instruction stream the same way regardless of
// constant-pool or member-table ordering artifacts introduced by
// unrelated emitter changes, using only what affects runtime behavior:
// opcode, operand role, and the operand's resolved value text.
func normalize(chunk *emit.Chunk) string {
	var b strings.Builder
	for _, instr := range chunk.Code {
		b.WriteString(instr.Op.String())
		b.WriteByte(' ')
		b.WriteString(operandText(chunk, instr))
		b.WriteByte('\n')
	}
	return b.String()
}

func operandText(chunk *emit.Chunk, instr emit.Instruction) string {
	switch instr.Op {
	case emit.OpConstInt, emit.OpConstLong, emit.OpConstFloat, emit.OpConstDouble, emit.OpConstString:
		if int(instr.A) < len(chunk.Constants) {
			return fmt.Sprintf("%v", chunk.Constants[instr.A])
		}
	case emit.OpGetField, emit.OpInvoke, emit.OpInvokeStatic:
		if int(instr.A) < len(chunk.Members) {
			m := chunk.Members[instr.A]
			return m.Owner + "." + m.Name + "/" + strconv.Itoa(m.Arity)
		}
	case emit.OpNew:
		if int(instr.B) < len(chunk.Members) {
			m := chunk.Members[instr.B]
			return m.Owner + "." + m.Name + "/" + strconv.Itoa(m.Arity)
		}
	case emit.OpBox, emit.OpUnbox:
		if int(instr.A) < len(chunk.Constants) {
			return fmt.Sprintf("%v", chunk.Constants[instr.A])
		}
	case emit.OpLoadLocal, emit.OpStoreLocal:
		return "slot" + strconv.Itoa(int(instr.A))
	case emit.OpJump, emit.OpJumpIfFalse, emit.OpJumpIfTrue:
		return strconv.Itoa(int(instr.A))
	}
	return ""
}

// FallbackDigest computes the normalized content digest of a single
// fallback-compiled expression, the Expr-path counterpart of Digest: render
// e to its canonical Go-source form (the diagnostic function name never
// affects semantics, so a fixed placeholder is used instead of the
// request's own name) and Murmur3-128 hash the result. Two fallback
// expressions with identical EIR shape collide onto the same digest
// regardless of their original source text, exactly like two structurally
// identical Chunks do.
func FallbackDigest(e ir.Expr) (string, string) {
	normalized, err := fallback.RenderGoSource(e, "expr")
	if err != nil {
		// A render failure is diagnostic-only and rare (see render.go); the
		// expression still registers, just without cross-request dedup,
		// since there is no renderable text to key on.
		normalized = fmt.Sprintf("%T@%p", e, e)
	}
	return sum(normalized), normalized
}

// FallbackBlockDigest is FallbackDigest for a BLOCK-content request.
func FallbackBlockDigest(b *ir.Block) (string, string) {
	normalized, err := fallback.RenderGoBlockSource(b, "block")
	if err != nil {
		normalized = fmt.Sprintf("%T@%p", b, b)
	}
	return sum(normalized), normalized
}

func sum(normalized string) string {
	h1, h2 := murmur3.Sum128([]byte(normalized))
	return fmt.Sprintf("%016x%016x", h1, h2)
}
