// Package bytecode defines the annotated bytecode that the Quill compiler
// front-end emits and the optimizer rewrites. Annotated bytecode is a linear
// stream of items - instructions with typed arguments, jump-target labels,
// and local-variable debug markers - carrying source locations and optional
// stack-effect hints. It is the working representation between code emission
// and final packing.
//
// The stream format is designed for:
//   - Cheap structural rewriting (items are discrete values, not packed bytes)
//   - Symbolic control flow (jumps name labels, never byte offsets)
//   - Easy serialization (procedures round-trip through CBOR for storage
//     and cross-process transport)
//
// # Components
//
//   - Opcodes: ~140 stack-based instructions covering constants, arithmetic,
//     control flow, enumerators, calls, and the fused superinstructions the
//     peephole rewriter produces
//
//   - Metadata: a static, total table giving each opcode its block-splitting
//     classification, stack effect, and argument schema. Both optimizer
//     subsystems consult it; looking up an unknown opcode panics
//
//   - Items: the Instruction/Label/LocalVariable variant, each carrying a
//     source Location that transformations preserve
//
//   - Wire: CBOR encoding of whole procedures, used by the optimized-
//     bytecode cache and the quillopt CLI
//
// Byte offsets do not exist at this level. The downstream packer assigns
// them after optimization, which keeps every rewrite here a pure list splice.
package bytecode
