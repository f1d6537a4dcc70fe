// Package optimizer rewrites annotated bytecode between emission and
// packing. It has two subsystems that compose sequentially over one
// procedure's stream:
//
//   - Peephole: scans the linear stream with windows of descending width,
//     fusing matched instruction sequences into denser superinstructions.
//     Runs to fixpoint; every rewrite preserves stack effect and observable
//     semantics.
//
//   - Convert: reconstructs a basic-block graph from the rewritten stream,
//     resolves label aliases, prunes empty and unreachable blocks, forwards
//     trivial jump chains, and drops unreferenced labels, iterating to
//     fixpoint.
//
// Both consult the opcode metadata table in pkg/bytecode for block-splitting
// classification and argument schemas.
//
// The optimizer holds no shared mutable state: each call owns its inputs and
// outputs, so a host compiler can run procedures through it concurrently.
// Malformed input (duplicate labels, jumps to labels that do not exist)
// aborts the procedure with an error; the emitter decides whether to fall
// back to the unoptimized stream.
package optimizer
