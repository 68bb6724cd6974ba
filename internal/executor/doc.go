// Package executor interprets pre-compiled federation query plans against a
// set of subgraph data sources, merging their responses into one tree and
// shaping it against the client operation.
//
// # Overview
//
// A query plan is a tree of Sequence, Parallel, Flatten and Fetch nodes
// produced by an offline planner. The executor walks this tree over a single
// mutable response tree shared by every fetch:
//
//   - Sequence runs children left to right over the same cursor; writes by
//     child k are visible to child k+1 before it starts. Child errors do not
//     abort the sequence.
//   - Parallel runs children concurrently over the same cursor. The planner
//     guarantees their writes target disjoint paths; the executor does not
//     serialize them beyond what shared-state safety requires.
//   - Flatten moves the cursor down a plan path before executing its child.
//     A path element "@" flattens across every element of an array. When the
//     path dead-ends in null or absent data the child is skipped entirely,
//     though the trace tree still mirrors it.
//   - Fetch issues one subgraph operation and deep-merges the result back
//     into the tree.
//
// # Entity fetches
//
// A Fetch node with a `requires` selection set goes through the _entities
// protocol. For each entity under the cursor the selection-set walker builds
// a representation object — applying input rewrites along the way — and the
// operation is sent with a `representations` variable. Entities whose
// extraction fails (a selected field was nullified by an earlier fetch, or
// no __typename survived) are dropped silently; the error that nullified
// them was already recorded. The response's _entities array must line up
// one-to-one with the representations sent; each returned entity has output
// rewrites applied (filtered to its representation's __typename) and is
// merged into its source position.
//
// # Merging
//
// Fetch results merge into the tree with a deep merge: mappings combine
// recursively, arrays of equal length combine element-wise, later scalars
// win, and null fills absent keys without overwriting data. The merge is not
// commutative, which is exactly why Sequence ordering matters.
//
// # Errors
//
// Subgraph errors are relayed with extensions.serviceName and a hydrated
// response path: error paths of the form [_entities, i, ...] are translated
// back to the concrete tree path of the i-th representation's source entity,
// reconstructed lazily from the plan path and the live response tree. Fetch
// failures (missing service, malformed entities payload, transport errors)
// are recorded and execution continues. Only Defer and Condition plan nodes
// are fatal: the envelope then carries that single error and no data.
//
// # Post-processing
//
// After interpretation the unfiltered tree is shaped against the client
// operation: aliases resolve, fragments apply by runtime type, @skip and
// @include evaluate, and introspection selections delegate to an injected
// handler. When any fetch error was recorded, shaping errors are suppressed
// (they are usually secondary effects); this policy is configurable on the
// Executor.
//
// # Tracing
//
// When the request opts in, every fetch asks its subgraph for an FTv1 trace
// and the executor assembles a query-plan trace tree with per-fetch send and
// receive timestamps. A trace payload that fails to decode marks the fetch
// node but is never a request error.
package executor
