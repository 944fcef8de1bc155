// Package outline reconstructs, mutates and flattens the block tree of one page.
//
// Stored blocks only carry a parent pointer and a next-sibling pointer. [Build] turns
// such rows into a [Tree], [Tree] offers ordered structural mutations, and [Diff]
// turns a tree back into the row updates a store needs to persist it.
//
//	rows --Build--> *Tree --mutations--> *Tree --Diff--> models.ChangeSet
//
// # Invariants
//
// A valid set of rows, and every tree, satisfies:
//   - each block has at most one parent;
//   - the children of a parent are exactly the chain reached by following next-sibling
//     pointers from the single child no sibling points at (the head);
//   - sibling chains have no cycles and visit every child once;
//   - no block is its own ancestor;
//   - every parent and next-sibling reference names a block of the same page, or is
//     null.
//
// Build rejects rows that break them with an [*IntegrityError]. Tree mutations reject
// calls that would break them with a [*MutationError] and leave the tree unchanged.
//
// # Storage model
//
// All nodes live in one table keyed by [models.BlockID]; children are stored as ordered
// id lists. The synthetic page root uses [models.RootBlockID] and is never returned as
// a block. Nothing in this package blocks or performs I/O, and separate trees share no
// state, so trees of different pages can be built and mutated in parallel.
package outline
