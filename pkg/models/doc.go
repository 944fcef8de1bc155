// Package models defines the flat, storage-facing records of an outline: pages and the
// blocks that belong to them.
//
// Blocks never store an explicit child list or an order index. Each [Block] only knows
// its parent and its next sibling, and the in-memory tree is reconstructed from those
// two pointers by [github.com/surrealdb/surrealoutline/pkg/outline.Build].
//
// # Identifiers
//
// [BlockID] and [PageID] are plain integers assigned by the store. The value
// [RootBlockID] (zero) is reserved for the synthetic page root and is never the id of a
// stored block. A nil [Block.ParentID] means the block is a top-level block, i.e. a
// child of the synthetic root.
//
// # Patches and change sets
//
// The storage contract has optional arguments where "not given" and "set to null" mean
// different things. [Field] expresses that distinction, and [BlockPatch] and
// [PagePatch] are built from it. A [ChangeSet] groups every patch produced by one save
// of one page so that a store can apply it in a single transaction.
//
// The same structs are used with gorm (column tags), encoding/json and
// github.com/fxamacker/cbor/v2 (snapshot files).
package models
