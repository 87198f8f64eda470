// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// Package paramtree holds the hierarchical experiment parameters of a
// simulation definition: named conditions, each grouping named ports, each
// port holding a cty.Value that is either a scalar (bool, number, string), a
// sequence (list or tuple) or a mapping (map or object).
//
// A Tree is owned by exactly one worker. Values are immutable, so cloning and
// snapshotting only copy the maps that hold them, and a leaf update rebuilds
// the port value along the path to the leaf.
//
// Leaves are addressed by dotted paths of the form
//
//	condition.port[.index|.key]*
//
// where a segment descending into a sequence is a non-negative integer index
// and a segment descending into a mapping is a key.
package paramtree
