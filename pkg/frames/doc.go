// Package frames holds the reference-frame hierarchy: a single-rooted tree of
// named frames, each with a transform relative to its parent and a cached
// world transform derived from its ancestors.
//
// Frames live in an arena keyed by FrameID. Parent and child links are ids,
// and every structural change goes through the Hierarchy so the tree stays
// acyclic with exactly one root. World transforms are recomputed for the whole
// affected subtree on every edit; there is no dirty tracking.
package frames
