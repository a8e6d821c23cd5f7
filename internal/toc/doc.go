// Package toc builds and renders a two-level table of contents.
//
// Build is a pure function from an ordered heading list to a Tree: every
// call starts a fresh primary counter at zero, so no state survives between
// regenerations. Render turns a Tree into deterministic HTML: an <ol> whose
// primary items ("N <a>content</a>") are each followed by a <ul> keyed
// prefix+N that holds the secondary items attached to that primary heading.
//
// Identical input always yields byte-identical output.
package toc
