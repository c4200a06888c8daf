// Package ui implements an interactive terminal interface using bubbletea's Elm architecture.
//
// The TUI provides a two-view browser over recorded playlist hits:
//  1. [HitListView] : Scroll through every stored hit, newest release first
//  2. [HitDetailView] : Inspect a single hit's week, release, and placements
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern.
// Hits are loaded asynchronously from the repository on startup and on refresh.
//
// Keyboard navigation uses vim-style bindings (j/k, enter, esc, r, q) with contextual help displayed via charmbracelet/bubbles/help.
package ui
