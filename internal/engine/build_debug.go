//go:build scalperdebug

package engine

// debugBuild makes corrupt state transitions fatal.
const debugBuild = true
