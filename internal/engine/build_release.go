//go:build !scalperdebug

package engine

const debugBuild = false
