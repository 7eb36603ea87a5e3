//go:build !debug

package matrix

const debugChecks = false
