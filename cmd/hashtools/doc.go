// Package main hosts the hashtools CLI entrypoint and command graph.
//
// The Cobra command tree covers fingerprinting a directory tree (generate),
// file-based selection over record streams (meta ...), the inventory store
// (db ...), and configuration scaffolding. Configuration and the logger are
// resolved once per invocation by commandContext; record streams and
// listings go to stdout while logs and progress go to stderr.
package main
