// Package main is the command-line entry point for the virtual filesystem.
//
// vfsctl opens a bbolt-backed store and exposes the filesystem operations
// as subcommands (ls, cat, write, mkdir, rm, stat, export, import).
//
// Configuration:
//   - Environment variables (VFS_*), see internal/infrastructure/config
//   - The -db flag overrides the database path
//
// Usage:
//
//	vfsctl write /VirtualData/notes.txt "hello"
//	vfsctl ls /VirtualData
//	vfsctl export backup.json
package main
