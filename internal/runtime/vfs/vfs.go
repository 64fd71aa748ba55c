// Package vfs provides the file-watching primitive cmd/heapscript's --watch
// flag runs on: a single fsnotify-backed Watcher. It once also carried a
// FileSystem abstraction (in-memory and OS implementations, a polling
// watcher) for a compiler frontend that read guest-language source from
// either; that frontend is out of this module's scope, and neither
// implementation had any other caller, so both were dropped along with it.
package vfs

import (
    "time"
)

// WatchOp indicates a change operation in the filesystem.
type WatchOp uint32

const (
    OpCreate WatchOp = 1 << iota
    OpWrite
    OpRemove
    OpRename
    OpChmod
)

// Event describes a filesystem change event.
type Event struct {
    Path string
    Op   WatchOp
    Time time.Time
}

// Watcher provides a platform-independent file watching API.
type Watcher interface {
    Events() <-chan Event
    Errors() <-chan error
    Add(name string) error
    Remove(name string) error
    Close() error
}


