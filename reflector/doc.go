// Package reflector maintains a locally cached mirror of a remote,
// versioned, watchable collection and publishes every cache mutation to an
// append-only event chain. Any number of observers can drain the chain
// independently; each one sees a snapshot-consistent startup burst followed
// by a gap-free, totally ordered live tail, regardless of when it attaches.
//
// The Reflector is fed by a ListerWatcher: a full listing reestablishes a
// consistent baseline, and an incremental watch stream keeps the mirror
// current between listings. Expired watch versions trigger a clean full
// resync; everything else that goes wrong upstream is fatal to the
// Reflector instance as a whole.
package reflector
