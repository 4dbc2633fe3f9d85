package reflector

import (
	"fmt"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
)

// Object is the identity contract an item must satisfy to be
// cache-admissible: a name, an optional namespace, a uid, and an opaque
// resourceVersion token assigned by the remote source. All typed Kubernetes
// objects and unstructured.Unstructured satisfy it.
type Object interface {
	runtime.Object
	metav1.Object
}

// EventType discriminates the members of the Event union.
type EventType string

const (
	// Added marks an item inserted into the cache.
	Added EventType = "ADDED"
	// Modified marks an item replaced in the cache; the event carries the
	// previous value for diffing by consumers.
	Modified EventType = "MODIFIED"
	// Deleted marks an item removed from the cache.
	Deleted EventType = "DELETED"
	// Bookmark advances the resource version with no content change.
	Bookmark EventType = "BOOKMARK"
	// Error carries a failure reported by the remote watch stream. It is
	// terminal for every observer that sees it.
	Error EventType = "ERROR"
	// Synced marks the cache as a complete snapshot consistent as of the
	// event's resource version.
	Synced EventType = "SYNCED"
	// Desynced marks the cache as no longer trustworthy as a point-in-time
	// snapshot; a full resync is in progress.
	Desynced EventType = "DESYNCED"
)

// Event is one entry in the Reflector's change history. Which fields are
// populated depends on Type:
//
//   - Added, Deleted: Object
//   - Modified: Object and Previous
//   - Bookmark, Synced: ResourceVersion
//   - Error: Status
//   - Desynced: nothing
type Event[T Object] struct {
	Type            EventType
	Object          T
	Previous        T
	ResourceVersion string
	Status          *metav1.Status
}

// objectKey builds the cache key for an item. Namespace is empty for
// cluster-scoped items, so cluster-scoped keys look like "/name".
func objectKey(namespace, name string) string {
	return namespace + "/" + name
}

// checkIdentity rejects items that do not carry the full identity contract.
// A violation means the remote source or the ListerWatcher adapter is
// broken; it is fatal to the run loop, never a recoverable condition.
func checkIdentity[T Object](obj T) error {
	switch {
	case obj.GetName() == "":
		return &IntegrityError{Reason: "item has no name"}
	case obj.GetUID() == "":
		return &IntegrityError{Reason: fmt.Sprintf("item %q has no uid", objectKey(obj.GetNamespace(), obj.GetName()))}
	case obj.GetResourceVersion() == "":
		return &IntegrityError{Reason: fmt.Sprintf("item %q has no resourceVersion", objectKey(obj.GetNamespace(), obj.GetName()))}
	}
	return nil
}
