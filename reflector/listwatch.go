package reflector

import (
	"context"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/watch"
)

// ListResult is one page of a full listing. ResourceVersion is the
// server-consistent snapshot version of the listing; Continue is non-empty
// when further pages remain.
type ListResult[T Object] struct {
	ResourceVersion string
	Continue        string
	Items           []T
}

// ListerWatcher is the capability the surrounding transport layer supplies
// to a Reflector. List must return items reflecting a server-consistent
// snapshot; Watch must deliver events for changes strictly after
// opts.ResourceVersion, and must surface an Error event with reason
// Expired when that version is no longer retained upstream.
type ListerWatcher[T Object] interface {
	List(ctx context.Context, opts metav1.ListOptions) (ListResult[T], error)
	Watch(ctx context.Context, opts metav1.ListOptions) (watch.Interface, error)
}

// ListWatch adapts a pair of functions into a ListerWatcher.
type ListWatch[T Object] struct {
	ListFunc  func(ctx context.Context, opts metav1.ListOptions) (ListResult[T], error)
	WatchFunc func(ctx context.Context, opts metav1.ListOptions) (watch.Interface, error)
}

var _ ListerWatcher[Object] = (*ListWatch[Object])(nil)

// List delegates to ListFunc.
func (lw *ListWatch[T]) List(ctx context.Context, opts metav1.ListOptions) (ListResult[T], error) {
	return lw.ListFunc(ctx, opts)
}

// Watch delegates to WatchFunc.
func (lw *ListWatch[T]) Watch(ctx context.Context, opts metav1.ListOptions) (watch.Interface, error) {
	return lw.WatchFunc(ctx, opts)
}
