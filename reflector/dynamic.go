package reflector

import (
	"context"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/apimachinery/pkg/watch"
	"k8s.io/client-go/dynamic"
)

// TweakListOptionsFunc lets callers adjust the ListOptions sent by a
// dynamic ListerWatcher, e.g. to add label or field selectors.
type TweakListOptionsFunc func(opts *metav1.ListOptions)

// dynamicListWatch implements ListerWatcher over the dynamic client for a
// single group/version/resource, optionally scoped to a namespace.
type dynamicListWatch struct {
	client    dynamic.Interface
	gvr       schema.GroupVersionResource
	namespace string
	tweak     TweakListOptionsFunc
}

// NewDynamicListWatch returns a ListerWatcher backed by the dynamic
// Kubernetes API for the given resource. An empty namespace lists and
// watches across all namespaces (or a cluster-scoped resource).
func NewDynamicListWatch(
	client dynamic.Interface,
	gvr schema.GroupVersionResource,
	namespace string,
	tweak TweakListOptionsFunc,
) ListerWatcher[*unstructured.Unstructured] {
	return &dynamicListWatch{
		client:    client,
		gvr:       gvr,
		namespace: namespace,
		tweak:     tweak,
	}
}

var _ ListerWatcher[*unstructured.Unstructured] = (*dynamicListWatch)(nil)

// List returns one page of resources, carrying through the list's
// resourceVersion and continue token.
func (d *dynamicListWatch) List(ctx context.Context, opts metav1.ListOptions) (ListResult[*unstructured.Unstructured], error) {
	if d.tweak != nil {
		d.tweak(&opts)
	}

	list, err := d.client.Resource(d.gvr).Namespace(d.namespace).List(ctx, opts)
	if err != nil {
		return ListResult[*unstructured.Unstructured]{}, err
	}

	items := make([]*unstructured.Unstructured, 0, len(list.Items))
	for i := range list.Items {
		items = append(items, &list.Items[i])
	}

	return ListResult[*unstructured.Unstructured]{
		ResourceVersion: list.GetResourceVersion(),
		Continue:        list.GetContinue(),
		Items:           items,
	}, nil
}

// Watch opens a watch stream for changes after opts.ResourceVersion.
func (d *dynamicListWatch) Watch(ctx context.Context, opts metav1.ListOptions) (watch.Interface, error) {
	if d.tweak != nil {
		d.tweak(&opts)
	}
	return d.client.Resource(d.gvr).Namespace(d.namespace).Watch(ctx, opts)
}
