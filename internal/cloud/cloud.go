package cloud

import "context"

// Provider manages the pool of transcode worker machines the autoscaler
// grows and shrinks with queue depth.
type Provider interface {
	Count(ctx context.Context) (int, error)
	Instances(ctx context.Context) ([]*Instance, error)
	AddInstance(ctx context.Context, namePrefix string, machineType string, preemptible bool) (string, error)
	DeleteInstance(ctx context.Context, instance string) error
	DeleteAll(ctx context.Context) error
}

type Instance struct {
	Name   string
	Status string
}
