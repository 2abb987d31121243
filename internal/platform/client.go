package platform

import "context"

// Client is the subset of the platform API the exporter needs.
type Client interface {
	// LookupProject resolves a "group/project" path.
	LookupProject(ctx context.Context, path string) (*Container, error)
	// Get loads a container with its files.
	Get(ctx context.Context, ref Ref) (*Container, error)
	// Children lists the children of parent with the given type, optionally
	// narrowed by filters (all must match).
	Children(ctx context.Context, parent Ref, childType ContainerType, filters ...Filter) ([]Container, error)
	// Create makes a new container and returns it.
	Create(ctx context.Context, spec NewContainer) (*Container, error)
	// Rules lists the gear rules of a project.
	Rules(ctx context.Context, projectID string) ([]Rule, error)
	// Download returns the content of a file.
	Download(ctx context.Context, parent Ref, name string) ([]byte, error)
	// Upload attaches a file to a container.
	Upload(ctx context.Context, parent Ref, upload Upload) error
	// AddTag tags a container; tagging twice is not an error.
	AddTag(ctx context.Context, ref Ref, tag string) error
	// Modality loads a modality's classification schema.
	Modality(ctx context.Context, name string) (*Modality, error)
}
