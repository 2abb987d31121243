// Package platformtest provides an in-memory platform.Client for tests.
package platformtest

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"sync"

	"session-export/internal/platform"
)

// Platform is an in-memory hierarchy. The zero value is not usable; call
// New.
type Platform struct {
	mu         sync.Mutex
	containers map[string]*platform.Container
	content    map[string][]byte
	rules      map[string][]platform.Rule
	modalities map[string]*platform.Modality
	nextID     int

	// Calls counts Client method invocations by name.
	Calls map[string]int
	// FailUpload makes Upload fail for the named files with the given error.
	FailUpload map[string]error
	// FailAll, when set, is returned by every call.
	FailAll error
}

var _ platform.Client = (*Platform)(nil)

// New returns an empty platform.
func New() *Platform {
	return &Platform{
		containers: map[string]*platform.Container{},
		content:    map[string][]byte{},
		rules:      map[string][]platform.Rule{},
		modalities: map[string]*platform.Modality{},
		Calls:      map[string]int{},
		FailUpload: map[string]error{},
	}
}

// AddContainer stores c (its ID must be set) and returns it.
func (p *Platform) AddContainer(c platform.Container) *platform.Container {
	p.mu.Lock()
	defer p.mu.Unlock()

	stored := c
	p.containers[c.ID] = &stored

	return &stored
}

// AddFile attaches a file with content to the container id.
func (p *Platform) AddFile(containerID string, f platform.File, content []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()

	c := p.containers[containerID]
	if f.ID == "" {
		p.nextID++
		f.ID = fmt.Sprintf("file-%d", p.nextID)
	}

	c.Files = append(c.Files, f)
	p.content[containerID+"/"+f.Name] = slices.Clone(content)
}

// SetRules sets the gear rules of a project.
func (p *Platform) SetRules(projectID string, rules ...platform.Rule) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.rules[projectID] = rules
}

// SetModality registers a modality schema.
func (p *Platform) SetModality(m platform.Modality) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.modalities[m.ID] = &m
}

// Container returns a copy of the stored container.
func (p *Platform) Container(id string) (platform.Container, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	c, ok := p.containers[id]
	if !ok {
		return platform.Container{}, false
	}

	return clone(c), true
}

// Content returns the stored bytes of a file.
func (p *Platform) Content(containerID, name string) ([]byte, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	data, ok := p.content[containerID+"/"+name]

	return data, ok
}

// ChildrenOf lists stored children of parentID with the given type.
func (p *Platform) ChildrenOf(parentID string, childType platform.ContainerType) []platform.Container {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.childrenLocked(parentID, childType)
}

func (p *Platform) childrenLocked(parentID string, childType platform.ContainerType) []platform.Container {
	var out []platform.Container

	for _, id := range p.sortedIDs() {
		c := p.containers[id]
		if c.Type == childType && parentOf(c) == parentID {
			out = append(out, clone(c))
		}
	}

	return out
}

func (p *Platform) sortedIDs() []string {
	ids := make([]string, 0, len(p.containers))
	for id := range p.containers {
		ids = append(ids, id)
	}

	slices.Sort(ids)

	return ids
}

func (p *Platform) call(name string) error {
	p.Calls[name]++
	return p.FailAll
}

// LookupProject resolves "group/project" by group ID and project label.
func (p *Platform) LookupProject(_ context.Context, path string) (*platform.Container, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.call("LookupProject"); err != nil {
		return nil, err
	}

	group, label, _ := strings.Cut(path, "/")
	for _, id := range p.sortedIDs() {
		c := p.containers[id]
		if c.Type == platform.Project && c.Parents.Group == group && c.Label == label {
			out := clone(c)
			return &out, nil
		}
	}

	return nil, fmt.Errorf("project %s: %w", path, platform.ErrNotFound)
}

// Get returns a stored container.
func (p *Platform) Get(_ context.Context, ref platform.Ref) (*platform.Container, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.call("Get"); err != nil {
		return nil, err
	}

	c, ok := p.containers[ref.ID]
	if !ok || c.Type != ref.Type {
		return nil, fmt.Errorf("%s: %w", ref, platform.ErrNotFound)
	}

	out := clone(c)

	return &out, nil
}

// Children lists children matching every filter.
func (p *Platform) Children(
	_ context.Context,
	parent platform.Ref,
	childType platform.ContainerType,
	filters ...platform.Filter,
) ([]platform.Container, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.call("Children"); err != nil {
		return nil, err
	}

	var out []platform.Container

	for _, c := range p.childrenLocked(parent.ID, childType) {
		if platform.Matches(&c, filters...) {
			out = append(out, c)
		}
	}

	return out, nil
}

// Create stores a new container built from the JSON-shaped fields.
func (p *Platform) Create(_ context.Context, spec platform.NewContainer) (*platform.Container, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.call("Create"); err != nil {
		return nil, err
	}

	parent, ok := p.containers[spec.Parent.ID]
	if !ok {
		return nil, fmt.Errorf("parent %s: %w", spec.Parent, platform.ErrNotFound)
	}

	var c platform.Container

	data, err := json.Marshal(spec.Fields)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(data, &c); err != nil {
		return nil, err
	}

	p.nextID++
	c.ID = fmt.Sprintf("%s-%d", spec.Type, p.nextID)
	c.Type = spec.Type
	c.Files = nil
	c.Parents = parent.Parents

	switch parent.Type {
	case platform.Project:
		c.Parents.Project = parent.ID
	case platform.Subject:
		c.Parents.Subject = parent.ID
	case platform.Session:
		c.Parents.Session = parent.ID
	}

	p.containers[c.ID] = &c
	out := clone(&c)

	return &out, nil
}

// Rules returns the rules set with SetRules.
func (p *Platform) Rules(_ context.Context, projectID string) ([]platform.Rule, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.call("Rules"); err != nil {
		return nil, err
	}

	return slices.Clone(p.rules[projectID]), nil
}

// Download returns stored file content.
func (p *Platform) Download(_ context.Context, parent platform.Ref, name string) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.call("Download"); err != nil {
		return nil, err
	}

	data, ok := p.content[parent.ID+"/"+name]
	if !ok {
		return nil, fmt.Errorf("file %s in %s: %w", name, parent, platform.ErrNotFound)
	}

	return slices.Clone(data), nil
}

// Upload attaches the file, replacing one with the same name.
func (p *Platform) Upload(_ context.Context, parent platform.Ref, upload platform.Upload) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.call("Upload"); err != nil {
		return err
	}

	if err := p.FailUpload[upload.Name]; err != nil {
		return err
	}

	c, ok := p.containers[parent.ID]
	if !ok {
		return fmt.Errorf("%s: %w", parent, platform.ErrNotFound)
	}

	p.nextID++
	f := platform.File{
		ID:             fmt.Sprintf("file-%d", p.nextID),
		Name:           upload.Name,
		Type:           upload.Metadata.Type,
		Modality:       upload.Metadata.Modality,
		Classification: upload.Metadata.Classification,
		Info:           upload.Metadata.Info,
		Tags:           upload.Metadata.Tags,
		Size:           int64(len(upload.Content)),
	}

	c.Files = slices.DeleteFunc(c.Files, func(existing platform.File) bool { return existing.Name == f.Name })
	c.Files = append(c.Files, f)
	p.content[parent.ID+"/"+upload.Name] = slices.Clone(upload.Content)

	return nil
}

// AddTag adds tag once.
func (p *Platform) AddTag(_ context.Context, ref platform.Ref, tag string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.call("AddTag"); err != nil {
		return err
	}

	c, ok := p.containers[ref.ID]
	if !ok {
		return fmt.Errorf("%s: %w", ref, platform.ErrNotFound)
	}

	if !c.HasTag(tag) {
		c.Tags = append(c.Tags, tag)
	}

	return nil
}

// Modality returns a schema set with SetModality.
func (p *Platform) Modality(_ context.Context, name string) (*platform.Modality, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.call("Modality"); err != nil {
		return nil, err
	}

	m, ok := p.modalities[name]
	if !ok {
		return nil, fmt.Errorf("modality %s: %w", name, platform.ErrNotFound)
	}

	out := *m

	return &out, nil
}

func parentOf(c *platform.Container) string {
	switch c.Type {
	case platform.Project:
		return c.Parents.Group
	case platform.Subject:
		return c.Parents.Project
	case platform.Session:
		return c.Parents.Subject
	case platform.Acquisition:
		return c.Parents.Session
	default:
		return ""
	}
}

// clone deep-copies through JSON so callers cannot alias stored state.
func clone(c *platform.Container) platform.Container {
	data, err := json.Marshal(c)
	if err != nil {
		panic(err)
	}

	var out platform.Container
	if err := json.Unmarshal(data, &out); err != nil {
		panic(err)
	}

	return out
}
