package platform

import (
	"strings"
	"time"
)

// ContainerType names a level of the hierarchy.
type ContainerType string

const (
	Group       ContainerType = "group"
	Project     ContainerType = "project"
	Subject     ContainerType = "subject"
	Session     ContainerType = "session"
	Acquisition ContainerType = "acquisition"
)

// Plural returns the REST collection name ("sessions").
func (t ContainerType) Plural() string {
	return string(t) + "s"
}

// TagExported marks sessions that were exported.
const TagExported = "EXPORTED"

// Parents holds the IDs of every ancestor of a container.
type Parents struct {
	Group       string `json:"group,omitempty"`
	Project     string `json:"project,omitempty"`
	Subject     string `json:"subject,omitempty"`
	Session     string `json:"session,omitempty"`
	Acquisition string `json:"acquisition,omitempty"`
}

// Container is any node of the hierarchy. Level-specific fields are left
// empty where they do not apply.
type Container struct {
	ID      string         `json:"_id"`
	Type    ContainerType  `json:"container_type,omitempty"`
	Label   string         `json:"label,omitempty"`
	Parents Parents        `json:"parents"`
	Tags    []string       `json:"tags,omitempty"`
	Info    map[string]any `json:"info,omitempty"`
	Files   []File         `json:"files,omitempty"`

	// Project.
	Description string `json:"description,omitempty"`

	// Subject.
	Code      string `json:"code,omitempty"`
	Sex       string `json:"sex,omitempty"`
	Cohort    string `json:"cohort,omitempty"`
	Ethnicity string `json:"ethnicity,omitempty"`
	Race      string `json:"race,omitempty"`
	Species   string `json:"species,omitempty"`
	Strain    string `json:"strain,omitempty"`
	Firstname string `json:"firstname,omitempty"`
	Lastname  string `json:"lastname,omitempty"`

	// Session. Age is in seconds.
	Age      *float64 `json:"age,omitempty"`
	Weight   *float64 `json:"weight,omitempty"`
	Operator string   `json:"operator,omitempty"`

	// Session and acquisition.
	Timestamp *time.Time `json:"timestamp,omitempty"`
	Timezone  string     `json:"timezone,omitempty"`
	UID       string     `json:"uid,omitempty"`
}

// Ref returns a reference to c.
func (c *Container) Ref() Ref {
	return Ref{Type: c.Type, ID: c.ID}
}

// HasTag reports whether c carries tag.
func (c *Container) HasTag(tag string) bool {
	for _, t := range c.Tags {
		if t == tag {
			return true
		}
	}

	return false
}

// File returns the attached file called name.
func (c *Container) File(name string) (*File, bool) {
	for i := range c.Files {
		if c.Files[i].Name == name {
			return &c.Files[i], true
		}
	}

	return nil, false
}

// Ref points at a container.
type Ref struct {
	Type ContainerType
	ID   string
}

func (r Ref) String() string {
	return string(r.Type) + "/" + r.ID
}

// File is a file attached to a container.
type File struct {
	ID             string              `json:"file_id,omitempty"`
	Name           string              `json:"name"`
	Type           string              `json:"type,omitempty"`
	Modality       string              `json:"modality,omitempty"`
	Classification map[string][]string `json:"classification,omitempty"`
	Info           map[string]any      `json:"info,omitempty"`
	Tags           []string            `json:"tags,omitempty"`
	Size           int64               `json:"size,omitempty"`
	Hash           string              `json:"hash,omitempty"`
}

// IsDICOM reports whether the platform typed the file as DICOM.
func (f *File) IsDICOM() bool {
	return strings.EqualFold(f.Type, "dicom")
}

// Rule is a gear rule of a project.
type Rule struct {
	ID       string `json:"_id"`
	Name     string `json:"name"`
	Disabled bool   `json:"disabled,omitempty"`
}

// Modality carries the classification schema of a modality.
type Modality struct {
	ID             string              `json:"_id"`
	Classification map[string][]string `json:"classification"`
}

// NewContainer describes a container to create under Parent.
type NewContainer struct {
	Type   ContainerType
	Parent Ref
	// Fields are the level-specific fields, JSON shaped.
	Fields map[string]any
}

// Upload is a file to attach to a container.
type Upload struct {
	Name     string
	Content  []byte
	Metadata FileMetadata
}

// FileMetadata is sent alongside an upload.
type FileMetadata struct {
	Type           string              `json:"type,omitempty"`
	Modality       string              `json:"modality,omitempty"`
	Classification map[string][]string `json:"classification,omitempty"`
	Info           map[string]any      `json:"info,omitempty"`
	Tags           []string            `json:"tags,omitempty"`
}
