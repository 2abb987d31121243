package export

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"session-export/internal/common"
	"session-export/internal/platform"
)

// originKey is where copies remember the container or file they came from.
const originKey = "origin_id"

// copied is the destination hierarchy of the source session in a project.
type copied struct {
	project      *platform.Container
	subject      *platform.Container
	session      *platform.Container
	acquisitions map[string]*platform.Container // keyed by source acquisition ID
}

// path renders the container path of c for the audit log.
func (d *copied) path(c *platform.Container) string {
	p := fmt.Sprintf("%s/%s/%s/%s", d.project.Parents.Group, d.project.Label, d.subject.Label, d.session.Label)
	if c.Type == platform.Acquisition {
		p += "/" + c.Label
	}

	return p
}

// OriginID is the value copies carry in info.export.origin_id.
func OriginID(sourceID string) string {
	sum := sha256.Sum256([]byte(sourceID))
	return hex.EncodeToString(sum[:])
}

func originFilter(sourceID string) platform.Filter {
	return platform.Eq("info.export."+originKey, OriginID(sourceID))
}

// copyHierarchy matches or creates the subject, session and acquisitions
// under project.
func (r *run) copyHierarchy(ctx context.Context, project *platform.Container) (*copied, error) {
	d := &copied{project: project, acquisitions: map[string]*platform.Container{}}

	var err error

	if d.subject, err = r.matchSubject(ctx, project); err != nil {
		return nil, err
	}

	d.session, err = r.matchOrCreate(ctx, d.subject, platform.Session, r.session.ID, sessionFields(r.session))
	if err != nil {
		return nil, err
	}

	for i := range r.acquisitions {
		src := &r.acquisitions[i]

		acq, err := r.matchOrCreate(ctx, d.session, platform.Acquisition, src.ID, acquisitionFields(src))
		if err != nil {
			return nil, err
		}

		d.acquisitions[src.ID] = acq
	}

	return d, nil
}

// matchSubject finds the subject by label, then by code.
func (r *run) matchSubject(ctx context.Context, project *platform.Container) (*platform.Container, error) {
	for _, f := range []platform.Filter{platform.Eq("label", r.subject.Label), platform.Eq("code", r.subject.Code)} {
		if f.Value == "" {
			continue
		}

		found, err := r.client.Children(ctx, project.Ref(), platform.Subject, f)
		if err != nil {
			return nil, fatal("finding subject", err)
		}

		if len(found) > 0 {
			r.log.Debugf("subject %s matched %s by %s", r.subject.Label, found[0].ID, f.Field)
			return &found[0], nil
		}
	}

	created, err := r.client.Create(ctx, platform.NewContainer{
		Type:   platform.Subject,
		Parent: project.Ref(),
		Fields: subjectFields(r.subject),
	})
	if err != nil {
		return nil, fatal("creating subject", err)
	}

	r.log.Infof("created subject %s in %s", created.Label, project.Label)

	return created, nil
}

// matchOrCreate finds the child of parent copied from sourceID, creating
// it from fields when there is none.
func (r *run) matchOrCreate(
	ctx context.Context,
	parent *platform.Container,
	typ platform.ContainerType,
	sourceID string,
	fields map[string]any,
) (*platform.Container, error) {
	found, err := r.client.Children(ctx, parent.Ref(), typ, originFilter(sourceID))
	if err != nil {
		return nil, fatal("finding "+string(typ), err)
	}

	if len(found) > 0 {
		r.log.Debugf("%s %s matched %s", typ, sourceID, found[0].ID)
		return &found[0], nil
	}

	created, err := r.client.Create(ctx, platform.NewContainer{Type: typ, Parent: parent.Ref(), Fields: fields})
	if err != nil {
		return nil, fatal("creating "+string(typ), err)
	}

	r.log.Infof("created %s %s", typ, created.Label)

	return created, nil
}

func subjectFields(s *platform.Container) map[string]any {
	fields := baseFields(s)
	setString(fields, "code", s.Code)
	setString(fields, "sex", s.Sex)
	setString(fields, "cohort", s.Cohort)
	setString(fields, "ethnicity", s.Ethnicity)
	setString(fields, "race", s.Race)
	setString(fields, "species", s.Species)
	setString(fields, "strain", s.Strain)
	setString(fields, "firstname", s.Firstname)
	setString(fields, "lastname", s.Lastname)

	return fields
}

func sessionFields(s *platform.Container) map[string]any {
	fields := acquisitionFields(s)
	setString(fields, "operator", s.Operator)

	if s.Age != nil {
		fields["age"] = *s.Age
	}

	if s.Weight != nil {
		fields["weight"] = *s.Weight
	}

	return fields
}

func acquisitionFields(a *platform.Container) map[string]any {
	fields := baseFields(a)
	setString(fields, "timezone", a.Timezone)
	setString(fields, "uid", a.UID)

	if a.Timestamp != nil {
		fields["timestamp"] = *a.Timestamp
	}

	return fields
}

// baseFields copies the fields every level has.
func baseFields(c *platform.Container) map[string]any {
	fields := map[string]any{"info": withOrigin(c.Info, c.ID)}
	setString(fields, "label", c.Label)

	tags := common.Filter(c.Tags, func(t string) bool { return t != platform.TagExported })
	if len(tags) > 0 {
		fields["tags"] = tags
	}

	return fields
}

func setString(fields map[string]any, key, value string) {
	if value != "" {
		fields[key] = value
	}
}

// withOrigin deep-copies info and sets export.origin_id.
func withOrigin(info map[string]any, sourceID string) map[string]any {
	out, _ := deepCopy(info).(map[string]any)
	if out == nil {
		out = map[string]any{}
	}

	exp, _ := out["export"].(map[string]any)
	if exp == nil {
		exp = map[string]any{}
	}

	exp[originKey] = OriginID(sourceID)
	out["export"] = exp

	return out
}

func deepCopy(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = deepCopy(e)
		}

		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = deepCopy(e)
		}

		return out
	default:
		return v
	}
}
