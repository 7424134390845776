package objects

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Stamp carries the audit fields every persisted object has.
type Stamp struct {
	LastModified   int64  `json:"lastModified,omitempty"`
	LastModifiedBy string `json:"lastModifiedBy,omitempty"`
}

// Stamped gives the adapter access to the embedded audit fields.
func (s *Stamp) Stamped() *Stamp { return s }

// Timestamped is implemented by any struct embedding Stamp.
type Timestamped interface {
	Stamped() *Stamp
}

// ObjectType describes one category of persisted object: the folder it lives
// under, the file each logical object resolves to, and the shape it decodes into.
type ObjectType struct {
	Name             string
	Group            string
	MetadataFilename string
	// New returns an empty value to decode into. Nil means *Item.
	New func() Timestamped
}

// NewValue returns an empty value of the type's schema.
func (t ObjectType) NewValue() Timestamped {
	if t.New == nil {
		return &Item{}
	}
	return t.New()
}

func (t ObjectType) validate() error {
	if strings.TrimSpace(t.Name) == "" {
		return errors.New("object type name is required")
	}
	if strings.Trim(t.Group, "/ ") == "" {
		return fmt.Errorf("object type %s: group is required", t.Name)
	}
	if strings.TrimSpace(t.MetadataFilename) == "" || strings.Contains(t.MetadataFilename, "/") {
		return fmt.Errorf("object type %s: metadata filename must be a single path segment", t.Name)
	}
	return nil
}

var (
	Project               = ObjectType{Name: "project", Group: "projects", MetadataFilename: "specification.json"}
	Pipeline              = ObjectType{Name: "pipeline", Group: "pipelines", MetadataFilename: "pipeline-metadata.json"}
	Strategy              = ObjectType{Name: "strategy", Group: "pipeline-strategies", MetadataFilename: "pipeline-strategy-metadata.json"}
	PipelineTemplate      = ObjectType{Name: "pipeline-template", Group: "pipeline-templates", MetadataFilename: "pipeline-template-metadata.json"}
	Notification          = ObjectType{Name: "notification", Group: "notifications", MetadataFilename: "notification-metadata.json"}
	ServiceAccount        = ObjectType{Name: "service-account", Group: "serviceAccounts", MetadataFilename: "serviceAccount-metadata.json"}
	Application           = ObjectType{Name: "application", Group: "applications", MetadataFilename: "application-metadata.json"}
	ApplicationPermission = ObjectType{Name: "application-permission", Group: "permissions", MetadataFilename: "permission.json"}
	Snapshot              = ObjectType{Name: "snapshot", Group: "snapshots", MetadataFilename: "snapshot.json"}
	EntityTags            = ObjectType{Name: "entity-tags", Group: "tags", MetadataFilename: "entity-tags-metadata.json"}
	Delivery              = ObjectType{Name: "delivery", Group: "delivery", MetadataFilename: "delivery-metadata.json"}
	PluginInfo            = ObjectType{Name: "plugin-info", Group: "pluginInfo", MetadataFilename: "plugin-info-metadata.json"}
)

// BuiltinTypes lists the platform's object types in registration order.
func BuiltinTypes() []ObjectType {
	return []ObjectType{
		Project, Pipeline, Strategy, PipelineTemplate, Notification, ServiceAccount,
		Application, ApplicationPermission, Snapshot, EntityTags, Delivery, PluginInfo,
	}
}

// Registry resolves object types by name or group.
type Registry struct {
	mu    sync.RWMutex
	types map[string]ObjectType
}

func NewRegistry(types ...ObjectType) (*Registry, error) {
	r := &Registry{types: make(map[string]ObjectType, len(types))}
	for _, t := range types {
		if err := r.Register(t); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// DefaultRegistry holds BuiltinTypes.
func DefaultRegistry() *Registry {
	r, err := NewRegistry(BuiltinTypes()...)
	if err != nil {
		panic(err)
	}
	return r
}

func (r *Registry) Register(t ObjectType) error {
	if err := t.validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.types {
		if strings.EqualFold(existing.Name, t.Name) || strings.EqualFold(existing.Group, t.Group) {
			return fmt.Errorf("object type %s conflicts with registered type %s", t.Name, existing.Name)
		}
	}
	r.types[strings.ToLower(t.Name)] = t
	return nil
}

// Lookup accepts either the type name ("application") or its group ("applications").
func (r *Registry) Lookup(name string) (ObjectType, error) {
	needle := strings.ToLower(strings.TrimSpace(name))
	r.mu.RLock()
	defer r.mu.RUnlock()
	if t, ok := r.types[needle]; ok {
		return t, nil
	}
	for _, t := range r.types {
		if strings.ToLower(t.Group) == needle {
			return t, nil
		}
	}
	return ObjectType{}, fmt.Errorf("%w: %q", ErrUnknownType, name)
}

// Types returns registered types sorted by group.
func (r *Registry) Types() []ObjectType {
	r.mu.RLock()
	out := make([]ObjectType, 0, len(r.types))
	for _, t := range r.types {
		out = append(out, t)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Group < out[j].Group })
	return out
}

// Item is the schema-less document used by the built-in types. Attributes are
// kept as decoded JSON; numbers stay json.Number so they round-trip exactly.
type Item struct {
	Stamp
	Attributes map[string]any
}

func (i Item) MarshalJSON() ([]byte, error) {
	doc := make(map[string]any, len(i.Attributes)+2)
	for k, v := range i.Attributes {
		doc[k] = v
	}
	delete(doc, "lastModified")
	delete(doc, "lastModifiedBy")
	if i.LastModified != 0 {
		doc["lastModified"] = i.LastModified
	}
	if i.LastModifiedBy != "" {
		doc["lastModifiedBy"] = i.LastModifiedBy
	}
	return json.Marshal(doc)
}

func (i *Item) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var doc map[string]any
	if err := dec.Decode(&doc); err != nil {
		return err
	}
	if doc == nil {
		return errors.New("object document must be a JSON object")
	}

	i.Stamp = Stamp{}
	if raw, ok := doc["lastModified"]; ok {
		if n, isNum := raw.(json.Number); isNum {
			v, err := n.Int64()
			if err != nil {
				return fmt.Errorf("lastModified: %w", err)
			}
			i.LastModified = v
		}
		delete(doc, "lastModified")
	}
	if raw, ok := doc["lastModifiedBy"]; ok {
		if s, isStr := raw.(string); isStr {
			i.LastModifiedBy = s
		}
		delete(doc, "lastModifiedBy")
	}
	i.Attributes = doc
	return nil
}
