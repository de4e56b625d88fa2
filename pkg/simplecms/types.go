package simplecms

import (
	"time"

	"github.com/google/uuid"
)

// Kind identifies a resource collection.
type Kind string

// Resource kind constants.
const (
	KindBlog          Kind = "blog"
	KindProject       Kind = "project"
	KindService       Kind = "service"
	KindTrustedClient Kind = "trustedclient"
)

// Resource is a persisted record of any kind. Kind-specific scalar fields
// live in Fields; image paths live in Assets keyed by slot name, in upload
// order. Asset paths are relative to the asset store root, forward-slash
// separated.
type Resource struct {
	ID        uuid.UUID           `json:"id"`
	Kind      Kind                `json:"kind"`
	Slug      string              `json:"slug"`
	Title     string              `json:"title"`
	OwnerID   uuid.UUID           `json:"owner_id,omitempty"`
	Fields    map[string]string   `json:"fields,omitempty"`
	Assets    map[string][]string `json:"assets,omitempty"`
	CreatedAt time.Time           `json:"created_at"`
	UpdatedAt time.Time           `json:"updated_at"`
}

// Clone returns a deep copy of the resource. Repositories and the service's
// read paths hand out clones so callers can never mutate shared state, in
// particular not a cached entry.
func (r *Resource) Clone() *Resource {
	cp := *r
	if r.Fields != nil {
		cp.Fields = make(map[string]string, len(r.Fields))
		for k, v := range r.Fields {
			cp.Fields[k] = v
		}
	}
	if r.Assets != nil {
		cp.Assets = make(map[string][]string, len(r.Assets))
		for k, v := range r.Assets {
			cp.Assets[k] = append([]string(nil), v...)
		}
	}
	return &cp
}

// AssetPaths returns every asset path referenced by the resource, primary
// slots first, in slot declaration order for the resource's kind.
func (r *Resource) AssetPaths() []string {
	spec, err := SpecFor(r.Kind)
	if err != nil {
		var all []string
		for _, paths := range r.Assets {
			all = append(all, paths...)
		}
		return all
	}
	var all []string
	for _, slot := range spec.Slots {
		all = append(all, r.Assets[slot.Name]...)
	}
	return all
}

// FieldSpec describes one kind-specific scalar field.
type FieldSpec struct {
	Name     string
	Required bool
	Default  string
	Enum     []string // empty means free-form
}

// AssetSlot describes one upload slot of a kind. Max > 1 marks an ordered
// list slot with keep-list update semantics.
type AssetSlot struct {
	Name     string
	Required bool
	Max      int
}

// List reports whether the slot holds an ordered list of assets.
func (s AssetSlot) List() bool { return s.Max > 1 }

// KindSpec is the descriptor one lifecycle controller is parameterized over:
// field schema, asset slots, aggregates and the creation protocol.
type KindSpec struct {
	Kind   Kind
	Folder string // asset subdirectory, mirrors the upload folder per kind
	Fields []FieldSpec
	Slots  []AssetSlot

	// Aggregates lists collection-wide aggregate names served through the
	// aggregate cache scope (currently only category counts).
	Aggregates []string

	// DeferredCreate switches the kind to the acknowledge-then-persist
	// protocol: Create returns a preview before the record is durable.
	DeferredCreate bool
}

// Slot returns the slot descriptor by name.
func (s KindSpec) Slot(name string) (AssetSlot, bool) {
	for _, slot := range s.Slots {
		if slot.Name == name {
			return slot, true
		}
	}
	return AssetSlot{}, false
}

// Field returns the field descriptor by name.
func (s KindSpec) Field(name string) (FieldSpec, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldSpec{}, false
}

// HasAggregate reports whether the kind serves the named aggregate.
func (s KindSpec) HasAggregate(name string) bool {
	for _, a := range s.Aggregates {
		if a == name {
			return true
		}
	}
	return false
}

// CategoryCount is one row of the category-counts aggregate.
type CategoryCount struct {
	Category string `json:"category"`
	Count    int64  `json:"count"`
}

// UploadedFile is the handle the upload layer passes to the core for each
// received file. StoredPath is the absolute on-disk location the upload
// layer wrote the file to; the core only consumes StoredPath and trusts the
// upload layer to have enforced the image MIME restriction.
type UploadedFile struct {
	OriginalName string
	StoredPath   string
	MimeType     string
}

// Event names published on the notification bus, one per kind and
// lifecycle transition, e.g. "project:created".
const (
	EventCreated = "created"
	EventUpdated = "updated"
	EventDeleted = "deleted"
)

// EventName builds the bus event name for a kind and transition.
func EventName(kind Kind, transition string) string {
	return string(kind) + ":" + transition
}
