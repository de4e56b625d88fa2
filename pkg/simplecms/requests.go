package simplecms

import "github.com/google/uuid"

// Request DTOs

// CreateRequest contains parameters for creating a resource. Fields holds
// the kind-specific scalar fields by name; Uploads holds received files by
// slot name in upload order. Title is carried separately because it drives
// slug allocation.
type CreateRequest struct {
	Kind    Kind
	OwnerID uuid.UUID
	Title   string
	Fields  map[string]string
	Uploads map[string][]UploadedFile
}

// UpdateRequest contains parameters for updating a resource. Only fields
// present in Fields are staged; a title change re-resolves the slug. For a
// list slot, Keep carries the caller's keep-list: entries of Keep[slot] are
// retained (in the given order), everything else previously stored in the
// slot is removed, and new uploads are appended. A list slot with no Keep
// entry is cleared down to the new uploads, matching the original update
// semantics.
type UpdateRequest struct {
	Kind    Kind
	ID      uuid.UUID
	Title   *string
	Fields  map[string]string
	Uploads map[string][]UploadedFile
	Keep    map[string][]string
}
