// Package api exposes the resource lifecycle service over HTTP: chi
// routing, multipart upload parsing, jwtauth principal extraction and JSON
// rendering. Everything here is a thin collaborator around pkg/simplecms;
// no lifecycle logic lives in this package.
package api

import (
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/jwtauth"
	"github.com/go-chi/render"
	"github.com/google/uuid"

	"github.com/tendant/simple-cms/pkg/simplecms"
	"github.com/tendant/simple-cms/pkg/simplecms/assets"
)

// maxUploadMemory bounds the in-memory part of multipart parsing.
const maxUploadMemory = 32 << 20

// routeSegments maps kinds to their URL segments, matching the original
// API surface.
var routeSegments = map[simplecms.Kind]string{
	simplecms.KindBlog:          "blogs",
	simplecms.KindProject:       "projects",
	simplecms.KindService:       "services",
	simplecms.KindTrustedClient: "trustedClient",
}

// Handler handles HTTP requests for all resource kinds.
type Handler struct {
	svc    simplecms.Service
	store  assets.Store
	auth   *jwtauth.JWTAuth
	logger *slog.Logger
}

// NewHandler creates a new resource handler.
func NewHandler(svc simplecms.Service, store assets.Store, auth *jwtauth.JWTAuth, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{svc: svc, store: store, auth: auth, logger: logger}
}

// Routes returns the API routes for every registered kind.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	for _, kind := range simplecms.Kinds() {
		r.Mount("/"+routeSegments[kind], h.kindRoutes(kind))
	}
	return r
}

func (h *Handler) kindRoutes(kind simplecms.Kind) chi.Router {
	spec, _ := simplecms.SpecFor(kind)
	r := chi.NewRouter()

	// Mutations require an authenticated admin.
	r.Group(func(r chi.Router) {
		r.Use(jwtauth.Verifier(h.auth))
		r.Use(jwtauth.Authenticator)
		r.Use(RequireAdmin)

		r.Post("/create", h.create(kind))
		r.Put("/update/{id}", h.update(kind))
		r.Delete("/delete/{id}", h.delete(kind))
	})

	// Owner-scoped listing needs a principal but not the admin role.
	r.Group(func(r chi.Router) {
		r.Use(jwtauth.Verifier(h.auth))
		r.Use(jwtauth.Authenticator)

		r.Get("/mine", h.listMine(kind))
	})

	r.Get("/all", h.list(kind))
	r.Get("/id/{id}", h.getByID(kind))
	r.Get("/slug/{slug}", h.getBySlug(kind))
	if spec.HasAggregate(simplecms.AggregateCategoryCounts) {
		r.Get("/category-counts", h.categoryCounts(kind))
	}
	return r
}

// Mutations

func (h *Handler) create(kind simplecms.Kind) http.HandlerFunc {
	spec, _ := simplecms.SpecFor(kind)
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		uploads, err := h.receiveUploads(r, spec)
		if err != nil {
			h.writeError(w, r, err)
			return
		}

		req := simplecms.CreateRequest{
			Kind:    kind,
			OwnerID: ownerID(r),
			Title:   formValue(r, "title"),
			Fields:  formFields(r, spec),
			Uploads: uploads,
		}

		res, err := h.svc.Create(r.Context(), req)
		if err != nil {
			h.discardUploads(uploads)
			h.writeError(w, r, err)
			return
		}

		// Deferred kinds acknowledge before the record is durable; the
		// response body is a preview, not the persisted record.
		status := http.StatusCreated
		if spec.DeferredCreate {
			status = http.StatusAccepted
		}
		render.Status(r, status)
		render.JSON(w, r, resourceResponse(kind, res, "created"))
	}
}

func (h *Handler) update(kind simplecms.Kind) http.HandlerFunc {
	spec, _ := simplecms.SpecFor(kind)
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			http.Error(w, "invalid id", http.StatusBadRequest)
			return
		}
		if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		uploads, err := h.receiveUploads(r, spec)
		if err != nil {
			h.writeError(w, r, err)
			return
		}

		req := simplecms.UpdateRequest{
			Kind:    kind,
			ID:      id,
			Fields:  formFields(r, spec),
			Uploads: uploads,
			Keep:    formKeepLists(r, spec),
		}
		if title, ok := r.MultipartForm.Value["title"]; ok && len(title) > 0 {
			req.Title = &title[0]
		}

		res, err := h.svc.Update(r.Context(), req)
		if err != nil {
			h.discardUploads(uploads)
			h.writeError(w, r, err)
			return
		}
		render.JSON(w, r, resourceResponse(kind, res, "updated"))
	}
}

func (h *Handler) delete(kind simplecms.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			http.Error(w, "invalid id", http.StatusBadRequest)
			return
		}
		if err := h.svc.Delete(r.Context(), kind, id); err != nil {
			h.writeError(w, r, err)
			return
		}
		render.JSON(w, r, map[string]string{"message": string(kind) + " deleted"})
	}
}

// Reads

func (h *Handler) list(kind simplecms.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := h.svc.List(r.Context(), kind)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		render.JSON(w, r, list)
	}
}

func (h *Handler) listMine(kind simplecms.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := h.svc.ListByOwner(r.Context(), kind, ownerID(r))
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		render.JSON(w, r, list)
	}
}

func (h *Handler) getByID(kind simplecms.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			http.Error(w, "invalid id", http.StatusBadRequest)
			return
		}
		res, err := h.svc.Get(r.Context(), kind, id)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		render.JSON(w, r, res)
	}
}

func (h *Handler) getBySlug(kind simplecms.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := h.svc.GetBySlug(r.Context(), kind, chi.URLParam(r, "slug"))
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		render.JSON(w, r, res)
	}
}

func (h *Handler) categoryCounts(kind simplecms.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		counts, err := h.svc.CategoryCounts(r.Context(), kind)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		render.JSON(w, r, counts)
	}
}

// helpers

// receiveUploads saves every multipart file of a known slot into the asset
// store's upload area. The image MIME restriction is enforced here — the
// lifecycle service trusts the upload layer on this.
func (h *Handler) receiveUploads(r *http.Request, spec simplecms.KindSpec) (map[string][]simplecms.UploadedFile, error) {
	uploads := make(map[string][]simplecms.UploadedFile)
	for _, slot := range spec.Slots {
		for _, fh := range r.MultipartForm.File[slot.Name] {
			mimeType := fh.Header.Get("Content-Type")
			if !strings.HasPrefix(mimeType, "image/") {
				h.discardUploads(uploads)
				return nil, &simplecms.ValidationError{Field: slot.Name, Reason: "only image files are allowed"}
			}
			f, err := fh.Open()
			if err != nil {
				h.discardUploads(uploads)
				return nil, err
			}
			uploaded, err := h.store.SaveUpload(r.Context(), spec.Folder, fh.Filename, mimeType, f)
			f.Close()
			if err != nil {
				h.discardUploads(uploads)
				return nil, err
			}
			uploads[slot.Name] = append(uploads[slot.Name], uploaded)
		}
	}
	if len(uploads) == 0 {
		return nil, nil
	}
	return uploads, nil
}

// discardUploads deletes spooled files that will never reach the lifecycle
// service, e.g. when the mutation is rejected. The service rolls back files
// it already stored itself, so removing an already-gone spool is expected.
func (h *Handler) discardUploads(uploads map[string][]simplecms.UploadedFile) {
	for _, files := range uploads {
		for _, f := range files {
			if err := os.Remove(f.StoredPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
				h.logger.Warn("upload discard failed", "path", f.StoredPath, "error", err)
			}
		}
	}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case simplecms.IsValidation(err):
		render.Status(r, http.StatusBadRequest)
	case errors.Is(err, simplecms.ErrNotFound),
		errors.Is(err, simplecms.ErrUnknownKind),
		errors.Is(err, simplecms.ErrUnknownAggregate):
		render.Status(r, http.StatusNotFound)
	case errors.Is(err, simplecms.ErrSlugConflict):
		render.Status(r, http.StatusConflict)
	default:
		h.logger.Error("request failed", "path", r.URL.Path, "error", err)
		render.Status(r, http.StatusInternalServerError)
	}
	render.JSON(w, r, map[string]string{"message": err.Error()})
}

func formValue(r *http.Request, name string) string {
	if vals, ok := r.MultipartForm.Value[name]; ok && len(vals) > 0 {
		return vals[0]
	}
	return ""
}

// formFields collects the kind's known scalar fields that are present in
// the form, preserving present-vs-absent semantics for updates.
func formFields(r *http.Request, spec simplecms.KindSpec) map[string]string {
	fields := make(map[string]string)
	for _, f := range spec.Fields {
		if vals, ok := r.MultipartForm.Value[f.Name]; ok && len(vals) > 0 {
			fields[f.Name] = vals[0]
		}
	}
	return fields
}

// formKeepLists reads the keep-list of each list slot from its
// "existing<Slot>" form field, e.g. existingAdditionalImages.
func formKeepLists(r *http.Request, spec simplecms.KindSpec) map[string][]string {
	keep := make(map[string][]string)
	for _, slot := range spec.Slots {
		if !slot.List() {
			continue
		}
		field := "existing" + strings.ToUpper(slot.Name[:1]) + slot.Name[1:]
		if vals, ok := r.MultipartForm.Value[field]; ok {
			keep[slot.Name] = vals
		}
	}
	if len(keep) == 0 {
		return nil
	}
	return keep
}

func resourceResponse(kind simplecms.Kind, res *simplecms.Resource, verb string) map[string]any {
	return map[string]any{
		"message":    string(kind) + " " + verb,
		string(kind): res,
	}
}
