package simplecms

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// slugRetryLimit bounds re-allocation after a commit-time slug conflict.
const slugRetryLimit = 3

// service implements the Service interface
type service struct {
	repo   Repository
	assets AssetStore
	cache  Cache
	events EventSink
	slugs  *SlugAllocator
	logger *slog.Logger
	now    func() time.Time
}

// Option represents a functional option for configuring the service
type Option func(*service)

// WithRepository sets the repository for the service
func WithRepository(repo Repository) Option {
	return func(s *service) {
		s.repo = repo
	}
}

// WithAssetStore sets the asset store for the service
func WithAssetStore(store AssetStore) Option {
	return func(s *service) {
		s.assets = store
	}
}

// WithCache sets the read-through cache for the service
func WithCache(cache Cache) Option {
	return func(s *service) {
		s.cache = cache
	}
}

// WithEventSink sets the event sink for the service
func WithEventSink(sink EventSink) Option {
	return func(s *service) {
		s.events = sink
	}
}

// WithLogger sets the structured logger for the service
func WithLogger(logger *slog.Logger) Option {
	return func(s *service) {
		s.logger = logger
	}
}

// WithClock overrides the time source, used by tests
func WithClock(now func() time.Time) Option {
	return func(s *service) {
		s.now = now
	}
}

// New creates a new service instance with the given options
func New(options ...Option) (Service, error) {
	s := &service{
		cache:  NewNoopCache(),
		events: NewNoopEventSink(),
		logger: slog.Default(),
		now:    func() time.Time { return time.Now().UTC() },
	}

	for _, option := range options {
		option(s)
	}

	if s.repo == nil {
		return nil, errors.New("repository is required")
	}
	if s.assets == nil {
		return nil, errors.New("asset store is required")
	}
	s.slugs = NewSlugAllocator(s.repo)

	return s, nil
}

// Create

func (s *service) Create(ctx context.Context, req CreateRequest) (*Resource, error) {
	spec, err := SpecFor(req.Kind)
	if err != nil {
		return nil, err
	}
	if err := validateCreate(spec, &req); err != nil {
		return nil, err
	}

	now := s.now()
	res := &Resource{
		ID:        uuid.New(),
		Kind:      spec.Kind,
		Title:     strings.TrimSpace(req.Title),
		OwnerID:   req.OwnerID,
		Fields:    mergeFields(spec, nil, req.Fields),
		CreatedAt: now,
		UpdatedAt: now,
	}

	stored, err := s.storeUploads(ctx, spec, req.Uploads, res)
	if err != nil {
		s.discard(ctx, stored)
		return nil, err
	}

	if spec.DeferredCreate {
		// Acknowledge before durability: the preview slug is derived from
		// unsaved input and the background task owns the rest of the
		// lifecycle. A failure past this point is unobservable to the
		// caller and only logged.
		res.Slug = Slugify(res.Title)
		go s.finishCreate(context.WithoutCancel(ctx), spec, res.Clone())
		return res, nil
	}

	if err := s.commitCreate(ctx, spec, res); err != nil {
		s.discard(ctx, stored)
		return nil, err
	}
	return res, nil
}

// commitCreate allocates the slug, persists the record with bounded conflict
// retry, invalidates the collection scopes and publishes the created event.
func (s *service) commitCreate(ctx context.Context, spec KindSpec, res *Resource) error {
	slug, err := s.slugs.Allocate(ctx, spec.Kind, res.Title, uuid.Nil)
	if err != nil {
		return err
	}
	res.Slug = slug

	for attempt := 1; ; attempt++ {
		err = s.repo.Create(ctx, res)
		if err == nil {
			break
		}
		if !errors.Is(err, ErrSlugConflict) || attempt >= slugRetryLimit {
			return &ResourceError{Kind: spec.Kind, ID: res.ID, Op: "create", Err: err}
		}
		// The pre-check raced another allocation for the same base.
		if res.Slug, err = s.slugs.Allocate(ctx, spec.Kind, res.Title, uuid.Nil); err != nil {
			return err
		}
	}

	// No id/slug scope yet: nothing can have cached the new record.
	s.cache.DeleteAll(ctx, collectionScopes(spec, res.OwnerID).keys())
	s.publish(ctx, EventName(spec.Kind, EventCreated), res)
	return nil
}

func (s *service) finishCreate(ctx context.Context, spec KindSpec, res *Resource) {
	if err := s.commitCreate(ctx, spec, res); err != nil {
		s.logger.Error("deferred create failed",
			"kind", spec.Kind,
			"title", res.Title,
			"slug", res.Slug,
			"owner_id", res.OwnerID,
			"error", err)
		s.discard(ctx, res.AssetPaths())
	}
}

// Update

func (s *service) Update(ctx context.Context, req UpdateRequest) (*Resource, error) {
	spec, err := SpecFor(req.Kind)
	if err != nil {
		return nil, err
	}

	existing, err := s.repo.GetByID(ctx, req.Kind, req.ID)
	if err != nil {
		return nil, err
	}
	res := existing.Clone()
	oldSlug := existing.Slug
	titleChanged := false

	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			return nil, &ValidationError{Field: "title", Reason: "required"}
		}
		if title != res.Title {
			res.Title = title
			titleChanged = true
		}
	}

	for name, val := range req.Fields {
		f, ok := spec.Field(name)
		if !ok {
			continue
		}
		if err := validateField(f, val); err != nil {
			return nil, err
		}
		if res.Fields == nil {
			res.Fields = make(map[string]string)
		}
		res.Fields[name] = strings.TrimSpace(val)
	}

	if err := validateSlots(spec, req.Uploads); err != nil {
		return nil, err
	}

	if titleChanged {
		slug, err := s.slugs.Allocate(ctx, spec.Kind, res.Title, res.ID)
		if err != nil {
			return nil, err
		}
		res.Slug = slug
	}

	storedNew, removeOld, err := s.reconcileAssets(ctx, spec, req, res)
	if err != nil {
		s.discard(ctx, storedNew)
		return nil, err
	}

	res.UpdatedAt = s.now()
	for attempt := 1; ; attempt++ {
		err = s.repo.Update(ctx, res)
		if err == nil {
			break
		}
		if !errors.Is(err, ErrSlugConflict) || !titleChanged || attempt >= slugRetryLimit {
			s.discard(ctx, storedNew)
			return nil, &ResourceError{Kind: spec.Kind, ID: res.ID, Op: "update", Err: err}
		}
		if res.Slug, err = s.slugs.Allocate(ctx, spec.Kind, res.Title, res.ID); err != nil {
			s.discard(ctx, storedNew)
			return nil, err
		}
	}

	// Superseded files go only after the new state is durable, so a crash
	// can orphan a file but never leave the record pointing at a deleted one.
	s.discard(ctx, removeOld)

	scopes := collectionScopes(spec, res.OwnerID)
	scopes.add(IDKey(spec.Kind, res.ID), SlugKey(spec.Kind, oldSlug), SlugKey(spec.Kind, res.Slug))
	s.cache.DeleteAll(ctx, scopes.keys())

	s.publish(ctx, EventName(spec.Kind, EventUpdated), res)
	return res, nil
}

// reconcileAssets stages uploaded files into the resource's slots. It
// returns the freshly stored paths (rolled back if persistence fails) and
// the superseded paths to remove once the update is durable.
//
// Single slots are replaced when an upload is present. List slots follow
// keep-list semantics: entries of the keep list survive in the given order,
// everything else is superseded, new uploads are appended. A list slot with
// no keep list is cleared down to the new uploads.
func (s *service) reconcileAssets(ctx context.Context, spec KindSpec, req UpdateRequest, res *Resource) (storedNew, removeOld []string, err error) {
	for _, slot := range spec.Slots {
		newFiles := req.Uploads[slot.Name]

		if !slot.List() {
			if len(newFiles) == 0 {
				continue
			}
			rel, err := s.assets.Store(ctx, newFiles[0])
			if err != nil {
				return storedNew, removeOld, err
			}
			storedNew = append(storedNew, rel)
			removeOld = append(removeOld, res.Assets[slot.Name]...)
			if res.Assets == nil {
				res.Assets = make(map[string][]string)
			}
			res.Assets[slot.Name] = []string{rel}
			continue
		}

		keep := req.Keep[slot.Name]
		current := res.Assets[slot.Name]

		kept := make([]string, 0, len(keep))
		for _, p := range keep {
			if containsPath(current, p) {
				kept = append(kept, p)
			}
		}
		for _, p := range current {
			if !containsPath(kept, p) {
				removeOld = append(removeOld, p)
			}
		}

		if len(kept)+len(newFiles) > slot.Max {
			return storedNew, removeOld, &ValidationError{
				Field:  slot.Name,
				Reason: "at most " + strconv.Itoa(slot.Max) + " files",
			}
		}

		for _, f := range newFiles {
			rel, err := s.assets.Store(ctx, f)
			if err != nil {
				return storedNew, removeOld, err
			}
			storedNew = append(storedNew, rel)
			kept = append(kept, rel)
		}

		if res.Assets == nil {
			res.Assets = make(map[string][]string)
		}
		res.Assets[slot.Name] = kept
	}
	return storedNew, removeOld, nil
}

// Delete

func (s *service) Delete(ctx context.Context, kind Kind, id uuid.UUID) error {
	spec, err := SpecFor(kind)
	if err != nil {
		return err
	}

	existing, err := s.repo.GetByID(ctx, kind, id)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, kind, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return err
		}
		return &ResourceError{Kind: kind, ID: id, Op: "delete", Err: err}
	}

	// Asset cleanup is advisory and runs after the record is gone.
	s.discard(ctx, existing.AssetPaths())

	scopes := collectionScopes(spec, existing.OwnerID)
	scopes.add(IDKey(kind, id), SlugKey(kind, existing.Slug))
	s.cache.DeleteAll(ctx, scopes.keys())

	s.publish(ctx, EventName(kind, EventDeleted), map[string]any{"id": id})
	return nil
}

// Reads (cache-aside: populate on miss, never on write). Cached entries are
// shared between readers, so every read hands out a clone.

func (s *service) List(ctx context.Context, kind Kind) ([]*Resource, error) {
	if _, err := SpecFor(kind); err != nil {
		return nil, err
	}
	key := AllKey(kind)
	if v, ok := s.cache.Get(ctx, key); ok {
		if list, ok := v.([]*Resource); ok {
			return cloneList(list), nil
		}
	}
	list, err := s.repo.List(ctx, kind)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []*Resource{}
	}
	s.cache.Set(ctx, key, list)
	return cloneList(list), nil
}

func (s *service) Get(ctx context.Context, kind Kind, id uuid.UUID) (*Resource, error) {
	if _, err := SpecFor(kind); err != nil {
		return nil, err
	}
	key := IDKey(kind, id)
	if v, ok := s.cache.Get(ctx, key); ok {
		if res, ok := v.(*Resource); ok {
			return res.Clone(), nil
		}
	}
	res, err := s.repo.GetByID(ctx, kind, id)
	if err != nil {
		return nil, err
	}
	s.cache.Set(ctx, key, res)
	return res.Clone(), nil
}

func (s *service) GetBySlug(ctx context.Context, kind Kind, slug string) (*Resource, error) {
	if _, err := SpecFor(kind); err != nil {
		return nil, err
	}
	key := SlugKey(kind, slug)
	if v, ok := s.cache.Get(ctx, key); ok {
		if res, ok := v.(*Resource); ok {
			return res.Clone(), nil
		}
	}
	res, err := s.repo.GetBySlug(ctx, kind, slug)
	if err != nil {
		return nil, err
	}
	s.cache.Set(ctx, key, res)
	return res.Clone(), nil
}

func (s *service) ListByOwner(ctx context.Context, kind Kind, ownerID uuid.UUID) ([]*Resource, error) {
	if _, err := SpecFor(kind); err != nil {
		return nil, err
	}
	key := OwnerKey(kind, ownerID)
	if v, ok := s.cache.Get(ctx, key); ok {
		if list, ok := v.([]*Resource); ok {
			return cloneList(list), nil
		}
	}
	list, err := s.repo.ListByOwner(ctx, kind, ownerID)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []*Resource{}
	}
	s.cache.Set(ctx, key, list)
	return cloneList(list), nil
}

func (s *service) CategoryCounts(ctx context.Context, kind Kind) ([]CategoryCount, error) {
	spec, err := SpecFor(kind)
	if err != nil {
		return nil, err
	}
	if !spec.HasAggregate(AggregateCategoryCounts) {
		return nil, ErrUnknownAggregate
	}
	key := AggregateKey(kind, AggregateCategoryCounts)
	if v, ok := s.cache.Get(ctx, key); ok {
		if counts, ok := v.([]CategoryCount); ok {
			return append([]CategoryCount(nil), counts...), nil
		}
	}
	counts, err := s.repo.CountByCategory(ctx, kind)
	if err != nil {
		return nil, err
	}
	if counts == nil {
		counts = []CategoryCount{}
	}
	s.cache.Set(ctx, key, counts)
	return append([]CategoryCount(nil), counts...), nil
}

// helpers

func (s *service) storeUploads(ctx context.Context, spec KindSpec, uploads map[string][]UploadedFile, res *Resource) ([]string, error) {
	var stored []string
	for _, slot := range spec.Slots {
		for _, f := range uploads[slot.Name] {
			rel, err := s.assets.Store(ctx, f)
			if err != nil {
				return stored, err
			}
			stored = append(stored, rel)
			if res.Assets == nil {
				res.Assets = make(map[string][]string)
			}
			res.Assets[slot.Name] = append(res.Assets[slot.Name], rel)
		}
	}
	return stored, nil
}

// discard removes stored asset paths. Failures are logged and swallowed:
// cleanup is advisory and never aborts the surrounding operation.
func (s *service) discard(ctx context.Context, paths []string) {
	for _, p := range paths {
		if err := s.assets.Remove(ctx, p); err != nil {
			s.logger.Warn("asset remove failed", "path", p, "error", err)
		}
	}
}

func (s *service) publish(ctx context.Context, event string, payload any) {
	if err := s.events.Publish(ctx, event, payload); err != nil {
		s.logger.Warn("event publish failed", "event", event, "error", err)
	}
}

func validateCreate(spec KindSpec, req *CreateRequest) error {
	if strings.TrimSpace(req.Title) == "" {
		return &ValidationError{Field: "title", Reason: "required"}
	}
	for _, f := range spec.Fields {
		if err := validateField(f, req.Fields[f.Name]); err != nil {
			return err
		}
	}
	if err := validateSlots(spec, req.Uploads); err != nil {
		return err
	}
	for _, slot := range spec.Slots {
		if slot.Required && len(req.Uploads[slot.Name]) == 0 {
			return &ValidationError{Field: slot.Name, Reason: "required"}
		}
	}
	return nil
}

func validateField(f FieldSpec, val string) error {
	val = strings.TrimSpace(val)
	if f.Required && val == "" {
		return &ValidationError{Field: f.Name, Reason: "required"}
	}
	if val != "" && len(f.Enum) > 0 {
		for _, allowed := range f.Enum {
			if val == allowed {
				return nil
			}
		}
		return &ValidationError{Field: f.Name, Reason: "must be one of " + strings.Join(f.Enum, ", ")}
	}
	return nil
}

func validateSlots(spec KindSpec, uploads map[string][]UploadedFile) error {
	for name, files := range uploads {
		slot, ok := spec.Slot(name)
		if !ok {
			return &ValidationError{Field: name, Reason: "unknown upload field"}
		}
		if len(files) > slot.Max {
			return &ValidationError{Field: name, Reason: "at most " + strconv.Itoa(slot.Max) + " files"}
		}
	}
	return nil
}

// mergeFields copies the known fields of in over base, applying declared
// defaults for fields left empty.
func mergeFields(spec KindSpec, base, in map[string]string) map[string]string {
	out := make(map[string]string, len(spec.Fields))
	for k, v := range base {
		out[k] = v
	}
	for _, f := range spec.Fields {
		if v, ok := in[f.Name]; ok {
			out[f.Name] = strings.TrimSpace(v)
		}
		if out[f.Name] == "" && f.Default != "" {
			out[f.Name] = f.Default
		}
	}
	return out
}

func cloneList(list []*Resource) []*Resource {
	out := make([]*Resource, len(list))
	for i, r := range list {
		out[i] = r.Clone()
	}
	return out
}

func containsPath(paths []string, p string) bool {
	for _, x := range paths {
		if x == p {
			return true
		}
	}
	return false
}
