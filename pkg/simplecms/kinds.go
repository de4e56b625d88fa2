package simplecms

// Slot and aggregate names shared across kinds.
const (
	SlotImage            = "image"
	SlotAdditionalImages = "additionalImages"
	SlotServiceImage     = "serviceImage"
	SlotIconImage        = "iconImage"

	AggregateCategoryCounts = "category-counts"

	// MaxAdditionalImages caps the project secondary image list.
	MaxAdditionalImages = 3
)

// Project status values.
var projectStatuses = []string{"Ongoing", "Upcoming", "Completed"}

var kindSpecs = map[Kind]KindSpec{
	KindBlog: {
		Kind:   KindBlog,
		Folder: "blogImages",
		Fields: []FieldSpec{
			{Name: "category", Required: true},
			{Name: "about", Required: true},
			{Name: "adminName"},
			{Name: "adminPhoto"},
		},
		Slots: []AssetSlot{
			{Name: SlotImage, Required: true, Max: 1},
		},
	},
	KindProject: {
		Kind:   KindProject,
		Folder: "projectImages",
		Fields: []FieldSpec{
			{Name: "category", Required: true},
			{Name: "status", Required: true, Enum: projectStatuses},
			{Name: "description"},
			{Name: "mapUrl"},
			{Name: "address"},
			{Name: "architect", Default: "SMD Engineer"},
		},
		Slots: []AssetSlot{
			{Name: SlotImage, Required: true, Max: 1},
			{Name: SlotAdditionalImages, Max: MaxAdditionalImages},
		},
		Aggregates: []string{AggregateCategoryCounts},

		// Projects acknowledge the caller before the record is durable;
		// slug resolution and persistence finish in a background task.
		DeferredCreate: true,
	},
	KindService: {
		Kind:   KindService,
		Folder: "serviceImages",
		Fields: []FieldSpec{
			{Name: "description", Required: true},
			{Name: "iconName"},
			{Name: "step1Title"}, {Name: "step1Description"},
			{Name: "step2Title"}, {Name: "step2Description"},
			{Name: "step3Title"}, {Name: "step3Description"},
			{Name: "step4Title"}, {Name: "step4Description"},
		},
		Slots: []AssetSlot{
			{Name: SlotServiceImage, Required: true, Max: 1},
			{Name: SlotIconImage, Max: 1},
			{Name: "step1Image", Max: 1},
			{Name: "step2Image", Max: 1},
			{Name: "step3Image", Max: 1},
			{Name: "step4Image", Max: 1},
		},
	},
	KindTrustedClient: {
		Kind:   KindTrustedClient,
		Folder: "trustedClients",
		Fields: []FieldSpec{
			{Name: "category", Required: true},
			{Name: "description", Required: true},
		},
		Slots: []AssetSlot{
			{Name: SlotImage, Required: true, Max: 1},
		},
		Aggregates: []string{AggregateCategoryCounts},
	},
}

// SpecFor returns the descriptor for a kind.
func SpecFor(kind Kind) (KindSpec, error) {
	spec, ok := kindSpecs[kind]
	if !ok {
		return KindSpec{}, ErrUnknownKind
	}
	return spec, nil
}

// Kinds returns every registered kind.
func Kinds() []Kind {
	return []Kind{KindBlog, KindProject, KindService, KindTrustedClient}
}
