package model

// EntityKind is the closed set of entity categories a note can reference.
// Earlier taxonomies used free-form type strings (person, topic, project,
// tech); those collapse onto this closed variant via KindFromLegacy.
type EntityKind string

const (
	EntityKindPerson EntityKind = "person"
	EntityKindTopic  EntityKind = "topic"
	EntityKindPlace  EntityKind = "place"
	EntityKindTime   EntityKind = "time"
	EntityKindTag    EntityKind = "tag"
)

// legacyKinds maps historical free-form entity type strings onto the
// closed EntityKind variant.
var legacyKinds = map[string]EntityKind{
	"person":  EntityKindPerson,
	"people":  EntityKindPerson,
	"topic":   EntityKindTopic,
	"project": EntityKindTopic,
	"tech":    EntityKindTopic,
	"concept": EntityKindTopic,
	"place":   EntityKindPlace,
	"where":   EntityKindPlace,
	"time":    EntityKindTime,
	"when":    EntityKindTime,
	"tag":     EntityKindTag,
}

// KindFromLegacy maps a legacy entity type string onto the closed taxonomy.
// Unknown strings map to EntityKindTopic.
func KindFromLegacy(legacy string) EntityKind {
	if kind, ok := legacyKinds[legacy]; ok {
		return kind
	}
	return EntityKindTopic
}

// Entity is a named entity referenced by a note's episodic metadata.
type Entity struct {
	Name string     `json:"name"`
	Kind EntityKind `json:"kind"`
}
