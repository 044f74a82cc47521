package core

// ResourceType identifies one of the upstream catalog collections.
type ResourceType string

const (
	ResourceCharacter ResourceType = "character"
	ResourceLocation  ResourceType = "location"
	ResourceEpisode   ResourceType = "episode"
)

// ResourceTypes returns every supported catalog collection.
func ResourceTypes() []ResourceType {
	return []ResourceType{ResourceCharacter, ResourceLocation, ResourceEpisode}
}

// Valid reports whether the resource type is one of the supported collections.
func (t ResourceType) Valid() bool {
	switch t {
	case ResourceCharacter, ResourceLocation, ResourceEpisode:
		return true
	default:
		return false
	}
}

// Plural returns the collection name used in gateway routes and cache keys.
func (t ResourceType) Plural() string {
	return string(t) + "s"
}

// Resource is a single upstream catalog object. The upstream schema is
// loosely typed, so resources are carried as decoded JSON objects rather
// than fixed structs.
type Resource map[string]any
