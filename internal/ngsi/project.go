package ngsi

import (
	"github.com/rs/zerolog"
)

// Normalizer is implemented by domain entities that have a normalized wire form.
type Normalizer interface {
	Normalize() *Entity
}

// Project normalizes every entity and, when attrs is non-nil, reduces each
// result to id, type and the requested attributes in the order of attrs.
// Requested attributes that are unknown or absent are dropped.
func Project(entities []Normalizer, attrs []string, log zerolog.Logger) []*Entity {
	result := make([]*Entity, 0, len(entities))

	for _, entity := range entities {
		normalized := entity.Normalize()
		if attrs == nil {
			result = append(result, normalized)
			continue
		}

		projected := NewEntity(normalized.ID, normalized.Type)
		for _, name := range attrs {
			attr, ok := normalized.Get(name)
			if !ok {
				log.Debug().
					Str("entity_id", normalized.ID).
					Str("attribute", name).
					Msg("requested attribute not present, dropping")
				continue
			}
			projected.Set(name, attr)
		}
		result = append(result, projected)
	}

	return result
}
