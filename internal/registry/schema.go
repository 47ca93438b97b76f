package registry

import "fmt"

// AboutKey is the reserved table that describes the document.
const AboutKey = "about"

// Schema describes a document variant.
type Schema struct {
	// Name identifies the schema in messages and logs.
	Name string

	// Required lists the about fields a valid document must carry.
	Required []string

	// ContentField is the field that introduces a new entry.
	ContentField string
}

// Identities is the schema of the project registry, whose entries map
// identity addresses to extended private keys.
var Identities = Schema{
	Name:         "identities",
	Required:     []string{"version"},
	ContentField: "xpriv",
}

// Annotations is the schema of an identity's metadata document, whose
// entries map file paths to tags.
var Annotations = Schema{
	Name:         "annotations",
	Required:     []string{"version", "name", "author"},
	ContentField: "immutag",
}

// SchemaByName returns the built-in schema with the given name.
func SchemaByName(name string) (Schema, error) {
	switch name {
	case Identities.Name:
		return Identities, nil
	case Annotations.Name:
		return Annotations, nil
	default:
		return Schema{}, fmt.Errorf("unknown schema %q", name)
	}
}

// Field is a named string value.
type Field struct {
	Name  string `json:"name" yaml:"name"`
	Value string `json:"value" yaml:"value"`
}

// State is the validity state of a document.
type State int

const (
	NonExistent State = iota
	Valid
	Invalid
)

func (s State) String() string {
	switch s {
	case NonExistent:
		return "non-existent"
	case Valid:
		return "valid"
	case Invalid:
		return "invalid"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}
