// Package ident generates the opaque unique ids lists and items are
// addressed by.
package ident

import (
	"fmt"

	"github.com/google/uuid"
)

// Generator returns a new id on every call. Ids are never reused.
type Generator func() string

// UUID returns a random v4 uuid string.
func UUID() string {
	return uuid.New().String()
}

// Friendly returns a human-readable adjective-adjective-animal id. A
// short random suffix keeps collisions out of practical reach while
// the words keep shared URLs speakable.
func Friendly() string {
	u := uuid.New()
	return fmt.Sprintf("%s-%s-%s-%x",
		adjectives[int(u[0])%len(adjectives)],
		adjectives[int(u[1])%len(adjectives)],
		animals[int(u[2])%len(animals)],
		u[3:7])
}

// FromScheme maps the ID_SCHEME config value to a generator.
func FromScheme(scheme string) Generator {
	if scheme == "uuid" {
		return UUID
	}
	return Friendly
}

var adjectives = []string{
	"amber", "bold", "brave", "bright", "calm", "clever", "crimson", "curious",
	"eager", "fuzzy", "gentle", "golden", "happy", "hasty", "humble", "jolly",
	"keen", "lively", "lucky", "mellow", "nimble", "patient", "plucky", "proud",
	"quiet", "rapid", "rustic", "silent", "sleepy", "swift", "vivid", "witty",
}

var animals = []string{
	"badger", "beaver", "bison", "crane", "dolphin", "falcon", "ferret", "finch",
	"gecko", "heron", "ibex", "jackal", "koala", "lemur", "lynx", "marmot",
	"mole", "newt", "otter", "owl", "panda", "puffin", "quail", "raven",
	"seal", "shrew", "sparrow", "stoat", "tapir", "toucan", "walrus", "wren",
}
