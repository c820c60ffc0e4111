package testutil

// FixedIDGenerator returns the same instance ID every time.
//
// The same scenario with the same FixedIDGenerator produces byte-identical
// dispatch logs.
//
// Thread-safety: stateless, safe for concurrent use.
type FixedIDGenerator struct {
	id string
}

// NewFixedIDGenerator creates a generator for id. An empty id becomes
// "test-instance-default".
func NewFixedIDGenerator(id string) *FixedIDGenerator {
	if id == "" {
		id = "test-instance-default"
	}
	return &FixedIDGenerator{id: id}
}

// Generate returns the fixed ID.
//
// Implements exposure.IDGenerator.
func (g *FixedIDGenerator) Generate() string {
	return g.id
}
