// Package domain contains pure, dependency-free domain models and rules for
// interview scoring and club elections.
package domain

// Collection names a persisted collection and binds it to the record type
// stored in it. The type parameter T gives compile-time type safety to the
// storage helpers that encode and decode records, eliminating the need for
// runtime type assertions at call sites.
type Collection[T any] struct{ name string }

// NewCollection creates a new Collection with the specified name and type.
// This function is provided for creating collections outside of the domain
// package, mainly in tests.
func NewCollection[T any](name string) Collection[T] {
	return Collection[T]{name: name}
}

// Name returns the storage name of the collection.
func (c Collection[T]) Name() string { return c.name }

// String implements fmt.Stringer.
func (c Collection[T]) String() string { return c.name }

// Predefined collections. Each one is strongly typed to the record it holds.
var (
	// Users stores login accounts keyed by user ID.
	Users = Collection[User]{"users"}

	// Candidates stores interview candidates keyed by candidate ID.
	Candidates = Collection[Candidate]{"candidates"}

	// Ratings stores interviewer ratings keyed by rating ID.
	Ratings = Collection[Rating]{"ratings"}

	// Nominees stores election nominees keyed by nominee ID.
	Nominees = Collection[Nominee]{"nominees"}

	// Votes stores cast votes keyed by vote ID.
	Votes = Collection[Vote]{"votes"}
)

// CollectionNames lists every persisted collection name in a stable order.
func CollectionNames() []string {
	return []string{
		Users.name,
		Candidates.name,
		Ratings.name,
		Nominees.name,
		Votes.name,
	}
}
