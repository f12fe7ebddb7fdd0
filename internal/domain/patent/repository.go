package patent

import "context"

// Store is the persistence contract shared by every backend.
//
// Save inserts new records and ignores records whose PatentNumber is already
// present; it never overwrites and is a no-op for an empty slice.  Load
// returns every record whose GrantDate lies in the inclusive range
// [start, end], or an empty slice when nothing matches.  Clear removes every
// record and is safe on an empty store.
//
// Ordering of Load results is backend-defined; each implementation documents
// its own.
type Store interface {
	Save(ctx context.Context, patents []Patent) error
	Load(ctx context.Context, start, end Date) ([]Patent, error)
	Clear(ctx context.Context) error
}
