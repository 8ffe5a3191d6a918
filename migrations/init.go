package migrations

import (
	"io/fs"

	stories "github.com/inchronicle/go-stories"
)

// The core schema registers itself on import. A failed fs.Sub leaves the
// registry empty rather than panicking; hosts notice when Filesystems comes
// back short.
func init() {
	coreFS, err := fs.Sub(stories.GetCoreMigrationsFS(), "data/sql/migrations")
	if err != nil {
		return
	}
	Register(coreFS)
}
