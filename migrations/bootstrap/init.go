package bootstrap

import (
	stories "github.com/inchronicle/go-stories"
	"github.com/inchronicle/go-stories/migrations"
)

func init() {
	migrations.Register(stories.GetAuthBootstrapMigrationsFS())
}
