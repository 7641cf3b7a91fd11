package types

import (
	"github.com/killallgit/voxscript/internal/coordinator"
	"github.com/killallgit/voxscript/internal/database"
	"github.com/killallgit/voxscript/internal/services/jobs"
	"github.com/killallgit/voxscript/internal/services/loader"
	"github.com/rs/zerolog"
)

// Dependencies holds all the dependencies needed by handlers
type Dependencies struct {
	DB          *database.DB
	Coordinator *coordinator.Coordinator
	JobHistory  jobs.Repository
	Loader      *loader.Loader
	Logger      zerolog.Logger
	Version     string
}
