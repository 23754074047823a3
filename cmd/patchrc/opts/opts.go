package opts

import (
	"github.com/walteh/patchrc/pkg/document"
)

// RootOpts contains shared options used by all commands
type RootOpts struct {
	Source document.Source
	Sink   document.Sink
}
