package identity

import (
	"fmt"

	"github.com/axesdev/axes/internal/axerr"
)

func errInvalidName(name, reason string) error {
	return axerr.New(axerr.NameConflict, fmt.Sprintf("invalid project name %q: %s", name, reason))
}
