package export

import "errors"

// ErrExport is returned when the history cannot be written.
var ErrExport = errors.New("export failed")
