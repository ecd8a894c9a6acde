package export

import "fmt"

// Pipeline stages reported by ExportError.
const (
	StageStyle    = "style"
	StagePaginate = "paginate"
	StageRender   = "render"
	StageCanceled = "canceled"
)

// ExportError is returned for any failure inside the pipeline. No artifact
// accompanies it.
type ExportError struct {
	Stage string
	Err   error
}

func (e *ExportError) Error() string {
	return fmt.Sprintf("export %s: %v", e.Stage, e.Err)
}

func (e *ExportError) Unwrap() error { return e.Err }
