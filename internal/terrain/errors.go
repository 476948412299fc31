package terrain

import "fmt"

// Error codes raised by Transformation.Initialize. The numeric values are
// part of the editor's API surface and must stay stable.
const (
	// ErrCodeMissingModelID: a required model id was left unset. Checked
	// before any scene lookup happens.
	ErrCodeMissingModelID = 0
	// ErrCodeUnknownModel: a referenced model id is not in the scene's
	// live model set.
	ErrCodeUnknownModel = 1
	// ErrCodeNonPlanarPolygon: a polygon that must be planar is not.
	ErrCodeNonPlanarPolygon = 2
)

// MapTransformationError is the typed validation error of the two-phase
// transformation protocol. It only originates in Initialize; Apply is
// expected to always succeed after a successful Initialize.
type MapTransformationError struct {
	Code   int
	Detail string
}

func (e *MapTransformationError) Error() string {
	return fmt.Sprintf("map transformation error %d: %s", e.Code, e.Detail)
}

func errMissingModelID(role string) *MapTransformationError {
	return &MapTransformationError{Code: ErrCodeMissingModelID, Detail: fmt.Sprintf("%s model id is unset", role)}
}

func errUnknownModel(id string) *MapTransformationError {
	return &MapTransformationError{Code: ErrCodeUnknownModel, Detail: fmt.Sprintf("model %q is not in the scene", id)}
}

func errNonPlanarPolygon(id string) *MapTransformationError {
	return &MapTransformationError{Code: ErrCodeNonPlanarPolygon, Detail: fmt.Sprintf("polygon %q is not planar", id)}
}
