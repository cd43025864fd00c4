// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// handlers to distinguish between different failure scenarios and map
// them onto the response envelope with the right HTTP status.
package repository

import "errors"

// ErrConflict is returned when a delete cannot be performed because of
// dependent records, such as removing a product that still has photo
// requests or photos. Handlers translate this into an HTTP 409 response.
var ErrConflict = errors.New("conflict")
