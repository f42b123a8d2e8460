package core

import "errors"

var (
	// ErrNotFound indica que el registro no existe.
	ErrNotFound = errors.New("store: not found")

	// ErrUnavailable indica que el datastore no está disponible.
	// Para el reconciliador este error es no-fatal: se loguea y se continúa.
	ErrUnavailable = errors.New("store: unavailable")

	// ErrConflict indica una violación de constraint que no pudo resolverse
	// con el upsert (p.ej. email duplicado en otra fila).
	ErrConflict = errors.New("store: constraint violation")
)
