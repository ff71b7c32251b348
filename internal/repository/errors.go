package repository

import "errors"

var (
	// ErrNotFound reports that the requested row does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrVersionConflict reports that a conditional write lost the race:
	// the stored version moved between read and write.
	ErrVersionConflict = errors.New("version conflict")
	// ErrSectorInsufficient reports that a sector withdrawal would drive the
	// sector balance negative.
	ErrSectorInsufficient = errors.New("insufficient sector balance")
)
