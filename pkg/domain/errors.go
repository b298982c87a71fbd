package domain

import "fmt"

// NotFoundError reports a missing referenced entity. The document is
// guaranteed untouched when one is returned.
type NotFoundError struct {
	Entity EntityType
	Ref    string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Entity, e.Ref)
}

// ConflictError reports a structural precondition failure: duplicate
// identifier on create, or a delete blocked by referencing records.
type ConflictError struct {
	Entity EntityType
	Ref    string
	Reason string
}

func (e ConflictError) Error() string {
	return fmt.Sprintf("%s %q: %s", e.Entity, e.Ref, e.Reason)
}

// CapacityError reports that a planting's requested footage does not fit
// starting at the candidate bed. AvailableFeet is the footage actually
// accumulated walking forward from the start bed, not the whole group.
type CapacityError struct {
	GroupName     string
	StartBedName  string
	RequestedFeet float64
	AvailableFeet float64
}

func (e CapacityError) Error() string {
	return fmt.Sprintf("not enough space in %q starting at bed %q: requested %g ft, only %g ft available",
		e.GroupName, e.StartBedName, e.RequestedFeet, e.AvailableFeet)
}

// FormatError reports a malformed or unsupported plan export file.
type FormatError struct {
	Reason string
}

func (e FormatError) Error() string {
	return "invalid plan file: " + e.Reason
}
