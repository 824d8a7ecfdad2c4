package domain

import (
	"errors"
	"fmt"
)

// Fatal errors abort a run. The organization errors are logged and absorbed
// by the resolver and aggregator; they never reach the caller.
var (
	ErrInvalidConfiguration   = errors.New("invalid configuration")
	ErrPrimaryResolution      = errors.New("failed to resolve user")
	ErrPrimaryPagination      = errors.New("failed to fetch repositories of user")
	ErrOrganizationDiscovery  = errors.New("failed to list organizations")
	ErrOrganizationResolution = errors.New("failed to resolve organization")
	ErrOrganizationPagination = errors.New("failed to fetch repositories of organization")
	ErrPageCountConsistency   = errors.New("inconsistent page size")
)

// PageError reports a failed request for one page of an owner's repositories.
type PageError struct {
	Owner string
	Page  int
	Err   error
}

func (e *PageError) Error() string {
	return fmt.Sprintf("page %d of %s: %v", e.Page, e.Owner, e.Err)
}

func (e *PageError) Unwrap() error {
	return e.Err
}

// PageSizeError is raised when a page other than the last one is short.
type PageSizeError struct {
	Owner    string
	Page     int
	PageSize int
	Got      int
}

func (e *PageSizeError) Error() string {
	return fmt.Sprintf("asked %s for %d repos per page, but page %d which wasn't the last one had only %d; --page-size should probably be %d",
		e.Owner, e.PageSize, e.Page, e.Got, e.Got)
}

// Is makes PageSizeError match ErrPageCountConsistency.
func (e *PageSizeError) Is(target error) bool {
	return target == ErrPageCountConsistency
}
