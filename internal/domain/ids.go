// Package domain holds the closed data model shared by every core
// component: request/object identity, the approval and test sum types, and
// the composite merge-request state.
package domain

import (
	"fmt"
	"regexp"
)

// RequestId is the opaque identity of a merge request in the review service.
type RequestId int64

// ObjectId is a 40-hex commit identifier.
type ObjectId string

var objectIDPattern = regexp.MustCompile(`^[0-9a-f]{40}$`)

// NewObjectId validates and wraps a commit SHA.
func NewObjectId(sha string) (ObjectId, error) {
	if !objectIDPattern.MatchString(sha) {
		return "", fmt.Errorf("invalid object id %q: want 40 lowercase hex characters", sha)
	}
	return ObjectId(sha), nil
}

func (o ObjectId) String() string { return string(o) }

// UserRef identifies a review-service user.
type UserRef struct {
	ID    int64
	Name  string
	Login string
}
