package model

import (
	"fmt"
	"strings"
)

// Kind identifies a record kind. Each kind is stored in its own collection.
type Kind string

const (
	KindApplication Kind = "application"
	KindInterview   Kind = "interview"
	KindStatusCode  Kind = "statusCode"
)

// Kinds lists every record kind in parent-before-child order.
var Kinds = []Kind{KindStatusCode, KindApplication, KindInterview}

// Collection names as laid out in the persisted store.
const (
	CollectionApplications = "Applications"
	CollectionInterviews   = "Interviews"
	CollectionStatusCodes  = "StatusCodes"
)

// Collection returns the collection that holds records of this kind.
// Returns "" for an unknown kind.
func (k Kind) Collection() string {
	switch k {
	case KindApplication:
		return CollectionApplications
	case KindInterview:
		return CollectionInterviews
	case KindStatusCode:
		return CollectionStatusCodes
	}
	return ""
}

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	return k.Collection() != ""
}

func (k Kind) String() string {
	return string(k)
}

// ParseKind accepts a kind or collection name in any case, singular or plural
// ("application", "Applications", "status-code", "statusCodes").
func ParseKind(s string) (Kind, error) {
	norm := strings.ToLower(strings.TrimSpace(s))
	norm = strings.NewReplacer("-", "", "_", "").Replace(norm)
	norm = strings.TrimSuffix(norm, "s")

	switch norm {
	case "application":
		return KindApplication, nil
	case "interview":
		return KindInterview, nil
	case "statuscode":
		return KindStatusCode, nil
	}
	return "", fmt.Errorf("unknown record kind %q", s)
}
