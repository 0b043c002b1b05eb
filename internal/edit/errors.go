package edit

import (
	"fmt"
	"strings"
)

// AlreadyEditableError reports an attempt to check out a node type that
// already has an editable copy. At most one editable copy exists per node
// type at a time.
type AlreadyEditableError struct {
	Namespace string
	Name      string
	Path      string
}

func (e *AlreadyEditableError) Error() string {
	return fmt.Sprintf("%s::%s already has an editable copy at %s", e.Namespace, e.Name, e.Path)
}

// NotEditableError reports a session operation on a node type with no
// editable copy.
type NotEditableError struct {
	Namespace string
	Name      string
}

func (e *NotEditableError) Error() string {
	return fmt.Sprintf("%s::%s has no editable copy", e.Namespace, e.Name)
}

// InvalidNamespaceError reports a reconfiguration into a namespace the
// manager does not recognize and the user did not confirm.
type InvalidNamespaceError struct {
	Namespace string
	Known     []string
}

func (e *InvalidNamespaceError) Error() string {
	return fmt.Sprintf("%s is not a recognized namespace (known: %s); confirm to create it",
		e.Namespace, strings.Join(e.Known, ", "))
}

// PublishRejectedError reports a publish attempted without a fresh,
// all-passing validation.
type PublishRejectedError struct {
	Reasons []string
}

func (e *PublishRejectedError) Error() string {
	return "publish rejected: " + strings.Join(e.Reasons, "; ")
}

// PublishConflictError reports that the publish target was taken between
// validation and the write, typically by a concurrent publisher.
type PublishConflictError struct {
	Path string
}

func (e *PublishConflictError) Error() string {
	return fmt.Sprintf("publish target already exists: %s", e.Path)
}
