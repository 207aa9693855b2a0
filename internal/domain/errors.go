package domain

import "errors"

// Errors returned by the mapper. Check them with errors.Is.
var (
	// ErrUnknownTopic is returned when a message arrives for a topic that has
	// no mapping definitions.
	ErrUnknownTopic = errors.New("topicmap: unknown topic")

	// ErrInvalidMessageType is returned when a JSON-based mapping receives a
	// payload that is not text.
	ErrInvalidMessageType = errors.New("topicmap: message is not text")

	// ErrInvalidMapping is returned when a mapping definition cannot be built.
	ErrInvalidMapping = errors.New("topicmap: invalid mapping")

	// ErrVariableCollision is returned when two formula placeholders normalize
	// to the same variable name.
	ErrVariableCollision = errors.New("topicmap: formula variable collision")
)
