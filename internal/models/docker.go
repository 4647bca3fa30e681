package models

// ContainerState describes how the target container came to be.
type ContainerState string

// Container states.
const (
	ContainerExisting ContainerState = "existing, reused"
	ContainerCreated  ContainerState = "freshly created"
)
