// pkg/core/component.go
package core

// ComponentKeyTransform identifies the transform replication channel to the
// framework's message router. Both ends must agree on this value.
const ComponentKeyTransform = "transform"

// DestroyWithoutParent tells the distributed-object framework that a
// transform component must not outlive its owning entity.
const DestroyWithoutParent = true

// ObjectID identifies a replicated entity within a session.
type ObjectID uint32
