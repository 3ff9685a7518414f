package model

// Base provides identity plumbing for models that want it: it stores the
// descriptor and implements Describe. It carries no behaviour.
type Base struct {
	descriptor Descriptor
}

// NewBase seeds the helper with the model's descriptor.
func NewBase(descriptor Descriptor) Base {
	return Base{descriptor: descriptor}
}

// Describe implements Model.Describe.
func (b *Base) Describe() Descriptor {
	return b.descriptor
}
