package effects

// Builtins returns the fixed set of effects shipped with autogif in their
// registration order.
func Builtins() []Effect {
	return []Effect{
		newNone(),
		bounce{},
		brushStroke{},
		fade{},
		glitch{},
		glow{},
		neon{},
		rainbow{},
		shake{},
		slam{},
		sparkle{},
		typewriter{},
		vhsCRT{},
		wave{},
	}
}

var (
	_ Effect = bounce{}
	_ Effect = brushStroke{}
	_ Effect = fade{}
	_ Effect = glitch{}
	_ Effect = glow{}
	_ Effect = neon{}
	_ Effect = rainbow{}
	_ Effect = shake{}
	_ Effect = slam{}
	_ Effect = sparkle{}
	_ Effect = typewriter{}
	_ Effect = vhsCRT{}
	_ Effect = wave{}

	_ Instance = (*typewriterInstance)(nil)
	_ Instance = (*shakeInstance)(nil)
	_ Instance = (*sparkleInstance)(nil)
	_ Instance = (*vhsInstance)(nil)
)
