package param

// Builder provides a fluent API for creating parameters
type Builder struct {
	param    *Parameter
	defPlain *float64
}

// New creates a new parameter builder with a linear 0-1 scale
func New(id uint32, name string) *Builder {
	return &Builder{
		param: &Parameter{
			ID:        id,
			Name:      name,
			ShortName: name,
			Flags:     CanAutomate,
		},
	}
}

// ShortName sets the short name
func (b *Builder) ShortName(name string) *Builder {
	b.param.ShortName = name
	return b
}

// Range sets a linear scale between min and max
func (b *Builder) Range(min, max float64) *Builder {
	b.param.scale = NewLinearScale(min, max)
	return b
}

// Scale sets a custom normalized-to-plain mapping
func (b *Builder) Scale(s Scale) *Builder {
	b.param.scale = s
	return b
}

// Default sets the default value (in plain range, not normalized). It is
// resolved in Build so it may be given before Range or Scale.
func (b *Builder) Default(value float64) *Builder {
	v := value
	b.defPlain = &v
	return b
}

// DefaultNormalized sets the default value directly in [0, 1]
func (b *Builder) DefaultNormalized(value float64) *Builder {
	b.defPlain = nil
	b.param.DefaultValue = clamp01(value)
	return b
}

// Unit sets the unit string
func (b *Builder) Unit(unit string) *Builder {
	b.param.Unit = unit
	return b
}

// Steps sets the number of discrete steps
func (b *Builder) Steps(count int32) *Builder {
	b.param.StepCount = count
	return b
}

// Toggle creates a boolean parameter
func (b *Builder) Toggle() *Builder {
	b.param.scale = BoolScale{}
	b.param.StepCount = 1
	b.param.formatFunc = OnOffFormatter
	b.param.parseFunc = OnOffParser
	return b
}

// Choice creates a discrete parameter selecting one of names
func (b *Builder) Choice(names ...string) *Builder {
	b.param.scale = NewIntScale(len(names) - 1)
	b.param.StepCount = int32(len(names) - 1)
	b.param.formatFunc = ChoiceFormatter(names...)
	b.param.parseFunc = ChoiceParser(names...)
	return b
}

// Hidden marks the parameter as hidden
func (b *Builder) Hidden() *Builder {
	b.param.Flags |= IsHidden
	return b
}

// Bypass marks this as the bypass parameter
func (b *Builder) Bypass() *Builder {
	b.param.Flags |= IsBypass
	return b.Toggle()
}

// Formatter sets custom value formatting and parsing
func (b *Builder) Formatter(format func(float64) string, parse func(string) (float64, error)) *Builder {
	b.param.formatFunc = format
	b.param.parseFunc = parse
	return b
}

// Build returns the configured parameter
func (b *Builder) Build() *Parameter {
	if b.defPlain != nil {
		b.param.DefaultValue = b.param.Normalize(*b.defPlain)
	}
	b.param.SetValue(b.param.DefaultValue)
	return b.param
}
