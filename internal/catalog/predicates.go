package catalog

// Context is everything a visibility predicate may read. Species is only
// meaningful for humanoids; Filter is the color-filter mode of the selected
// uniform.
type Context struct {
	Archetype Archetype
	Species   string
	Ears      string
	Filter    string
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

// speciesAllowed applies an include list and an exclude list. Species
// restrictions only bind humanoids; other archetypes have no species.
func speciesAllowed(ctx Context, include, exclude []string) bool {
	if ctx.Archetype != Humanoid {
		return len(include) == 0
	}
	if len(include) > 0 && !contains(include, ctx.Species) {
		return false
	}
	return !contains(exclude, ctx.Species)
}

// ControlApplies reports whether the control itself applies to ctx,
// independent of its options.
func (c *Catalog) ControlApplies(id ControlID, ctx Context) bool {
	ctl, ok := c.byID[id]
	if !ok {
		return false
	}
	if len(ctl.Archetypes) > 0 && !contains(ctl.Archetypes, string(ctx.Archetype)) {
		return false
	}
	return speciesAllowed(ctx, ctl.Species, ctl.ExceptSpecies)
}

// VisibleFor returns the option predicate of a control under ctx. The
// predicate is false for every option when the control does not apply.
func (c *Catalog) VisibleFor(id ControlID, ctx Context) func(Option) bool {
	ctl, ok := c.byID[id]
	if !ok || !c.ControlApplies(id, ctx) {
		return func(Option) bool { return false }
	}
	return func(o Option) bool {
		if len(o.Archetypes) > 0 && !contains(o.Archetypes, string(ctx.Archetype)) {
			return false
		}
		if !speciesAllowed(ctx, o.Species, o.ExceptSpecies) {
			return false
		}
		if len(o.Ears) > 0 && !contains(o.Ears, ctx.Ears) {
			return false
		}
		if ctl.GroupFilter && o.Group != ctx.Filter {
			return false
		}
		return true
	}
}
