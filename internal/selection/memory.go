package selection

// Memory is the last-used color side-state. It survives archetype switches and
// is read only when the reconciler has to pick a fallback.
type Memory struct {
	BodyColor          map[string]string `json:"bodyColor,omitempty" yaml:"body_color,omitempty"`
	BodyColorHex       map[string]string `json:"bodyColorHex,omitempty" yaml:"body_color_hex,omitempty"`
	UniformDepartments []string          `json:"uniformDepartments,omitempty" yaml:"uniform_departments,omitempty"`
}

// Clone returns a deep copy.
func (m Memory) Clone() Memory {
	out := Memory{
		BodyColor:    make(map[string]string, len(m.BodyColor)),
		BodyColorHex: make(map[string]string, len(m.BodyColorHex)),
	}
	for k, v := range m.BodyColor {
		out.BodyColor[k] = v
	}
	for k, v := range m.BodyColorHex {
		out.BodyColorHex[k] = v
	}
	if m.UniformDepartments != nil {
		out.UniformDepartments = append([]string{}, m.UniformDepartments...)
	}
	return out
}

// RememberBodyColor records the body color used for an archetype.
func (m *Memory) RememberBodyColor(archetype, value, hex string) {
	if m.BodyColor == nil {
		m.BodyColor = make(map[string]string)
	}
	if m.BodyColorHex == nil {
		m.BodyColorHex = make(map[string]string)
	}
	m.BodyColor[archetype] = value
	if hex != "" {
		m.BodyColorHex[archetype] = hex
	} else {
		delete(m.BodyColorHex, archetype)
	}
}

// LastBodyColor returns the remembered body color for an archetype.
func (m Memory) LastBodyColor(archetype string) (value, hex string, ok bool) {
	value, ok = m.BodyColor[archetype]
	return value, m.BodyColorHex[archetype], ok
}
