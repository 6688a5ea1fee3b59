package cv

// Clone returns a deep copy of the document. Mutating the copy never affects d.
func (d Document) Clone() Document {
	out := d
	out.Title = d.Title.Clone()
	out.Summary = d.Summary.Clone()
	if d.Roles != nil {
		out.Roles = make([]Role, len(d.Roles))
		for i, r := range d.Roles {
			out.Roles[i] = r.Clone()
		}
	}
	if d.Skills != nil {
		out.Skills = make([]Skill, len(d.Skills))
		for i, s := range d.Skills {
			out.Skills[i] = s.Clone()
		}
	}
	return out
}

// Clone returns a deep copy of the role.
func (r Role) Clone() Role {
	out := r
	out.Start = cloneDate(r.Start)
	out.End = cloneDate(r.End)
	out.Description = r.Description.Clone()
	if r.Tech != nil {
		out.Tech = make([]TechTag, len(r.Tech))
		copy(out.Tech, r.Tech)
	}
	return out
}

// Clone returns a deep copy of the skill.
func (s Skill) Clone() Skill {
	out := s
	out.Years = cloneFloat(s.Years)
	out.CalculatedYears = cloneFloat(s.CalculatedYears)
	out.OverriddenYears = cloneFloat(s.OverriddenYears)
	return out
}

func cloneFloat(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
