package models

// Scope says whether a record belongs to a group or is personal.
// It is a closed sum type: the only implementations are Personal and InGroup.
type Scope interface {
	isScope()
}

// Personal is the scope of an expense or settlement outside any group.
type Personal struct{}

// InGroup is the scope of a record owned by a group.
type InGroup struct {
	GroupID string
}

func (Personal) isScope() {}
func (InGroup) isScope()  {}

// ScopeOf builds a Scope from an optional group id.
func ScopeOf(groupID string) Scope {
	if groupID == "" {
		return Personal{}
	}
	return InGroup{GroupID: groupID}
}

// GroupIDOf returns the group id of s, or "" and false for a personal scope.
func GroupIDOf(s Scope) (string, bool) {
	if g, ok := s.(InGroup); ok {
		return g.GroupID, true
	}
	return "", false
}
