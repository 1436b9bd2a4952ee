package service

// ActorContext carries the requesting actor and the buildings it may manage.
// It replaces role checks inside the business logic: the scope is resolved
// once at the boundary and every operation only asks CanManage.
type ActorContext struct {
	ActorId       string
	BuildingScope []string // building ids; "*" grants every building
}

func (a ActorContext) CanManage(buildingId string) bool {
	for _, b := range a.BuildingScope {
		if b == "*" || b == buildingId {
			return true
		}
	}
	return false
}

// SystemActor is the context used by the time-based triggers.
func SystemActor() ActorContext {
	return ActorContext{ActorId: "system", BuildingScope: []string{"*"}}
}
