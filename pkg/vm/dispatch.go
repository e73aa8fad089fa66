package vm

// ResolveVirtual walks the class-id chain starting at dynamicClassID
// (spec §9's dynamic-dispatch redesign) to find the nearest (name,
// descriptor) method definition, for invokevirtual/invokeinterface.
func (rt *Runtime) ResolveVirtual(dynamicClassID uint32, name, descriptor string) (uint32, *MethodDef) {
	id := dynamicClassID
	for {
		lc := rt.classes[id]
		if idx, ok := lc.Methods.Get(name, descriptor); ok {
			return id, &lc.MethodDefs[idx]
		}
		// Every class in the chain -- not only the root -- may declare
		// interfaces, so a method defined only as an interface default
		// (its own Code attribute, never overridden) must be reachable
		// from wherever that interface was declared, not just from
		// java/lang/Object's dead end.
		for _, ifaceID := range lc.Interfaces {
			if ownerID, md := rt.ResolveVirtual(ifaceID, name, descriptor); md != nil {
				return ownerID, md
			}
		}
		if lc.SuperID < 0 {
			return 0, nil
		}
		id = uint32(lc.SuperID)
	}
}

// IsInstanceOf reports whether the class identified by classID is
// targetName or a (transitive) subclass/implementor of it.
func (rt *Runtime) IsInstanceOf(classID uint32, targetName string) bool {
	return rt.isInstanceOfVisited(classID, targetName, make(map[uint32]bool))
}

func (rt *Runtime) isInstanceOfVisited(classID uint32, targetName string, visited map[uint32]bool) bool {
	if visited[classID] {
		return false
	}
	visited[classID] = true

	lc := rt.classes[classID]
	if lc.Name == targetName {
		return true
	}
	for _, ifaceID := range lc.Interfaces {
		if rt.isInstanceOfVisited(ifaceID, targetName, visited) {
			return true
		}
	}
	if lc.SuperID >= 0 {
		return rt.isInstanceOfVisited(uint32(lc.SuperID), targetName, visited)
	}
	return false
}
