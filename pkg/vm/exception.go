package vm

import "fmt"

// ThrownException is an in-flight JVM exception: either a real heap
// object (athrow, or `new` followed by athrow) or a VM-synthesized
// fault (null dereference, array bounds, division by zero) for which
// no object was ever allocated -- this implementation does not carry
// the builtin JDK exception hierarchy, so synthesized faults match
// handlers by name against syntheticSupertypes rather than by walking
// a loaded class's super chain.
type ThrownException struct {
	ClassName string
	Value     Value // NullValue for VM-synthesized faults
}

func (e *ThrownException) Error() string {
	return fmt.Sprintf("uncaught exception: %s", e.ClassName)
}

// newFault builds a VM-synthesized ThrownException for a fault with no
// backing heap object (spec §9 "Exception handling": athrow *or* a
// VM-detected fault scans the exception table the same way).
func newFault(className string) *ThrownException {
	return &ThrownException{ClassName: className}
}

// syntheticSupertypes hardcodes the slice of java.lang's exception
// hierarchy this interpreter's VM-detected faults need, since the
// corresponding classes are never actually loaded (spec §1 non-goal:
// "no full implementation of the standard library"). User-thrown
// exceptions (real heap objects from `new`) are matched by the actual
// loaded class-id chain instead, via Runtime.IsInstanceOf.
var syntheticSupertypes = map[string]string{
	"java/lang/NullPointerException":           "java/lang/RuntimeException",
	"java/lang/ArrayIndexOutOfBoundsException": "java/lang/IndexOutOfBoundsException",
	"java/lang/IndexOutOfBoundsException":      "java/lang/RuntimeException",
	"java/lang/ArithmeticException":            "java/lang/RuntimeException",
	"java/lang/RuntimeException":               "java/lang/Exception",
	"java/lang/Exception":                      "java/lang/Throwable",
}

// matchesSynthetic reports whether a synthesized fault of className is
// an instance of (or equal to) targetName, walking the hardcoded chain.
func matchesSynthetic(className, targetName string) bool {
	for className != "" {
		if className == targetName {
			return true
		}
		className = syntheticSupertypes[className]
	}
	return false
}

// handlerMatches reports whether handler h catches thrown, per spec §9:
// an empty CatchClassName is catch-all (finally); otherwise a real
// thrown object is matched by walking its dynamic class-id chain, and a
// synthesized fault is matched against the hardcoded supertype chain.
func (rt *Runtime) handlerMatches(h ExceptionHandler, thrown *ThrownException) bool {
	if h.CatchClassName == "" {
		return true
	}
	if thrown.Value.IsHeap() {
		classID := ObjectClassID(rt, thrown.Value)
		return rt.IsInstanceOf(classID, h.CatchClassName)
	}
	return matchesSynthetic(thrown.ClassName, h.CatchClassName)
}

// findHandler scans md's exception table for the first handler whose
// range contains pc and whose catch type matches thrown.
func findHandler(md *MethodDef, rt *Runtime, pc uint32, thrown *ThrownException) *ExceptionHandler {
	for i := range md.Handlers {
		h := &md.Handlers[i]
		if pc < h.StartPC || pc >= h.EndPC {
			continue
		}
		if rt.handlerMatches(*h, thrown) {
			return h
		}
	}
	return nil
}
