package vm

// MemberTable is the two-level name -> descriptor -> offset map (spec
// §4.5), grounded on original_source/src/rt/member_table.rs's
// `BTreeMap<Box<str>, BTreeMap<AnyDescriptor, u16>>`. Go's plain map
// replaces the BTreeMap; iteration order over a MemberTable is never an
// observable invariant of this loader.
type MemberTable struct {
	byName map[string]map[string]uint16
}

// NewMemberTable returns an empty table.
func NewMemberTable() *MemberTable {
	return &MemberTable{byName: make(map[string]map[string]uint16)}
}

// Put records the offset for (name, descriptor). offset's meaning
// depends on the member kind: instance field byte offset, static field
// byte offset, or method-table index.
func (t *MemberTable) Put(name, descriptor string, offset uint16) {
	inner, ok := t.byName[name]
	if !ok {
		inner = make(map[string]uint16)
		t.byName[name] = inner
	}
	inner[descriptor] = offset
}

// Get looks up (name, descriptor).
func (t *MemberTable) Get(name, descriptor string) (uint16, bool) {
	inner, ok := t.byName[name]
	if !ok {
		return 0, false
	}
	offset, ok := inner[descriptor]
	return offset, ok
}

// GetAny returns an entry found under name, regardless of descriptor.
// When several descriptors share the name, which one is returned is not
// defined. The loader and interpreter look members up with Get.
func (t *MemberTable) GetAny(name string) (string, uint16, bool) {
	inner, ok := t.byName[name]
	if !ok {
		return "", 0, false
	}
	for desc, offset := range inner {
		return desc, offset, true
	}
	return "", 0, false
}
