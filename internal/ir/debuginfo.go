package ir

// DebugTag enumerates the DWARF-v5-subset tags spec.md §3/§6 name.
type DebugTag int

const (
	TagCompileUnit DebugTag = iota
	TagSubprogram
	TagLexicalBlock
	TagVariable
	TagFormalParameter
	TagLabel
	TagBaseType
	TagPointerType
	TagArrayType
	TagEnumerationType
	TagEnumerator
	TagStructureType
	TagUnionType
	TagMember
	TagSubrangeType
	TagTypedef
	TagSubroutineType
	TagConstType
	TagVolatileType
	TagRestrictType
	TagAtomicType
	TagUnspecifiedParameters
)

// Attributes carries the DWARF attribute set spec.md §6 enumerates. Not
// every field applies to every tag; zero values mean "absent".
type Attributes struct {
	Name           string
	ByteSize       int
	BitSize        int
	DeclFile       string
	DeclLine       int
	DeclColumn     int
	Declaration    bool
	Encoding       int
	TypeRef        int // index into Module.Debug.Entries
	DataMemberLoc  int
	DataBitOffset  int
	LowPC, HighPC  int // IR instruction indices
	Language       string
	Producer       string
	External       bool
	FrameBase      string
	Location       []LocationOp
	LinkageName    string
	Alignment      int
}

// LocationOpKind enumerates the DWARF location-expression operations
// spec.md §6 lists.
type LocationOpKind int

const (
	LocAddr LocationOpKind = iota
	LocConst8U
	LocConst8S
	LocPlus
	LocReg6
	LocBreg6
	LocRegx
	LocFbreg
	LocBregx
	LocPiece
	LocFormTLSAddress
	LocImplicitValue
)

type LocationOp struct {
	Kind  LocationOpKind
	Value int64
}

// DebugEntry is one node of the debug-info tree.
type DebugEntry struct {
	ID       int
	Tag      DebugTag
	Attrs    Attributes
	Parent   int // -1 for the compile-unit root
	Children []int
}

// LocationListRange is one (start, end) pair of a location list.
type LocationListRange struct {
	Start, End int
	Ops        []LocationOp
}

// SourceMapEntry records one (begin, end) IR-index span attributed to a
// source location (spec.md §3 "A per-function source map").
type SourceMapEntry struct {
	BeginIR, EndIR int
	File           string
	Line, Column   int
}

// DebugTree is the module-wide debug-info tree plus per-function source
// maps.
type DebugTree struct {
	Entries   []DebugEntry
	SourceMap map[int][]SourceMapEntry // keyed by the subprogram's DebugEntry ID
}

func NewDebugTree() *DebugTree {
	t := &DebugTree{SourceMap: make(map[int][]SourceMapEntry)}
	// Entry 0 is always the compile-unit.
	t.Entries = append(t.Entries, DebugEntry{ID: 0, Tag: TagCompileUnit, Parent: -1})
	return t
}

// NewEntry appends a debug entry as a child of parent, returning its id.
func (t *DebugTree) NewEntry(tag DebugTag, parent int) int {
	id := len(t.Entries)
	t.Entries = append(t.Entries, DebugEntry{ID: id, Tag: tag, Parent: parent})
	if parent >= 0 && parent < len(t.Entries)-1 {
		t.Entries[parent].Children = append(t.Entries[parent].Children, id)
	}
	return id
}

// Entry returns a pointer to the entry itself for in-place mutation.
func (t *DebugTree) Entry(id int) *DebugEntry { return &t.Entries[id] }

// RecordSourceSpan appends a (begin, end) span to subprogram's source map.
func (t *DebugTree) RecordSourceSpan(subprogram int, span SourceMapEntry) {
	t.SourceMap[subprogram] = append(t.SourceMap[subprogram], span)
}

// CheckNesting validates spec.md §8 property 8: for every lexical-block or
// subprogram entry, low_pc <= high_pc and children's pc ranges nest inside
// their parent's.
func (t *DebugTree) CheckNesting() bool {
	for _, e := range t.Entries {
		if e.Tag != TagSubprogram && e.Tag != TagLexicalBlock {
			continue
		}
		if e.Attrs.LowPC > e.Attrs.HighPC {
			return false
		}
		for _, childID := range e.Children {
			c := t.Entries[childID]
			if c.Tag != TagSubprogram && c.Tag != TagLexicalBlock {
				continue
			}
			if c.Attrs.LowPC < e.Attrs.LowPC || c.Attrs.HighPC > e.Attrs.HighPC {
				return false
			}
		}
	}
	return true
}
