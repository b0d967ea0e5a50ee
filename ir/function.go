package ir

import "fmt"

// Function is one lowered function body: an ordered parameter register
// list, a sequential instruction stream, and a register-type annotation
// map the backend consults to pick typed load/store opcodes.
//
// Grounded on gvm/vm/compile.go's Instruction-slice-building idiom in
// CompileSourceFromBuffer, generalized from a flat byte program to a
// typed register-based one.
type Function struct {
	Name       string
	Params     []Register
	ReturnType ElemType
	Body       []Instruction

	nextReg   int
	regTypes  map[int]ElemType
	labelSeq  int
}

// NewFunction creates an empty function ready to accept parameters and
// instructions.
func NewFunction(name string, returnType ElemType) *Function {
	return &Function{
		Name:       name,
		ReturnType: returnType,
		regTypes:   make(map[int]ElemType),
	}
}

// NewRegister allocates a fresh virtual register, not yet type-annotated.
func (f *Function) NewRegister() Register {
	r := Register{id: f.nextReg}
	f.nextReg++
	return r
}

// AddParam allocates a fresh register for a parameter and records its
// source type, then appends it to Params in declaration order.
func (f *Function) AddParam(t ElemType) Register {
	r := f.NewRegister()
	f.SetRegisterType(r, t)
	f.Params = append(f.Params, r)
	return r
}

// SetRegisterType annotates r with its element type. The builder calls
// this for every register it allocates, since the backend has no other
// source of per-register width/type information.
func (f *Function) SetRegisterType(r Register, t ElemType) {
	f.regTypes[r.id] = t
}

// RegisterType looks up a previously annotated register type. ok is
// false for a register the builder never annotated; the backend then
// treats that register as TypeLong.
func (f *Function) RegisterType(r Register) (ElemType, bool) {
	t, ok := f.regTypes[r.id]
	return t, ok
}

// NumRegisters reports how many registers have been allocated, i.e. the
// exclusive upper bound on valid register ids — used by the backend's
// linear-scan allocator to size its slot table.
func (f *Function) NumRegisters() int { return f.nextReg }

// Emit appends an instruction to the function body in program order.
func (f *Function) Emit(instr Instruction) {
	f.Body = append(f.Body, instr)
}

// NewLabel mints a function-unique label with a purpose tag for
// readability (e.g. "while_cond", "if_else"), mirroring the
// name+counter scheme the backend also uses for its own fix-up labels.
func (f *Function) NewLabel(purpose string) Label {
	f.labelSeq++
	return Label{Name: fmt.Sprintf("%s.%s.%d", f.Name, purpose, f.labelSeq)}
}

// String renders the function in the textual form spec.md §4.1/§6
// describes: `func <name>(%p0, %p1, ...) { ... }`.
func (f *Function) String() string {
	s := fmt.Sprintf("func %s(", f.Name)
	for i, p := range f.Params {
		if i > 0 {
			s += ", "
		}
		s += p.String()
	}
	s += ") {\n"
	for _, instr := range f.Body {
		s += "    " + instr.String() + "\n"
	}
	s += "}"
	return s
}
