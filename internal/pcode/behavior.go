package pcode

// Flag is a bit in the per-opcode algebraic-property table (§4.2).
type Flag uint32

const (
	FlagCommutative Flag = 1 << iota
	FlagUnary
	FlagBinary
	FlagTernary
	FlagSpecial // has side effects or affects control flow
	FlagMarker  // MULTIEQUAL / INDIRECT
	FlagBoolOutput
	FlagBranch
	FlagCall
	FlagArithmetic
	FlagShift
	FlagLogical
	FlagFloatingPoint
	FlagInheritsSign
	FlagInheritsSignFirstParamOnly
)

// Behavior is the fixed, statically-enumerated per-opcode metadata table:
// algebraic flags plus the number of inputs a well-formed op of this kind
// has (variadic forms, like CALL, report -1).
type Behavior struct {
	Flags  Flag
	Inputs int // -1 means variable
}

func (b Behavior) Is(f Flag) bool { return b.Flags&f != 0 }

var behaviors = [opcodeCount]Behavior{
	COPY:     {Flags: FlagUnary, Inputs: 1},
	LOAD:     {Flags: FlagSpecial | FlagBinary, Inputs: 2},
	STORE:    {Flags: FlagSpecial | FlagTernary, Inputs: 3},
	SUBPIECE: {Flags: FlagBinary, Inputs: 2},
	PIECE:    {Flags: FlagBinary, Inputs: 2},

	BRANCH:    {Flags: FlagSpecial | FlagBranch, Inputs: 1},
	CBRANCH:   {Flags: FlagSpecial | FlagBranch, Inputs: 2},
	BRANCHIND: {Flags: FlagSpecial | FlagBranch, Inputs: 1},
	CALL:      {Flags: FlagSpecial | FlagCall, Inputs: -1},
	CALLIND:   {Flags: FlagSpecial | FlagCall, Inputs: -1},
	CALLOTHER: {Flags: FlagSpecial, Inputs: -1},
	RETURN:    {Flags: FlagSpecial | FlagBranch, Inputs: -1},

	INT_ADD:        {Flags: FlagBinary | FlagArithmetic | FlagCommutative, Inputs: 2},
	INT_SUB:        {Flags: FlagBinary | FlagArithmetic, Inputs: 2},
	INT_MULT:       {Flags: FlagBinary | FlagArithmetic | FlagCommutative, Inputs: 2},
	INT_DIV:        {Flags: FlagBinary | FlagArithmetic, Inputs: 2},
	INT_SDIV:       {Flags: FlagBinary | FlagArithmetic | FlagInheritsSign, Inputs: 2},
	INT_REM:        {Flags: FlagBinary | FlagArithmetic, Inputs: 2},
	INT_SREM:       {Flags: FlagBinary | FlagArithmetic | FlagInheritsSign, Inputs: 2},
	INT_AND:        {Flags: FlagBinary | FlagLogical | FlagCommutative, Inputs: 2},
	INT_OR:         {Flags: FlagBinary | FlagLogical | FlagCommutative, Inputs: 2},
	INT_XOR:        {Flags: FlagBinary | FlagLogical | FlagCommutative, Inputs: 2},
	INT_NEGATE:     {Flags: FlagUnary | FlagLogical, Inputs: 1},
	INT_2COMP:      {Flags: FlagUnary | FlagArithmetic, Inputs: 1},
	INT_LEFT:       {Flags: FlagBinary | FlagShift, Inputs: 2},
	INT_RIGHT:      {Flags: FlagBinary | FlagShift, Inputs: 2},
	INT_SRIGHT:     {Flags: FlagBinary | FlagShift | FlagInheritsSignFirstParamOnly, Inputs: 2},
	INT_EQUAL:      {Flags: FlagBinary | FlagBoolOutput | FlagCommutative, Inputs: 2},
	INT_NOTEQUAL:   {Flags: FlagBinary | FlagBoolOutput | FlagCommutative, Inputs: 2},
	INT_LESS:       {Flags: FlagBinary | FlagBoolOutput, Inputs: 2},
	INT_LESSEQUAL:  {Flags: FlagBinary | FlagBoolOutput, Inputs: 2},
	INT_SLESS:      {Flags: FlagBinary | FlagBoolOutput | FlagInheritsSign, Inputs: 2},
	INT_SLESSEQUAL: {Flags: FlagBinary | FlagBoolOutput | FlagInheritsSign, Inputs: 2},
	INT_CARRY:      {Flags: FlagBinary | FlagBoolOutput | FlagCommutative, Inputs: 2},
	INT_SCARRY:     {Flags: FlagBinary | FlagBoolOutput | FlagCommutative | FlagInheritsSign, Inputs: 2},
	INT_SBORROW:    {Flags: FlagBinary | FlagBoolOutput | FlagInheritsSign, Inputs: 2},
	INT_ZEXT:       {Flags: FlagUnary, Inputs: 1},
	INT_SEXT:       {Flags: FlagUnary | FlagInheritsSign, Inputs: 1},

	BOOL_AND:    {Flags: FlagBinary | FlagLogical | FlagBoolOutput | FlagCommutative, Inputs: 2},
	BOOL_OR:     {Flags: FlagBinary | FlagLogical | FlagBoolOutput | FlagCommutative, Inputs: 2},
	BOOL_XOR:    {Flags: FlagBinary | FlagLogical | FlagBoolOutput | FlagCommutative, Inputs: 2},
	BOOL_NEGATE: {Flags: FlagUnary | FlagBoolOutput, Inputs: 1},

	FLOAT_ADD:         {Flags: FlagBinary | FlagFloatingPoint | FlagCommutative, Inputs: 2},
	FLOAT_SUB:         {Flags: FlagBinary | FlagFloatingPoint, Inputs: 2},
	FLOAT_MULT:        {Flags: FlagBinary | FlagFloatingPoint | FlagCommutative, Inputs: 2},
	FLOAT_DIV:         {Flags: FlagBinary | FlagFloatingPoint, Inputs: 2},
	FLOAT_NEG:         {Flags: FlagUnary | FlagFloatingPoint, Inputs: 1},
	FLOAT_ABS:         {Flags: FlagUnary | FlagFloatingPoint, Inputs: 1},
	FLOAT_SQRT:        {Flags: FlagUnary | FlagFloatingPoint, Inputs: 1},
	FLOAT_EQUAL:       {Flags: FlagBinary | FlagFloatingPoint | FlagBoolOutput | FlagCommutative, Inputs: 2},
	FLOAT_NOTEQUAL:    {Flags: FlagBinary | FlagFloatingPoint | FlagBoolOutput | FlagCommutative, Inputs: 2},
	FLOAT_LESS:        {Flags: FlagBinary | FlagFloatingPoint | FlagBoolOutput, Inputs: 2},
	FLOAT_LESSEQUAL:   {Flags: FlagBinary | FlagFloatingPoint | FlagBoolOutput, Inputs: 2},
	FLOAT_NAN:         {Flags: FlagUnary | FlagFloatingPoint | FlagBoolOutput, Inputs: 1},
	FLOAT_INT2FLOAT:   {Flags: FlagUnary | FlagFloatingPoint, Inputs: 1},
	FLOAT_FLOAT2FLOAT: {Flags: FlagUnary | FlagFloatingPoint, Inputs: 1},
	FLOAT_TRUNC:       {Flags: FlagUnary | FlagFloatingPoint, Inputs: 1},
	FLOAT_CEIL:        {Flags: FlagUnary | FlagFloatingPoint, Inputs: 1},
	FLOAT_FLOOR:       {Flags: FlagUnary | FlagFloatingPoint, Inputs: 1},
	FLOAT_ROUND:       {Flags: FlagUnary | FlagFloatingPoint, Inputs: 1},

	PTRADD: {Flags: FlagTernary | FlagArithmetic, Inputs: 3},
	PTRSUB: {Flags: FlagBinary | FlagArithmetic, Inputs: 2},

	MULTIEQUAL: {Flags: FlagMarker, Inputs: -1},
	INDIRECT:   {Flags: FlagMarker | FlagSpecial, Inputs: 2},
	CAST:       {Flags: FlagUnary, Inputs: 1},

	SEGMENTOP: {Flags: FlagSpecial, Inputs: -1},
	CPOOLREF:  {Flags: FlagSpecial, Inputs: -1},
	NEW:       {Flags: FlagSpecial, Inputs: -1},
	INSERT:    {Flags: FlagTernary, Inputs: 3},
	EXTRACT:   {Flags: FlagTernary, Inputs: 3},
	POPCOUNT:  {Flags: FlagUnary, Inputs: 1},
	LZCOUNT:   {Flags: FlagUnary, Inputs: 1},
}

// BehaviorOf returns the fixed behaviour metadata for op.
func BehaviorOf(op Opcode) Behavior {
	if op < opcodeCount {
		return behaviors[op]
	}
	return Behavior{}
}

func (op Opcode) IsCommutative() bool   { return BehaviorOf(op).Is(FlagCommutative) }
func (op Opcode) IsMarker() bool        { return BehaviorOf(op).Is(FlagMarker) }
func (op Opcode) IsSpecial() bool       { return BehaviorOf(op).Is(FlagSpecial) }
func (op Opcode) IsBoolOutput() bool    { return BehaviorOf(op).Is(FlagBoolOutput) }
func (op Opcode) IsBranch() bool        { return BehaviorOf(op).Is(FlagBranch) }
func (op Opcode) IsCall() bool          { return BehaviorOf(op).Is(FlagCall) }
func (op Opcode) IsArithmetic() bool    { return BehaviorOf(op).Is(FlagArithmetic) }
func (op Opcode) IsShift() bool         { return BehaviorOf(op).Is(FlagShift) }
func (op Opcode) IsLogical() bool       { return BehaviorOf(op).Is(FlagLogical) }
func (op Opcode) IsFloatingPoint() bool { return BehaviorOf(op).Is(FlagFloatingPoint) }
