package pcode

import (
	"errors"

	"github.com/holiman/uint256"
)

// ErrNotCollapsible signals that an operation's inputs are constant but the
// operation has no well-defined constant result (div-by-zero, a shift
// amount that exceeds the output's precision, ...). It is not a fatal
// error: the caller simply declines to fold the operation.
var ErrNotCollapsible = errors.New("pcode: operation not collapsible to a constant")

// mask returns a uint256 bitmask covering the low sizeBytes*8 bits.
func mask(sizeBytes int) *uint256.Int {
	bits := sizeBytes * 8
	if bits >= 256 {
		return new(uint256.Int).Not(new(uint256.Int))
	}
	one := uint256.NewInt(1)
	shifted := new(uint256.Int).Lsh(one, uint(bits))
	return new(uint256.Int).Sub(shifted, uint256.NewInt(1))
}

func truncate(v *uint256.Int, sizeBytes int) *uint256.Int {
	return new(uint256.Int).And(v, mask(sizeBytes))
}

func signBit(sizeBytes int) *uint256.Int {
	bits := sizeBytes*8 - 1
	return new(uint256.Int).Lsh(uint256.NewInt(1), uint(bits))
}

func isNegative(v *uint256.Int, sizeBytes int) bool {
	return new(uint256.Int).And(v, signBit(sizeBytes)).Sign() != 0
}

// signExtend sign-extends the sizeBytes-wide value v to a full-width
// uint256 two's-complement representation (used internally before a
// signed comparison or division).
func signExtend(v *uint256.Int, sizeBytes int) *uint256.Int {
	if sizeBytes >= 32 || !isNegative(v, sizeBytes) {
		return new(uint256.Int).Set(v)
	}
	ones := new(uint256.Int).Not(new(uint256.Int))
	highMask := new(uint256.Int).Sub(ones, mask(sizeBytes))
	return new(uint256.Int).Or(v, highMask)
}

// EvalUnary evaluates a unary opcode on a sizeBytes-wide constant input,
// producing an outSize-wide constant output. It returns ErrNotCollapsible
// for opcodes this evaluator does not fold (e.g. those with side effects).
func EvalUnary(op Opcode, in *uint256.Int, inSize, outSize int) (*uint256.Int, error) {
	in = truncate(in, inSize)
	switch op {
	case COPY, CAST:
		return truncate(in, outSize), nil
	case INT_NEGATE:
		return truncate(new(uint256.Int).Not(in), outSize), nil
	case INT_2COMP:
		neg := new(uint256.Int).Sub(new(uint256.Int), in)
		return truncate(neg, outSize), nil
	case BOOL_NEGATE:
		if in.IsZero() {
			return uint256.NewInt(1), nil
		}
		return new(uint256.Int), nil
	case INT_ZEXT:
		return truncate(in, outSize), nil
	case INT_SEXT:
		return truncate(signExtend(in, inSize), outSize), nil
	case POPCOUNT:
		n := 0
		for i := 0; i < inSize*8; i++ {
			if new(uint256.Int).And(new(uint256.Int).Rsh(in, uint(i)), uint256.NewInt(1)).Sign() != 0 {
				n++
			}
		}
		return uint256.NewInt(uint64(n)), nil
	case LZCOUNT:
		n := 0
		for i := inSize*8 - 1; i >= 0; i-- {
			if new(uint256.Int).And(new(uint256.Int).Rsh(in, uint(i)), uint256.NewInt(1)).Sign() != 0 {
				break
			}
			n++
		}
		return uint256.NewInt(uint64(n)), nil
	default:
		return nil, ErrNotCollapsible
	}
}

// EvalBinary evaluates a binary opcode on two sizeBytes-wide constant
// inputs, producing an outSize-wide constant output.
func EvalBinary(op Opcode, a, b *uint256.Int, inSize, outSize int) (*uint256.Int, error) {
	a = truncate(a, inSize)
	b = truncate(b, inSize)

	boolVal := func(cond bool) (*uint256.Int, error) {
		if cond {
			return uint256.NewInt(1), nil
		}
		return new(uint256.Int), nil
	}

	switch op {
	case INT_ADD:
		return truncate(new(uint256.Int).Add(a, b), outSize), nil
	case INT_SUB:
		return truncate(new(uint256.Int).Sub(a, b), outSize), nil
	case INT_MULT:
		return truncate(new(uint256.Int).Mul(a, b), outSize), nil
	case INT_AND:
		return truncate(new(uint256.Int).And(a, b), outSize), nil
	case INT_OR:
		return truncate(new(uint256.Int).Or(a, b), outSize), nil
	case INT_XOR:
		return truncate(new(uint256.Int).Xor(a, b), outSize), nil
	case INT_DIV:
		if b.IsZero() {
			return nil, ErrNotCollapsible
		}
		return truncate(new(uint256.Int).Div(a, b), outSize), nil
	case INT_REM:
		if b.IsZero() {
			return nil, ErrNotCollapsible
		}
		return truncate(new(uint256.Int).Mod(a, b), outSize), nil
	case INT_SDIV:
		if b.IsZero() {
			return nil, ErrNotCollapsible
		}
		sa, sb := signExtend(a, inSize), signExtend(b, inSize)
		return truncate(new(uint256.Int).SDiv(sa, sb), outSize), nil
	case INT_SREM:
		if b.IsZero() {
			return nil, ErrNotCollapsible
		}
		sa, sb := signExtend(a, inSize), signExtend(b, inSize)
		q := new(uint256.Int).SDiv(sa, sb)
		prod := new(uint256.Int).Mul(q, sb)
		return truncate(new(uint256.Int).Sub(sa, prod), outSize), nil
	case INT_LEFT:
		sa := shiftAmount(b)
		if sa < 0 || sa >= inSize*8 {
			return nil, ErrNotCollapsible
		}
		return truncate(new(uint256.Int).Lsh(a, uint(sa)), outSize), nil
	case INT_RIGHT:
		sa := shiftAmount(b)
		if sa < 0 || sa >= inSize*8 {
			return nil, ErrNotCollapsible
		}
		return truncate(new(uint256.Int).Rsh(a, uint(sa)), outSize), nil
	case INT_SRIGHT:
		sa := shiftAmount(b)
		signed := signExtend(a, inSize)
		if sa < 0 {
			return nil, ErrNotCollapsible
		}
		if sa >= inSize*8 {
			if isNegative(a, inSize) {
				return truncate(new(uint256.Int).Not(new(uint256.Int)), outSize), nil
			}
			return new(uint256.Int), nil
		}
		shifted := new(uint256.Int).SRsh(signed, uint(sa))
		return truncate(shifted, outSize), nil
	case INT_EQUAL:
		return boolVal(a.Eq(b))
	case INT_NOTEQUAL:
		return boolVal(!a.Eq(b))
	case INT_LESS:
		return boolVal(a.Lt(b))
	case INT_LESSEQUAL:
		return boolVal(a.Lt(b) || a.Eq(b))
	case INT_SLESS:
		sa, sb := signExtend(a, inSize), signExtend(b, inSize)
		return boolVal(sa.Slt(sb))
	case INT_SLESSEQUAL:
		sa, sb := signExtend(a, inSize), signExtend(b, inSize)
		return boolVal(sa.Slt(sb) || sa.Eq(sb))
	case INT_CARRY:
		// unsigned overflow: the untruncated sum exceeds what fits in inSize bytes.
		sum := new(uint256.Int).Add(a, b)
		return boolVal(!sum.Eq(truncate(sum, inSize)))
	case INT_SCARRY:
		// signed overflow on addition: operands share a sign but the (truncated)
		// result's sign differs from theirs.
		sum := truncate(new(uint256.Int).Add(a, b), inSize)
		return boolVal(isNegative(a, inSize) == isNegative(b, inSize) && isNegative(sum, inSize) != isNegative(a, inSize))
	case INT_SBORROW:
		// signed overflow on subtraction: operands have different signs and the
		// (truncated) result's sign differs from the minuend's.
		diff := truncate(new(uint256.Int).Sub(a, b), inSize)
		return boolVal(isNegative(a, inSize) != isNegative(b, inSize) && isNegative(diff, inSize) != isNegative(a, inSize))
	case BOOL_AND:
		return boolVal(!a.IsZero() && !b.IsZero())
	case BOOL_OR:
		return boolVal(!a.IsZero() || !b.IsZero())
	case BOOL_XOR:
		return boolVal(!a.IsZero() != !b.IsZero())
	default:
		return nil, ErrNotCollapsible
	}
}

func shiftAmount(v *uint256.Int) int {
	if !v.IsUint64() {
		return -1
	}
	u := v.Uint64()
	if u > 1<<20 {
		return -1
	}
	return int(u)
}

// EvalSubpiece evaluates SUBPIECE truncOffset bytes into whole (width
// wholeSize), producing an outSize-wide result.
func EvalSubpiece(whole *uint256.Int, wholeSize, truncOffset, outSize int) *uint256.Int {
	shifted := new(uint256.Int).Rsh(truncate(whole, wholeSize), uint(truncOffset)*8)
	return truncate(shifted, outSize)
}

// EvalPiece evaluates PIECE of a hiSize-wide high part and a loSize-wide low
// part into a (hiSize+loSize)-wide whole.
func EvalPiece(hi *uint256.Int, hiSize int, lo *uint256.Int, loSize int) *uint256.Int {
	hi = truncate(hi, hiSize)
	lo = truncate(lo, loSize)
	shiftedHi := new(uint256.Int).Lsh(hi, uint(loSize)*8)
	return new(uint256.Int).Or(shiftedHi, lo)
}
