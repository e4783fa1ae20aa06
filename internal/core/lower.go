package core

import "fmt"

// Error is returned when lowering fails (eg. unmatched brackets).
type Error struct {
	Msg string
	Pos Position
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s at %s", e.Msg, e.Pos)
}

// Lower converts a token stream into a Program. Runs of the same cell or
// pointer command collapse into a single op as they are scanned: cell
// arithmetic folds mod 256 since cells are bytes, pointer shifts fold
// without a modulus. Loops pair up through a stack of open JZ indices,
// which also pins unmatched-bracket errors to the right source position.
func Lower(toks []Token) (Program, error) {
	ops := make(Program, 0, len(toks))
	var open []int // indices of JZ ops awaiting their JNZ

	for i := 0; i < len(toks); {
		tok := toks[i]
		pos := &Position{tok.Pos.Offset, tok.Pos.Line, tok.Pos.Column}

		switch tok.Kind {
		case TokEOF:
			if len(open) > 0 {
				return nil, &Error{"unmatched '['", *ops[open[0]].Pos}
			}
			return ops, nil

		case TokOpen:
			open = append(open, len(ops))
			ops = append(ops, Op{Kind: OpJz, Pos: pos})
			i++

		case TokClose:
			if len(open) == 0 {
				return nil, &Error{"unmatched ']'", tok.Pos}
			}
			start := open[len(open)-1]
			open = open[:len(open)-1]
			ops = append(ops, Op{Kind: OpJnz, Arg: int32(start), Pos: pos})
			ops[start].Arg = int32(len(ops))
			i++

		case TokInc, TokDec, TokRight, TokLeft:
			j := i + 1
			for j < len(toks) && toks[j].Kind == tok.Kind {
				j++
			}
			k := int32(j - i)
			if tok.Kind == TokDec || tok.Kind == TokLeft {
				k = -k
			}
			if tok.Kind == TokInc || tok.Kind == TokDec {
				ops = append(ops, Op{Kind: OpAdd, Arg: k % 256, Pos: pos})
			} else {
				ops = append(ops, Op{Kind: OpShift, Arg: k, Pos: pos})
			}
			i = j

		case TokIn:
			ops = append(ops, Op{Kind: OpIn, Pos: pos})
			i++

		case TokOut:
			ops = append(ops, Op{Kind: OpOut, Pos: pos})
			i++

		default:
			return nil, &Error{"unexpected token", tok.Pos}
		}
	}
	return ops, nil
}
