package action

import (
	"math"
	"slices"
	"strconv"
	"strings"
)

const nullLevel = "NULL"

// Result is the outcome of decoding one block of oracle text.
//
// Instructions holds every line that decoded cleanly, keyed by symbol.
// Discarded counts non-empty lines that were dropped: no ':' separator,
// unknown verb, or an argument that failed to parse. A later line for the
// same symbol replaces an earlier one.
type Result struct {
	Instructions map[string]Instruction
	Discarded    int
}

// Symbols returns the decoded symbols in sorted order.
func (r Result) Symbols() []string {
	out := make([]string, 0, len(r.Instructions))
	for sym := range r.Instructions {
		out = append(out, sym)
	}
	slices.Sort(out)
	return out
}

// Get returns the instruction for sym, or Hold when sym was not mentioned.
func (r Result) Get(sym string) (Instruction, bool) {
	in, ok := r.Instructions[sym]
	if !ok {
		return Hold{}, false
	}
	return in, true
}

// Decode parses oracle text of the form
//
//	BTC: BUY_LONG 50% 58000 70000
//	SOL: HOLD
//
// one instruction per line. Text is upper-cased before parsing. Decode never
// fails: a bad line is counted in Result.Discarded and skipped.
func Decode(text string) Result {
	res := Result{Instructions: make(map[string]Instruction)}

	for _, raw := range strings.Split(strings.ToUpper(text), "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		sym, in, ok := decodeLine(line)
		if !ok {
			res.Discarded++
			continue
		}
		res.Instructions[sym] = in
	}
	return res
}

func decodeLine(line string) (string, Instruction, bool) {
	sym, rest, found := strings.Cut(line, ":")
	if !found {
		return "", nil, false
	}
	sym = strings.TrimSpace(sym)
	parts := strings.Fields(rest)
	if sym == "" || len(parts) == 0 {
		return "", nil, false
	}

	verb, args := parts[0], parts[1:]
	switch verb {
	case VerbBuyLong, VerbSellShort:
		pct, sl, tp, ok := openArgs(args)
		if !ok {
			return "", nil, false
		}
		if verb == VerbBuyLong {
			return sym, OpenLong{Percent: pct, StopLoss: sl, TakeProfit: tp}, true
		}
		return sym, OpenShort{Percent: pct, StopLoss: sl, TakeProfit: tp}, true

	case VerbCloseLong, VerbCloseShort, VerbBuy, VerbSell:
		pct, ok := percentArg(args, 0)
		if !ok {
			return "", nil, false
		}
		switch verb {
		case VerbCloseLong:
			return sym, CloseLong{Percent: pct}, true
		case VerbCloseShort:
			return sym, CloseShort{Percent: pct}, true
		case VerbBuy:
			return sym, SpotBuy{Percent: pct}, true
		default:
			return sym, SpotSell{Percent: pct}, true
		}

	case VerbHold:
		return sym, Hold{}, true
	}
	return "", nil, false
}

func openArgs(args []string) (pct float64, sl, tp *float64, ok bool) {
	if pct, ok = percentArg(args, 0); !ok {
		return 0, nil, nil, false
	}
	if sl, ok = levelArg(args, 1); !ok {
		return 0, nil, nil, false
	}
	if tp, ok = levelArg(args, 2); !ok {
		return 0, nil, nil, false
	}
	return pct, sl, tp, true
}

// percentArg reads "50%" or "50" as 0.5. A missing argument is 0.
func percentArg(args []string, i int) (float64, bool) {
	if i >= len(args) {
		return 0, true
	}
	v, err := strconv.ParseFloat(strings.TrimSuffix(args[i], "%"), 64)
	if err != nil || math.IsNaN(v) {
		return 0, false
	}
	pct := v / 100
	if pct < 0 || pct > 1 {
		return 0, false
	}
	return pct, true
}

// levelArg reads a price level. Missing, NULL or 0 is absent.
func levelArg(args []string, i int) (*float64, bool) {
	if i >= len(args) || args[i] == nullLevel {
		return nil, true
	}
	v, err := strconv.ParseFloat(args[i], 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return nil, false
	}
	if v == 0 {
		return nil, true
	}
	return &v, true
}
