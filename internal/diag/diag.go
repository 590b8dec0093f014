// Package diag implements the diagnostic-kind/ErrorList pair the core uses
// to "give up gracefully" (§7): a failed pass records a diagnostic and lets
// the pipeline continue producing best-effort output rather than
// unwinding, the same accumulate-and-continue discipline
// lang/scanner.ErrorList uses for syntax errors.
package diag

import (
	"fmt"
	"sort"
	"strings"

	"github.com/tsgates/pcodec/internal/sla"
)

// Kind is the closed set of error categories §7 distinguishes. The kind
// controls recoverability, not presentation: a LowLevel diagnostic is
// fatal for the owning function, the rest are warnings attached to the
// function or call site that produced them.
type Kind int

const (
	LowLevel Kind = iota
	ParseConfig
	DataUnavailable
	RecoveryExceeded
	PrototypeError
)

func (k Kind) String() string {
	switch k {
	case LowLevel:
		return "low-level"
	case ParseConfig:
		return "parse/configuration"
	case DataUnavailable:
		return "data unavailable"
	case RecoveryExceeded:
		return "recovery exceeded"
	case PrototypeError:
		return "prototype error"
	default:
		return "unknown"
	}
}

// Fatal reports whether a diagnostic of this kind must abort the owning
// function's decompilation rather than merely annotate it (§7).
func (k Kind) Fatal() bool { return k == LowLevel || k == ParseConfig }

// Diagnostic is one recorded error or warning, optionally tied to an
// address in the function being analysed.
type Diagnostic struct {
	Kind    Kind
	Addr    sla.Address
	Message string
}

func (d Diagnostic) String() string {
	if d.Addr.IsInvalid() {
		return fmt.Sprintf("%s: %s", d.Kind, d.Message)
	}
	return fmt.Sprintf("%s at %s: %s", d.Kind, d.Addr, d.Message)
}

// ErrorList accumulates diagnostics across a decompilation run without
// ever unwinding the caller, mirroring scanner.ErrorList's Add-then-ask
// idiom but keyed by Kind and sla.Address instead of token.Position.
type ErrorList struct {
	items []Diagnostic
}

// Add appends one diagnostic. addr may be the zero Address when the
// diagnostic is not tied to a specific location.
func (l *ErrorList) Add(kind Kind, addr sla.Address, format string, args ...interface{}) {
	l.items = append(l.items, Diagnostic{Kind: kind, Addr: addr, Message: fmt.Sprintf(format, args...)})
}

// Items returns a stable-sorted snapshot (by address, then kind).
func (l *ErrorList) Items() []Diagnostic {
	out := append([]Diagnostic(nil), l.items...)
	sort.SliceStable(out, func(i, j int) bool {
		ai, aj := out[i].Addr, out[j].Addr
		if ai.IsInvalid() != aj.IsInvalid() {
			return aj.IsInvalid()
		}
		if !ai.IsInvalid() && ai.Compare(aj) != 0 {
			return ai.Compare(aj) < 0
		}
		return out[i].Kind < out[j].Kind
	})
	return out
}

func (l *ErrorList) Empty() bool { return len(l.items) == 0 }

// HasFatal reports whether any accumulated diagnostic is of a Kind that
// must abort the owning function's decompilation.
func (l *ErrorList) HasFatal() bool {
	for _, d := range l.items {
		if d.Kind.Fatal() {
			return true
		}
	}
	return false
}

func (l *ErrorList) Error() string {
	if len(l.items) == 0 {
		return "no diagnostics"
	}
	var sb strings.Builder
	for i, d := range l.Items() {
		if i > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(d.String())
	}
	return sb.String()
}
