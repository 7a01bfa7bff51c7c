package hostapi

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/hailam/corengine/internal/xerrors"
)

// OptionKind tags which of the five recognized option shapes an Option is,
// the way UCI's "option name ... type ..." line does, collapsed down to a
// single registry instead of the two separate command-layer styles the
// protocol historically grew.
type OptionKind int

const (
	OptionSpin OptionKind = iota
	OptionCheck
	OptionString
	OptionCombo
	OptionButton
)

func (k OptionKind) String() string {
	switch k {
	case OptionSpin:
		return "spin"
	case OptionCheck:
		return "check"
	case OptionString:
		return "string"
	case OptionCombo:
		return "combo"
	case OptionButton:
		return "button"
	default:
		return "unknown"
	}
}

// Option describes one named, typed setting a host can list and set. Only
// the fields relevant to Kind are meaningful: Min/Max for OptionSpin, Vars
// for OptionCombo, Default for every kind except OptionButton.
type Option struct {
	Name    string
	Kind    OptionKind
	Default string
	Min     int
	Max     int
	Vars    []string
}

// OptionHandler applies a value for one Option. The registry checks only
// spin values (an integer within [Min, Max]) before calling it; values of
// the other kinds reach the handler unchecked.
type OptionHandler func(h *Host, value string) error

// OptionRegistry is the unified command/option dispatcher named in REDESIGN
// FLAGS §9: one table of named, typed, bounded settings instead of a
// free-form string switch. Names are matched case-insensitively, matching
// the text protocol's convention.
type OptionRegistry struct {
	host     *Host
	order    []string
	options  map[string]Option
	handlers map[string]OptionHandler
}

// NewOptionRegistry builds the registry bound to host and populates the
// engine's standard option set (hash size, thread count, MultiPV,
// contempt, chess960, NNUE weight files).
func NewOptionRegistry(host *Host) *OptionRegistry {
	r := &OptionRegistry{
		host:     host,
		options:  make(map[string]Option),
		handlers: make(map[string]OptionHandler),
	}

	r.register(Option{Name: "Hash", Kind: OptionSpin, Default: "64", Min: 1, Max: 65536},
		func(h *Host, value string) error {
			mb, err := strconv.Atoi(value)
			if err != nil {
				return fmt.Errorf("Hash: %w", err)
			}
			return h.eng.ResizeTT(mb)
		})

	r.register(Option{Name: "Threads", Kind: OptionSpin, Default: "1", Min: 1, Max: 512},
		func(h *Host, value string) error {
			n, err := strconv.Atoi(value)
			if err != nil {
				return fmt.Errorf("Threads: %w", err)
			}
			h.mu.Lock()
			defer h.mu.Unlock()
			if err := h.eng.SetThreads(n); err != nil {
				return err
			}
			h.threads = n
			return nil
		})

	r.register(Option{Name: "MultiPV", Kind: OptionSpin, Default: "1", Min: 1, Max: 256},
		func(h *Host, value string) error {
			_, err := strconv.Atoi(value)
			return err
		})

	r.register(Option{Name: "Contempt", Kind: OptionSpin, Default: "0", Min: -1000, Max: 1000},
		func(h *Host, value string) error {
			cp, err := strconv.Atoi(value)
			if err != nil {
				return fmt.Errorf("Contempt: %w", err)
			}
			h.eng.SetContempt(cp)
			return nil
		})

	r.register(Option{Name: "Chess960", Kind: OptionCheck, Default: "false"},
		func(h *Host, value string) error { return nil })

	r.register(Option{Name: "UseNNUE", Kind: OptionCheck, Default: "false"},
		func(h *Host, value string) error {
			use := strings.EqualFold(value, "true")
			if use && !h.eng.HasNNUE() {
				return fmt.Errorf("UseNNUE: no NNUE weights loaded")
			}
			h.eng.SetUseNNUE(use)
			return nil
		})

	r.register(Option{Name: "EvalFile", Kind: OptionString, Default: "<empty>"},
		func(h *Host, value string) error {
			h.nnueBigPath = value
			return h.tryLoadNNUE()
		})

	r.register(Option{Name: "EvalFileSmall", Kind: OptionString, Default: "<empty>"},
		func(h *Host, value string) error {
			h.nnueSmallPath = value
			return h.tryLoadNNUE()
		})

	r.register(Option{Name: "Clear Hash", Kind: OptionButton},
		func(h *Host, value string) error {
			h.ClearTT()
			return nil
		})

	return r
}

func (r *OptionRegistry) register(opt Option, handler OptionHandler) {
	key := strings.ToLower(opt.Name)
	r.order = append(r.order, key)
	r.options[key] = opt
	r.handlers[key] = handler
}

// Options returns every registered option in registration order, the shape
// a host prints in response to a capabilities query.
func (r *OptionRegistry) Options() []Option {
	out := make([]Option, 0, len(r.order))
	for _, key := range r.order {
		out = append(out, r.options[key])
	}
	return out
}

// Has reports whether name is a registered option, case-insensitively.
func (r *OptionRegistry) Has(name string) bool {
	_, ok := r.options[strings.ToLower(name)]
	return ok
}

// Set validates and applies a named option's value. An unknown name or a
// spin value outside [Min, Max] is an Input error, per the error-handling
// policy: the core rejects it and leaves state unchanged.
func (r *OptionRegistry) Set(name, value string) error {
	key := strings.ToLower(name)
	opt, ok := r.options[key]
	if !ok {
		return xerrors.New(xerrors.KindInput, "hostapi", fmt.Sprintf("unknown option %q", name))
	}

	if opt.Kind == OptionSpin {
		n, err := strconv.Atoi(value)
		if err != nil {
			return xerrors.Wrap(xerrors.KindInput, "hostapi", fmt.Sprintf("option %q", name), err)
		}
		if n < opt.Min || n > opt.Max {
			return xerrors.New(xerrors.KindInput, "hostapi", fmt.Sprintf("option %q: value %d out of range [%d, %d]", name, n, opt.Min, opt.Max))
		}
	}

	return r.handlers[key](r.host, value)
}
