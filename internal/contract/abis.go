package contract

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// BuiltinKind describes a contract interface whose ABI is embedded in the
// binary. Built-ins register themselves via init() in their own file.
type BuiltinKind struct {
	ID          string // machine key, e.g. "farm-token"
	Name        string // human label
	Description string // one-line summary
	JSON        string // raw ABI JSON
	ABI         abi.ABI
}

// Methods returns the method signatures sorted by name.
func (b BuiltinKind) Methods() []string {
	out := make([]string, 0, len(b.ABI.Methods))
	for _, m := range b.ABI.Methods {
		out = append(out, m.Sig+" "+m.StateMutability)
	}
	sort.Strings(out)
	return out
}

var builtinRegistry = map[string]BuiltinKind{}

// RegisterBuiltin parses abiJSON and adds it to the registry.
// It panics on malformed JSON, so call it from init().
func RegisterBuiltin(id, name, description, abiJSON string) {
	parsed, err := abi.JSON(strings.NewReader(abiJSON))
	if err != nil {
		panic(fmt.Sprintf("contract: builtin %s: %v", id, err))
	}
	builtinRegistry[id] = BuiltinKind{
		ID:          id,
		Name:        name,
		Description: description,
		JSON:        abiJSON,
		ABI:         parsed,
	}
}

// GetBuiltin returns a built-in by ID. ok is false if not found.
func GetBuiltin(id string) (BuiltinKind, bool) {
	b, ok := builtinRegistry[id]
	return b, ok
}

// AllBuiltins returns all registered built-ins sorted by ID.
func AllBuiltins() []BuiltinKind {
	out := make([]BuiltinKind, 0, len(builtinRegistry))
	for _, b := range builtinRegistry {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func mustBuiltin(id string) abi.ABI {
	b, ok := builtinRegistry[id]
	if !ok {
		panic("contract: builtin " + id + " not registered")
	}
	return b.ABI
}
