// Package resolver fills template parameters from the flattened payload,
// configured defaults, or the consumable value pool.
package resolver

import (
	"context"
	"log/slog"
	"strings"

	"github.com/tienchinh21/BKASIM-TEST-sub006/internal/domain"
	"github.com/tienchinh21/BKASIM-TEST-sub006/internal/payload"
	"github.com/tienchinh21/BKASIM-TEST-sub006/internal/pool"
)

// Result holds resolved parameter values and the pool records claimed while
// resolving them. Claims must be finalized with pool.Store.Release.
type Result struct {
	Values map[string]string
	Claims []string
}

// Resolver resolves parameter specs.
type Resolver struct {
	pool pool.Store
}

// NewResolver creates a resolver. A nil pool disables pool lookups.
func NewResolver(p pool.Store) *Resolver {
	return &Resolver{pool: p}
}

// Resolve maps each spec to a value:
//  1. the stringified default,
//  2. replaced by flattened[sourceKey] when that key is present (even if empty),
//  3. otherwise by a claimed pool value when sourceKey has the form "code.key".
//
// An empty payload short-circuits to defaults without touching the pool.
func (r *Resolver) Resolve(ctx context.Context, specs []domain.ParamSpec, flattened map[string]string) Result {
	res := Result{Values: make(map[string]string, len(specs))}

	if len(flattened) == 0 {
		for _, spec := range specs {
			res.Values[spec.ParamName] = payload.Stringify(spec.DefaultValue)
		}
		return res
	}

	for _, spec := range specs {
		value := payload.Stringify(spec.DefaultValue)

		if v, ok := flattened[spec.SourceKey]; ok {
			value = v
		} else if code, key, ok := PoolKey(spec.SourceKey); ok && r.pool != nil {
			claimed, found, err := r.pool.Claim(ctx, code, key)
			switch {
			case err != nil:
				slog.Warn("Failed to claim pool value, using default",
					"param", spec.ParamName,
					"code", code,
					"key", key,
					"error", err,
				)
			case found:
				value = claimed.Value
				res.Claims = append(res.Claims, claimed.ID)
			default:
				slog.Debug("No unused pool value",
					"param", spec.ParamName,
					"code", code,
					"key", key,
				)
			}
		}

		res.Values[spec.ParamName] = value
	}

	return res
}

// PoolKey splits a "code.key" source key. Exactly one separator is allowed
// and both halves must be non-empty.
func PoolKey(sourceKey string) (code, key string, ok bool) {
	if strings.Count(sourceKey, ".") != 1 {
		return "", "", false
	}
	code, key, _ = strings.Cut(sourceKey, ".")
	if code == "" || key == "" {
		return "", "", false
	}
	return code, key, true
}
